package repository

// Key prefixes. Every key is suffixed with ":<driverID>".
const (
	billingLivePrefix      = "billing.live:"
	billingRecordsPrefix   = "billing.records:"
	progressionTotalPrefix = "progression.totalRides:"
	vipMonthStatePrefix    = "vip.monthState:"
)

// BillingLiveKey is the key of a driver's LiveBillingState.
func BillingLiveKey(driverID string) string { return billingLivePrefix + driverID }

// BillingRecordsKey is the key of a driver's ordered BillingRecord list.
func BillingRecordsKey(driverID string) string { return billingRecordsPrefix + driverID }

// ProgressionTotalKey is the key of a driver's lifetime completed-ride counter.
func ProgressionTotalKey(driverID string) string { return progressionTotalPrefix + driverID }

// VIPMonthStateKey is the key of a driver's VIP month bookkeeping.
func VIPMonthStateKey(driverID string) string { return vipMonthStatePrefix + driverID }
