package service

import (
	"context"
	"fmt"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"go.uber.org/zap"

	"ridemeter/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationChargeRecorded  NotificationType = "CHARGE_RECORDED"
	NotificationLevelUp         NotificationType = "LEVEL_UP"
	NotificationVIPEntered      NotificationType = "VIP_ENTERED"
	NotificationVIPMonthSettled NotificationType = "VIP_MONTH_SETTLED"
	NotificationVIPBonus        NotificationType = "VIP_BONUS"
)

// Notification represents a notification to be sent.
type Notification struct {
	Type        NotificationType
	RecipientID string // Driver ID
	Title       string
	Message     string
	Data        map[string]interface{}
	CreatedAt   time.Time
}

// NotificationService delivers charge and bonus events to the driver-facing layer.
// Delivery is a structured log line plus, when configured, a New Relic custom event.
type NotificationService struct {
	log   *zap.Logger
	nrApp *newrelic.Application
}

// NewNotificationService creates a new NotificationService. Both arguments may be nil.
func NewNotificationService(logger *zap.Logger, nrApp *newrelic.Application) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{log: logger.Named("notify"), nrApp: nrApp}
}

// NotifyChargeRecorded notifies the driver that a billing session was closed.
func (s *NotificationService) NotifyChargeRecorded(ctx context.Context, record *domain.BillingRecord) error {
	if s == nil || record == nil {
		return nil
	}
	s.send(ctx, Notification{
		Type:        NotificationChargeRecorded,
		RecipientID: record.DriverID,
		Title:       "Session Charged",
		Message:     fmt.Sprintf("%s session closed: %ds billed, %s", record.Type, record.ChargedSeconds, record.Amount),
		Data: map[string]interface{}{
			"record_id":       record.ID,
			"session_type":    string(record.Type),
			"charged_seconds": record.ChargedSeconds,
			"amount_cents":    record.Amount.Amount,
			"currency":        record.Amount.Currency,
		},
		CreatedAt: record.EndedAt,
	})
	return nil
}

// NotifyBonus notifies the driver that a bonus is due.
func (s *NotificationService) NotifyBonus(ctx context.Context, event domain.BonusEvent) error {
	if s == nil {
		return nil
	}
	notificationType := NotificationVIPBonus
	title := "VIP Bonus"
	if event.Kind == domain.BonusLevelUp {
		notificationType = NotificationLevelUp
		title = "Level Up"
	}
	s.send(ctx, Notification{
		Type:        notificationType,
		RecipientID: event.DriverID,
		Title:       title,
		Message:     fmt.Sprintf("%s bonus of %s", event.Kind, event.Amount),
		Data: map[string]interface{}{
			"kind":         string(event.Kind),
			"tier_key":     event.TierKey,
			"month":        event.Month,
			"amount_cents": event.Amount.Amount,
			"currency":     event.Amount.Currency,
		},
		CreatedAt: event.At,
	})
	return nil
}

// NotifyVIPEntered notifies the driver that tiered progression is complete.
func (s *NotificationService) NotifyVIPEntered(ctx context.Context, driverID string, totalRides int, at time.Time) error {
	if s == nil {
		return nil
	}
	s.send(ctx, Notification{
		Type:        NotificationVIPEntered,
		RecipientID: driverID,
		Title:       "Welcome to VIP",
		Message:     fmt.Sprintf("You completed %d rides and joined the VIP programme", totalRides),
		Data:        map[string]interface{}{"total_rides": totalRides},
		CreatedAt:   at,
	})
	return nil
}

// NotifyMonthSettled notifies the driver of a closed VIP month.
func (s *NotificationService) NotifyMonthSettled(ctx context.Context, driverID string, settlement domain.MonthSettlement) error {
	if s == nil {
		return nil
	}
	s.send(ctx, Notification{
		Type:        NotificationVIPMonthSettled,
		RecipientID: driverID,
		Title:       "VIP Month Closed",
		Message:     fmt.Sprintf("%s: %d qualifying days, streak %d", settlement.Month, settlement.DaysOnline, settlement.ConsecutiveQualifyingMonths),
		Data: map[string]interface{}{
			"month":              settlement.Month,
			"days_online":        settlement.DaysOnline,
			"qualified":          settlement.Qualified,
			"consecutive_months": settlement.ConsecutiveQualifyingMonths,
		},
		CreatedAt: settlement.SettledAt,
	})
	return nil
}

// send logs the notification and mirrors it to New Relic when enabled.
func (s *NotificationService) send(ctx context.Context, n Notification) {
	s.log.Info("notification",
		zap.String("type", string(n.Type)),
		zap.String("recipient", n.RecipientID),
		zap.String("title", n.Title),
		zap.String("message", n.Message),
		zap.Any("data", n.Data),
	)

	if s.nrApp == nil {
		return
	}
	params := map[string]interface{}{
		"type":      string(n.Type),
		"recipient": n.RecipientID,
	}
	for k, v := range n.Data {
		params[k] = v
	}
	s.nrApp.RecordCustomEvent("DriverEngineNotification", params)
}
