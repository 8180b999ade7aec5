package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridemeter/internal/domain"
	"ridemeter/internal/repository"
	"ridemeter/internal/repository/memory"
)

func TestComputeCharge(t *testing.T) {
	testCases := []struct {
		name        string
		sessionType domain.BillingSessionType
		elapsed     time.Duration
		wantSeconds int64
		wantCents   int64
	}{
		{"waiting inside allowance", domain.SessionWaiting, 120 * time.Second, 0, 0},
		{"waiting at allowance", domain.SessionWaiting, 300 * time.Second, 0, 0},
		{"waiting past allowance", domain.SessionWaiting, 310 * time.Second, 10, 10},
		{"waiting truncates fractions", domain.SessionWaiting, 310*time.Second + 999*time.Millisecond, 10, 10},
		{"emergency from first second", domain.SessionEmergency, 12 * time.Second, 12, 12},
		{"emergency under one second", domain.SessionEmergency, 900 * time.Millisecond, 0, 0},
		{"clock moved backwards", domain.SessionEmergency, -5 * time.Second, 0, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			seconds, amount := ComputeCharge(tc.sessionType, testStart, testStart.Add(tc.elapsed))
			assert.Equal(t, tc.wantSeconds, seconds)
			assert.Equal(t, tc.wantCents, amount.Amount)
		})
	}
}

func TestBillingMeter_WaitingChargesOnlyPastAllowance(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.meter.StartWaiting(ctx, "driver-1"))
	e.clock.Advance(310 * time.Second)

	record, err := e.meter.StopWaiting(ctx, "driver-1")
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, domain.SessionWaiting, record.Type)
	assert.Equal(t, int64(10), record.ChargedSeconds)
	assert.Equal(t, "0.10", record.Amount.Decimal())
	assert.Equal(t, testStart, record.StartedAt)
	assert.Equal(t, testStart.Add(310*time.Second), record.EndedAt)
	assert.Regexp(t, `^\d+-[0-9a-f]{8}$`, record.ID)

	live, err := e.meter.LiveState(ctx, "driver-1")
	require.NoError(t, err)
	_, active := live.Active(domain.SessionWaiting)
	assert.False(t, active)

	records, err := e.meter.Records(ctx, "driver-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, *record, records[0])
}

func TestBillingMeter_EmergencyChargesEverySecond(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.meter.StartEmergency(ctx, "driver-1"))
	e.clock.Advance(12 * time.Second)

	record, err := e.meter.StopEmergency(ctx, "driver-1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, int64(12), record.ChargedSeconds)
	assert.Equal(t, "0.12", record.Amount.Decimal())
}

func TestBillingMeter_StartIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.meter.StartWaiting(ctx, "driver-1"))
	e.clock.Advance(100 * time.Second)
	require.NoError(t, e.meter.StartWaiting(ctx, "driver-1"))
	e.clock.Advance(210 * time.Second)

	record, err := e.meter.StopWaiting(ctx, "driver-1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, testStart, record.StartedAt)
	assert.Equal(t, int64(10), record.ChargedSeconds)
}

func TestBillingMeter_StopWithoutSessionReturnsNoRecord(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	record, err := e.meter.StopEmergency(ctx, "driver-1")
	assert.NoError(t, err)
	assert.Nil(t, record)
	assert.False(t, e.store.Has(repository.BillingRecordsKey("driver-1")))

	require.NoError(t, e.meter.StartWaiting(ctx, "driver-1"))
	record, err = e.meter.StopEmergency(ctx, "driver-1")
	assert.NoError(t, err)
	assert.Nil(t, record)
}

func TestBillingMeter_SessionsAreIndependent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.meter.StartWaiting(ctx, "driver-1"))
	e.clock.Advance(60 * time.Second)
	require.NoError(t, e.meter.StartEmergency(ctx, "driver-1"))
	e.clock.Advance(20 * time.Second)

	emergency, err := e.meter.StopEmergency(ctx, "driver-1")
	require.NoError(t, err)
	require.NotNil(t, emergency)
	assert.Equal(t, int64(20), emergency.ChargedSeconds)

	live, err := e.meter.LiveState(ctx, "driver-1")
	require.NoError(t, err)
	startedAt, active := live.Active(domain.SessionWaiting)
	assert.True(t, active)
	assert.Equal(t, testStart, startedAt)

	_, err = e.meter.Records(ctx, "driver-2")
	require.NoError(t, err)
	other, err := e.meter.LiveState(ctx, "driver-2")
	require.NoError(t, err)
	assert.Equal(t, domain.LiveBillingState{}, other)
}

func TestBillingMeter_RejectsInvalidInput(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	assert.ErrorIs(t, e.meter.StartWaiting(ctx, ""), ErrInvalidDriverID)
	assert.ErrorIs(t, e.meter.Start(ctx, "driver-1", domain.BillingSessionType("parked")), ErrInvalidSessionType)

	_, err := e.meter.Stop(ctx, "driver-1", domain.BillingSessionType("parked"))
	assert.ErrorIs(t, err, ErrInvalidSessionType)
	_, err = e.meter.Records(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidDriverID)
}

func TestBillingMeter_StorageWriteFailureIsLogged(t *testing.T) {
	e := newTestEngine(t)
	e.store.SetFailures(nil, errInjected, nil)

	err := e.meter.StartWaiting(context.Background(), "driver-1")

	assert.NoError(t, err)
	assert.Equal(t, 1, e.logs.FilterMessage("live state write failed").Len())
	assert.Equal(t, 0, e.store.Len())
}

func TestBillingMeter_StopWithUnreadableStateRecordsNothing(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, e.meter.StartEmergency(ctx, "driver-1"))
	e.clock.Advance(30 * time.Second)

	e.store.SetFailures(errInjected, nil, nil)
	record, err := e.meter.StopEmergency(ctx, "driver-1")

	assert.NoError(t, err)
	assert.Nil(t, record)
	assert.Equal(t, 1, e.logs.FilterMessage("live state read failed, no charge recorded").Len())
}

func TestBillingMeter_StartWithUnreadableStateKeepsOpenSessions(t *testing.T) {
	backing := memory.NewStore()
	failing := &prefixFailStore{Store: backing}
	e := buildTestEngine(backing, failing)
	ctx := context.Background()

	require.NoError(t, e.meter.StartEmergency(ctx, "driver-1"))
	e.clock.Advance(60 * time.Second)

	failing.failGets = 1
	require.NoError(t, e.meter.StartWaiting(ctx, "driver-1"))
	assert.Equal(t, 1, e.logs.FilterMessage("live state read failed, session not started").Len())

	live, err := e.meter.LiveState(ctx, "driver-1")
	require.NoError(t, err)
	assert.True(t, live.EmergencyActive)
	assert.False(t, live.WaitingActive)

	e.clock.Advance(60 * time.Second)
	record, err := e.meter.StopEmergency(ctx, "driver-1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, int64(120), record.ChargedSeconds)
	assert.Equal(t, int64(120), record.Amount.Amount)
}

func TestBillingMeter_UnreadableRecordListIsNotOverwritten(t *testing.T) {
	backing := memory.NewStore()
	failing := &prefixFailStore{Store: backing}
	e := buildTestEngine(backing, failing)
	ctx := context.Background()

	require.NoError(t, e.meter.StartEmergency(ctx, "driver-1"))
	e.clock.Advance(5 * time.Second)
	first, err := e.meter.StopEmergency(ctx, "driver-1")
	require.NoError(t, err)
	require.NotNil(t, first)

	failing.prefix = "billing.records:"
	require.NoError(t, e.meter.StartEmergency(ctx, "driver-1"))
	e.clock.Advance(7 * time.Second)
	second, err := e.meter.StopEmergency(ctx, "driver-1")
	require.NoError(t, err)
	require.NotNil(t, second, "record is still returned to the caller")
	assert.Equal(t, int64(7), second.ChargedSeconds)
	assert.Equal(t, 1, e.logs.FilterMessage("record list read failed, record not persisted").Len())

	failing.prefix = ""
	records, err := e.meter.Records(ctx, "driver-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, first.ID, records[0].ID)
}

func TestBillingMeter_ClearAndReset(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.meter.StartEmergency(ctx, "driver-1"))
	e.clock.Advance(time.Second)
	_, err := e.meter.StopEmergency(ctx, "driver-1")
	require.NoError(t, err)
	require.NoError(t, e.meter.StartWaiting(ctx, "driver-1"))

	require.NoError(t, e.meter.ClearRecords(ctx, "driver-1"))
	require.NoError(t, e.meter.ResetLiveState(ctx, "driver-1"))

	records, err := e.meter.Records(ctx, "driver-1")
	require.NoError(t, err)
	assert.Empty(t, records)

	record, err := e.meter.StopWaiting(ctx, "driver-1")
	assert.NoError(t, err)
	assert.Nil(t, record, "reset drops open sessions without a charge")
}

func TestBillingMeter_RecordsAccumulateInOrder(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, e.meter.StartEmergency(ctx, "driver-1"))
		e.clock.Advance(time.Duration(i) * time.Second)
		_, err := e.meter.StopEmergency(ctx, "driver-1")
		require.NoError(t, err)
	}

	records, err := e.meter.Records(ctx, "driver-1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, r := range records {
		assert.Equal(t, int64(i+1), r.ChargedSeconds)
	}
}

func TestBillingMeter_CurrencyLabel(t *testing.T) {
	e := newTestEngine(t)
	e.meter.WithCurrency("EUR")
	ctx := context.Background()

	require.NoError(t, e.meter.StartEmergency(ctx, "driver-1"))
	e.clock.Advance(3 * time.Second)
	record, err := e.meter.StopEmergency(ctx, "driver-1")
	require.NoError(t, err)
	assert.Equal(t, "0.03 EUR", record.Amount.String())
}

func TestBillingState_JSONRoundTrip(t *testing.T) {
	started := testStart.Add(1500 * time.Millisecond)
	live := domain.LiveBillingState{}
	live.Open(domain.SessionEmergency, started)

	records := []domain.BillingRecord{
		{
			ID:             "1767603610000-0a1b2c3d",
			DriverID:       "driver-1",
			Type:           domain.SessionWaiting,
			StartedAt:      testStart,
			EndedAt:        testStart.Add(310 * time.Second),
			ChargedSeconds: 10,
			Amount:         domain.Cents(10),
		},
	}

	liveJSON, err := json.Marshal(live)
	require.NoError(t, err)
	recordsJSON, err := json.Marshal(records)
	require.NoError(t, err)

	var gotLive domain.LiveBillingState
	var gotRecords []domain.BillingRecord
	require.NoError(t, json.Unmarshal(liveJSON, &gotLive))
	require.NoError(t, json.Unmarshal(recordsJSON, &gotRecords))

	assert.Equal(t, live, gotLive)
	assert.Equal(t, records, gotRecords)
	assert.JSONEq(t, `{"emergency_active":true,"emergency_started_at":"2026-01-05T09:00:01.5Z","waiting_active":false}`, string(liveJSON))
}
