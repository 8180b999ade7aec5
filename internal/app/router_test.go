package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridemeter/internal/clock"
	"ridemeter/internal/config"
	"ridemeter/internal/handler"
	"ridemeter/internal/repository/memory"
	"ridemeter/internal/service"
)

type testServer struct {
	router *gin.Engine
	clock  *clock.Fake
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clk := clock.NewFake(time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC))
	cfg := config.EngineConfig{
		Store:          config.StoreMemory,
		Locks:          config.LocksLocal,
		Timezone:       "UTC",
		Currency:       "usd",
		IdempotencyTTL: time.Hour,
	}
	engine, err := NewEngine(context.Background(), cfg, EngineDeps{Clock: clk})
	require.NoError(t, err)

	router := NewRouterForEngine(engine, RouterDeps{
		ResponseCache:  memory.NewResponseCache(clk),
		IdempotencyTTL: cfg.IdempotencyTTL,
	}, cfg.Currency)
	return &testServer{router: router, clock: clk}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRouter_WaitingSessionLifecycle(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/v1/drivers/driver-1/billing/waiting/start", "")
	require.Equal(t, http.StatusOK, w.Code)
	live := decode[handler.LiveStateResponse](t, w)
	assert.True(t, live.Live.WaitingActive)

	s.clock.Advance(310 * time.Second)

	w = s.do(t, http.MethodPost, "/v1/drivers/driver-1/billing/waiting/stop", "")
	require.Equal(t, http.StatusOK, w.Code)
	stopped := decode[handler.StopSessionResponse](t, w)
	assert.True(t, stopped.Charged)
	require.NotNil(t, stopped.Record)
	assert.Equal(t, int64(10), stopped.Record.ChargedSeconds)
	assert.Equal(t, "0.10", stopped.Record.Amount.Decimal())

	w = s.do(t, http.MethodGet, "/v1/drivers/driver-1/billing/records", "")
	require.Equal(t, http.StatusOK, w.Code)
	records := decode[handler.RecordsResponse](t, w)
	require.Len(t, records.Records, 1)
	assert.Equal(t, stopped.Record.ID, records.Records[0].ID)

	w = s.do(t, http.MethodGet, "/v1/drivers/driver-1/billing/statement?format=text", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "0.10 USD")

	w = s.do(t, http.MethodDelete, "/v1/drivers/driver-1/billing/records", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/v1/drivers/driver-1/billing/records", "")
	assert.JSONEq(t, `{"driver_id":"driver-1","records":[]}`, w.Body.String())
}

func TestRouter_StopWithoutSession(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/v1/drivers/driver-1/billing/emergency/stop", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"driver_id":"driver-1","charged":false,"record":null}`, w.Body.String())
}

func TestRouter_UnknownSessionType(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/v1/drivers/driver-1/billing/parked/start", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_ResetLiveState(t *testing.T) {
	s := newTestServer(t)

	s.do(t, http.MethodPost, "/v1/drivers/driver-1/billing/emergency/start", "")
	w := s.do(t, http.MethodDelete, "/v1/drivers/driver-1/billing/live", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/v1/drivers/driver-1/billing/live", "")
	live := decode[handler.LiveStateResponse](t, w)
	assert.False(t, live.Live.EmergencyActive)
}

func TestRouter_Tiers(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/v1/progression/tiers", "")
	require.Equal(t, http.StatusOK, w.Code)
	tiers := decode[handler.TiersResponse](t, w)
	assert.Equal(t, service.VIPThreshold, tiers.VIPThreshold)
	assert.Len(t, tiers.Tiers, 18)
}

func TestRouter_Position(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/v1/progression/position?total=120", "")
	require.Equal(t, http.StatusOK, w.Code)
	pos := decode[handler.PositionResponse](t, w)
	require.NotNil(t, pos.Position)
	assert.Equal(t, 2, pos.Position.Level)
	assert.Equal(t, 1, pos.Position.SubLevel)

	w = s.do(t, http.MethodGet, "/v1/progression/position?total=4320", "")
	require.Equal(t, http.StatusOK, w.Code)
	pos = decode[handler.PositionResponse](t, w)
	assert.True(t, pos.VIP)
	assert.Nil(t, pos.Position)

	for _, bad := range []string{"-1", "many", ""} {
		w = s.do(t, http.MethodGet, "/v1/progression/position?total="+bad, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, "total=%q", bad)
	}
}

func TestRouter_CompleteTripIsIdempotent(t *testing.T) {
	s := newTestServer(t)

	first := s.do(t, http.MethodPost, "/v1/drivers/driver-1/trips/complete", "", "Idempotency-Key", "trip-1")
	require.Equal(t, http.StatusOK, first.Code)

	replay := s.do(t, http.MethodPost, "/v1/drivers/driver-1/trips/complete", "", "Idempotency-Key", "trip-1")
	require.Equal(t, http.StatusOK, replay.Code)
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), replay.Body.String())

	s.do(t, http.MethodPost, "/v1/drivers/driver-1/trips/complete", "", "Idempotency-Key", "trip-2")

	w := s.do(t, http.MethodGet, "/v1/drivers/driver-1/progression", "")
	progress := decode[service.DriverProgress](t, w)
	assert.Equal(t, 2, progress.TotalCompletedRides)
}

func TestRouter_CompleteTripCrossesTier(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPut, "/v1/drivers/driver-1/progression", `{"total_completed_rides":29}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/v1/drivers/driver-1/trips/complete", `{"rides_today":4}`)
	require.Equal(t, http.StatusOK, w.Code)
	result := decode[service.CompleteTripResult](t, w)
	require.NotNil(t, result.Outcome.CrossedTier)
	assert.Equal(t, "bronze_1", result.Outcome.CrossedTier.Key)
	require.Len(t, result.Bonuses, 1)
	assert.Equal(t, int64(200), result.Bonuses[0].Amount.Amount)
}

func TestRouter_SetTotalRejectsDecrease(t *testing.T) {
	s := newTestServer(t)

	s.do(t, http.MethodPut, "/v1/drivers/driver-1/progression", `{"total_completed_rides":50}`)
	w := s.do(t, http.MethodPut, "/v1/drivers/driver-1/progression", `{"total_completed_rides":10}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPut, "/v1/drivers/driver-1/progression", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_VIPTrack(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/v1/drivers/driver-1/vip/rollover", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, "/v1/drivers/driver-1/vip", "")
	status := decode[handler.VIPStatusResponse](t, w)
	assert.False(t, status.VIP)
	assert.Equal(t, service.VIPThreshold, status.RidesToVIP)

	s.do(t, http.MethodPut, "/v1/drivers/driver-1/progression", `{"total_completed_rides":4320}`)
	w = s.do(t, http.MethodPost, "/v1/drivers/driver-1/vip/days", `{"date":"2026-01-05T10:00:00Z","rides":3}`)
	require.Equal(t, http.StatusOK, w.Code)
	activity := decode[service.VIPActivityResult](t, w)
	assert.True(t, activity.Update.DayQualified)

	w = s.do(t, http.MethodGet, "/v1/drivers/driver-1/vip", "")
	status = decode[handler.VIPStatusResponse](t, w)
	assert.True(t, status.VIP)
	require.NotNil(t, status.State)
	assert.Equal(t, 1, status.State.DaysOnlineThisMonth)

	w = s.do(t, http.MethodPost, "/v1/drivers/driver-1/vip/days", `{"rides":-1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/v1/drivers/driver-1/vip/days", `{"date":"2030-06-01T10:00:00Z","rides":3}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodGet, "/v1/drivers/driver-1/vip", "")
	status = decode[handler.VIPStatusResponse](t, w)
	require.NotNil(t, status.State)
	assert.Equal(t, "2026-01", status.State.Month)
}

func TestRouter_CompleteTripChunkedEmptyBody(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/drivers/driver-1/trips/complete", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[service.CompleteTripResult](t, w)
	assert.Equal(t, 1, result.Outcome.NewTotal)

	w = s.do(t, http.MethodPost, "/v1/drivers/driver-1/trips/complete", `{"rides_today":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
