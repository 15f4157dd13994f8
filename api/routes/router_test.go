package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"flightdesk/internal/bookings"
	"flightdesk/internal/flights"
	"flightdesk/internal/holds"
	"flightdesk/internal/reservations"
	"flightdesk/internal/shared/config"
	"flightdesk/pkg/logger"
	"flightdesk/pkg/ratelimit"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Errors struct {
		Reason string `json:"reason"`
	} `json:"errors"`
}

type downLedger struct {
	*bookings.MemoryLedger
}

func (downLedger) Ping(ctx context.Context) error { return errors.New("ledger offline") }

func testDependencies(t *testing.T) Dependencies {
	t.Helper()

	catalog, err := flights.LoadCatalog("")
	require.NoError(t, err)

	store := holds.NewMemoryStore(reservations.CatalogAvailability(catalog), 8)
	ledger := bookings.NewMemoryLedger()
	manager := reservations.NewManager(store, catalog, ledger, reservations.DefaultConfig(),
		reservations.WithLogger(logger.Discard()))

	return Dependencies{
		Catalog:      catalog,
		Store:        store,
		Ledger:       ledger,
		Reservations: manager,
		Jobs:         reservations.NewJobProcessor(manager, nil, logger.Discard()),
	}
}

func testEngine(t *testing.T, deps Dependencies) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{APIPrefix: "/api", APIVersion: "v1"}
	engine := gin.New()
	NewRouter(cfg, nil, deps).SetupRoutes(engine)
	return engine
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestHealthRoutes(t *testing.T) {
	r := testEngine(t, testDependencies(t))

	rec, _ := do(t, r, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec, _ = do(t, r, http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version":"v1"`)

	rec, _ = do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var health struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "ok", health.Checks["hold_store"])
	assert.Equal(t, "ok", health.Checks["ledger"])
}

func TestHealth_ReportsFailingDependency(t *testing.T) {
	deps := testDependencies(t)
	deps.Ledger = downLedger{bookings.NewMemoryLedger()}
	r := testEngine(t, deps)

	rec, _ := do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "ledger offline")
}

func TestHoldBookAndLookup(t *testing.T) {
	r := testEngine(t, testDependencies(t))

	rec, env := do(t, r, http.MethodPost, "/api/v1/seat/hold-seat", map[string]interface{}{
		"flight_id":   "F1",
		"seat_no":     "10a",
		"session_id":  "sess-1",
		"ttl_seconds": 60,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var hold reservations.HoldResponse
	require.NoError(t, json.Unmarshal(env.Data, &hold))
	assert.Equal(t, "10A", hold.SeatNo)
	assert.Equal(t, holds.StateHeld, hold.State)

	rec, env = do(t, r, http.MethodPost, "/api/v1/flights/F1/hold", map[string]interface{}{"seat_no": "10A"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, reservations.ReasonAlreadyHeld, env.Errors.Reason)

	rec, env = do(t, r, http.MethodPost, "/api/v1/booking/book", map[string]interface{}{
		"hold_id":   hold.HoldID,
		"full_name": "Ada Lovelace",
		"email":     "ada@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var booking bookings.BookingResponse
	require.NoError(t, json.Unmarshal(env.Data, &booking))
	assert.Equal(t, "F1", booking.FlightID)
	assert.Equal(t, "10A", booking.SeatNo)
	assert.Equal(t, hold.HoldID, booking.HoldID)

	rec, env = do(t, r, http.MethodGet, "/api/v1/booking/pnr/"+booking.ConfirmationCode, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var byCode bookings.BookingResponse
	require.NoError(t, json.Unmarshal(env.Data, &byCode))
	assert.Equal(t, booking.BookingID, byCode.BookingID)

	rec, env = do(t, r, http.MethodGet, "/api/v1/flights/F1/seatmap", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var seatMap flights.SeatMapResponse
	require.NoError(t, json.Unmarshal(env.Data, &seatMap))
	for _, s := range seatMap.Seats {
		if s.SeatNo == "10A" {
			assert.False(t, s.Available)
		}
	}

	rec, env = do(t, r, http.MethodGet, "/api/v1/flights/F1/bookings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list bookings.FlightBookingsResponse
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, 1, list.Count)
}

func TestRateLimitedHoldRoutes(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	deps := testDependencies(t)
	deps.RateLimiter = ratelimit.NewRateLimiter(client, &ratelimit.Config{
		Enabled:         true,
		WindowDuration:  time.Minute,
		DefaultRequests: 100,
		PublicRequests:  100,
		HoldRequests:    1,
		BookingRequests: 100,
	})
	r := testEngine(t, deps)

	rec, _ := do(t, r, http.MethodPost, "/api/v1/flights/F1/hold", map[string]interface{}{"seat_no": "10A"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env := do(t, r, http.MethodPost, "/api/v1/flights/F1/hold", map[string]interface{}{"seat_no": "10B"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", env.Errors.Reason)

	// catalog reads have their own budget
	rec, _ = do(t, r, http.MethodGet, "/api/v1/flights", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
