package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"balemuya/internal/config"
	"balemuya/internal/database"
	"balemuya/internal/models"
	"balemuya/internal/repository"
	"balemuya/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	server *Server
	db     *database.DB
}

func newTestEnv(t *testing.T, cfg config.APIConfig) *testEnv {
	t.Helper()

	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(filepath.Join(t.TempDir(), "api.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	wallets := service.NewWalletService(db, nil, &logger)
	bookings := service.NewBookingService(db, nil, nil, wallets, "http://front.test", &logger)
	dashboard := service.NewDashboardService(db, repository.NewMemoryCache(), time.Minute, &logger)
	users := service.NewUserService(db, &logger)

	srv := NewServer(cfg, bookings, wallets, dashboard, users, db, nil, nil, &logger)
	return &testEnv{server: srv, db: db}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeResponse[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (e *testEnv) seedUser(t *testing.T, telegramID, role string) *models.User {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/users/", map[string]any{
		"telegram_id": telegramID,
		"full_name":   "User " + telegramID,
		"role":        role,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	user := decodeResponse[models.User](t, rec)
	return &user
}

func (e *testEnv) seedService(t *testing.T, providerID int64, title, price string) *models.Service {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/services/", map[string]any{
		"provider_id": providerID,
		"title":       title,
		"price":       price,
		"available":   true,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	svc := decodeResponse[models.Service](t, rec)
	return &svc
}

func (e *testEnv) seedBooking(t *testing.T, customerTG string, serviceID int64, scheduled time.Time) *models.Booking {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/bookings/", map[string]any{
		"customer_telegram_id": customerTG,
		"service_id":           serviceID,
		"scheduled_date":       scheduled.Format(time.RFC3339),
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	booking := decodeResponse[models.Booking](t, rec)
	return &booking
}

func TestBookingEndpoints(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{})

	customer := env.seedUser(t, "1001", models.RoleCustomer)
	provider := env.seedUser(t, "2001", models.RolePro)
	svc := env.seedService(t, provider.ID, "Plumbing", "150.00")

	t.Run("CreateBooking", func(t *testing.T) {
		booking := env.seedBooking(t, "1001", svc.ID, time.Now().Add(48*time.Hour))
		assert.Equal(t, models.StatusPending, booking.Status)
		assert.Equal(t, customer.ID, booking.CustomerID)
		assert.Equal(t, provider.ID, booking.ProviderID)
		assert.Equal(t, "150", booking.Price.String())
	})

	t.Run("CreateBookingUnknownService", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/bookings/", map[string]any{
			"customer_telegram_id": "1001",
			"service_id":           9999,
			"scheduled_date":       time.Now().Format(time.RFC3339),
		}, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("CreateBookingUnknownCustomer", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/bookings/", map[string]any{
			"customer_telegram_id": "ghost",
			"service_id":           svc.ID,
			"scheduled_date":       time.Now().Format(time.RFC3339),
		}, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("CreateBookingMissingFields", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/bookings/", map[string]any{
			"service_id": svc.ID,
		}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("TransitionChain", func(t *testing.T) {
		booking := env.seedBooking(t, "1001", svc.ID, time.Now().Add(24*time.Hour))

		rec := env.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/bookings/%d/status", booking.ID),
			map[string]string{"status": models.StatusInProgress}, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		updated := decodeResponse[models.Booking](t, rec)
		assert.Equal(t, models.StatusInProgress, updated.Status)

		rec = env.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/bookings/%d/status", booking.ID),
			map[string]string{"status": models.StatusCompleted}, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		// completed is terminal
		rec = env.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/bookings/%d/status", booking.ID),
			map[string]string{"status": models.StatusCancelled}, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), "completed")
		assert.Contains(t, rec.Body.String(), "cancelled")
	})

	t.Run("TransitionUnknownBooking", func(t *testing.T) {
		rec := env.do(t, http.MethodPatch, "/api/v1/bookings/424242/status",
			map[string]string{"status": models.StatusInProgress}, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("CompletedBookingPostsPayment", func(t *testing.T) {
		booking := env.seedBooking(t, "1001", svc.ID, time.Now().Add(time.Hour))
		env.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/bookings/%d/status", booking.ID),
			map[string]string{"status": models.StatusInProgress}, nil)
		env.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/bookings/%d/status", booking.ID),
			map[string]string{"status": models.StatusCompleted}, nil)

		rec := env.do(t, http.MethodGet, "/api/v1/wallets/2001/transactions", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeResponse[map[string][]models.Transaction](t, rec)
		require.NotEmpty(t, resp["transactions"])

		var payment *models.Transaction
		for i := range resp["transactions"] {
			if resp["transactions"][i].Type == models.TxPayment {
				payment = &resp["transactions"][i]
				break
			}
		}
		require.NotNil(t, payment, "expected a payment transaction")
		assert.Equal(t, "150", payment.Amount.String())
	})

	t.Run("CustomerListingOrder", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/customers/1001/bookings", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeResponse[map[string][]models.Booking](t, rec)
		list := resp["bookings"]
		require.NotEmpty(t, list)
		// Future bookings come first, ascending by date.
		for i := 1; i < len(list); i++ {
			if list[i-1].ScheduledDate.After(time.Now()) && list[i].ScheduledDate.After(time.Now()) {
				assert.True(t, !list[i-1].ScheduledDate.After(list[i].ScheduledDate))
			}
		}
	})
}

func TestWalletEndpoints(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{})
	env.seedUser(t, "3001", models.RoleCustomer)

	t.Run("GetWalletCreatesOnce", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/wallets/3001", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		first := decodeResponse[models.Wallet](t, rec)

		rec = env.do(t, http.MethodGet, "/api/v1/wallets/3001", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		second := decodeResponse[models.Wallet](t, rec)

		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("DepositAndWithdraw", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/wallets/3001/deposit",
			map[string]string{"amount": "200.00"}, nil)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = env.do(t, http.MethodPost, "/api/v1/wallets/3001/withdraw",
			map[string]string{"amount": "50.00"}, nil)
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = env.do(t, http.MethodGet, "/api/v1/wallets/3001", nil, nil)
		wallet := decodeResponse[models.Wallet](t, rec)
		assert.Equal(t, "150", wallet.Balance.String())
	})

	t.Run("WithdrawInsufficientFunds", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/wallets/3001/withdraw",
			map[string]string{"amount": "100000.00"}, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("NegativeAmount", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/wallets/3001/deposit",
			map[string]string{"amount": "-5.00"}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/wallets/ghost", nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestDashboardEndpoints(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{})
	env.seedUser(t, "4001", models.RoleCustomer)

	// Two ledger entries: 100.00 + 50.00 = 150.00 gross.
	rec := env.do(t, http.MethodPost, "/api/v1/wallets/4001/deposit",
		map[string]string{"amount": "100.00"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/v1/wallets/4001/deposit",
		map[string]string{"amount": "50.00"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("Summary", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/dashboard/summary", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		summary := decodeResponse[models.DashboardSummary](t, rec)
		assert.Equal(t, "150", summary.GrossRevenue.String())
		assert.Equal(t, "15", summary.PlatformProfit.String())
		assert.Equal(t, "135", summary.ProviderTake.String())
		assert.Equal(t, int64(1), summary.TotalUsers)
	})

	t.Run("Timeseries", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/dashboard/timeseries?granularity=day", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeResponse[map[string][]models.RevenueBucket](t, rec)
		require.Len(t, resp["buckets"], 1)
		assert.Equal(t, "150", resp["buckets"][0].Gross.String())
	})

	t.Run("TimeseriesBadGranularity", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/dashboard/timeseries?granularity=hour", nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("BadPeriod", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/dashboard/summary?from=garbage", nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("AdminStats", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/admin/stats", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestAuth(t *testing.T) {
	cfg := config.APIConfig{
		Auth: config.APIAuthConfig{
			Enabled:      true,
			HeaderAPIKey: "x-api-key",
			APIKeys: []config.APIClientKey{
				{Key: "secret-key", Name: "tests"},
				{Key: "limited-key", Name: "limited", Permissions: []string{"read:dashboard"}},
			},
		},
	}
	env := newTestEnv(t, cfg)

	t.Run("MissingKey", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/services/", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("InvalidKey", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/services/", nil,
			map[string]string{"x-api-key": "wrong"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("ValidKey", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/services/", nil,
			map[string]string{"x-api-key": "secret-key"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("PermissionDenied", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/admin/stats", nil,
			map[string]string{"x-api-key": "limited-key"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("PermissionGranted", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/dashboard/summary", nil,
			map[string]string{"x-api-key": "limited-key"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("HealthBypassesAuth", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/healthz", nil, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRateLimit(t *testing.T) {
	cfg := config.APIConfig{
		RateLimit: config.APIRateLimitConfig{RPS: 0.1, Burst: 2},
	}
	env := newTestEnv(t, cfg)

	first := env.do(t, http.MethodGet, "/api/v1/services/", nil, nil)
	assert.Equal(t, http.StatusOK, first.Code)

	second := env.do(t, http.MethodGet, "/api/v1/services/", nil, nil)
	assert.Equal(t, http.StatusOK, second.Code)

	third := env.do(t, http.MethodGet, "/api/v1/services/", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, third.Code)
}

func TestRateLimitSharedCounter(t *testing.T) {
	cfg := config.APIConfig{
		RateLimit: config.APIRateLimitConfig{RPS: 0.05, Burst: 1},
	}
	auth := NewAuth(cfg, repository.NewMemoryCache())

	// ceil(0.05 * 60s) + burst 1 = 4 requests per window.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/services/", nil)
	for i := 0; i < 4; i++ {
		require.NoError(t, auth.checkRateLimit(req), "request %d should pass", i+1)
	}
	assert.Error(t, auth.checkRateLimit(req), "request over the window limit must be rejected")
}

func TestRateLimitCacheFailureFallsBack(t *testing.T) {
	cfg := config.APIConfig{
		RateLimit: config.APIRateLimitConfig{RPS: 0.1, Burst: 2},
	}
	// A cache without a redis client always errors; the in-process
	// token bucket must take over.
	auth := NewAuth(cfg, repository.NewRedisCache(nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/services/", nil)
	require.NoError(t, auth.checkRateLimit(req))
	require.NoError(t, auth.checkRateLimit(req))
	assert.Error(t, auth.checkRateLimit(req))
}
