// Package api отдает HTTP-интерфейс платформы: бронирования, кошельки,
// дашборд и админские операции.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"balemuya/internal/config"
	"balemuya/internal/domain"
	"balemuya/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type Server struct {
	cfg       config.APIConfig
	bookings  domain.BookingService
	wallets   domain.WalletService
	dashboard domain.DashboardService
	users     domain.UserService
	repo      domain.Repository
	exporter  Exporter
	server    *http.Server
	auth      *Auth
	logger    *zerolog.Logger
}

// Exporter выгружает журнал за период в файл.
type Exporter interface {
	ExportPeriod(ctx context.Context, from, to time.Time) (string, error)
}

func NewServer(
	cfg config.APIConfig,
	bookings domain.BookingService,
	wallets domain.WalletService,
	dashboard domain.DashboardService,
	users domain.UserService,
	repo domain.Repository,
	cache domain.Cache,
	exporter Exporter,
	logger *zerolog.Logger,
) *Server {
	s := &Server{
		cfg:       cfg,
		bookings:  bookings,
		wallets:   wallets,
		dashboard: dashboard,
		users:     users,
		repo:      repo,
		exporter:  exporter,
		auth:      NewAuth(cfg, cache),
		logger:    logger,
	}

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Api-Key"},
		AllowCredentials: false,
	}))
	r.Use(s.loggingMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.auth.Wrap)

		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", s.handleCreateBooking)
			r.Get("/{id}", s.handleGetBooking)
			r.Patch("/{id}/status", s.handleTransitionBooking)
		})

		r.Get("/customers/{telegramID}/bookings", s.handleCustomerBookings)
		r.Get("/providers/{telegramID}/bookings", s.handleProviderBookings)

		r.Route("/users", func(r chi.Router) {
			r.Post("/", s.handleSaveUser)
			r.Get("/{telegramID}", s.handleGetUser)
		})

		r.Route("/services", func(r chi.Router) {
			r.Get("/", s.handleListServices)
			r.Post("/", s.handleCreateService)
		})

		r.Route("/wallets", func(r chi.Router) {
			r.Get("/{telegramID}", s.handleGetWallet)
			r.Get("/{telegramID}/transactions", s.handleListTransactions)
			r.Post("/{telegramID}/deposit", s.handleDeposit)
			r.Post("/{telegramID}/withdraw", s.handleWithdraw)
			r.Post("/{telegramID}/refund", s.handleRefund)
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/summary", s.handleDashboardSummary)
			r.Get("/timeseries", s.handleDashboardTimeseries)
			r.Get("/top", s.handleDashboardTop)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/stats", s.handleAdminStats)
			r.Post("/export", s.handleExport)
		})
	})

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return s
}

func (s *Server) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler возвращает корневой обработчик, нужен httptest-ам.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		metrics.IncHTTP(r.URL.Path)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
