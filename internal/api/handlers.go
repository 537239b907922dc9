package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"balemuya/internal/database"
	"balemuya/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type createBookingRequest struct {
	CustomerTelegramID string `json:"customer_telegram_id"`
	ServiceID          int64  `json:"service_id"`
	ScheduledDate      string `json:"scheduled_date"`
	Notes              string `json:"notes"`
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.CustomerTelegramID == "" {
		writeError(w, http.StatusBadRequest, "customer_telegram_id is required")
		return
	}
	if req.ServiceID == 0 {
		writeError(w, http.StatusBadRequest, "service_id is required")
		return
	}

	scheduledDate, _, err := parseDateOrTime(req.ScheduledDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid scheduled_date: %v", err))
		return
	}

	booking, err := s.bookings.CreateBooking(r.Context(), req.CustomerTelegramID, req.ServiceID, scheduledDate, req.Notes)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, booking)
}

func (s *Server) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	booking, err := s.bookings.GetBooking(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, booking)
}

type transitionRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleTransitionBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req transitionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	booking, err := s.bookings.TransitionBooking(r.Context(), id, req.Status)
	if err != nil {
		if errors.Is(err, database.ErrInvalidTransition) {
			// В ответе показываем оба статуса, текущий и запрошенный.
			current := "unknown"
			if b, getErr := s.bookings.GetBooking(r.Context(), id); getErr == nil {
				current = b.Status
			}
			writeError(w, http.StatusConflict,
				fmt.Sprintf("invalid transition from %q to %q", current, req.Status))
			return
		}
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, booking)
}

func (s *Server) handleCustomerBookings(w http.ResponseWriter, r *http.Request) {
	telegramID := chi.URLParam(r, "telegramID")

	bookings, err := s.bookings.ListCustomerBookings(r.Context(), telegramID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *Server) handleProviderBookings(w http.ResponseWriter, r *http.Request) {
	telegramID := chi.URLParam(r, "telegramID")

	bookings, err := s.bookings.ListProviderBookings(r.Context(), telegramID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *Server) handleSaveUser(w http.ResponseWriter, r *http.Request) {
	var user models.User
	if err := decodeBody(r, &user); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.users.SaveUser(r.Context(), &user); err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	telegramID := chi.URLParam(r, "telegramID")

	user, err := s.users.GetUserByTelegramID(r.Context(), telegramID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	services, err := s.repo.ListServices(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"services": services})
}

func (s *Server) handleCreateService(w http.ResponseWriter, r *http.Request) {
	var svc models.Service
	if err := decodeBody(r, &svc); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if svc.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if svc.ProviderID == 0 {
		writeError(w, http.StatusBadRequest, "provider_id is required")
		return
	}
	if svc.Price.IsNegative() {
		writeError(w, http.StatusBadRequest, "price must not be negative")
		return
	}

	if err := s.repo.CreateService(r.Context(), &svc); err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, svc)
}

func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	telegramID := chi.URLParam(r, "telegramID")

	wallet, err := s.wallets.GetWallet(r.Context(), telegramID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, wallet)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	telegramID := chi.URLParam(r, "telegramID")

	txns, err := s.wallets.ListTransactions(r.Context(), telegramID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"transactions": txns})
}

type ledgerPostRequest struct {
	Amount      string `json:"amount"`
	ReferenceID string `json:"reference_id"`
}

func (req ledgerPostRequest) amount() (decimal.Decimal, error) {
	if req.Amount == "" {
		return decimal.Decimal{}, errors.New("amount is required")
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount: %w", err)
	}
	return amount, nil
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	s.handleLedgerPost(w, r, s.wallets.Deposit)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	s.handleLedgerPost(w, r, s.wallets.Withdraw)
}

func (s *Server) handleRefund(w http.ResponseWriter, r *http.Request) {
	s.handleLedgerPost(w, r, s.wallets.Refund)
}

type ledgerPostFunc func(ctx context.Context, telegramID string, amount decimal.Decimal, referenceID string) (*models.Transaction, error)

func (s *Server) handleLedgerPost(w http.ResponseWriter, r *http.Request, post ledgerPostFunc) {
	telegramID := chi.URLParam(r, "telegramID")

	var req ledgerPostRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := req.amount()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	txn, err := post(r.Context(), telegramID, amount, req.ReferenceID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, txn)
}

func (s *Server) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	from, to, err := parsePeriod(r.URL.Query().Get("from"), r.URL.Query().Get("to"), time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := s.dashboard.Summary(r.Context(), from, to)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleDashboardTimeseries(w http.ResponseWriter, r *http.Request) {
	from, to, err := parsePeriod(r.URL.Query().Get("from"), r.URL.Query().Get("to"), time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	granularity := r.URL.Query().Get("granularity")
	if granularity == "" {
		granularity = models.GranularityDay
	}
	switch granularity {
	case models.GranularityDay, models.GranularityWeek, models.GranularityMonth:
	default:
		writeError(w, http.StatusBadRequest, "granularity must be day, week or month")
		return
	}

	buckets, err := s.dashboard.Timeseries(r.Context(), from, to, granularity)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"buckets": buckets})
}

func (s *Server) handleDashboardTop(w http.ResponseWriter, r *http.Request) {
	from, to, err := parsePeriod(r.URL.Query().Get("from"), r.URL.Query().Get("to"), time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	by := r.URL.Query().Get("by")
	if by == "" {
		by = "providers"
	}

	limit := models.DefaultTopLimit
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	entries, err := s.dashboard.Top(r.Context(), from, to, by, limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.dashboard.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "exports are not configured")
		return
	}

	from, to, err := parsePeriod(r.URL.Query().Get("from"), r.URL.Query().Get("to"), time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filePath, err := s.exporter.ExportPeriod(r.Context(), from, to)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"file": filePath})
}

// writeServiceError транслирует ошибки доменного слоя в HTTP-статусы.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrConcurrentModification):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrInsufficientFunds):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}
