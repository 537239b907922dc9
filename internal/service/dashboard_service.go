package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"balemuya/internal/domain"
	"balemuya/internal/fees"
	"balemuya/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	TopByProviders = "providers"
	TopByServices  = "services"
)

// DashboardService строит отчеты по журналу и бронированиям.
// Все операции только читают, сводка кэшируется.
type DashboardService struct {
	repo     domain.Repository
	cache    domain.Cache
	cacheTTL time.Duration
	logger   *zerolog.Logger
}

func NewDashboardService(repo domain.Repository, cache domain.Cache, cacheTTL time.Duration, logger *zerolog.Logger) *DashboardService {
	if cacheTTL <= 0 {
		cacheTTL = models.DashboardCacheTTL * time.Second
	}
	return &DashboardService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Summary считает сводку окна [from, to): валовая выручка суммируется по
// журналу, затем распределяется один раз целиком.
func (s *DashboardService) Summary(ctx context.Context, from, to time.Time) (*models.DashboardSummary, error) {
	cacheKey := fmt.Sprintf("dashboard:summary:%d:%d", from.Unix(), to.Unix())
	if s.cache != nil {
		var cached models.DashboardSummary
		if ok, err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil && ok {
			return &cached, nil
		}
	}

	txns, err := s.repo.ListTransactionsInRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	gross := decimal.Zero
	for _, txn := range txns {
		gross = gross.Add(txn.Amount)
	}
	profit, take := fees.Split(gross)

	byStatus, err := s.repo.CountBookingsByStatus(ctx, from, to)
	if err != nil {
		return nil, err
	}

	newUsers, err := s.repo.CountUsersJoined(ctx, from, to)
	if err != nil {
		return nil, err
	}

	// Общее количество пользователей окном не ограничено
	totalUsers, err := s.repo.CountUsers(ctx)
	if err != nil {
		return nil, err
	}

	summary := &models.DashboardSummary{
		From:             from,
		To:               to,
		GrossRevenue:     gross,
		PlatformProfit:   profit,
		ProviderTake:     take,
		TransactionCount: int64(len(txns)),
		BookingsByStatus: byStatus,
		NewUsers:         newUsers,
		TotalUsers:       totalUsers,
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cacheKey, summary, s.cacheTTL); err != nil {
			s.logger.Warn().Err(err).Msg("dashboard cache set error")
		}
	}
	return summary, nil
}

// Timeseries строит ряд по корзинам day|week|month, каждая корзина
// распределяется отдельно.
func (s *DashboardService) Timeseries(ctx context.Context, from, to time.Time, granularity string) ([]models.RevenueBucket, error) {
	txns, err := s.repo.ListTransactionsInRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]decimal.Decimal)
	var order []string
	for _, txn := range txns {
		key := bucketKey(txn.CreatedAt, granularity)
		if _, seen := totals[key]; !seen {
			order = append(order, key)
		}
		totals[key] = totals[key].Add(txn.Amount)
	}
	sort.Strings(order)

	buckets := make([]models.RevenueBucket, 0, len(order))
	for _, key := range order {
		gross := totals[key]
		profit, take := fees.Split(gross)
		buckets = append(buckets, models.RevenueBucket{
			Bucket:         key,
			Gross:          gross,
			PlatformProfit: profit,
			ProviderTake:   take,
		})
	}
	return buckets, nil
}

// Top ранжирует провайдеров или услуги по выручке за окно. Порядок при
// равной выручке — порядок первой проводки.
func (s *DashboardService) Top(ctx context.Context, from, to time.Time, by string, limit int) ([]models.TopEntry, error) {
	if limit <= 0 {
		limit = models.DefaultTopLimit
	}
	if by != TopByProviders && by != TopByServices {
		by = TopByProviders
	}

	txns, err := s.repo.ListTransactionsInRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	type agg struct {
		id      int64
		revenue decimal.Decimal
		count   int64
	}
	totals := make(map[int64]*agg)
	var order []*agg
	for _, txn := range txns {
		id := txn.ProviderID
		if by == TopByServices {
			id = txn.ServiceID
		}
		if id == 0 {
			continue
		}
		a, ok := totals[id]
		if !ok {
			a = &agg{id: id}
			totals[id] = a
			order = append(order, a)
		}
		a.revenue = a.revenue.Add(txn.Amount)
		a.count++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].revenue.GreaterThan(order[j].revenue)
	})
	if len(order) > limit {
		order = order[:limit]
	}

	entries := make([]models.TopEntry, 0, len(order))
	for _, a := range order {
		entry := models.TopEntry{ID: a.id, Revenue: a.revenue, Transactions: a.count}
		entry.Name = s.lookupName(ctx, by, a.id)
		entries = append(entries, entry)
	}
	return entries, nil
}

// Stats — сводка админки по завершенным бронированиям за день, неделю,
// месяц и год.
func (s *DashboardService) Stats(ctx context.Context) (*models.AdminStats, error) {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := today.AddDate(0, 0, -int((now.Weekday()+6)%7)) // понедельник
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())

	stats := &models.AdminStats{}

	periods := []struct {
		since time.Time
		total *decimal.Decimal
		share *decimal.Decimal
	}{
		{today, &stats.TotalEarnedDay, &stats.ShareDay},
		{weekStart, &stats.TotalEarnedWeek, &stats.ShareWeek},
		{monthStart, &stats.TotalEarnedMonth, &stats.ShareMonth},
		{yearStart, &stats.TotalEarnedYear, &stats.ShareYear},
	}
	for _, p := range periods {
		total, err := s.repo.CompletedBookingsSince(ctx, p.since)
		if err != nil {
			return nil, err
		}
		share, _ := fees.Split(total)
		*p.total = total
		*p.share = share
	}

	counts, err := s.repo.CountBookingsByStatus(ctx, time.Time{}, now.AddDate(1, 0, 0))
	if err != nil {
		return nil, err
	}
	stats.CompletedBookings = counts[models.StatusCompleted]
	stats.PendingBookings = counts[models.StatusPending]
	stats.CancelledBookings = counts[models.StatusCancelled]
	stats.InProgressBookings = counts[models.StatusInProgress]

	return stats, nil
}

func (s *DashboardService) lookupName(ctx context.Context, by string, id int64) string {
	if by == TopByServices {
		svc, err := s.repo.GetService(ctx, id)
		if err != nil {
			s.logger.Warn().Err(err).Int64("service_id", id).Msg("top: resolve service error")
			return ""
		}
		return svc.Title
	}

	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Int64("provider_id", id).Msg("top: resolve provider error")
		return ""
	}
	return user.DisplayName()
}

// bucketKey возвращает метку корзины: день и месяц usual, неделя
// помечается датой своего понедельника.
func bucketKey(t time.Time, granularity string) string {
	switch granularity {
	case models.GranularityWeek:
		monday := t.AddDate(0, 0, -int((t.Weekday()+6)%7))
		return monday.Format("2006-01-02")
	case models.GranularityMonth:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}
