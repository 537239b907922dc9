package api

import (
	"fmt"
	"time"

	"balemuya/internal/models"
)

const dateOnly = "2006-01-02"

// parsePeriod разбирает границы окна отчетного периода из query-параметров.
// Пустые границы дают окно [now-30d, now]. Голая дата в `to` расширяется
// до конца суток. Если from оказывается позже to, from откатывается
// на 30 дней назад от to.
func parsePeriod(fromRaw, toRaw string, now time.Time) (time.Time, time.Time, error) {
	to := now
	if toRaw != "" {
		parsed, bare, err := parseDateOrTime(toRaw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid 'to': %w", err)
		}
		to = parsed
		if bare {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
	}

	from := to.AddDate(0, 0, -models.DefaultDashboardDays)
	if fromRaw != "" {
		parsed, _, err := parseDateOrTime(fromRaw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid 'from': %w", err)
		}
		from = parsed
	}

	if from.After(to) {
		from = to.AddDate(0, 0, -models.DefaultDashboardDays)
	}

	return from, to, nil
}

// parseDateOrTime принимает RFC3339 или голую дату; второй результат
// сообщает, что была именно дата без времени.
func parseDateOrTime(raw string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, false, nil
	}
	if t, err := time.Parse(dateOnly, raw); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf("expected YYYY-MM-DD or RFC3339, got %q", raw)
}
