package worker

import "time"

// RetryPolicy задает экспоненциальную выдержку между попытками
// зеркалирования журнала.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// NextDelay возвращает выдержку перед попыткой attempt (с единицы).
// Растет в BackoffFactor раз за попытку, сверху ограничена MaxDelay.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	base := r.InitialDelay
	if base <= 0 {
		base = time.Second
	}
	factor := r.BackoffFactor
	if factor <= 0 {
		factor = 2
	}

	delay := float64(base)
	for i := 1; i < attempt; i++ {
		delay *= factor
		if r.MaxDelay > 0 && delay >= float64(r.MaxDelay) {
			return r.MaxDelay
		}
	}

	d := time.Duration(delay)
	if r.MaxDelay > 0 && d > r.MaxDelay {
		d = r.MaxDelay
	}
	if d <= 0 {
		d = time.Second
	}
	return d
}
