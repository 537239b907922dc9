package api

import (
	"crypto/subtle"
	"fmt"
	"math"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"balemuya/internal/config"
	"balemuya/internal/domain"

	"golang.org/x/time/rate"
)

// rateLimitWindow is the counter window for cache-backed limits.
const rateLimitWindow = time.Minute

// Auth provides API-key auth and per-key rate limiting for HTTP endpoints.
// With a cache the limit is a shared counter surviving across instances;
// the in-process token bucket is the fallback when the cache is down.
type Auth struct {
	cfg      config.APIConfig
	clients  map[string]config.APIClientKey
	cache    domain.Cache
	limiters sync.Map // map[string]*rate.Limiter
}

func NewAuth(cfg config.APIConfig, cache domain.Cache) *Auth {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}
	return &Auth{cfg: cfg, clients: m, cache: cache}
}

func (a *Auth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.Auth.Enabled && len(a.clients) > 0 {
			if err := a.checkAuth(r); err != nil {
				statusCode := http.StatusUnauthorized
				if err == errPermissionDenied {
					statusCode = http.StatusForbidden
				}
				writeError(w, statusCode, err.Error())
				return
			}
		}

		if err := a.checkRateLimit(r); err != nil {
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

var errPermissionDenied = fmt.Errorf("permission denied")

func (a *Auth) checkAuth(r *http.Request) error {
	apiKey := strings.TrimSpace(r.Header.Get(a.headerName()))
	if apiKey == "" {
		return fmt.Errorf("missing api key header")
	}

	client, ok := a.lookupKey(apiKey)
	if !ok {
		return fmt.Errorf("invalid api key")
	}

	return a.checkPermissions(client, r)
}

// lookupKey сравнивает ключи в константное время.
func (a *Auth) lookupKey(apiKey string) (config.APIClientKey, bool) {
	for key, client := range a.clients {
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
			return client, true
		}
	}
	return config.APIClientKey{}, false
}

func (a *Auth) checkPermissions(client config.APIClientKey, r *http.Request) error {
	required := requiredPermission(r)
	if required == "" {
		return nil
	}
	if len(client.Permissions) == 0 {
		return nil
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return nil
		}
	}
	return errPermissionDenied
}

func requiredPermission(r *http.Request) string {
	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/api/v1/admin"):
		return "admin"
	case strings.HasPrefix(path, "/api/v1/dashboard"):
		return "read:dashboard"
	case strings.HasPrefix(path, "/api/v1/wallets"):
		return "write:wallets"
	case strings.HasPrefix(path, "/api/v1/bookings") && r.Method != http.MethodGet:
		return "write:bookings"
	}
	return ""
}

func (a *Auth) checkRateLimit(r *http.Request) error {
	if a.cfg.RateLimit.RPS <= 0 {
		return nil
	}

	key := a.clientKey(r)

	if a.cache != nil {
		allowed, err := a.cache.CheckRateLimit(r.Context(), key, a.windowLimit(), rateLimitWindow)
		if err == nil {
			if !allowed {
				return fmt.Errorf("rate limit exceeded")
			}
			return nil
		}
		// Кэш недоступен, ограничиваем локально
	}

	lim := a.getLimiter(key)
	if !lim.Allow() {
		return fmt.Errorf("rate limit exceeded")
	}
	return nil
}

// windowLimit переводит rps и burst токен-бакета в лимит окна счетчика.
func (a *Auth) windowLimit() int {
	limit := int(math.Ceil(a.cfg.RateLimit.RPS * rateLimitWindow.Seconds()))
	if a.cfg.RateLimit.Burst > 0 {
		limit += a.cfg.RateLimit.Burst
	}
	if limit < 1 {
		limit = 1
	}
	return limit
}

func (a *Auth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.headerName())); apiKey != "" {
		return apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}

func (a *Auth) headerName() string {
	header := strings.TrimSpace(a.cfg.Auth.HeaderAPIKey)
	if header == "" {
		header = "x-api-key"
	}
	return header
}

func (a *Auth) getLimiter(key string) *rate.Limiter {
	if v, ok := a.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}

	burst := a.cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(a.cfg.RateLimit.RPS), burst)
	actual, loaded := a.limiters.LoadOrStore(key, lim)
	if loaded {
		return actual.(*rate.Limiter)
	}
	return lim
}
