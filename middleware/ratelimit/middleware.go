package ratelimit

import (
	"net/http"
	"strings"
	"time"

	"delivery-gateway/middleware/ratelimit/application"
	"delivery-gateway/middleware/ratelimit/domain"

	"github.com/go-chi/render"
	"github.com/rs/zerolog"
)

// UnknownClient é a chave usada quando nenhum header de IP veio na requisição.
const UnknownClient = "unknown"

type KeyFunc func(r *http.Request) string

type Options struct {
	Limiter domain.WindowLimiter
	Stats   domain.StatsStore
	// Max é o número de requisições permitidas por janela.
	Max   int
	Scope string
	KeyFn KeyFunc
	Log   zerolog.Logger
}

// identityHeaders em ordem de prioridade.
var identityHeaders = []string{"X-Real-IP", "CF-Connecting-IP"}

// DefaultKeyFunc identifica o cliente pelos headers de proxy:
// primeiro IP do X-Forwarded-For, depois X-Real-IP, depois CF-Connecting-IP.
// Sem nenhum deles, todos caem na mesma chave "unknown".
func DefaultKeyFunc(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	for _, h := range identityHeaders {
		if v := strings.TrimSpace(r.Header.Get(h)); v != "" {
			return v
		}
	}
	return UnknownClient
}

func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.Limiter == nil || opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc
	}

	svc := application.Service{
		Limiter: opts.Limiter,
		Max:     opts.Max,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)
			if opts.Scope != "" {
				key = opts.Scope + ":" + key
			}

			dec := svc.Decide(domain.Key(key))

			h := w.Header()
			h.Set("X-RateLimit-Limit", formatInt(opts.Max))
			h.Set("X-RateLimit-Remaining", formatInt(dec.Remaining))
			h.Set("X-RateLimit-Reset", formatUnix(dec.ResetAt))

			if opts.Stats != nil {
				err := opts.Stats.Record(r.Context(), domain.StatsEvent{
					Key:     domain.Key(key),
					Scope:   opts.Scope,
					Allowed: !dec.Limited,
					Method:  r.Method,
					Path:    r.URL.Path,
					At:      time.Now(),
				})
				if err != nil {
					opts.Log.Debug().Err(err).Msg("rate limit stats record failed")
				}
			}

			if dec.Limited {
				opts.Log.Info().
					Str("key", key).
					Str("path", r.URL.Path).
					Time("reset_at", dec.ResetAt).
					Msg("rate limited")
				h.Set("Retry-After", formatInt(int(dec.RetryAfter/time.Second)))
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, map[string]string{"error": "too many requests"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
