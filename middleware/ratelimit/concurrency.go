package ratelimit

import (
	"net/http"
	"time"

	"delivery-gateway/middleware/ratelimit/application"
	"delivery-gateway/middleware/ratelimit/infra"

	"github.com/go-chi/render"
	"github.com/rs/zerolog"
)

type ConcurrencyOptions struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
	// Pool permite compartilhar o semáforo (ex: para expor ocupação).
	// Se nil, um novo é criado com Max vagas.
	Pool *infra.ChanPool
	Log  zerolog.Logger
}

// ConcurrencyMiddleware limita requisições simultâneas no processo inteiro.
// Quem não consegue vaga recebe 503 com Retry-After: 1.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Pool == nil {
		if opts.Max <= 0 {
			return func(next http.Handler) http.Handler { return next }
		}
		opts.Pool = infra.NewChanPool(opts.Max)
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}

	svc := application.ConcurrencyService{
		Pool:           opts.Pool,
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, ok := svc.Acquire(r.Context())
			if !ok {
				opts.Log.Warn().
					Int("in_use", opts.Pool.InUse()).
					Str("path", r.URL.Path).
					Msg("request rejected; no concurrency slot")
				w.Header().Set("Retry-After", "1")
				render.Status(r, opts.RejectStatus)
				render.JSON(w, r, map[string]string{"error": "server busy"})
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
