// Package server monta o router HTTP do gateway.
//
// Ordem dos middlewares: request id e log de acesso, recover, limite de
// concorrência global. O rate limit por cliente vale só para /api/push; o
// webhook de vídeo fica de fora porque o transcodificador reenvia tudo que
// não recebe 2xx.
package server

import (
	"context"
	"net/http"
	"time"

	"delivery-gateway/middleware/ratelimit"
	"delivery-gateway/middleware/ratelimit/domain"
	"delivery-gateway/middleware/ratelimit/infra"
	"delivery-gateway/push"
	"delivery-gateway/videosync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// PushDeps é opcional: sem ela as rotas de push não são montadas.
type PushDeps struct {
	Broadcaster    push.Broadcaster
	Registrar      push.Registrar
	VAPIDPublicKey string
}

type Deps struct {
	Log         zerolog.Logger
	RateLimit   ratelimit.Options
	Concurrency ratelimit.ConcurrencyOptions

	Push  *PushDeps
	Video videosync.CallbackHandler

	// Ping verifica dependências no /healthz (tipicamente o banco).
	Ping func(ctx context.Context) error
	// Entries, Stats e Slots alimentam /debug/ratelimit quando presentes.
	Entries func() int
	Stats   domain.StatsReader
	Slots   *infra.ChanPool
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(hlog.NewHandler(d.Log))
	r.Use(hlog.RequestIDHandler("req_id", middleware.RequestIDHeader))
	r.Use(hlog.AccessHandler(accessLog))
	r.Use(middleware.Recoverer)
	r.Use(middleware.CleanPath)

	// webhook fica fora dos limites: um 503/429 só provocaria retentativas do transcoder
	if d.Video != nil {
		r.Post("/api/webhooks/video", videosync.Webhook(d.Log, d.Video))
	}

	conc := d.Concurrency
	conc.Log = d.Log
	if conc.Pool == nil {
		conc.Pool = d.Slots
	}
	r.Group(func(r chi.Router) {
		r.Use(ratelimit.ConcurrencyMiddleware(conc))

		r.Get("/healthz", health(d.Ping))
		r.Get("/debug/ratelimit", rateDebug(d.Entries, d.Stats, d.Slots))

		if d.Push != nil {
			rl := d.RateLimit
			rl.Log = d.Log
			r.Group(func(r chi.Router) {
				r.Use(ratelimit.Middleware(rl))
				r.Route("/api/push", push.Routes(d.Log, d.Push.Broadcaster, d.Push.Registrar, d.Push.VAPIDPublicKey))
			})
		}
	})

	return r
}

// New cria o http.Server com os timeouts usados em produção.
func New(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// broadcast síncrono pode demorar com muitos inscritos
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  90 * time.Second,
	}
}

func accessLog(r *http.Request, status, size int, d time.Duration) {
	ev := hlog.FromRequest(r).Info()
	if status >= 500 {
		ev = hlog.FromRequest(r).Warn()
	}
	ev.Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("took", d).
		Msg("request")
}

func health(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				hlog.FromRequest(r).Warn().Err(err).Msg("health check failed")
				render.Status(r, http.StatusServiceUnavailable)
				render.JSON(w, r, map[string]string{"status": "unavailable"})
				return
			}
		}
		render.JSON(w, r, map[string]string{"status": "ok"})
	}
}

type rateDebugResponse struct {
	Entries int              `json:"entries"`
	Stats   *domain.Snapshot `json:"stats,omitempty"`
	InUse   int              `json:"in_flight"`
	Slots   int              `json:"slots"`
}

func rateDebug(entries func() int, stats domain.StatsReader, slots *infra.ChanPool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var resp rateDebugResponse
		if entries != nil {
			resp.Entries = entries()
		}
		if slots != nil {
			resp.InUse, resp.Slots = slots.InUse(), slots.Cap()
		}
		if stats != nil {
			snap, err := stats.Snapshot(r.Context())
			if err != nil {
				hlog.FromRequest(r).Warn().Err(err).Msg("reading rate limit stats failed")
			} else {
				resp.Stats = &snap
			}
		}
		render.JSON(w, r, resp)
	}
}
