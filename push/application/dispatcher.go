package application

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"delivery-gateway/push/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/time/rate"
)

const DefaultWorkers = 16

type Config struct {
	// Workers limita quantas entregas ficam abertas ao mesmo tempo.
	Workers int
	// RatePerSec espaça as entregas de saída; 0 desliga.
	RatePerSec int
}

// Dispatcher envia um payload para todos os endpoints registrados.
//
// Cada entrega é independente: uma falha nunca cancela as outras, e Broadcast
// só retorna quando todas terminaram. Endpoints com falha permanente são
// removidos do registro (best-effort). O fim do ctx do chamador não interrompe
// entregas já iniciadas; cada tentativa é limitada pelo timeout do transporte.
type Dispatcher struct {
	store     domain.SubscriptionStore
	transport domain.Transport
	log       zerolog.Logger

	workers int
	pacer   *rate.Limiter
}

func NewDispatcher(store domain.SubscriptionStore, transport domain.Transport, log zerolog.Logger, cfg Config) *Dispatcher {
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	d := &Dispatcher{
		store:     store,
		transport: transport,
		log:       log.With().Str("component", "push.dispatcher").Logger(),
		workers:   workers,
	}
	if cfg.RatePerSec > 0 {
		d.pacer = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	}
	return d
}

// Broadcast só falha se o registro não puder ser lido.
func (d *Dispatcher) Broadcast(ctx context.Context, p domain.Payload) (domain.Report, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := d.log.With().Str("run", runID).Logger()

	endpoints, err := d.store.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("loading push subscriptions failed")
		return domain.Report{}, fmt.Errorf("listing push subscriptions: %w", err)
	}
	if len(endpoints) == 0 {
		log.Info().Msg("broadcast skipped; no subscriptions")
		return domain.Report{}, nil
	}

	body, err := p.Marshal()
	if err != nil {
		return domain.Report{}, fmt.Errorf("encoding payload: %w", err)
	}

	log.Info().Int("total", len(endpoints)).Str("title", p.Title).Msg("broadcast started")

	var delivered, failed, pruned atomic.Int64

	// tentativas contadas em Attempted precisam de fato sair
	sendCtx := context.WithoutCancel(ctx)

	workers := min(d.workers, len(endpoints))
	wp := pool.New().WithMaxGoroutines(workers)
	for _, ep := range endpoints {
		wp.Go(func() {
			switch d.deliver(sendCtx, log, ep, body) {
			case domain.Delivered:
				delivered.Add(1)
			case domain.PermanentFailure:
				failed.Add(1)
				if d.prune(sendCtx, log, ep) {
					pruned.Add(1)
				}
			default:
				failed.Add(1)
			}
		})
	}
	wp.Wait()

	rep := domain.Report{
		Attempted: len(endpoints),
		Delivered: int(delivered.Load()),
		Failed:    int(failed.Load()),
		Pruned:    int(pruned.Load()),
	}

	ev := log.Info()
	if rep.Failed > 0 {
		ev = log.Warn()
	}
	ev.Int("total", rep.Attempted).
		Int("delivered", rep.Delivered).
		Int("failed", rep.Failed).
		Int("pruned", rep.Pruned).
		Dur("took", time.Since(start)).
		Msg("broadcast finished")

	return rep, nil
}

// deliver nunca entra em panic nem devolve erro; tudo vira um Outcome.
func (d *Dispatcher) deliver(ctx context.Context, log zerolog.Logger, ep domain.Endpoint, body []byte) (out domain.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("subscription", ep.ID).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("panic in push delivery")
			out = domain.TransientFailure
		}
	}()

	if d.pacer != nil {
		if err := d.pacer.Wait(ctx); err != nil {
			log.Warn().Err(err).Str("subscription", ep.ID).Msg("push delivery not paced; skipping")
			return domain.TransientFailure
		}
	}

	err := d.transport.Send(ctx, ep, body)
	out = domain.Classify(err)
	switch out {
	case domain.Delivered:
		log.Debug().Str("subscription", ep.ID).Msg("push delivered")
	case domain.PermanentFailure:
		log.Info().Err(err).Str("subscription", ep.ID).Msg("push subscription gone")
	default:
		log.Warn().Err(err).Str("subscription", ep.ID).Msg("push delivery failed")
	}
	return out
}

func (d *Dispatcher) prune(ctx context.Context, log zerolog.Logger, ep domain.Endpoint) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("subscription", ep.ID).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("panic pruning push subscription")
			ok = false
		}
	}()

	if err := d.store.Delete(ctx, ep.ID); err != nil {
		log.Warn().Err(err).Str("subscription", ep.ID).Msg("pruning dead subscription failed")
		return false
	}
	return true
}
