package application

import (
	"context"
	"time"

	"delivery-gateway/middleware/ratelimit/domain"
)

// ConcurrencyService limita quantas requisições ficam em voo ao mesmo tempo.
type ConcurrencyService struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
}

// Acquire tenta pegar uma vaga.
//
// Com AcquireTimeout <= 0 espera até o ctx cancelar; caso contrário desiste
// após o timeout. Se ok=false, nenhuma vaga foi adquirida e release é um no-op.
func (s ConcurrencyService) Acquire(ctx context.Context) (release func(), ok bool) {
	if s.Pool == nil {
		return func() {}, true
	}

	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	release, ok = s.Pool.Acquire(ctx)
	if !ok || release == nil {
		return func() {}, false
	}
	return release, true
}
