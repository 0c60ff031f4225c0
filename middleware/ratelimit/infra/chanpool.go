package infra

import (
	"context"
)

// ChanPool é um semáforo de vagas sobre um channel com buffer.
// Sem capacidade (max <= 0) não limita nada.
type ChanPool struct {
	sem chan struct{}
}

func NewChanPool(max int) *ChanPool {
	if max <= 0 {
		return &ChanPool{}
	}
	return &ChanPool{sem: make(chan struct{}, max)}
}

// Acquire implementa domain.SlotPool.
func (p *ChanPool) Acquire(ctx context.Context) (func(), bool) {
	if p.sem == nil {
		return func() {}, true
	}
	select {
	case p.sem <- struct{}{}:
		return func() { <-p.sem }, true
	case <-ctx.Done():
		return nil, false
	}
}

// InUse é o número de vagas ocupadas agora.
func (p *ChanPool) InUse() int { return len(p.sem) }

// Cap é a capacidade; 0 significa sem limite.
func (p *ChanPool) Cap() int { return cap(p.sem) }
