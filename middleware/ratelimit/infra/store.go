package infra

import (
	"context"
	"sync"
	"time"

	"delivery-gateway/middleware/ratelimit/domain"
)

const (
	DefaultWindow     = time.Minute
	DefaultSweepEvery = 5 * time.Minute
)

// WindowStore é um contador de janela fixa por chave, em memória, com
// limpeza periódica das janelas expiradas.
//
// Uma entrada nasce na primeira requisição da chave e é substituída (não
// incrementada) quando a janela vence.
type WindowStore struct {
	mu         sync.Mutex
	entries    map[string]*windowEntry
	window     time.Duration
	sweepEvery time.Duration
	now        func() time.Time
}

type windowEntry struct {
	count   int
	resetAt time.Time
}

type StoreOption func(*WindowStore)

func WithWindow(d time.Duration) StoreOption {
	return func(s *WindowStore) { s.window = d }
}

func WithSweepEvery(d time.Duration) StoreOption {
	return func(s *WindowStore) { s.sweepEvery = d }
}

// WithClock troca o relógio (testes de virada de janela sem sleep).
func WithClock(now func() time.Time) StoreOption {
	return func(s *WindowStore) { s.now = now }
}

func NewWindowStore(opts ...StoreOption) *WindowStore {
	s := &WindowStore{
		entries:    make(map[string]*windowEntry),
		window:     DefaultWindow,
		sweepEvery: DefaultSweepEvery,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.window <= 0 {
		s.window = DefaultWindow
	}
	return s
}

func (s *WindowStore) Window() time.Duration     { return s.window }
func (s *WindowStore) SweepEvery() time.Duration { return s.sweepEvery }

// Check implementa domain.WindowLimiter.
func (s *WindowStore) Check(key domain.Key, max int) domain.Decision {
	if max <= 0 {
		max = 1
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[string(key)]
	if !ok || now.After(ent.resetAt) {
		ent = &windowEntry{count: 1, resetAt: now.Add(s.window)}
		s.entries[string(key)] = ent
		return domain.Decision{Remaining: max - 1, ResetAt: ent.resetAt}
	}

	ent.count++
	if ent.count > max {
		return domain.Decision{Limited: true, Remaining: 0, ResetAt: ent.resetAt}
	}
	return domain.Decision{Remaining: max - ent.count, ResetAt: ent.resetAt}
}

// Sweep remove as janelas já vencidas e retorna quantas saíram.
func (s *WindowStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, ent := range s.entries {
		if now.After(ent.resetAt) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// Len retorna quantas chaves estão no mapa.
func (s *WindowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// StartJanitor roda Sweep a cada SweepEvery até o ctx ser cancelado.
// O canal retornado fecha quando a goroutine termina.
func (s *WindowStore) StartJanitor(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	if s.sweepEvery <= 0 {
		close(done)
		return done
	}

	t := time.NewTicker(s.sweepEvery)
	go func() {
		defer close(done)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Sweep()
			}
		}
	}()
	return done
}
