package infra

import (
	"context"
	"maps"
	"sync"

	"delivery-gateway/middleware/ratelimit/domain"
)

// MemoryStatsStore guarda contadores em memória, sem expiração.
// É o padrão quando o Redis de estatísticas está desligado.
type MemoryStatsStore struct {
	mu      sync.Mutex
	total   domain.Counters
	byScope map[string]domain.Counters
	byKey   map[string]domain.Counters

	trackKeys bool
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackKeys(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackKeys = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		byScope: make(map[string]domain.Counters),
		byKey:   make(map[string]domain.Counters),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total.Add(ev.Allowed)
	bump(s.byScope, scopeName(ev.Scope), ev.Allowed)
	if s.trackKeys {
		bump(s.byKey, string(ev.Key), ev.Allowed)
	}
	return nil
}

func (s *MemoryStatsStore) Snapshot(context.Context) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Snapshot{Total: s.total, Scopes: maps.Clone(s.byScope)}, nil
}

func (s *MemoryStatsStore) ByKey() map[string]domain.Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.byKey)
}

func bump(m map[string]domain.Counters, k string, allowed bool) {
	c := m[k]
	c.Add(allowed)
	m[k] = c
}

func scopeName(scope string) string {
	if scope == "" {
		return "default"
	}
	return scope
}
