package domain

import (
	"context"
	"time"
)

// StatsEvent é uma decisão do limiter.
//
// Cuidado com cardinalidade: guardar Key sem controle pode explodir o
// número de chaves no Redis.
type StatsEvent struct {
	Key     Key
	Scope   string
	Allowed bool

	Method string
	Path   string

	At time.Time
}

// StatsStore registra decisões. O middleware trata erro como best-effort.
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}

type Counters struct {
	Allowed int64 `json:"allowed"`
	Limited int64 `json:"limited"`
}

func (c *Counters) Add(allowed bool) {
	if allowed {
		c.Allowed++
		return
	}
	c.Limited++
}

// Snapshot é a leitura agregada das estatísticas.
type Snapshot struct {
	Total  Counters            `json:"total"`
	Scopes map[string]Counters `json:"scopes"`
}

// StatsReader é o lado de leitura, usado por endpoints de operação.
type StatsReader interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}
