package infra

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"delivery-gateway/middleware/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore agrega as decisões do limiter em hashes do Redis, para que
// várias réplicas somem no mesmo lugar. A contagem da janela continua local.
//
// Chaves:
//   - <prefix>:total                  allowed/limited acumulados (sem TTL)
//   - <prefix>:minute:<yyyymmddhhmm>  série por minuto (com TTL)
//   - <prefix>:scope                  campos "<scope>:allowed|limited"
//   - <prefix>:route                  campos "<METHOD> <path>:allowed|limited"
//   - <prefix>:key:<key>              por cliente, só com trackKeys (com TTL)
type RedisStatsStore struct {
	rdb redis.Cmdable

	prefix string
	ttl    time.Duration
	bucket string // "minute" (padrão) ou "none"

	trackKeys bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		if p := strings.Trim(prefix, ": "); p != "" {
			s.prefix = p
		}
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithStatsTrackKeys(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackKeys = track }
}

func NewRedisStatsStore(rdb redis.Cmdable, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "ratelimit:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func decisionField(allowed bool) string {
	if allowed {
		return "allowed"
	}
	return "limited"
}

func (s *RedisStatsStore) minuteKey(at time.Time) string {
	return s.prefix + ":minute:" + at.UTC().Format("200601021504")
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := decisionField(ev.Allowed)

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)
	pipe.HIncrBy(ctx, s.prefix+":scope", scopeName(strings.TrimSpace(ev.Scope))+":"+field, 1)

	if route := strings.TrimSpace(ev.Method + " " + ev.Path); route != "" {
		pipe.HIncrBy(ctx, s.prefix+":route", route+":"+field, 1)
	}

	if s.bucket == "minute" {
		s.incrWithTTL(ctx, pipe, s.minuteKey(at), field)
	}
	if s.trackKeys {
		if k := strings.TrimSpace(string(ev.Key)); k != "" {
			s.incrWithTTL(ctx, pipe, s.prefix+":key:"+k, field)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis stats record: %w", err)
	}
	return nil
}

func (s *RedisStatsStore) incrWithTTL(ctx context.Context, pipe redis.Pipeliner, key, field string) {
	pipe.HIncrBy(ctx, key, field, 1)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
}

// Snapshot lê os totais e os contadores por escopo.
func (s *RedisStatsStore) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	if s == nil || s.rdb == nil {
		return domain.Snapshot{Scopes: map[string]domain.Counters{}}, nil
	}
	pipe := s.rdb.Pipeline()
	total := pipe.HGetAll(ctx, s.prefix+":total")
	scopes := pipe.HGetAll(ctx, s.prefix+":scope")
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Snapshot{}, fmt.Errorf("redis stats snapshot: %w", err)
	}

	return domain.Snapshot{
		Total:  parseCounters(total.Val()),
		Scopes: parseScoped(scopes.Val()),
	}, nil
}

func parseCounters(h map[string]string) domain.Counters {
	var c domain.Counters
	c.Allowed, _ = strconv.ParseInt(h["allowed"], 10, 64)
	c.Limited, _ = strconv.ParseInt(h["limited"], 10, 64)
	return c
}

// parseScoped separa "<nome>:<campo>"; o nome pode conter ":".
func parseScoped(h map[string]string) map[string]domain.Counters {
	out := make(map[string]domain.Counters)
	for f, v := range h {
		i := strings.LastIndexByte(f, ':')
		if i <= 0 {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		name, field := f[:i], f[i+1:]
		c := out[name]
		switch field {
		case "allowed":
			c.Allowed = n
		case "limited":
			c.Limited = n
		default:
			continue
		}
		out[name] = c
	}
	return out
}
