package application

import (
	"time"

	"delivery-gateway/middleware/ratelimit/domain"
)

// Service aplica o orçamento de requisições de uma rota sobre um WindowLimiter.
//
// Não sabe nada sobre HTTP; só devolve a decisão com o Retry-After calculado.
type Service struct {
	Limiter domain.WindowLimiter
	Max     int

	// now é sobrescrito em testes.
	now func() time.Time
}

func (s Service) Decide(key domain.Key) domain.Decision {
	if s.Limiter == nil || s.Max <= 0 {
		return domain.Decision{Remaining: s.Max}
	}

	dec := s.Limiter.Check(key, s.Max)
	if !dec.Limited {
		return dec
	}

	now := time.Now
	if s.now != nil {
		now = s.now
	}
	dec.RetryAfter = retryAfter(dec.ResetAt.Sub(now()))
	return dec
}

// retryAfter arredonda para cima em segundos inteiros, mínimo 1s.
func retryAfter(d time.Duration) time.Duration {
	if d <= time.Second {
		return time.Second
	}
	secs := (d + time.Second - 1) / time.Second
	return secs * time.Second
}
