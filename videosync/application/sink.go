package application

import (
	"context"
	"strings"

	"delivery-gateway/videosync/domain"

	"github.com/rs/zerolog"
)

// Sink recebe callbacks e sempre confirma o recebimento, exceto para payload
// inválido. Erro de store é logado e engolido: o transcodificador reenvia
// em qualquer resposta fora de 2xx.
//
// Não há ordenação entre callbacks: o último recebido vence, inclusive
// failed -> published.
type Sink struct {
	store domain.LessonStore
	log   zerolog.Logger
}

func NewSink(store domain.LessonStore, log zerolog.Logger) *Sink {
	return &Sink{
		store: store,
		log:   log.With().Str("component", "videosync.sink").Logger(),
	}
}

func (s *Sink) Handle(ctx context.Context, cb domain.Callback) (domain.Ack, error) {
	cb.VideoGuid = strings.TrimSpace(cb.VideoGuid)
	if err := cb.Validate(); err != nil {
		return domain.Ack{}, err
	}

	sig := domain.Classify(cb.Status)
	ack := domain.Ack{Received: true, Signal: sig}
	log := s.log.With().Str("video", cb.VideoGuid).Int("status", cb.Status).Logger()

	var (
		state    domain.LessonState
		duration *int
	)
	switch sig {
	case domain.SignalSuccess:
		state = domain.StatePublished
		// Length 0 significa duração desconhecida: grava NULL, não 0
		if cb.Length > 0 {
			d := cb.Length
			duration = &d
		}
	case domain.SignalFailure:
		state = domain.StateFailed
	default:
		log.Debug().Msg("video callback ignored")
		return ack, nil
	}

	n, err := s.store.ApplyVideoResult(ctx, cb.VideoGuid, state, duration)
	if err != nil {
		log.Error().Err(err).Str("state", string(state)).Msg("applying video result failed")
		return ack, nil
	}
	if n == 0 {
		log.Debug().Str("state", string(state)).Msg("video callback matched no lesson")
		return ack, nil
	}

	ack.Matched = true
	log.Info().Str("state", string(state)).Int("length", cb.Length).Msg("lesson video updated")
	return ack, nil
}
