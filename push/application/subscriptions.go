package application

import (
	"context"
	"strings"

	"delivery-gateway/push/domain"

	"github.com/rs/zerolog"
)

// Subscriptions é o lado do navegador: registrar e cancelar inscrições.
type Subscriptions struct {
	Store domain.SubscriptionStore
	Log   zerolog.Logger
}

// Subscribe grava (ou atualiza, pela URI) a inscrição.
func (s Subscriptions) Subscribe(ctx context.Context, ep domain.Endpoint) (domain.Endpoint, error) {
	ep.URI = strings.TrimSpace(ep.URI)
	if err := ep.Validate(); err != nil {
		return domain.Endpoint{}, err
	}
	saved, err := s.Store.Save(ctx, ep)
	if err != nil {
		return domain.Endpoint{}, err
	}
	s.Log.Debug().Str("subscription", saved.ID).Msg("push subscription saved")
	return saved, nil
}

// Unsubscribe remove pela URI. Remover algo que não existe não é erro.
func (s Subscriptions) Unsubscribe(ctx context.Context, uri string) (bool, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return false, domain.ErrInvalidSubscription
	}
	return s.Store.DeleteByURI(ctx, uri)
}
