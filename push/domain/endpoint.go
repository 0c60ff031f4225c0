package domain

import (
	"context"
	"errors"
	"strings"
)

var ErrInvalidSubscription = errors.New("invalid push subscription")

// Keys são as chaves do cliente exigidas pelo protocolo Web Push.
type Keys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Endpoint é uma inscrição de push registrada por um navegador.
type Endpoint struct {
	ID   string `json:"id,omitempty" db:"id"`
	URI  string `json:"endpoint" db:"endpoint"`
	Keys Keys   `json:"keys"`
}

func (e Endpoint) Validate() error {
	switch {
	case strings.TrimSpace(e.URI) == "":
		return errors.Join(ErrInvalidSubscription, errors.New("endpoint is required"))
	case !strings.HasPrefix(e.URI, "https://") && !strings.HasPrefix(e.URI, "http://"):
		return errors.Join(ErrInvalidSubscription, errors.New("endpoint must be an http(s) url"))
	case strings.TrimSpace(e.Keys.P256dh) == "" || strings.TrimSpace(e.Keys.Auth) == "":
		return errors.Join(ErrInvalidSubscription, errors.New("keys.p256dh and keys.auth are required"))
	}
	return nil
}

// SubscriptionStore é o registro persistido de endpoints.
//
// O dispatcher só lê e apaga por id; Save/DeleteByURI servem ao fluxo de
// inscrição do navegador.
type SubscriptionStore interface {
	List(ctx context.Context) ([]Endpoint, error)
	Delete(ctx context.Context, id string) error
	Save(ctx context.Context, ep Endpoint) (Endpoint, error)
	DeleteByURI(ctx context.Context, uri string) (bool, error)
}

// Transport entrega um payload já serializado a um endpoint.
//
// Deve devolver *DeliveryError quando o serviço de push responde fora de 2xx,
// para que Classify saiba separar falha permanente de transitória.
// O timeout de cada tentativa é responsabilidade do Transport.
type Transport interface {
	Send(ctx context.Context, ep Endpoint, payload []byte) error
}
