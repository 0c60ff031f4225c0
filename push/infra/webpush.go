package infra

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"delivery-gateway/push/domain"

	webpush "github.com/SherClockHolmes/webpush-go"
)

const (
	DefaultSendTimeout = 10 * time.Second
	DefaultTTL         = 60
)

type WebPushConfig struct {
	PublicKey  string
	PrivateKey string
	// Subscriber é o contato do VAPID (mailto: ou https:).
	Subscriber string
	TTL        int
	Urgency    string
	// Timeout limita cada tentativa; 0 usa DefaultSendTimeout.
	Timeout time.Duration
}

// WebPushTransport implementa domain.Transport sobre webpush-go.
type WebPushTransport struct {
	cfg    WebPushConfig
	client *http.Client
}

func NewWebPushTransport(cfg WebPushConfig) (*WebPushTransport, error) {
	if cfg.PublicKey == "" || cfg.PrivateKey == "" {
		return nil, errors.New("vapid public and private keys are required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSendTimeout
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &WebPushTransport{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// WithHTTPClient troca o client usado nas entregas (testes).
func (t *WebPushTransport) WithHTTPClient(c *http.Client) *WebPushTransport {
	t.client = c
	return t
}

// PublicKey é a chave que o navegador precisa para se inscrever.
func (t *WebPushTransport) PublicKey() string { return t.cfg.PublicKey }

func (t *WebPushTransport) Send(ctx context.Context, ep domain.Endpoint, payload []byte) error {
	sub := &webpush.Subscription{
		Endpoint: ep.URI,
		Keys: webpush.Keys{
			P256dh: ep.Keys.P256dh,
			Auth:   ep.Keys.Auth,
		},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, sub, &webpush.Options{
		HTTPClient:      t.client,
		Subscriber:      t.cfg.Subscriber,
		TTL:             t.cfg.TTL,
		Urgency:         webpush.Urgency(t.cfg.Urgency),
		VAPIDPublicKey:  t.cfg.PublicKey,
		VAPIDPrivateKey: t.cfg.PrivateKey,
	})
	if err != nil {
		return &domain.DeliveryError{Err: err}
	}
	defer resp.Body.Close()
	// drena para reaproveitar a conexão
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.DeliveryError{StatusCode: resp.StatusCode}
	}
	return nil
}

// GenerateVAPIDKeys devolve um par novo (privada, pública) em base64 url.
func GenerateVAPIDKeys() (privateKey, publicKey string, err error) {
	privateKey, publicKey, err = webpush.GenerateVAPIDKeys()
	if err != nil {
		return "", "", fmt.Errorf("generating vapid keys: %w", err)
	}
	return privateKey, publicKey, nil
}
