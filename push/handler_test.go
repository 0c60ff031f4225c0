package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"delivery-gateway/push/domain"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type fakeBroadcaster struct {
	BroadcastFunc func(ctx context.Context, p domain.Payload) (domain.Report, error)
	got           []domain.Payload
}

func (f *fakeBroadcaster) Broadcast(ctx context.Context, p domain.Payload) (domain.Report, error) {
	f.got = append(f.got, p)
	if f.BroadcastFunc == nil {
		return domain.Report{}, nil
	}
	return f.BroadcastFunc(ctx, p)
}

type fakeRegistrar struct {
	saved   []domain.Endpoint
	removed []string
	err     error
}

func (f *fakeRegistrar) Subscribe(_ context.Context, ep domain.Endpoint) (domain.Endpoint, error) {
	if f.err != nil {
		return domain.Endpoint{}, f.err
	}
	if err := ep.Validate(); err != nil {
		return domain.Endpoint{}, err
	}
	ep.ID = "sub-1"
	f.saved = append(f.saved, ep)
	return ep, nil
}

func (f *fakeRegistrar) Unsubscribe(_ context.Context, uri string) (bool, error) {
	if strings.TrimSpace(uri) == "" {
		return false, domain.ErrInvalidSubscription
	}
	f.removed = append(f.removed, uri)
	return true, nil
}

func newRouter(b Broadcaster, reg Registrar, key string) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/push", Routes(zerolog.Nop(), b, reg, key))
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestSend_ReturnsSentCount(t *testing.T) {
	b := &fakeBroadcaster{BroadcastFunc: func(context.Context, domain.Payload) (domain.Report, error) {
		return domain.Report{Attempted: 3, Delivered: 1, Failed: 2, Pruned: 1}, nil
	}}
	h := newRouter(b, &fakeRegistrar{}, "pub")

	w := do(t, h, http.MethodPost, "/api/push/send", `{"title":"Aula nova","url":"/aulas/1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body)
	}

	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["success"] != true || resp["sentCount"] != float64(3) || resp["pruned"] != float64(1) {
		t.Fatalf("unexpected response: %v", resp)
	}

	if len(b.got) != 1 {
		t.Fatalf("expected one broadcast, got %d", len(b.got))
	}
	p := b.got[0]
	if p.Title != "Aula nova" || p.Body != domain.DefaultBody || p.URL != "/aulas/1" {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestSend_EmptyBodyUsesDefaults(t *testing.T) {
	b := &fakeBroadcaster{}
	h := newRouter(b, &fakeRegistrar{}, "pub")

	w := do(t, h, http.MethodPost, "/api/push/send", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(b.got) != 1 || b.got[0] != domain.NewPayload("", "", "") {
		t.Fatalf("expected default payload, got %+v", b.got)
	}
	if !strings.Contains(w.Body.String(), `"sentCount":0`) {
		t.Fatalf("expected sentCount 0, got %s", w.Body)
	}
}

func TestSend_RegistryFailureIs500(t *testing.T) {
	b := &fakeBroadcaster{BroadcastFunc: func(context.Context, domain.Payload) (domain.Report, error) {
		return domain.Report{}, errors.New("db down")
	}}
	w := do(t, newRouter(b, &fakeRegistrar{}, "pub"), http.MethodPost, "/api/push/send", `{}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestSend_MalformedJSONIs400(t *testing.T) {
	b := &fakeBroadcaster{}
	w := do(t, newRouter(b, &fakeRegistrar{}, "pub"), http.MethodPost, "/api/push/send", `{"title":`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if len(b.got) != 0 {
		t.Fatalf("malformed request must not broadcast")
	}
}

func TestSubscribe(t *testing.T) {
	reg := &fakeRegistrar{}
	h := newRouter(&fakeBroadcaster{}, reg, "pub")

	w := do(t, h, http.MethodPost, "/api/push/subscribe",
		`{"id":"mine","endpoint":"https://push.example/a","keys":{"p256dh":"p","auth":"a"}}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body)
	}
	if len(reg.saved) != 1 || reg.saved[0].URI != "https://push.example/a" {
		t.Fatalf("unexpected saved: %+v", reg.saved)
	}

	w = do(t, h, http.MethodPost, "/api/push/subscribe", `{"endpoint":"https://push.example/a"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing keys, got %d", w.Code)
	}

	reg.err = errors.New("db down")
	w = do(t, h, http.MethodPost, "/api/push/subscribe",
		`{"endpoint":"https://push.example/b","keys":{"p256dh":"p","auth":"a"}}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestUnsubscribe(t *testing.T) {
	reg := &fakeRegistrar{}
	h := newRouter(&fakeBroadcaster{}, reg, "pub")

	w := do(t, h, http.MethodDelete, "/api/push/subscribe", `{"endpoint":"https://push.example/a"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(reg.removed) != 1 {
		t.Fatalf("expected one removal, got %v", reg.removed)
	}

	w = do(t, h, http.MethodDelete, "/api/push/subscribe", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestVAPIDPublicKey(t *testing.T) {
	w := do(t, newRouter(&fakeBroadcaster{}, &fakeRegistrar{}, "BPub"), http.MethodGet, "/api/push/vapid-public-key", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"publicKey":"BPub"`) {
		t.Fatalf("unexpected response %d: %s", w.Code, w.Body)
	}

	w = do(t, newRouter(&fakeBroadcaster{}, &fakeRegistrar{}, ""), http.MethodGet, "/api/push/vapid-public-key", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without key, got %d", w.Code)
	}
}
