package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"delivery-gateway/middleware/ratelimit"
	"delivery-gateway/middleware/ratelimit/infra"
	"delivery-gateway/push/domain"
	vsdomain "delivery-gateway/videosync/domain"

	"github.com/rs/zerolog"
)

type stubBroadcaster struct{ calls int }

func (s *stubBroadcaster) Broadcast(context.Context, domain.Payload) (domain.Report, error) {
	s.calls++
	return domain.Report{Attempted: 2, Delivered: 2}, nil
}

type stubRegistrar struct{}

func (stubRegistrar) Subscribe(_ context.Context, ep domain.Endpoint) (domain.Endpoint, error) {
	return ep, nil
}

func (stubRegistrar) Unsubscribe(context.Context, string) (bool, error) { return true, nil }

type stubSink struct{ calls int }

func (s *stubSink) Handle(context.Context, vsdomain.Callback) (vsdomain.Ack, error) {
	s.calls++
	return vsdomain.Ack{Received: true}, nil
}

func newTestRouter(t *testing.T, max int) (http.Handler, *stubBroadcaster, *stubSink, *infra.MemoryStatsStore) {
	t.Helper()
	store := infra.NewWindowStore(infra.WithWindow(time.Minute))
	stats := infra.NewMemoryStatsStore()
	b := &stubBroadcaster{}
	sink := &stubSink{}

	h := NewRouter(Deps{
		Log: zerolog.Nop(),
		RateLimit: ratelimit.Options{
			Limiter: store,
			Stats:   stats,
			Max:     max,
			Scope:   "api",
		},
		Concurrency: ratelimit.ConcurrencyOptions{Max: 10},
		Slots:       infra.NewChanPool(10),
		Push:        &PushDeps{Broadcaster: b, Registrar: stubRegistrar{}, VAPIDPublicKey: "pub"},
		Video:       sink,
		Entries:     store.Len,
		Stats:       stats,
	})
	return h, b, sink, stats
}

func request(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("X-Forwarded-For", "10.0.0.1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestRouter_PushRoutesAreRateLimited(t *testing.T) {
	h, b, _, stats := newTestRouter(t, 2)

	for i := 0; i < 2; i++ {
		if w := request(h, http.MethodPost, "/api/push/send", `{}`); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}
	w := request(h, http.MethodPost, "/api/push/send", `{}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if b.calls != 2 {
		t.Fatalf("expected 2 broadcasts, got %d", b.calls)
	}
	snap, _ := stats.Snapshot(context.Background())
	if got := snap.Total; got.Allowed != 2 || got.Limited != 1 {
		t.Fatalf("unexpected stats: %+v", got)
	}
}

func TestRouter_WebhookIsNotRateLimited(t *testing.T) {
	h, _, sink, _ := newTestRouter(t, 1)

	for i := 0; i < 5; i++ {
		w := request(h, http.MethodPost, "/api/webhooks/video", `{"VideoGuid":"v","Status":3,"Length":1}`)
		if w.Code != http.StatusOK {
			t.Fatalf("callback %d: expected 200, got %d", i+1, w.Code)
		}
		if w.Header().Get("X-RateLimit-Limit") != "" {
			t.Fatalf("webhook must not carry rate limit headers")
		}
	}
	if sink.calls != 5 {
		t.Fatalf("expected 5 callbacks handled, got %d", sink.calls)
	}
}

func TestRouter_SetsRequestID(t *testing.T) {
	h, _, _, _ := newTestRouter(t, 10)
	w := request(h, http.MethodGet, "/api/push/vapid-public-key", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected X-Request-Id header")
	}
}

func TestRouter_WithoutPushDeps(t *testing.T) {
	h := NewRouter(Deps{Log: zerolog.Nop()})
	if w := request(h, http.MethodPost, "/api/push/send", `{}`); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	h := NewRouter(Deps{Log: zerolog.Nop(), Ping: func(context.Context) error { return nil }})
	if w := request(h, http.MethodGet, "/healthz", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	h = NewRouter(Deps{Log: zerolog.Nop(), Ping: func(context.Context) error { return errors.New("db gone") }})
	if w := request(h, http.MethodGet, "/healthz", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestRateDebug(t *testing.T) {
	h, _, _, _ := newTestRouter(t, 10)
	request(h, http.MethodGet, "/api/push/vapid-public-key", "")

	w := request(h, http.MethodGet, "/debug/ratelimit", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp rateDebugResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Entries != 1 || resp.Stats == nil || resp.Stats.Total.Allowed != 1 || resp.Stats.Scopes["api"].Allowed != 1 {
		t.Fatalf("unexpected debug response: %+v", resp)
	}
	if resp.Slots != 10 || resp.InUse != 1 {
		t.Fatalf("expected 1/10 slots while serving the debug request, got %d/%d", resp.InUse, resp.Slots)
	}
}

func TestRouter_WebhookBypassesConcurrencyCap(t *testing.T) {
	slots := infra.NewChanPool(1)
	release, ok := slots.Acquire(context.Background())
	if !ok {
		t.Fatalf("expected to take the only slot")
	}
	defer release()

	sink := &stubSink{}
	h := NewRouter(Deps{
		Log:         zerolog.Nop(),
		Concurrency: ratelimit.ConcurrencyOptions{AcquireTimeout: 10 * time.Millisecond},
		Slots:       slots,
		Push:        &PushDeps{Broadcaster: &stubBroadcaster{}, Registrar: stubRegistrar{}, VAPIDPublicKey: "pub"},
		Video:       sink,
	})

	if w := request(h, http.MethodPost, "/api/webhooks/video", `{"VideoGuid":"v","Status":3,"Length":1}`); w.Code != http.StatusOK {
		t.Fatalf("expected webhook to be served with no free slot, got %d", w.Code)
	}
	if sink.calls != 1 {
		t.Fatalf("expected callback handled, got %d", sink.calls)
	}
	w := request(h, http.MethodGet, "/api/push/vapid-public-key", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected push route to be rejected without slots, got %d", w.Code)
	}
}
