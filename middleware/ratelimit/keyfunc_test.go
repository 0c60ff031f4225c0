package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDefaultKeyFunc(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name:    "first forwarded-for entry",
			headers: map[string]string{"X-Forwarded-For": " 1.2.3.4 , 5.6.7.8", "X-Real-IP": "9.9.9.9"},
			want:    "1.2.3.4",
		},
		{
			name:    "real ip when no forwarded-for",
			headers: map[string]string{"X-Real-IP": "9.9.9.9", "CF-Connecting-IP": "8.8.8.8"},
			want:    "9.9.9.9",
		},
		{
			name:    "cdn header last",
			headers: map[string]string{"CF-Connecting-IP": "8.8.8.8"},
			want:    "8.8.8.8",
		},
		{
			name:    "empty forwarded-for entry falls through",
			headers: map[string]string{"X-Forwarded-For": " , 5.6.7.8", "CF-Connecting-IP": "8.8.8.8"},
			want:    "8.8.8.8",
		},
		{
			name: "unknown sentinel",
			want: UnknownClient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
			r.RemoteAddr = "10.0.0.9:5555"
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := DefaultKeyFunc(r); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
