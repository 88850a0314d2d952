package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestLimiter_Burst(t *testing.T) {
	l := New(3, time.Minute, 3)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !l.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("1.2.3.4") {
		t.Error("fourth request should be limited")
	}
	if !l.Allow("5.6.7.8") {
		t.Error("other keys have their own bucket")
	}

	// One token refills every 20s.
	now = now.Add(21 * time.Second)
	if !l.Allow("1.2.3.4") {
		t.Error("request after refill should be allowed")
	}

	l.Reset("1.2.3.4")
	if !l.Allow("1.2.3.4") {
		t.Error("request after Reset should be allowed")
	}
}

func TestLimiter_SweepsIdleKeys(t *testing.T) {
	l := New(10, time.Minute, 1)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow("a")
	l.Allow("b")
	now = now.Add(3 * time.Minute)
	l.Allow("c")

	if n := l.Len(); n != 1 {
		t.Errorf("Len() = %d, want 1 after idle keys are swept", n)
	}
}

func TestMiddleware(t *testing.T) {
	l := New(1, time.Minute, 1)
	h := Middleware(l, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/donations/checkout", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first request: status %d, want 204", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request: status %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestClientIP(t *testing.T) {
	proxies, err := ParseProxies("10.0.0.0/8, 127.0.0.1")
	if err != nil {
		t.Fatalf("ParseProxies failed: %v", err)
	}

	tests := []struct {
		name       string
		xff, xri   string
		remoteAddr string
		want       string
	}{
		{"trusted proxy forwards", "203.0.113.195", "", "127.0.0.1:1", "203.0.113.195"},
		{"trusted hops skipped", "203.0.113.195, 198.51.100.7, 10.1.2.3", "", "10.0.0.9:1", "198.51.100.7"},
		{"all hops trusted", "10.9.9.9, 10.1.1.1", "", "10.0.0.9:1", "10.9.9.9"},
		{"real ip from trusted proxy", "", " 192.168.1.100 ", "127.0.0.1:1", "192.168.1.100"},
		{"untrusted peer forged forwarded for", "1.1.1.1", "", "198.51.100.20:4000", "198.51.100.20"},
		{"untrusted peer forged real ip", "", "1.1.1.1", "198.51.100.20:4000", "198.51.100.20"},
		{"remote addr strips port", "", "", "10.0.0.5:12345", "10.0.0.5"},
		{"remote addr without port", "", "", "192.0.2.6", "192.0.2.6"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			r.RemoteAddr = tt.remoteAddr

			var got string
			proxies.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = ClientIP(r)
			})).ServeHTTP(httptest.NewRecorder(), r)
			if got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClientIP_NoProxiesIgnoresHeaders(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "198.51.100.20:4000"
	r.Header.Set("X-Forwarded-For", "1.1.1.1")
	r.Header.Set("X-Real-IP", "2.2.2.2")

	if got := ClientIP(r); got != "198.51.100.20" {
		t.Errorf("ClientIP() without middleware = %q", got)
	}
	if got := Proxies(nil).Resolve(r); got != "198.51.100.20" {
		t.Errorf("Resolve() with no proxies = %q", got)
	}
}

func TestMiddleware_ForgedForwardedForSharesBucket(t *testing.T) {
	l := New(1, time.Minute, 1)
	h := Proxies(nil).Middleware(Middleware(l, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	for i, fwd := range []string{"1.1.1.1", "2.2.2.2"} {
		req := httptest.NewRequest(http.MethodPost, "/donations/checkout", nil)
		req.RemoteAddr = "198.51.100.20:4000"
		req.Header.Set("X-Forwarded-For", fwd)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		want := http.StatusNoContent
		if i == 1 {
			want = http.StatusTooManyRequests
		}
		if rec.Code != want {
			t.Errorf("request %d: status %d, want %d", i+1, rec.Code, want)
		}
	}
}

func TestParseProxies(t *testing.T) {
	tests := []struct {
		in      string
		wantN   int
		wantErr bool
	}{
		{"", 0, false},
		{"10.0.0.1", 1, false},
		{"10.0.0.0/8, ::1, fd00::/8", 3, false},
		{"not-an-ip", 0, true},
		{"10.0.0.0/99", 0, true},
	}
	for _, tt := range tests {
		p, err := ParseProxies(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseProxies(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if len(p) != tt.wantN {
			t.Errorf("ParseProxies(%q) = %d networks, want %d", tt.in, len(p), tt.wantN)
		}
	}
}
