package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{name: "direct client", remoteAddr: "203.0.113.7:5000", want: "203.0.113.7"},
		{
			name:       "untrusted peer cannot spoof",
			remoteAddr: "203.0.113.7:5000",
			headers:    map[string]string{"X-Forwarded-For": "1.1.1.1"},
			want:       "203.0.113.7",
		},
		{
			name:       "trusted proxy forwards first hop",
			remoteAddr: "10.0.0.2:443",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.5"},
			want:       "198.51.100.1",
		},
		{
			name:       "trusted proxy with real ip",
			remoteAddr: "127.0.0.1:443",
			headers:    map[string]string{"X-Real-IP": "198.51.100.9"},
			want:       "198.51.100.9",
		},
		{
			name:       "garbage forwarded value is ignored",
			remoteAddr: "192.168.1.1:443",
			headers:    map[string]string{"X-Forwarded-For": "not-an-ip"},
			want:       "192.168.1.1",
		},
		{name: "unparseable remote addr", remoteAddr: "pipe", want: "pipe"},
	}

	resolver := NewClientIPResolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := resolver.ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAddTrustedProxy(t *testing.T) {
	resolver := NewClientIPResolver()
	if err := resolver.AddTrustedProxy("bogus"); err == nil {
		t.Fatal("expected error for invalid CIDR")
	}
	if err := resolver.AddTrustedProxy("203.0.113.0/24"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.7:5000"
	r.Header.Set("X-Forwarded-For", "1.1.1.1")
	if got := resolver.ClientIP(r); got != "1.1.1.1" {
		t.Errorf("ClientIP() = %q, want 1.1.1.1", got)
	}
}

func TestHeaders(t *testing.T) {
	h := Headers(DefaultHeadersConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/balance", nil))
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff header")
	}
	if rr.Header().Get("Cache-Control") != "no-store" {
		t.Error("missing no-store header")
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must only be sent over TLS")
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/balance", nil)
	req.TLS = &tls.ConnectionState{}
	h.ServeHTTP(rr, req)
	if rr.Header().Get("Strict-Transport-Security") != "max-age=31536000; includeSubDomains" {
		t.Errorf("unexpected HSTS header %q", rr.Header().Get("Strict-Transport-Security"))
	}
}
