package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func requestWith(remoteAddr string, headers map[string]string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func TestClientIPForwardedForWins(t *testing.T) {
	req := requestWith("203.0.113.7:1234", map[string]string{
		"X-Forwarded-For": "198.51.100.4, 10.0.0.1",
		"X-Real-Ip":       "192.0.2.1",
	})
	if got := ClientIP(req); got != "198.51.100.4" {
		t.Fatalf("got %s, want first X-Forwarded-For entry", got)
	}
}

func TestClientIPRealIPFallback(t *testing.T) {
	req := requestWith("203.0.113.7:1234", map[string]string{
		"X-Real-Ip": "192.0.2.1",
	})
	if got := ClientIP(req); got != "192.0.2.1" {
		t.Fatalf("got %s, want X-Real-Ip", got)
	}
}

func TestClientIPDirectPeer(t *testing.T) {
	req := requestWith("203.0.113.7:1234", nil)
	if got := ClientIP(req); got != "203.0.113.7" {
		t.Fatalf("got %s, want socket address host", got)
	}
}

func TestClientIPGarbageHeaderSkipped(t *testing.T) {
	req := requestWith("203.0.113.7:1234", map[string]string{
		"X-Forwarded-For": "not-an-ip",
	})
	if got := ClientIP(req); got != "203.0.113.7" {
		t.Fatalf("got %s, want fallback past garbage header", got)
	}
}

func TestClientIPUnparseableEverything(t *testing.T) {
	req := requestWith("garbage", map[string]string{
		"X-Forwarded-For": "also garbage",
	})
	if got := ClientIP(req); got != "unknown" {
		t.Fatalf("got %s, want unknown", got)
	}
}

func TestClientIPNormalizesIPv6(t *testing.T) {
	req := requestWith("203.0.113.7:1234", map[string]string{
		"X-Forwarded-For": "2001:0db8:0000:0000:0000:0000:0000:0001",
	})
	if got := ClientIP(req); got != "2001:db8::1" {
		t.Fatalf("got %s, want canonical IPv6 form", got)
	}
}
