package utils

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGetClientIPHeaders(t *testing.T) {
	cases := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{
			name:   "x-forwarded-for first ip",
			header: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"},
			remote: "10.0.0.2:1234",
			want:   "203.0.113.7",
		},
		{
			name:   "x-real-ip",
			header: map[string]string{"X-Real-IP": "198.51.100.4"},
			remote: "10.0.0.2:1234",
			want:   "198.51.100.4",
		},
		{
			name:   "cloudflare header",
			header: map[string]string{"CF-Connecting-IP": "192.0.2.9"},
			remote: "10.0.0.2:1234",
			want:   "192.0.2.9",
		},
		{
			name:   "remote addr fallback",
			remote: "192.0.2.50:44321",
			want:   "192.0.2.50",
		},
		{
			name:   "invalid forwarded value ignored",
			header: map[string]string{"X-Forwarded-For": "not-an-ip"},
			remote: "192.0.2.50:44321",
			want:   "192.0.2.50",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/chat", nil)
			r.RemoteAddr = tc.remote
			for k, v := range tc.header {
				r.Header.Set(k, v)
			}

			if got := GetClientIP(r); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestClientIdentityStable(t *testing.T) {
	r := httptest.NewRequest("POST", "/chat", nil)
	r.RemoteAddr = "192.0.2.50:44321"
	r.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64)")

	first := ClientIdentity(r)
	second := ClientIdentity(r)
	if first != second {
		t.Fatalf("identity not stable: %q vs %q", first, second)
	}
	if !strings.HasPrefix(first, "192.0.2.50_") {
		t.Fatalf("identity missing IP component: %q", first)
	}
}

func TestClientIdentityDistinguishesUserAgents(t *testing.T) {
	a := httptest.NewRequest("POST", "/chat", nil)
	a.RemoteAddr = "192.0.2.50:44321"
	a.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64)")

	b := httptest.NewRequest("POST", "/chat", nil)
	b.RemoteAddr = "192.0.2.50:44321"
	b.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0)")

	if ClientIdentity(a) == ClientIdentity(b) {
		t.Fatal("different browsers behind one NAT must get distinct identities")
	}
}

func TestClientIdentityTruncatesLongUserAgent(t *testing.T) {
	base := strings.Repeat("x", 50)

	a := httptest.NewRequest("POST", "/chat", nil)
	a.RemoteAddr = "192.0.2.50:44321"
	a.Header.Set("User-Agent", base+"-tail-one")

	b := httptest.NewRequest("POST", "/chat", nil)
	b.RemoteAddr = "192.0.2.50:44321"
	b.Header.Set("User-Agent", base+"-tail-two")

	if ClientIdentity(a) != ClientIdentity(b) {
		t.Fatal("user agent should only contribute its first 50 bytes")
	}
}
