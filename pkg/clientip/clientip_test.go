package clientip

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRealClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{name: "ipv4 with port", remoteAddr: "203.0.113.7:51234", want: "203.0.113.7"},
		{name: "ipv6 with port", remoteAddr: "[2001:db8::1]:443", want: "2001:db8::1"},
		{name: "mapped ipv4", remoteAddr: "[::ffff:192.0.2.10]:80", want: "192.0.2.10"},
		{name: "zone dropped", remoteAddr: "[fe80::1%eth0]:80", want: "fe80::1"},
		{name: "bare address", remoteAddr: " 198.51.100.2 ", want: "198.51.100.2"},
		{name: "bracketed bare ipv6", remoteAddr: "[2001:db8::2]", want: "2001:db8::2"},
		{name: "proxy header ignored", remoteAddr: "10.0.0.1:9000", forwarded: "1.2.3.4", want: "10.0.0.1"},
		{name: "not an ip", remoteAddr: "pipe", want: "pipe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			assert.Equal(t, tt.want, RealClientIP(req))
		})
	}
}
