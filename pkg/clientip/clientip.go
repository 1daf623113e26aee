package clientip

import (
	"net/http"
	"net/netip"
	"strings"
)

// RealClientIP returns the caller's address from r.RemoteAddr. Proxy headers
// are ignored since the service is reached directly. IPv4-mapped IPv6
// addresses are reduced to IPv4 and zones are dropped, so one client always
// yields one rate limit key.
func RealClientIP(r *http.Request) string {
	return Normalize(r.RemoteAddr)
}

// Normalize canonicalizes "host:port" or a bare address. Input that is not
// an IP is returned trimmed.
func Normalize(addr string) string {
	addr = strings.TrimSpace(addr)
	if ap, err := netip.ParseAddrPort(addr); err == nil {
		return canonical(ap.Addr())
	}
	if ip, err := netip.ParseAddr(strings.Trim(addr, "[]")); err == nil {
		return canonical(ip)
	}
	return addr
}

func canonical(ip netip.Addr) string {
	return ip.Unmap().WithZone("").String()
}
