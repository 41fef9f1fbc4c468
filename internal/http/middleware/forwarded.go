package middleware

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"
)

// SchemeKey holds the scheme the client used, as resolved by ForwardedProto.
const SchemeKey = "request_scheme"

// ParseTrustedProxies accepts bare IPs and CIDR prefixes.
func ParseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(entries))
	for _, raw := range entries {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// ForwardedProto resolves the scheme used in self and next links. X-Forwarded-Proto
// only counts when the direct peer is a trusted proxy.
func ForwardedProto(trusted []netip.Prefix) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(SchemeKey, resolveScheme(c.Request, trusted))
		c.Next()
	}
}

func resolveScheme(r *http.Request, trusted []netip.Prefix) string {
	if proto := forwardedProto(r.Header.Get("X-Forwarded-Proto")); proto != "" && peerTrusted(r.RemoteAddr, trusted) {
		return proto
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// forwardedProto takes the first hop's value; anything but http/https is ignored.
func forwardedProto(header string) string {
	first := strings.ToLower(strings.TrimSpace(strings.Split(header, ",")[0]))
	if first == "http" || first == "https" {
		return first
	}
	return ""
}

func peerTrusted(remoteAddr string, trusted []netip.Prefix) bool {
	if len(trusted) == 0 {
		return false
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(remoteAddr))
	if err != nil {
		host = strings.TrimSpace(remoteAddr)
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
