package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
)

type ctxKey int

const ctxKeyTrustedProxy ctxKey = iota

// TrustedRealIP extracts the real client IP from X-Real-IP or X-Forwarded-For
// headers, but ONLY if the request comes from a trusted proxy CIDR.
// If no trusted proxies are configured or the request is not from a trusted
// proxy, the original RemoteAddr is used.
//
// Whether the connection came from a trusted proxy is recorded in the request
// context for FromTrustedProxy.
func TrustedRealIP(trustedCIDRs []string) func(http.Handler) http.Handler {
	trustedNets := parseTrustedNets(trustedCIDRs)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isTrusted(extractIP(r.RemoteAddr), trustedNets) {
				next.ServeHTTP(w, r)
				return
			}

			if ip := forwardedIP(r); ip != nil {
				r.RemoteAddr = ip.String()
			}
			ctx := context.WithValue(r.Context(), ctxKeyTrustedProxy, true)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromTrustedProxy reports whether TrustedRealIP accepted the connection
// source as a trusted proxy.
func FromTrustedProxy(ctx context.Context) bool {
	trusted, _ := ctx.Value(ctxKeyTrustedProxy).(bool)
	return trusted
}

// forwardedIP returns the client address named by X-Real-IP, or else the
// first X-Forwarded-For hop. Invalid values are ignored.
func forwardedIP(r *http.Request) net.IP {
	if rip := r.Header.Get("X-Real-IP"); rip != "" {
		return net.ParseIP(strings.TrimSpace(rip))
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return net.ParseIP(strings.TrimSpace(first))
	}
	return nil
}

// parseTrustedNets parses CIDRs and bare IPs. Invalid entries are logged and
// skipped.
func parseTrustedNets(cidrs []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, cidr := range cidrs {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}

		_, network, err := net.ParseCIDR(cidr)
		if err == nil {
			nets = append(nets, network)
			continue
		}
		// Single IP, e.g. "127.0.0.1" instead of "127.0.0.1/32"
		if ip := net.ParseIP(cidr); ip != nil {
			mask := net.CIDRMask(128, 128)
			if ip.To4() != nil {
				mask = net.CIDRMask(32, 32)
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: mask})
			continue
		}
		slog.Warn("realip: invalid trusted proxy CIDR, skipping", "cidr", cidr, "error", err)
	}
	return nets
}

// extractIP parses an IP address from a host:port string or plain IP.
func extractIP(addr string) net.IP {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(addr)
}

// isTrusted checks if an IP is within any of the trusted networks.
func isTrusted(ip net.IP, trusted []*net.IPNet) bool {
	if ip == nil {
		return false
	}
	for _, network := range trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
