package utils

import (
	"fmt"
	"hash/fnv"
	"net"
	"net/http"
	"strings"
)

// GetClientIP extracts the real client IP address from HTTP request
func GetClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first (for proxies/load balancers)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For can contain multiple IPs, take the first one
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			ip := strings.TrimSpace(ips[0])
			if isValidIP(ip) {
				return ip
			}
		}
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if isValidIP(xri) {
			return xri
		}
	}

	// Check CF-Connecting-IP header (Cloudflare)
	if cfip := r.Header.Get("CF-Connecting-IP"); cfip != "" {
		if isValidIP(cfip) {
			return cfip
		}
	}

	// Fall back to RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	if isValidIP(ip) {
		return ip
	}

	return r.RemoteAddr
}

// isValidIP checks if the given string is a valid IP address
func isValidIP(ip string) bool {
	return net.ParseIP(ip) != nil
}

// ClientIdentity derives the opaque conversation key for a request: the
// client IP plus a hash of the leading portion of the User-Agent. Two
// browsers behind one NAT get distinct histories; the store only needs
// the key for equality.
func ClientIdentity(r *http.Request) string {
	ip := GetClientIP(r)
	ua := r.Header.Get("User-Agent")
	if len(ua) > 50 {
		ua = ua[:50]
	}

	h := fnv.New64a()
	h.Write([]byte(ua))

	return fmt.Sprintf("%s_%d", ip, h.Sum64())
}
