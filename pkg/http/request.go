package http

import (
	"net"
	"net/http"
	"strings"
)

// IPConfig holds configuration for IP extraction and validation
type IPConfig struct {
	TrustedProxies []string // CIDR ranges of trusted proxies
}

// DefaultIPConfig trusts no proxies; the client IP is always RemoteAddr.
func DefaultIPConfig() *IPConfig {
	return &IPConfig{}
}

// ExtractClientIP extracts the real client IP address from the request.
// X-Forwarded-For and X-Real-IP are honored only when the request arrives
// from a trusted proxy, to prevent spoofing the rate-limit key.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	remoteIP := getRemoteAddr(r)

	if config != nil && isTrustedProxy(remoteIP, config.TrustedProxies) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			ips := strings.Split(xff, ",")
			for _, ip := range ips {
				ip = strings.TrimSpace(ip)
				if isValidIP(ip) {
					return ip
				}
			}
		}

		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			if isValidIP(xri) {
				return xri
			}
		}
	}

	return remoteIP
}

// getRemoteAddr extracts the IP address from RemoteAddr (removing port if present)
func getRemoteAddr(r *http.Request) string {
	if r.RemoteAddr != "" {
		if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return ip
		}
		return r.RemoteAddr
	}
	return "unknown"
}

// isTrustedProxy checks if an IP address is within any of the trusted proxy CIDR ranges
func isTrustedProxy(ip string, trustedProxies []string) bool {
	if len(trustedProxies) == 0 {
		return false
	}

	clientIP := net.ParseIP(ip)
	if clientIP == nil {
		return false
	}

	for _, cidr := range trustedProxies {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			continue // Skip invalid CIDR ranges
		}
		if ipNet.Contains(clientIP) {
			return true
		}
	}

	return false
}

// isValidIP checks if a string is a valid IPv4 or IPv6 address
func isValidIP(ip string) bool {
	return net.ParseIP(ip) != nil
}
