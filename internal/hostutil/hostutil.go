// Package hostutil normalizes service and IAM endpoints given on the command
// line.
package hostutil

import (
	"net"
	"net/url"
	"strings"
)

// Normalize turns a --url or --iam-url value into a full URL without a
// trailing slash. Bare loopback hosts get http://, other bare hosts https://.
//
//	localhost:8080                -> http://localhost:8080
//	api.us-south.example.com/api/ -> https://api.us-south.example.com/api
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		host, _, _ := strings.Cut(raw, "/")
		if IsLocalhost(host) {
			raw = "http://" + raw
		} else {
			raw = "https://" + raw
		}
	}
	return strings.TrimSuffix(raw, "/")
}

// IsLocalhost reports whether raw names a loopback host. raw may be a bare
// host, a host:port pair, or a full URL.
func IsLocalhost(raw string) bool {
	host := raw
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return false
		}
		host = u.Host
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")

	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
