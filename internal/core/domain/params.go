package domain

import (
	"net"
	"strconv"
	"strings"
)

// TestParameters is the payload the orchestrator POSTs to a fleet's /execute.
type TestParameters struct {
	Target     string         `json:"target"`
	Method     string         `json:"method"`
	Duration   int            `json:"duration"`
	Threads    int            `json:"threads"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Proxies    []Proxy        `json:"proxies,omitempty"`
}

// StringParam fetches a free-form parameter as a string, with a default.
func (p *TestParameters) StringParam(key, def string) string {
	if p.Parameters == nil {
		return def
	}
	v, ok := p.Parameters[key]
	if !ok {
		return def
	}
	switch s := v.(type) {
	case string:
		return s
	default:
		return def
	}
}

// IntParam fetches a free-form parameter as an int, with a default. JSON
// numbers arrive as float64.
func (p *TestParameters) IntParam(key string, def int) int {
	if p.Parameters == nil {
		return def
	}
	v, ok := p.Parameters[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return def
}

// NormalizeHTTPTarget prefixes a bare host with http://.
func NormalizeHTTPTarget(target string) string {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target
	}
	return "http://" + target
}

// NormalizeHostPortTarget validates a host:port target for the raw TCP/UDP
// methods; the port must be in (0, 65535].
func NormalizeHostPortTarget(target string) (host string, port int, err error) {
	host, portStr, splitErr := net.SplitHostPort(target)
	if splitErr != nil {
		return "", 0, NewValidationError("target", "target must be in format host:port")
	}
	port, convErr := strconv.Atoi(portStr)
	if convErr != nil || port < 1 || port > 65535 {
		return "", 0, NewValidationError("target", "port must be between 1 and 65535")
	}
	return host, port, nil
}

// NormalizeDNSTarget validates a DNS server target, defaulting the port to 53
// when none was supplied.
func NormalizeDNSTarget(target string) (string, error) {
	if !strings.Contains(target, ":") {
		return target + ":53", nil
	}
	if _, _, err := NormalizeHostPortTarget(target); err != nil {
		return "", err
	}
	return target, nil
}
