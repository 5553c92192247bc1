// Package proxydial turns a pool proxy into a stream dialer. SOCKS5 rides on
// golang.org/x/net/proxy; SOCKS4 and HTTP CONNECT are small fixed handshakes
// implemented here because no maintained client exists for them.
package proxydial

import (
	"fmt"
	"net"
	"time"

	xproxy "golang.org/x/net/proxy"

	"github.com/Gh05t666nero/nrtf/internal/core/domain"
)

// Dialer matches the x/net/proxy contract so callers can mix direct and
// proxied dials.
type Dialer interface {
	Dial(network, addr string) (net.Conn, error)
}

// Direct dials without a proxy.
type Direct struct {
	Timeout time.Duration
}

func (d Direct) Dial(network, addr string) (net.Conn, error) {
	return net.DialTimeout(network, addr, d.Timeout)
}

// ForProxy builds a dialer tunnelling through p. The timeout bounds both the
// dial to the proxy and the tunnel handshake.
func ForProxy(p domain.Proxy, timeout time.Duration) (Dialer, error) {
	switch p.Type {
	case domain.ProxySOCKS5:
		var auth *xproxy.Auth
		if p.Username != "" {
			auth = &xproxy.Auth{User: p.Username, Password: p.Password}
		}
		return xproxy.SOCKS5("tcp", p.Addr(), auth, &net.Dialer{Timeout: timeout})
	case domain.ProxySOCKS4:
		return &socks4Dialer{proxyAddr: p.Addr(), userID: p.Username, timeout: timeout}, nil
	case domain.ProxyHTTP:
		return &connectDialer{proxyAddr: p.Addr(), username: p.Username, password: p.Password, timeout: timeout}, nil
	default:
		return nil, fmt.Errorf("no dialer for proxy type %s", p.Type)
	}
}
