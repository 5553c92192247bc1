package proxydial

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

// connectDialer tunnels a TCP stream through an HTTP proxy with the CONNECT
// verb.
type connectDialer struct {
	proxyAddr string
	username  string
	password  string
	timeout   time.Duration
}

func (d *connectDialer) Dial(network, addr string) (net.Conn, error) {
	if network != "tcp" && network != "tcp4" {
		return nil, fmt.Errorf("connect: network %q not supported", network)
	}

	conn, err := net.DialTimeout("tcp", d.proxyAddr, d.timeout)
	if err != nil {
		return nil, fmt.Errorf("connect: dialing proxy %s: %w", d.proxyAddr, err)
	}
	if d.timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(d.timeout))
	}

	req := fmt.Sprintf("CONNECT %s HTTP/1.1\r\nHost: %s\r\n", addr, addr)
	if d.username != "" {
		cred := base64.StdEncoding.EncodeToString([]byte(d.username + ":" + d.password))
		req += "Proxy-Authorization: Basic " + cred + "\r\n"
	}
	req += "\r\n"

	if _, err := conn.Write([]byte(req)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connect: writing request: %w", err)
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, &http.Request{Method: http.MethodConnect, URL: &url.URL{Host: addr}})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("connect: reading response: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		conn.Close()
		return nil, fmt.Errorf("connect: proxy refused tunnel: %s", resp.Status)
	}

	_ = conn.SetDeadline(time.Time{})
	return conn, nil
}
