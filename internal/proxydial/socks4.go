package proxydial

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
)

const (
	socks4Version      = 0x04
	socks4CmdConnect   = 0x01
	socks4ReplyGranted = 0x5a
)

// socks4Dialer speaks the 1992-vintage SOCKS4 CONNECT handshake: a 9+n byte
// request, an 8 byte reply. SOCKS4a (host in the request, IP 0.0.0.1) is used
// when the target does not resolve to IPv4 locally.
type socks4Dialer struct {
	proxyAddr string
	userID    string
	timeout   time.Duration
}

func (d *socks4Dialer) Dial(network, addr string) (net.Conn, error) {
	if network != "tcp" && network != "tcp4" {
		return nil, fmt.Errorf("socks4: network %q not supported", network)
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("socks4: bad address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return nil, fmt.Errorf("socks4: bad port %q", portStr)
	}

	conn, err := net.DialTimeout("tcp", d.proxyAddr, d.timeout)
	if err != nil {
		return nil, fmt.Errorf("socks4: dialing proxy %s: %w", d.proxyAddr, err)
	}
	if d.timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(d.timeout))
	}

	if err := d.handshake(conn, host, uint16(port)); err != nil {
		conn.Close()
		return nil, err
	}

	// clear the handshake deadline; the caller owns I/O deadlines from here
	_ = conn.SetDeadline(time.Time{})
	return conn, nil
}

func (d *socks4Dialer) handshake(conn net.Conn, host string, port uint16) error {
	req := make([]byte, 0, 16+len(d.userID)+len(host))
	req = append(req, socks4Version, socks4CmdConnect)
	req = binary.BigEndian.AppendUint16(req, port)

	ip4 := resolveIPv4(host)
	socks4a := ip4 == nil
	if socks4a {
		// 0.0.0.1 tells the proxy to resolve the hostname itself
		req = append(req, 0, 0, 0, 1)
	} else {
		req = append(req, ip4...)
	}
	req = append(req, d.userID...)
	req = append(req, 0)
	if socks4a {
		req = append(req, host...)
		req = append(req, 0)
	}

	if _, err := conn.Write(req); err != nil {
		return fmt.Errorf("socks4: writing request: %w", err)
	}

	var reply [8]byte
	if _, err := io.ReadFull(conn, reply[:]); err != nil {
		return fmt.Errorf("socks4: reading reply: %w", err)
	}
	if reply[1] != socks4ReplyGranted {
		return fmt.Errorf("socks4: request rejected (code 0x%02x)", reply[1])
	}
	return nil
}

func resolveIPv4(host string) []byte {
	if ip := net.ParseIP(host); ip != nil {
		return ip.To4()
	}
	addrs, err := net.LookupIP(host)
	if err != nil {
		return nil
	}
	for _, a := range addrs {
		if ip4 := a.To4(); ip4 != nil {
			return ip4
		}
	}
	return nil
}
