package proxypool

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/Gh05t666nero/nrtf/internal/core/domain"
	"github.com/Gh05t666nero/nrtf/internal/proxydial"
)

// Validator probes proxies against an echo endpoint. HTTP proxies carry a
// full request through the transport; SOCKS proxies get a raw connect plus a
// literal GET, passing iff the reply carries a 200.
type Validator struct {
	timeout time.Duration
	echoURL string
}

func NewValidator(timeout time.Duration, echoURL string) *Validator {
	return &Validator{timeout: timeout, echoURL: echoURL}
}

// Validate probes one proxy and returns its updated record. ok=false means
// the proxy failed and should be dropped from the served set.
func (v *Validator) Validate(ctx context.Context, p domain.Proxy) (domain.Proxy, bool) {
	var elapsed time.Duration
	var err error
	if p.Type == domain.ProxyHTTP {
		elapsed, err = v.validateHTTP(ctx, p)
	} else {
		elapsed, err = v.validateSOCKS(p)
	}

	now := float64(time.Now().UnixNano()) / float64(time.Second)
	p.LastChecked = &now
	valid := err == nil
	p.IsValid = &valid
	if valid {
		rt := elapsed.Seconds()
		p.ResponseTime = &rt
	}
	return p, valid
}

func (v *Validator) validateHTTP(ctx context.Context, p domain.Proxy) (time.Duration, error) {
	proxyURL, err := url.Parse(p.AsURL())
	if err != nil {
		return 0, err
	}
	client := &http.Client{
		Transport: &http.Transport{
			Proxy:           http.ProxyURL(proxyURL),
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
		Timeout: v.timeout,
	}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.echoURL, nil)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("echo endpoint returned %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return 0, err
	}
	if !gjson.GetBytes(body, "origin").Exists() {
		return 0, fmt.Errorf("echo endpoint returned no origin")
	}
	return time.Since(start), nil
}

func (v *Validator) validateSOCKS(p domain.Proxy) (time.Duration, error) {
	echo, err := url.Parse(v.echoURL)
	if err != nil {
		return 0, err
	}
	host := echo.Hostname()
	port := echo.Port()
	if port == "" {
		port = "80"
	}

	dialer, err := proxydial.ForProxy(p, v.timeout)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	conn, err := dialer.Dial("tcp", host+":"+port)
	if err != nil {
		return 0, err
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(v.timeout))

	req := fmt.Sprintf("GET %s HTTP/1.1\r\nHost: %s\r\nConnection: close\r\n\r\n", echo.RequestURI(), host)
	if _, err := conn.Write([]byte(req)); err != nil {
		return 0, err
	}

	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		return 0, err
	}
	if !bytes.Contains(buf[:n], []byte("200 OK")) {
		return 0, fmt.Errorf("unexpected reply through proxy")
	}
	return time.Since(start), nil
}
