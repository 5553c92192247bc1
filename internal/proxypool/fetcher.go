package proxypool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/Gh05t666nero/nrtf/internal/config"
	"github.com/Gh05t666nero/nrtf/internal/core/domain"
)

var ipPortRe = regexp.MustCompile(`(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}):(\d+)`)

// Fetcher downloads proxy lists from public sources.
type Fetcher struct {
	http    *http.Client
	timeout time.Duration
}

func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{http: &http.Client{}, timeout: timeout}
}

// Fetch downloads one source and extracts every plausible ip:port pair.
func (f *Fetcher) Fetch(ctx context.Context, src config.ProxySourceConfig) ([]domain.Proxy, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", src.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: %s", src.URL, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", src.URL, err)
	}
	return ExtractProxies(string(body), domain.ProxyType(src.Type)), nil
}

// ExtractProxies pulls every a.b.c.d:port pair with a port in (0, 65535]
// out of a proxy-list document.
func ExtractProxies(content string, ptype domain.ProxyType) []domain.Proxy {
	matches := ipPortRe.FindAllStringSubmatch(content, -1)
	var out []domain.Proxy
	for _, m := range matches {
		port, err := strconv.Atoi(m[2])
		if err != nil || port < 1 || port > 65535 {
			continue
		}
		out = append(out, domain.Proxy{Host: m[1], Port: port, Type: ptype})
	}
	return out
}
