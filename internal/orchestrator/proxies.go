package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Gh05t666nero/nrtf/internal/core/domain"
	"github.com/Gh05t666nero/nrtf/internal/logger"
)

// ProxyClient fetches proxies from the pool service. Failures degrade to an
// empty list; a test never fails because proxies were unavailable.
type ProxyClient struct {
	baseURL string
	http    *http.Client
	log     *logger.StyledLogger
}

func NewProxyClient(baseURL string, log *logger.StyledLogger) *ProxyClient {
	return &ProxyClient{baseURL: baseURL, http: &http.Client{}, log: log}
}

// Fetch requests count proxies of the given type; type 0 means any type.
// Validation bookkeeping is stripped so fleets only see dialing fields.
func (c *ProxyClient) Fetch(ctx context.Context, proxyType, count int) []domain.Proxy {
	q := url.Values{}
	q.Set("count", fmt.Sprint(count))
	if proxyType != 0 {
		q.Set("type", fmt.Sprint(proxyType))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/proxies?"+q.Encode(), nil)
	if err != nil {
		return nil
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("proxy service unreachable, running without proxies", "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("proxy service error, running without proxies", "status", resp.Status)
		return nil
	}
	var proxies []domain.Proxy
	if err := json.NewDecoder(resp.Body).Decode(&proxies); err != nil {
		c.log.Warn("bad proxy service response, running without proxies", "error", err)
		return nil
	}
	stripped := make([]domain.Proxy, len(proxies))
	for i, p := range proxies {
		stripped[i] = p.Stripped()
	}
	return stripped
}
