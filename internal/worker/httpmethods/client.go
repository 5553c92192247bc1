package httpmethods

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/Gh05t666nero/nrtf/internal/core/domain"
	"github.com/Gh05t666nero/nrtf/internal/proxydial"
	"github.com/Gh05t666nero/nrtf/internal/util"
	"github.com/Gh05t666nero/nrtf/internal/worker"
)

const clientTimeout = 15 * time.Second

// newClient builds the per-unit HTTP client. When proxies were supplied one
// is picked at random for the unit's lifetime; HTTP and SOCKS5 ride the
// transport's proxy URL support, SOCKS4 goes through its own dialer.
func newClient(run *worker.TestRun) *http.Client {
	tr := &http.Transport{
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: true},
		MaxIdleConnsPerHost: 4,
	}

	if len(run.Params.Proxies) > 0 {
		p := util.Pick(run.Params.Proxies)
		switch p.Type {
		case domain.ProxyHTTP, domain.ProxySOCKS5:
			if u, err := url.Parse(p.AsURL()); err == nil {
				tr.Proxy = http.ProxyURL(u)
			}
		case domain.ProxySOCKS4:
			if d, err := proxydial.ForProxy(p, clientTimeout); err == nil {
				tr.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
					return d.Dial(network, addr)
				}
			}
		}
	}

	return &http.Client{Transport: tr, Timeout: clientTimeout}
}

// transportCloser lets an http.Transport register with the resource tracker.
type transportCloser struct {
	tr *http.Transport
}

func (t transportCloser) Close() error {
	t.tr.CloseIdleConnections()
	return nil
}

// trackClient registers the client's transport for forced cleanup. The
// returned release func is a no-op when shutdown already refused the
// registration; refused also means the unit should not start.
func trackClient(run *worker.TestRun, c *http.Client) (release func(), ok bool) {
	tr, isTransport := c.Transport.(*http.Transport)
	if !isTransport {
		return func() {}, true
	}
	return run.Track(transportCloser{tr})
}

// doRequest issues one GET and updates the counters. Any transport error
// counts as a failure; responses below 500 count as successes.
func doRequest(ctx context.Context, c *http.Client, target string, headers map[string]string, run *worker.TestRun) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		run.Metrics.RecordFail()
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.Do(req)
	if err != nil {
		run.Metrics.RecordFail()
		return err
	}
	resp.Body.Close()

	run.Metrics.RecordSent()
	run.Metrics.RecordBytes(approxRequestSize(headers))
	if resp.StatusCode < http.StatusInternalServerError {
		run.Metrics.RecordSuccess()
	} else {
		run.Metrics.RecordFail()
	}
	return nil
}

// sleepCtx pauses for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
