package httpmethods

import (
	"context"
	"crypto/tls"
	"net"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Gh05t666nero/nrtf/internal/core/domain"
	"github.com/Gh05t666nero/nrtf/internal/logger"
	"github.com/Gh05t666nero/nrtf/internal/worker"
)

const tlsHandshakeBytes = 100

// SSLFlood exercises the target's TLS accept path: connect, handshake with
// verification disabled, close. The target is forced onto https.
type SSLFlood struct {
	log *logger.StyledLogger
}

func NewSSLFlood(log *logger.StyledLogger) *SSLFlood {
	return &SSLFlood{log: log}
}

func (m *SSLFlood) Name() string { return "SSL_FLOOD" }

func (m *SSLFlood) Prepare(params *domain.TestParameters) error {
	target := domain.NormalizeHTTPTarget(params.Target)
	target = strings.Replace(target, "http://", "https://", 1)
	u, err := url.Parse(target)
	if err != nil || u.Hostname() == "" {
		return domain.NewValidationError("target", "target is not a valid URL")
	}
	params.Target = target

	// A naked handshake through a tunnel only exercises the tunnel, so
	// supplied proxies are dropped here.
	if len(params.Proxies) > 0 {
		m.log.Warn("proxies are not supported for SSL_FLOOD, running direct", "proxies", len(params.Proxies))
		params.Proxies = nil
	}
	return nil
}

func (m *SSLFlood) RunUnit(ctx context.Context, run *worker.TestRun) {
	u, err := url.Parse(run.Params.Target)
	if err != nil {
		run.Metrics.RecordFail()
		return
	}
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "443"
	}
	addr := net.JoinHostPort(host, port)
	tlsCfg := &tls.Config{InsecureSkipVerify: true, ServerName: host}

	limiter := rate.NewLimiter(rate.Every(100*time.Millisecond), 1)
	for ctx.Err() == nil {
		if limiter.Wait(ctx) != nil {
			return
		}
		m.handshake(ctx, addr, tlsCfg, run)
	}
}

func (m *SSLFlood) handshake(ctx context.Context, addr string, tlsCfg *tls.Config, run *worker.TestRun) {
	d := net.Dialer{Timeout: 5 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		run.Metrics.RecordFail()
		return
	}
	release, ok := run.Track(conn)
	if !ok {
		conn.Close()
		return
	}
	defer release()
	defer conn.Close()

	tconn := tls.Client(conn, tlsCfg)
	if err := tconn.HandshakeContext(ctx); err != nil {
		run.Metrics.RecordFail()
		return
	}
	run.Metrics.RecordSent()
	run.Metrics.RecordSuccess()
	run.Metrics.RecordBytes(tlsHandshakeBytes)
	tconn.Close()
}
