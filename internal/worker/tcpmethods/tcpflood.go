package tcpmethods

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/Gh05t666nero/nrtf/internal/core/domain"
	"github.com/Gh05t666nero/nrtf/internal/util"
	"github.com/Gh05t666nero/nrtf/internal/worker"
)

const (
	tcpFloodPayload = 64
	tcpFloodTimeout = 3 * time.Second
)

// TCPFlood churns full TCP connections: connect, write 64 random bytes,
// close.
type TCPFlood struct{}

func NewTCPFlood() *TCPFlood { return &TCPFlood{} }

func (m *TCPFlood) Name() string { return "TCP_FLOOD" }

func (m *TCPFlood) Prepare(params *domain.TestParameters) error {
	_, _, err := domain.NormalizeHostPortTarget(params.Target)
	return err
}

func (m *TCPFlood) RunUnit(ctx context.Context, run *worker.TestRun) {
	dialer := unitDialer(run, tcpFloodTimeout)

	limiter := rate.NewLimiter(rate.Every(10*time.Millisecond), 1)
	for ctx.Err() == nil {
		if limiter.Wait(ctx) != nil {
			return
		}

		conn, err := dialer.Dial("tcp", run.Params.Target)
		if err != nil {
			run.Metrics.RecordFail()
			continue
		}
		release, ok := run.Track(conn)
		if !ok {
			conn.Close()
			return
		}

		_ = conn.SetWriteDeadline(time.Now().Add(tcpFloodTimeout))
		n, err := conn.Write(util.RandomPayload(tcpFloodPayload))
		run.Metrics.RecordSent()
		if err != nil {
			run.Metrics.RecordFail()
		} else {
			run.Metrics.RecordSuccess()
			run.Metrics.RecordBytes(n)
		}
		release()
		conn.Close()
	}
}
