package tcpmethods

import (
	"context"
	"net"
	"time"

	"golang.org/x/time/rate"

	"github.com/Gh05t666nero/nrtf/internal/core/domain"
	"github.com/Gh05t666nero/nrtf/internal/util"
	"github.com/Gh05t666nero/nrtf/internal/worker"
)

const udpFloodPayload = 512

// UDPFlood sends fire-and-forget datagrams of random bytes. Proxies do not
// apply to UDP and are ignored.
type UDPFlood struct{}

func NewUDPFlood() *UDPFlood { return &UDPFlood{} }

func (m *UDPFlood) Name() string { return "UDP_FLOOD" }

func (m *UDPFlood) Prepare(params *domain.TestParameters) error {
	if _, _, err := domain.NormalizeHostPortTarget(params.Target); err != nil {
		return err
	}
	params.Proxies = nil
	return nil
}

func (m *UDPFlood) RunUnit(ctx context.Context, run *worker.TestRun) {
	conn, err := net.Dial("udp", run.Params.Target)
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

	limiter := rate.NewLimiter(rate.Every(time.Millisecond), 1)
	for ctx.Err() == nil {
		if limiter.Wait(ctx) != nil {
			return
		}
		n, err := conn.Write(util.RandomPayload(udpFloodPayload))
		run.Metrics.RecordSent()
		if err != nil {
			run.Metrics.RecordFail()
			continue
		}
		run.Metrics.RecordSuccess()
		run.Metrics.RecordBytes(n)
	}
}
