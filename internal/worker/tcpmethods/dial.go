// Package tcpmethods implements the TCP/UDP fleet's load methods: TCP_FLOOD,
// TCP_CONNECTION, UDP_FLOOD and SYN_FLOOD.
package tcpmethods

import (
	"context"
	"time"

	"github.com/Gh05t666nero/nrtf/internal/proxydial"
	"github.com/Gh05t666nero/nrtf/internal/util"
	"github.com/Gh05t666nero/nrtf/internal/worker"
)

// unitDialer picks one proxy for the unit's lifetime, or dials direct when
// the run carries none.
func unitDialer(run *worker.TestRun, timeout time.Duration) proxydial.Dialer {
	if len(run.Params.Proxies) == 0 {
		return proxydial.Direct{Timeout: timeout}
	}
	p := util.Pick(run.Params.Proxies)
	d, err := proxydial.ForProxy(p, timeout)
	if err != nil {
		return proxydial.Direct{Timeout: timeout}
	}
	return d
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
