//go:build !linux

package tcpmethods

import (
	"context"
	"errors"

	"github.com/Gh05t666nero/nrtf/internal/core/domain"
	"github.com/Gh05t666nero/nrtf/internal/worker"
)

// SYNFlood requires raw IPv4 sockets, which this build does not support. The
// method stays in the fleet so requests fail cleanly instead of 400ing as an
// unknown method.
type SYNFlood struct{}

func NewSYNFlood() *SYNFlood { return &SYNFlood{} }

func (m *SYNFlood) Name() string { return "SYN_FLOOD" }

func (m *SYNFlood) Prepare(params *domain.TestParameters) error {
	if _, _, err := domain.NormalizeHostPortTarget(params.Target); err != nil {
		return err
	}
	params.Proxies = nil
	return nil
}

func (m *SYNFlood) Preflight(run *worker.TestRun) error {
	return errors.New("SYN_FLOOD requires raw sockets, unsupported on this platform")
}

func (m *SYNFlood) RunUnit(ctx context.Context, run *worker.TestRun) {}
