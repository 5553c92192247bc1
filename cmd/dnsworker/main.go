package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Gh05t666nero/nrtf/internal/app"
	"github.com/Gh05t666nero/nrtf/internal/config"
	"github.com/Gh05t666nero/nrtf/internal/logger"
	"github.com/Gh05t666nero/nrtf/internal/worker"
	"github.com/Gh05t666nero/nrtf/internal/worker/dnsmethods"
)

func main() {
	app.Run("dns-worker", func(cfg *config.Config, reg *prometheus.Registry, log *logger.StyledLogger) (app.Service, time.Duration, error) {
		runner := worker.NewRunner(worker.DNSLabels, cfg.DNSWorker.WaitSlack, log, reg,
			dnsmethods.NewDNSFlood(),
		)
		srv := worker.NewServer("dns-worker", cfg.DNSWorker.Server, runner, reg, log)
		return srv, cfg.DNSWorker.Server.ShutdownTimeout, nil
	})
}
