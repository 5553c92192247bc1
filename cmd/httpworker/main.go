package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Gh05t666nero/nrtf/internal/app"
	"github.com/Gh05t666nero/nrtf/internal/config"
	"github.com/Gh05t666nero/nrtf/internal/logger"
	"github.com/Gh05t666nero/nrtf/internal/worker"
	"github.com/Gh05t666nero/nrtf/internal/worker/httpmethods"
)

func main() {
	app.Run("http-worker", func(cfg *config.Config, reg *prometheus.Registry, log *logger.StyledLogger) (app.Service, time.Duration, error) {
		runner := worker.NewRunner(worker.HTTPLabels, cfg.HTTPWorker.WaitSlack, log, reg,
			httpmethods.NewHTTPFlood(),
			httpmethods.NewHTTPBypass(),
			httpmethods.NewSSLFlood(log),
			httpmethods.NewSlowLoris(log),
		)
		srv := worker.NewServer("http-worker", cfg.HTTPWorker.Server, runner, reg, log)
		return srv, cfg.HTTPWorker.Server.ShutdownTimeout, nil
	})
}
