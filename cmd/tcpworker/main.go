package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Gh05t666nero/nrtf/internal/app"
	"github.com/Gh05t666nero/nrtf/internal/config"
	"github.com/Gh05t666nero/nrtf/internal/logger"
	"github.com/Gh05t666nero/nrtf/internal/worker"
	"github.com/Gh05t666nero/nrtf/internal/worker/tcpmethods"
)

func main() {
	app.Run("tcp-worker", func(cfg *config.Config, reg *prometheus.Registry, log *logger.StyledLogger) (app.Service, time.Duration, error) {
		runner := worker.NewRunner(worker.TCPLabels, cfg.TCPWorker.WaitSlack, log, reg,
			tcpmethods.NewTCPFlood(),
			tcpmethods.NewTCPConnection(),
			tcpmethods.NewUDPFlood(),
			tcpmethods.NewSYNFlood(),
		)
		srv := worker.NewServer("tcp-worker", cfg.TCPWorker.Server, runner, reg, log)
		return srv, cfg.TCPWorker.Server.ShutdownTimeout, nil
	})
}
