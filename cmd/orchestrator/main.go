package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Gh05t666nero/nrtf/internal/app"
	"github.com/Gh05t666nero/nrtf/internal/config"
	"github.com/Gh05t666nero/nrtf/internal/logger"
	"github.com/Gh05t666nero/nrtf/internal/orchestrator"
)

func main() {
	app.Run("orchestrator", func(cfg *config.Config, reg *prometheus.Registry, log *logger.StyledLogger) (app.Service, time.Duration, error) {
		store := orchestrator.NewStore()
		fleet := orchestrator.NewFleetClient()
		proxies := orchestrator.NewProxyClient(cfg.Orchestrator.ProxyServiceURL, log)
		executor := orchestrator.NewExecutor(cfg.Orchestrator, store, fleet, proxies, reg, log)
		srv := orchestrator.NewServer(cfg.Orchestrator, store, executor, reg, log)
		return srv, cfg.Orchestrator.Server.ShutdownTimeout, nil
	})
}
