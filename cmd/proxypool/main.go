package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Gh05t666nero/nrtf/internal/app"
	"github.com/Gh05t666nero/nrtf/internal/config"
	"github.com/Gh05t666nero/nrtf/internal/logger"
	"github.com/Gh05t666nero/nrtf/internal/proxypool"
)

func main() {
	app.Run("proxypool", func(cfg *config.Config, reg *prometheus.Registry, log *logger.StyledLogger) (app.Service, time.Duration, error) {
		store := proxypool.NewStore()
		service := proxypool.NewService(cfg.ProxyPool, store, reg, log)
		srv := proxypool.NewServer(cfg.ProxyPool.Server, service, reg, log)
		return srv, cfg.ProxyPool.Server.ShutdownTimeout, nil
	})
}
