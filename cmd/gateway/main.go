package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Gh05t666nero/nrtf/internal/app"
	"github.com/Gh05t666nero/nrtf/internal/config"
	"github.com/Gh05t666nero/nrtf/internal/gateway"
	"github.com/Gh05t666nero/nrtf/internal/logger"
)

func main() {
	app.Run("gateway", func(cfg *config.Config, reg *prometheus.Registry, log *logger.StyledLogger) (app.Service, time.Duration, error) {
		srv := gateway.NewServer(cfg.Gateway, gateway.NewUserDB(), reg, log)
		return srv, cfg.Gateway.Server.ShutdownTimeout, nil
	})
}
