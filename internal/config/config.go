package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	DefaultHost = "0.0.0.0"

	DefaultGatewayPort      = 8080
	DefaultOrchestratorPort = 8000
	DefaultHTTPWorkerPort   = 8001
	DefaultTCPWorkerPort    = 8002
	DefaultDNSWorkerPort    = 8003
	DefaultProxyPoolPort    = 8010
)

// DefaultSources is the stock proxy-list catalogue: three public sources per
// proxy type (1=HTTP, 4=SOCKS4, 5=SOCKS5).
func DefaultSources() []ProxySourceConfig {
	return []ProxySourceConfig{
		{URL: "https://raw.githubusercontent.com/TheSpeedX/PROXY-List/master/http.txt", Type: 1},
		{URL: "https://api.proxyscrape.com/v2/?request=getproxies&protocol=http", Type: 1},
		{URL: "https://www.proxy-list.download/api/v1/get?type=http", Type: 1},
		{URL: "https://raw.githubusercontent.com/TheSpeedX/PROXY-List/master/socks4.txt", Type: 4},
		{URL: "https://api.proxyscrape.com/v2/?request=getproxies&protocol=socks4", Type: 4},
		{URL: "https://www.proxy-list.download/api/v1/get?type=socks4", Type: 4},
		{URL: "https://raw.githubusercontent.com/TheSpeedX/PROXY-List/master/socks5.txt", Type: 5},
		{URL: "https://api.proxyscrape.com/v2/?request=getproxies&protocol=socks5", Type: 5},
		{URL: "https://www.proxy-list.download/api/v1/get?type=socks5", Type: 5},
	}
}

func defaultServer(port int) ServerConfig {
	return ServerConfig{
		Host:            DefaultHost,
		Port:            port,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// DefaultConfig returns the compiled-in defaults for every service.
func DefaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Server:          defaultServer(DefaultGatewayPort),
			SecretKey:       "development_secret_key_change_in_production",
			TokenExpiry:     30 * time.Minute,
			HTTPTimeout:     30 * time.Second,
			OrchestratorURL: "http://orchestrator:8000",
		},
		Orchestrator: OrchestratorConfig{
			Server:          defaultServer(DefaultOrchestratorPort),
			HTTPModuleURL:   "http://http-module:8001",
			TCPModuleURL:    "http://tcp-module:8002",
			DNSModuleURL:    "http://dns-module:8003",
			ProxyServiceURL: "http://proxy-service:8010",
			PollInterval:    5 * time.Second,
			StartTimeout:    30 * time.Second,
			PollTimeout:     10 * time.Second,
			StopTimeout:     30 * time.Second,
			DeadlineSlack:   60 * time.Second,
		},
		HTTPWorker: WorkerConfig{
			Server:    defaultServer(DefaultHTTPWorkerPort),
			WaitSlack: 10 * time.Second,
		},
		TCPWorker: WorkerConfig{
			Server:    defaultServer(DefaultTCPWorkerPort),
			WaitSlack: 10 * time.Second,
		},
		DNSWorker: WorkerConfig{
			Server:    defaultServer(DefaultDNSWorkerPort),
			WaitSlack: 10 * time.Second,
		},
		ProxyPool: ProxyPoolConfig{
			Server:          defaultServer(DefaultProxyPoolPort),
			RefreshInterval: time.Hour,
			FetchTimeout:    10 * time.Second,
			ValidateTimeout: 10 * time.Second,
			ValidateLimit:   50,
			EchoEndpoint:    "http://httpbin.org/ip",
			Sources:         DefaultSources(),
		},
		Logging: LoggingConfig{
			Level:      "info",
			LogDir:     "./logs",
			FileOutput: false,
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     14,
		},
	}
}

// legacyEnv maps the flat environment names the platform has always
// recognised onto config keys.
var legacyEnv = map[string]string{
	"gateway.secret_key":             "SECRET_KEY",
	"gateway.http_timeout":           "HTTP_TIMEOUT",
	"gateway.orchestrator_url":       "ORCHESTRATOR_URL",
	"orchestrator.http_module_url":   "HTTP_MODULE_URL",
	"orchestrator.tcp_module_url":    "TCP_MODULE_URL",
	"orchestrator.dns_module_url":    "DNS_MODULE_URL",
	"orchestrator.proxy_service_url": "PROXY_SERVICE_URL",
}

// Load reads config.yaml (searching . and ./config, or NRTF_CONFIG_FILE)
// over the defaults, binds environment overrides and, when onReload is
// non-nil, watches the file and invokes the callback with each re-parsed
// configuration.
func Load(onReload func(*Config)) (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("NRTF")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	for key, env := range legacyEnv {
		if err := viper.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if configFile := os.Getenv("NRTF_CONFIG_FILE"); configFile != "" {
			viper.SetConfigFile(configFile)
			if err := viper.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
			}
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if onReload != nil {
		viper.OnConfigChange(func(_ fsnotify.Event) {
			fresh := DefaultConfig()
			if err := viper.ReadInConfig(); err != nil {
				return
			}
			if err := viper.Unmarshal(fresh); err != nil {
				return
			}
			onReload(fresh)
		})
		viper.WatchConfig()
	}

	return cfg, nil
}
