package config

import "time"

// Config carries the settings for all six services; each binary reads its own
// section so one config file can drive a whole deployment.
type Config struct {
	Gateway      GatewayConfig      `mapstructure:"gateway"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	HTTPWorker   WorkerConfig       `mapstructure:"http_worker"`
	TCPWorker    WorkerConfig       `mapstructure:"tcp_worker"`
	DNSWorker    WorkerConfig       `mapstructure:"dns_worker"`
	ProxyPool    ProxyPoolConfig    `mapstructure:"proxy_pool"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig is the shared HTTP listener block.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type GatewayConfig struct {
	Server          ServerConfig  `mapstructure:"server"`
	SecretKey       string        `mapstructure:"secret_key"`
	TokenExpiry     time.Duration `mapstructure:"token_expiry"`
	HTTPTimeout     time.Duration `mapstructure:"http_timeout"`
	OrchestratorURL string        `mapstructure:"orchestrator_url"`
}

type OrchestratorConfig struct {
	Server          ServerConfig  `mapstructure:"server"`
	HTTPModuleURL   string        `mapstructure:"http_module_url"`
	TCPModuleURL    string        `mapstructure:"tcp_module_url"`
	DNSModuleURL    string        `mapstructure:"dns_module_url"`
	ProxyServiceURL string        `mapstructure:"proxy_service_url"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	StartTimeout    time.Duration `mapstructure:"start_timeout"`
	PollTimeout     time.Duration `mapstructure:"poll_timeout"`
	StopTimeout     time.Duration `mapstructure:"stop_timeout"`
	DeadlineSlack   time.Duration `mapstructure:"deadline_slack"`
}

type WorkerConfig struct {
	Server    ServerConfig  `mapstructure:"server"`
	WaitSlack time.Duration `mapstructure:"wait_slack"`
}

type ProxySourceConfig struct {
	URL  string `mapstructure:"url"`
	Type int    `mapstructure:"type"`
}

type ProxyPoolConfig struct {
	Server          ServerConfig        `mapstructure:"server"`
	RefreshInterval time.Duration       `mapstructure:"refresh_interval"`
	FetchTimeout    time.Duration       `mapstructure:"fetch_timeout"`
	ValidateTimeout time.Duration       `mapstructure:"validate_timeout"`
	ValidateLimit   int                 `mapstructure:"validate_limit"`
	EchoEndpoint    string              `mapstructure:"echo_endpoint"`
	Sources         []ProxySourceConfig `mapstructure:"sources"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	LogDir     string `mapstructure:"log_dir"`
	FileOutput bool   `mapstructure:"file_output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}
