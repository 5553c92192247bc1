package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.Gateway.Server.Port)
	assert.Equal(t, 8000, cfg.Orchestrator.Server.Port)
	assert.Equal(t, 8001, cfg.HTTPWorker.Server.Port)
	assert.Equal(t, 8002, cfg.TCPWorker.Server.Port)
	assert.Equal(t, 8003, cfg.DNSWorker.Server.Port)
	assert.Equal(t, 8010, cfg.ProxyPool.Server.Port)

	assert.Equal(t, 5*time.Second, cfg.Orchestrator.PollInterval)
	assert.Equal(t, 60*time.Second, cfg.Orchestrator.DeadlineSlack)
	assert.Equal(t, 50, cfg.ProxyPool.ValidateLimit)
	assert.Len(t, cfg.ProxyPool.Sources, 9)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	resetViper(t)
	t.Chdir(t.TempDir())

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Orchestrator, cfg.Orchestrator)
}

func TestLoadReadsConfigFile(t *testing.T) {
	resetViper(t)
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := "orchestrator:\n  poll_interval: 1s\n  http_module_url: http://workers:9001\ngateway:\n  server:\n    port: 9999\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.Orchestrator.PollInterval)
	assert.Equal(t, "http://workers:9001", cfg.Orchestrator.HTTPModuleURL)
	assert.Equal(t, 9999, cfg.Gateway.Server.Port)

	// untouched keys keep their defaults
	assert.Equal(t, 30*time.Second, cfg.Orchestrator.StartTimeout)
}

func TestLoadLegacyEnvOverrides(t *testing.T) {
	resetViper(t)
	t.Chdir(t.TempDir())
	t.Setenv("SECRET_KEY", "from-env")
	t.Setenv("ORCHESTRATOR_URL", "http://orch:1234")
	t.Setenv("HTTP_MODULE_URL", "http://http-fleet:5678")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Gateway.SecretKey)
	assert.Equal(t, "http://orch:1234", cfg.Gateway.OrchestratorURL)
	assert.Equal(t, "http://http-fleet:5678", cfg.Orchestrator.HTTPModuleURL)
}
