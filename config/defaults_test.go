package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// 服务器
	assert.Equal(t, 8000, cfg.Server.HTTPPort)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 100, cfg.Server.RateLimitRPS)
	assert.Equal(t, 200, cfg.Server.RateLimitBurst)
	assert.Equal(t, int64(10*1024*1024), cfg.Server.MaxUploadSize)
	assert.Equal(t, []string{".yml", ".yaml", ".json"}, cfg.Server.AllowedExtensions)
	assert.False(t, cfg.Server.JWT.Enabled())

	// 执行
	assert.Equal(t, 600*time.Second, cfg.Execution.DefaultTimeout)
	assert.Equal(t, 10, cfg.Execution.MaxConcurrent)

	// 模板
	assert.Equal(t, []string{"configs/examples/hierarchical", "configs/templates"}, cfg.Templates.Dirs)
	assert.Equal(t, "configs/examples", cfg.Templates.AgentLibraryDir)

	// 存储与 LLM
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "echo", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)

	// 日志与遥测
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "agentteams", cfg.Telemetry.ServiceName)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}
