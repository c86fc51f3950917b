// 配置加载器测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8000, cfg.Server.HTTPPort)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.NoError(t, cfg.Validate())
}

func TestLoader_LoadFromYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := `
server:
  http_port: 8888
  read_timeout: 45s
  api_keys: [k1, k2]
storage:
  backend: redis
redis:
  addr: redis:6379
execution:
  default_timeout: 2m
  max_concurrent: 3
templates:
  dirs: [custom/templates]
  agent_library_dir: custom/agents
llm:
  provider: openai
  model: gpt-4o
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, 45*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Server.APIKeys)
	assert.Equal(t, "redis", cfg.Storage.Backend)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2*time.Minute, cfg.Execution.DefaultTimeout)
	assert.Equal(t, 3, cfg.Execution.MaxConcurrent)
	assert.Equal(t, []string{"custom/templates"}, cfg.Templates.Dirs)
	assert.Equal(t, "custom/agents", cfg.Templates.AgentLibraryDir)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)

	// 未出现在文件中的字段保持默认值
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath(filepath.Join(t.TempDir(), "missing.yaml")).Load()
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Server.HTTPPort)
}

func TestLoader_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server: [unclosed"), 0o644))

	_, err := NewLoader().WithConfigPath(configPath).Load()
	assert.Error(t, err)
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("AGENTTEAMS_SERVER_HTTP_PORT", "9000")
	t.Setenv("AGENTTEAMS_SERVER_ALLOWED_EXTENSIONS", ".yml, .json")
	t.Setenv("AGENTTEAMS_EXECUTION_DEFAULT_TIMEOUT", "30s")
	t.Setenv("AGENTTEAMS_TELEMETRY_ENABLED", "true")
	t.Setenv("AGENTTEAMS_TELEMETRY_SAMPLE_RATE", "0.5")
	t.Setenv("AGENTTEAMS_SERVER_JWT_SECRET", "s3cret")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.HTTPPort)
	assert.Equal(t, []string{".yml", ".json"}, cfg.Server.AllowedExtensions)
	assert.Equal(t, 30*time.Second, cfg.Execution.DefaultTimeout)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 0.5, cfg.Telemetry.SampleRate)
	assert.True(t, cfg.Server.JWT.Enabled())
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server:\n  http_port: 8888\n"), 0o644))
	t.Setenv("AGENTTEAMS_SERVER_HTTP_PORT", "7777")

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Server.HTTPPort)
}

func TestLoader_CustomPrefix(t *testing.T) {
	t.Setenv("MYAPP_LOG_LEVEL", "debug")

	cfg, err := NewLoader().WithEnvPrefix("MYAPP").Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	t.Setenv("AGENTTEAMS_SERVER_HTTP_PORT", "not-a-number")

	_, err := NewLoader().Load()
	assert.Error(t, err)
}

func TestLoader_Validator(t *testing.T) {
	_, err := NewLoader().WithValidator(func(c *Config) error { return c.Validate() }).Load()
	assert.NoError(t, err)

	t.Setenv("AGENTTEAMS_STORAGE_BACKEND", "mongo")
	_, err = NewLoader().WithValidator(func(c *Config) error { return c.Validate() }).Load()
	assert.ErrorContains(t, err, `unknown storage backend "mongo"`)
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.HTTPPort = 0
	cfg.Execution.MaxConcurrent = 0
	cfg.Storage.Backend = "database"
	cfg.Database.Driver = "oracle"

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "invalid HTTP port 0")
	assert.ErrorContains(t, err, "execution.max_concurrent must be positive")
	assert.ErrorContains(t, err, `unknown database driver "oracle"`)
}

func TestMustLoad_Panics(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server: [unclosed"), 0o644))

	assert.Panics(t, func() { MustLoad(configPath) })
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "postgres",
			cfg:  DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"},
			want: "host=db port=5432 user=u password=p dbname=n sslmode=disable",
		},
		{
			name: "mysql",
			cfg:  DatabaseConfig{Driver: "mysql", Host: "db", Port: 3306, User: "u", Password: "p", Name: "n"},
			want: "u:p@tcp(db:3306)/n?parseTime=true",
		},
		{name: "sqlite", cfg: DatabaseConfig{Driver: "sqlite", Name: "teams.db"}, want: "teams.db"},
		{name: "unknown", cfg: DatabaseConfig{Driver: "oracle"}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.DSN())
		})
	}
}

func TestLoader_SampleConfig(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath(filepath.Join("..", "configs", "agentteams.yaml")).Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "echo", cfg.LLM.Provider)
	assert.Equal(t, 600*time.Second, cfg.Execution.DefaultTimeout)
	assert.Equal(t, "configs/examples", cfg.Templates.AgentLibraryDir)
	assert.True(t, cfg.Templates.Watch)
}
