// =============================================================================
// 📦 AgentTeams 默认配置
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Storage:   DefaultStorageConfig(),
		Redis:     DefaultRedisConfig(),
		Database:  DefaultDatabaseConfig(),
		LLM:       DefaultLLMConfig(),
		Execution: DefaultExecutionConfig(),
		Templates: DefaultTemplatesConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:          8000,
		MetricsPort:       9091,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		ShutdownTimeout:   15 * time.Second,
		RateLimitRPS:      100,
		RateLimitBurst:    200,
		MaxUploadSize:     10 << 20,
		AllowedExtensions: []string{".yml", ".yaml", ".json"},
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "agentteams",
		SampleRate:   0.1,
	}
}

// DefaultStorageConfig 默认使用内存存储
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Backend:   "memory",
		KeyPrefix: "agentteams:",
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "postgres",
		Host:            "localhost",
		Port:            5432,
		User:            "agentteams",
		Password:        "",
		Name:            "agentteams",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultLLMConfig 返回默认 LLM 配置
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider:   "echo",
		Model:      "gpt-4o-mini",
		Timeout:    60 * time.Second,
		JudgeModel: "gpt-4o-mini",
	}
}

// DefaultExecutionConfig 返回默认执行配置
func DefaultExecutionConfig() ExecutionConfig {
	return ExecutionConfig{
		DefaultTimeout:        600 * time.Second,
		MaxConcurrent:         10,
		EvaluationConcurrency: 4,
	}
}

// DefaultTemplatesConfig 返回默认模板目录
func DefaultTemplatesConfig() TemplatesConfig {
	return TemplatesConfig{
		Dirs:            []string{"configs/examples/hierarchical", "configs/templates"},
		AgentLibraryDir: "configs/examples",
		Watch:           true,
		WatchInterval:   2 * time.Second,
	}
}
