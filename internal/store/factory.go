package store

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/agentteams/config"
)

// 后端名称
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendDatabase = "database"
)

// Deps 已建立的连接；调用方负责关闭
type Deps struct {
	Redis  *redis.Client
	DB     *gorm.DB
	Logger *zap.Logger
}

// Stores 选定后端的两个存储
type Stores struct {
	Backend    string
	Teams      TeamStore
	Executions ExecutionStore
}

// New 按配置选择存储后端
func New(cfg config.StorageConfig, deps Deps) (*Stores, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	backend := cfg.Backend
	if backend == "" {
		backend = BackendMemory
	}

	var s *Stores
	switch backend {
	case BackendMemory:
		s = &Stores{Teams: NewMemoryTeamStore(), Executions: NewMemoryExecutionStore()}
	case BackendRedis:
		if deps.Redis == nil {
			return nil, fmt.Errorf("redis storage backend requires a redis client")
		}
		s = &Stores{
			Teams:      NewRedisTeamStore(deps.Redis, cfg.KeyPrefix),
			Executions: NewRedisExecutionStore(deps.Redis, cfg.KeyPrefix),
		}
	case BackendDatabase:
		if deps.DB == nil {
			return nil, fmt.Errorf("database storage backend requires a database connection")
		}
		s = &Stores{Teams: NewGormTeamStore(deps.DB), Executions: NewGormExecutionStore(deps.DB)}
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	s.Backend = backend

	logger.Info("storage initialized", zap.String("backend", backend))
	return s, nil
}
