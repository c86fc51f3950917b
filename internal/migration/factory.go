package migration

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/agentteams/config"
)

// URLFromConfig 由数据库配置生成迁移连接串
func URLFromConfig(dbCfg config.DatabaseConfig) (DatabaseType, string, error) {
	dbType, err := ParseDatabaseType(dbCfg.Driver)
	if err != nil {
		return "", "", fmt.Errorf("invalid database type: %w", err)
	}
	switch dbType {
	case DatabaseTypeSQLite:
		return dbType, BuildDatabaseURL(dbType, "", 0, dbCfg.Name, "", "", ""), nil
	case DatabaseTypeMySQL:
		return dbType, BuildDatabaseURL(dbType, dbCfg.Host, dbCfg.Port, dbCfg.Name, dbCfg.User, dbCfg.Password, ""), nil
	default:
		return dbType, BuildDatabaseURL(dbType, dbCfg.Host, dbCfg.Port, dbCfg.Name, dbCfg.User, dbCfg.Password, dbCfg.SSLMode), nil
	}
}

// NewFromConfig 从应用配置创建迁移器
func NewFromConfig(dbCfg config.DatabaseConfig, logger *zap.Logger) (*DefaultMigrator, error) {
	dbType, url, err := URLFromConfig(dbCfg)
	if err != nil {
		return nil, err
	}
	return NewMigrator(&Config{
		DatabaseType: dbType,
		DatabaseURL:  url,
		Logger:       logger,
	})
}

// UpFromConfig 启动时执行全部迁移
func UpFromConfig(ctx context.Context, dbCfg config.DatabaseConfig, logger *zap.Logger) error {
	m, err := NewFromConfig(dbCfg, logger)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up(ctx)
}
