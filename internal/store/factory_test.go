package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/agentteams/config"
)

func TestNew(t *testing.T) {
	s, err := New(config.StorageConfig{}, Deps{})
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, s.Backend)
	assert.IsType(t, &MemoryTeamStore{}, s.Teams)

	_, err = New(config.StorageConfig{Backend: BackendRedis}, Deps{})
	assert.ErrorContains(t, err, "requires a redis client")

	_, err = New(config.StorageConfig{Backend: BackendDatabase}, Deps{})
	assert.ErrorContains(t, err, "requires a database connection")

	_, client := setupMiniredis(t)
	s, err = New(config.StorageConfig{Backend: BackendRedis, KeyPrefix: "x:"}, Deps{Redis: client})
	require.NoError(t, err)
	assert.IsType(t, &RedisExecutionStore{}, s.Executions)

	s, err = New(config.StorageConfig{Backend: BackendDatabase}, Deps{DB: setupGormDB(t)})
	require.NoError(t, err)
	assert.IsType(t, &GormTeamStore{}, s.Teams)

	_, err = New(config.StorageConfig{Backend: "etcd"}, Deps{})
	assert.ErrorContains(t, err, "unknown storage backend")
}
