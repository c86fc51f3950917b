package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/agentteams/config"
	"github.com/BaSui01/agentteams/internal/tlsutil"
)

// =============================================================================
// 💾 Redis 存储
// =============================================================================
// 值为 JSON，按创建时间（微秒）维护有序集合索引：
//
//	<prefix>team:<id>                  团队
//	<prefix>teams                      团队索引
//	<prefix>execution:<id>             执行记录
//	<prefix>executions                 执行索引
//	<prefix>team_executions:<team_id>  按团队的执行索引
// =============================================================================

// NewRedisClient 创建客户端并检查连通性
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}
	if cfg.TLS {
		host, _, err := net.SplitHostPort(cfg.Addr)
		if err != nil {
			host = cfg.Addr
		}
		opts.TLSConfig = tlsutil.ClientTLSConfig(host)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if logger != nil {
		logger.Info("redis store connected",
			zap.String("addr", cfg.Addr),
			zap.Int("pool_size", cfg.PoolSize))
	}
	return client, nil
}

type redisKeys struct {
	prefix string
}

func (k redisKeys) team(id string) string      { return k.prefix + "team:" + id }
func (k redisKeys) teams() string              { return k.prefix + "teams" }
func (k redisKeys) execution(id string) string { return k.prefix + "execution:" + id }
func (k redisKeys) executions() string         { return k.prefix + "executions" }
func (k redisKeys) teamExecutions(teamID string) string {
	return k.prefix + "team_executions:" + teamID
}

func score(t time.Time) float64 {
	return float64(t.UnixMicro())
}

// RedisTeamStore Redis 团队存储
type RedisTeamStore struct {
	client *redis.Client
	keys   redisKeys
}

// NewRedisTeamStore 创建 Redis 团队存储
func NewRedisTeamStore(client *redis.Client, prefix string) *RedisTeamStore {
	return &RedisTeamStore{client: client, keys: redisKeys{prefix: prefix}}
}

// Create 创建
func (s *RedisTeamStore) Create(ctx context.Context, t *TeamRecord) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal team: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.keys.team(t.ID), data, 0)
		pipe.ZAdd(ctx, s.keys.teams(), redis.Z{Score: score(t.CreatedAt), Member: t.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis create team: %w", err)
	}
	return nil
}

// Get 获取
func (s *RedisTeamStore) Get(ctx context.Context, id string) (*TeamRecord, error) {
	var t TeamRecord
	if err := getJSON(ctx, s.client, s.keys.team(id), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// List 按创建时间分页
func (s *RedisTeamStore) List(ctx context.Context, limit, offset int) ([]TeamRecord, int, error) {
	total, err := s.client.ZCard(ctx, s.keys.teams()).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("redis count teams: %w", err)
	}

	offset = max(offset, 0)
	stop := int64(-1)
	if limit > 0 {
		stop = int64(offset + limit - 1)
	}
	ids, err := s.client.ZRange(ctx, s.keys.teams(), int64(offset), stop).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("redis list teams: %w", err)
	}

	out := []TeamRecord{}
	if len(ids) == 0 {
		return out, int(total), nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.keys.team(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("redis load teams: %w", err)
	}
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var t TeamRecord
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return nil, 0, fmt.Errorf("unmarshal team: %w", err)
		}
		out = append(out, t)
	}
	return out, int(total), nil
}

// Update 只更新已存在的记录
func (s *RedisTeamStore) Update(ctx context.Context, t *TeamRecord) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal team: %w", err)
	}
	ok, err := s.client.SetXX(ctx, s.keys.team(t.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("redis update team: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Delete 删除
func (s *RedisTeamStore) Delete(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.keys.team(id))
		pipe.ZRem(ctx, s.keys.teams(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete team: %w", err)
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

// RedisExecutionStore Redis 执行存储
type RedisExecutionStore struct {
	client *redis.Client
	keys   redisKeys
}

// NewRedisExecutionStore 创建 Redis 执行存储
func NewRedisExecutionStore(client *redis.Client, prefix string) *RedisExecutionStore {
	return &RedisExecutionStore{client: client, keys: redisKeys{prefix: prefix}}
}

// Create 创建
func (s *RedisExecutionStore) Create(ctx context.Context, e *Execution) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal execution: %w", err)
	}
	member := redis.Z{Score: score(e.CreatedAt), Member: e.ID}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.keys.execution(e.ID), data, 0)
		pipe.ZAdd(ctx, s.keys.executions(), member)
		pipe.ZAdd(ctx, s.keys.teamExecutions(e.TeamID), member)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis create execution: %w", err)
	}
	return nil
}

// Get 获取
func (s *RedisExecutionStore) Get(ctx context.Context, id string) (*Execution, error) {
	var e Execution
	if err := getJSON(ctx, s.client, s.keys.execution(id), &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Update 更新
func (s *RedisExecutionStore) Update(ctx context.Context, e *Execution) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal execution: %w", err)
	}
	ok, err := s.client.SetXX(ctx, s.keys.execution(e.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("redis update execution: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// List 按索引加载后在内存中过滤排序
func (s *RedisExecutionStore) List(ctx context.Context, filter ExecutionFilter) ([]Execution, int, error) {
	index := s.keys.executions()
	if filter.TeamID != "" {
		index = s.keys.teamExecutions(filter.TeamID)
	}
	all, err := s.load(ctx, index)
	if err != nil {
		return nil, 0, err
	}

	matched := make([]Execution, 0, len(all))
	for i := range all {
		if filter.matches(&all[i]) {
			matched = append(matched, all[i])
		}
	}
	return sortAndPage(matched, filter)
}

// CountByTeam 统计
func (s *RedisExecutionStore) CountByTeam(ctx context.Context, teamID string) (int, int, error) {
	all, err := s.load(ctx, s.keys.teamExecutions(teamID))
	if err != nil {
		return 0, 0, err
	}
	active := 0
	for _, e := range all {
		if e.Status.Active() {
			active++
		}
	}
	return active, len(all), nil
}

func (s *RedisExecutionStore) load(ctx context.Context, index string) ([]Execution, error) {
	ids, err := s.client.ZRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list executions: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.keys.execution(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis load executions: %w", err)
	}

	out := make([]Execution, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var e Execution
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("unmarshal execution: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func getJSON(ctx context.Context, client *redis.Client, key string, v any) error {
	raw, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}
