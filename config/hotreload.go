// 服务配置热重载。
//
// 监听配置文件，重新加载并校验后计算字段级变更；
// 可热更新的字段通过回调生效，其余字段记录为需要重启。
package config

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"reflect"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// --- 热重载类型定义 ---

// HotReloadManager 管理服务配置的热重载
type HotReloadManager struct {
	mu sync.RWMutex

	config     *Config
	configPath string

	previousConfig *Config
	history        []ConfigSnapshot
	maxHistorySize int
	validateFunc   func(*Config) error

	watcher      *FileWatcher
	pollInterval time.Duration

	reloadCallbacks []ReloadCallback

	logger  *zap.Logger
	running bool
	cancel  context.CancelFunc
}

// ReloadCallback 新配置生效后调用，changes 只包含本次变化的字段
type ReloadCallback func(oldConfig, newConfig *Config, changes []ConfigChange) error

// ConfigChange 单个字段的变化
type ConfigChange struct {
	Timestamp       time.Time `json:"timestamp"`
	Source          string    `json:"source"`
	Path            string    `json:"path"`
	OldValue        any       `json:"old_value,omitempty"`
	NewValue        any       `json:"new_value,omitempty"`
	RequiresRestart bool      `json:"requires_restart"`
}

// ConfigSnapshot 配置历史快照
type ConfigSnapshot struct {
	Config    *Config   `json:"config"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Version   int       `json:"version"`
	Checksum  string    `json:"checksum"`
}

// hotReloadableFields 无需重启即可生效的字段
var hotReloadableFields = map[string]string{
	"Log.Level":             "log level (debug, info, warn, error)",
	"Server.RateLimitRPS":   "per-IP requests per second",
	"Server.RateLimitBurst": "per-IP burst size",
}

// sensitiveFields 日志与变更记录中脱敏
var sensitiveFields = map[string]bool{
	"Server.APIKeys":    true,
	"Server.JWT.Secret": true,
	"Redis.Password":    true,
	"Database.Password": true,
	"LLM.APIKey":        true,
}

// ErrNoConfigPath 未指定配置文件，无法从文件重载
var ErrNoConfigPath = errors.New("no config file path set")

// ErrNoPreviousConfig 没有可回滚的配置
var ErrNoPreviousConfig = errors.New("no previous config available for rollback")

// FieldInfo 可热更新字段
type FieldInfo struct {
	Path        string `json:"path"`
	Description string `json:"description"`
}

// HotReloadableFields 可热更新字段，按路径排序
func HotReloadableFields() []FieldInfo {
	out := make([]FieldInfo, 0, len(hotReloadableFields))
	for path, desc := range hotReloadableFields {
		out = append(out, FieldInfo{Path: path, Description: desc})
	}
	slices.SortFunc(out, func(a, b FieldInfo) int { return cmp.Compare(a.Path, b.Path) })
	return out
}

// IsHotReloadable 字段是否可热更新
func IsHotReloadable(path string) bool {
	_, ok := hotReloadableFields[path]
	return ok
}

// --- 热重载管理器选项 ---

// HotReloadOption 配置 HotReloadManager
type HotReloadOption func(*HotReloadManager)

// WithHotReloadLogger 设置记录器
func WithHotReloadLogger(logger *zap.Logger) HotReloadOption {
	return func(m *HotReloadManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithReloadPollInterval 设置配置文件轮询间隔
func WithReloadPollInterval(d time.Duration) HotReloadOption {
	return func(m *HotReloadManager) {
		m.pollInterval = d
	}
}

// WithMaxHistorySize 设置历史快照数量上限
func WithMaxHistorySize(size int) HotReloadOption {
	return func(m *HotReloadManager) {
		if size > 0 {
			m.maxHistorySize = size
		}
	}
}

// WithValidateFunc 应用前的额外校验
func WithValidateFunc(fn func(*Config) error) HotReloadOption {
	return func(m *HotReloadManager) {
		m.validateFunc = fn
	}
}

// --- 热重载管理器实现 ---

// NewHotReloadManager 以当前配置和配置文件路径创建管理器
func NewHotReloadManager(cfg *Config, configPath string, opts ...HotReloadOption) *HotReloadManager {
	m := &HotReloadManager{
		config:         cfg,
		configPath:     configPath,
		maxHistorySize: 10,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(zap.String("component", "config_reload"))
	m.pushHistory(cfg, "init")
	return m
}

func (m *HotReloadManager) pushHistory(cfg *Config, source string) {
	version := 1
	if n := len(m.history); n > 0 {
		version = m.history[n-1].Version + 1
	}
	m.history = append(m.history, ConfigSnapshot{
		Config:    deepCopyConfig(cfg),
		Timestamp: time.Now(),
		Source:    source,
		Version:   version,
		Checksum:  configChecksum(cfg),
	})
	if len(m.history) > m.maxHistorySize {
		m.history = m.history[len(m.history)-m.maxHistorySize:]
	}
}

// deepCopyConfig 通过 JSON 往返深拷贝
func deepCopyConfig(cfg *Config) *Config {
	data, err := json.Marshal(cfg)
	if err != nil {
		return cfg
	}
	var copied Config
	if err := json.Unmarshal(data, &copied); err != nil {
		return cfg
	}
	return &copied
}

func configChecksum(cfg *Config) string {
	data, err := json.Marshal(cfg)
	if err != nil {
		return ""
	}
	h := fnv.New64a()
	_, _ = h.Write(data)
	return fmt.Sprintf("%016x", h.Sum64())
}

// Start 开始监听配置文件；未设置路径时只支持手动 Apply
func (m *HotReloadManager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("hot reload manager already running")
	}
	if m.configPath == "" {
		m.logger.Info("no config file, hot reload disabled")
		return nil
	}

	opts := []WatcherOption{
		WithWatcherLogger(m.logger),
		WithDebounceDelay(500 * time.Millisecond),
	}
	if m.pollInterval > 0 {
		opts = append(opts, WithPollInterval(m.pollInterval))
	}
	watcher, err := NewFileWatcher([]string{m.configPath}, opts...)
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	watcher.OnChange(m.handleFileChange)

	var runCtx context.Context
	runCtx, m.cancel = context.WithCancel(ctx)
	if err := watcher.Start(runCtx); err != nil {
		m.cancel()
		return fmt.Errorf("failed to start config watcher: %w", err)
	}

	m.watcher = watcher
	m.running = true
	m.logger.Info("hot reload manager started", zap.String("config_path", m.configPath))
	return nil
}

// Stop 停止监听
func (m *HotReloadManager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}
	m.cancel()
	if err := m.watcher.Stop(); err != nil {
		m.logger.Error("failed to stop config watcher", zap.Error(err))
	}
	m.running = false
	m.logger.Info("hot reload manager stopped")
	return nil
}

func (m *HotReloadManager) handleFileChange(events []FileEvent) {
	for _, evt := range events {
		if evt.Op == FileOpRemove {
			m.logger.Warn("config file removed, keeping current config", zap.String("path", evt.Path))
			return
		}
	}
	if err := m.ReloadFromFile(); err != nil {
		m.logger.Error("config reload failed", zap.Error(err))
	}
}

// ReloadFromFile 重新读取配置文件（含环境变量覆盖）并应用
func (m *HotReloadManager) ReloadFromFile() error {
	if m.configPath == "" {
		return ErrNoConfigPath
	}
	newConfig, err := NewLoader().WithConfigPath(m.configPath).Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return m.ApplyConfig(newConfig, "file")
}

// ApplyConfig 校验并应用新配置。回调返回错误时回滚到旧配置。
func (m *HotReloadManager) ApplyConfig(newConfig *Config, source string) error {
	if err := newConfig.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if m.validateFunc != nil {
		if err := m.validateFunc(newConfig); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}

	m.mu.Lock()
	oldConfig := m.config
	changes := detectChanges(oldConfig, newConfig)
	if len(changes) == 0 {
		m.mu.Unlock()
		m.logger.Debug("config unchanged", zap.String("source", source))
		return nil
	}

	now := time.Now()
	requiresRestart := false
	for i := range changes {
		changes[i].Source = source
		changes[i].Timestamp = now
		changes[i].RequiresRestart = !IsHotReloadable(changes[i].Path)
		requiresRestart = requiresRestart || changes[i].RequiresRestart
		m.logChange(changes[i])
	}

	m.previousConfig = oldConfig
	m.config = newConfig
	m.pushHistory(newConfig, source)
	callbacks := append([]ReloadCallback(nil), m.reloadCallbacks...)
	m.mu.Unlock()

	if err := notifyReload(callbacks, oldConfig, newConfig, changes); err != nil {
		m.mu.Lock()
		if m.config == newConfig {
			m.restoreLocked(oldConfig, err.Error())
			m.mu.Unlock()
			// 让回调重新对齐到旧配置
			_ = notifyReload(callbacks, newConfig, oldConfig, detectChanges(newConfig, oldConfig))
		} else {
			m.mu.Unlock()
		}
		return fmt.Errorf("config reload callback failed: %w", err)
	}

	if requiresRestart {
		m.logger.Warn("some configuration changes require a restart to take effect")
	}
	m.logger.Info("configuration reloaded",
		zap.String("source", source),
		zap.Int("changes", len(changes)),
		zap.Bool("requires_restart", requiresRestart))
	return nil
}

func notifyReload(callbacks []ReloadCallback, oldConfig, newConfig *Config, changes []ConfigChange) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reload callback panicked: %v", r)
		}
	}()
	for _, cb := range callbacks {
		if err := cb(oldConfig, newConfig, changes); err != nil {
			return err
		}
	}
	return nil
}

// detectChanges 递归比较结构体字段，敏感字段的值被替换为 [REDACTED]
func detectChanges(oldConfig, newConfig *Config) []ConfigChange {
	var changes []ConfigChange
	compareStructs("", reflect.ValueOf(oldConfig).Elem(), reflect.ValueOf(newConfig).Elem(), &changes)
	return changes
}

func compareStructs(prefix string, oldVal, newVal reflect.Value, changes *[]ConfigChange) {
	t := oldVal.Type()
	for i := 0; i < oldVal.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		path := field.Name
		if prefix != "" {
			path = prefix + "." + field.Name
		}
		oldField, newField := oldVal.Field(i), newVal.Field(i)
		if oldField.Kind() == reflect.Struct {
			compareStructs(path, oldField, newField, changes)
			continue
		}
		if reflect.DeepEqual(oldField.Interface(), newField.Interface()) {
			continue
		}
		change := ConfigChange{Path: path, OldValue: oldField.Interface(), NewValue: newField.Interface()}
		if sensitiveFields[path] {
			change.OldValue, change.NewValue = "[REDACTED]", "[REDACTED]"
		}
		*changes = append(*changes, change)
	}
}

func (m *HotReloadManager) logChange(change ConfigChange) {
	m.logger.Info("configuration changed",
		zap.String("path", change.Path),
		zap.String("source", change.Source),
		zap.Bool("requires_restart", change.RequiresRestart),
		zap.Any("old_value", change.OldValue),
		zap.Any("new_value", change.NewValue))
}

// OnReload 注册重载回调
func (m *HotReloadManager) OnReload(callback ReloadCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reloadCallbacks = append(m.reloadCallbacks, callback)
}

// Rollback 回滚到上一次生效的配置
func (m *HotReloadManager) Rollback() error {
	m.mu.Lock()
	if m.previousConfig == nil {
		m.mu.Unlock()
		return ErrNoPreviousConfig
	}
	current, target := m.config, m.previousConfig
	m.restoreLocked(target, "manual rollback")
	callbacks := append([]ReloadCallback(nil), m.reloadCallbacks...)
	m.mu.Unlock()

	return notifyReload(callbacks, current, target, detectChanges(current, target))
}

// restoreLocked 调用方持有写锁
func (m *HotReloadManager) restoreLocked(target *Config, reason string) {
	m.config = target
	m.previousConfig = nil
	m.pushHistory(target, "rollback")
	m.logger.Warn("configuration rolled back", zap.String("reason", reason))
}

// History 配置历史快照（由旧到新）
func (m *HotReloadManager) History() []ConfigSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ConfigSnapshot(nil), m.history...)
}

// CurrentVersion 当前配置版本号
func (m *HotReloadManager) CurrentVersion() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.history) == 0 {
		return 0
	}
	return m.history[len(m.history)-1].Version
}

// ConfigPath 监听的配置文件，可能为空
func (m *HotReloadManager) ConfigPath() string {
	return m.configPath
}

// IsRunning 是否正在监听配置文件
func (m *HotReloadManager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// Config 当前生效的配置
func (m *HotReloadManager) Config() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}
