package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/agentteams/agent/evaluation"
	"github.com/BaSui01/agentteams/agent/library"
	"github.com/BaSui01/agentteams/agent/validation"
	"github.com/BaSui01/agentteams/api/handlers"
	"github.com/BaSui01/agentteams/config"
	"github.com/BaSui01/agentteams/internal/database"
	"github.com/BaSui01/agentteams/internal/metrics"
	"github.com/BaSui01/agentteams/internal/migration"
	"github.com/BaSui01/agentteams/internal/server"
	"github.com/BaSui01/agentteams/internal/service"
	"github.com/BaSui01/agentteams/internal/store"
	"github.com/BaSui01/agentteams/internal/telemetry"
	"github.com/BaSui01/agentteams/llm"
	"github.com/BaSui01/agentteams/teamconfig"
)

const dbStatsInterval = 15 * time.Second

// =============================================================================
// 🧩 应用装配
// =============================================================================

// app 服务运行期依赖
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	level     zap.AtomicLevel
	collector *metrics.Collector
	telemetry *telemetry.Providers

	redis *redis.Client
	pool  *database.PoolManager

	teams      *service.TeamService
	executions *service.ExecutionService
	agents     *service.AgentService

	handler  http.Handler
	limits   *RateLimitSettings
	watcher  *config.FileWatcher
	reloader *config.HotReloadManager
}

// appRuntime 进程级运行参数
type appRuntime struct {
	// ConfigPath 非空时监听配置文件，日志级别与限流参数无需重启即可生效
	ConfigPath string
	// Level 日志级别句柄，零值时按 cfg.Log.Level 新建
	Level zap.AtomicLevel
}

// serve 装配依赖并运行 API 与 metrics 服务器，直到收到退出信号
func serve(cfg *config.Config, rt appRuntime, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector("agentteams", logger)
	a, err := newApp(ctx, cfg, rt, collector, logger)
	if err != nil {
		return err
	}
	defer a.close()

	if a.watcher != nil {
		if err := a.watcher.Start(ctx); err != nil {
			logger.Warn("template watcher not started", zap.Error(err))
		}
	}
	if err := a.reloader.Start(ctx); err != nil {
		logger.Warn("config hot reload not started", zap.Error(err))
	}
	if a.pool != nil {
		go a.reportDBStats(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)
	apiServer := server.NewManager("api", a.handler, server.APIConfig(cfg.Server), logger)
	g.Go(func() error { return apiServer.Run(gctx) })
	if cfg.Server.MetricsPort > 0 {
		metricsServer := server.NewManager("metrics", collector.Handler(), server.MetricsConfig(cfg.Server), logger)
		g.Go(func() error { return metricsServer.Run(gctx) })
	}

	logger.Info("AgentTeams ready",
		zap.Int("http_port", cfg.Server.HTTPPort),
		zap.Int("metrics_port", cfg.Server.MetricsPort),
		zap.String("storage", cfg.Storage.Backend),
	)
	return g.Wait()
}

// newApp 按配置创建存储、服务与路由。失败时已创建的连接会被关闭。
func newApp(ctx context.Context, cfg *config.Config, rt appRuntime, collector *metrics.Collector, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, collector: collector, level: rt.Level}
	if a.level == (zap.AtomicLevel{}) {
		a.level = zap.NewAtomicLevelAt(parseLogLevel(cfg.Log.Level))
	}
	ready := false
	defer func() {
		if !ready {
			a.close()
		}
	}()

	var err error
	a.telemetry, err = telemetry.Init(ctx, cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry, tracing disabled", zap.Error(err))
		a.telemetry = &telemetry.Providers{}
	}

	stores, err := a.openStores(ctx)
	if err != nil {
		return nil, err
	}

	lib, err := library.New(cfg.Templates.AgentLibraryDir, logger)
	if err != nil {
		return nil, fmt.Errorf("load agent library: %w", err)
	}

	a.teams = service.NewTeamService(stores.Teams, stores.Executions, service.TeamOptions{
		TemplateDirs: cfg.Templates.Dirs,
		BaseDirs:     cfg.Templates.Dirs,
		DefaultLLM: teamconfig.LLMConfig{
			Provider: cfg.LLM.Provider,
			Model:    cfg.LLM.Model,
			BaseURL:  cfg.LLM.BaseURL,
		},
		ProviderFactory: a.providerFactory(),
		Tracer:          a.telemetry.Tracer("agentteams/team"),
		Metrics:         collector,
		Logger:          logger,
	})
	a.agents = service.NewAgentService(lib, logger)
	a.executions = service.NewExecutionService(stores.Executions, a.teams, service.ExecutionOptions{
		DefaultTimeout: cfg.Execution.DefaultTimeout,
		MaxConcurrent:  cfg.Execution.MaxConcurrent,
		Observers:      []service.ExecutionObserver{a.agents.RecordExecution},
		Metrics:        collector,
		Logger:         logger,
	})
	configs := service.NewConfigService(a.teams, service.ConfigOptions{
		TemplateDirs:      cfg.Templates.Dirs,
		BaseDirs:          cfg.Templates.Dirs,
		MaxUploadSize:     cfg.Server.MaxUploadSize,
		AllowedExtensions: cfg.Server.AllowedExtensions,
		Validator:         a.newValidator(),
		Metrics:           collector,
		Logger:            logger,
	})
	evaluations := service.NewEvaluationService(a.teams, a.newJudge(), service.EvaluationOptions{
		Concurrency: cfg.Execution.EvaluationConcurrency,
		Metrics:     collector,
		Logger:      logger,
	})

	if n, restoreErr := a.teams.Restore(ctx); restoreErr != nil {
		logger.Warn("some teams could not be restored", zap.Int("restored", n), zap.Error(restoreErr))
	} else if n > 0 {
		logger.Info("teams restored", zap.Int("count", n))
	}

	health := handlers.NewHealthHandler(handlers.BuildInfo{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
	}, a.teams, a.executions, logger)
	if a.redis != nil {
		health.RegisterCheck(handlers.NewPingCheck("redis", func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		}))
	}
	if a.pool != nil {
		health.RegisterCheck(handlers.NewPingCheck("database", a.pool.Ping))
	}

	a.reloader = a.newReloader(rt.ConfigPath)

	hs := &handlers.Handlers{
		Health:      health,
		Teams:       handlers.NewTeamHandler(a.teams, evaluations, logger),
		Executions:  handlers.NewExecutionHandler(a.executions, cfg.Server.CORSAllowedOrigins, logger),
		Configs:     handlers.NewConfigHandler(configs, logger),
		Agents:      handlers.NewAgentHandler(a.agents, logger),
		Evaluations: handlers.NewEvaluationHandler(evaluations, logger),
		System:      handlers.NewSystemConfigHandler(a.reloader, logger),
	}
	mux := http.NewServeMux()
	hs.Register(mux)
	a.handler = a.buildHandler(ctx, mux)

	if cfg.Templates.Watch {
		a.watcher, err = a.newWatcher()
		if err != nil {
			return nil, err
		}
	}
	ready = true
	return a, nil
}

// openStores 建立存储后端所需的连接
func (a *app) openStores(ctx context.Context) (*store.Stores, error) {
	cfg := a.cfg
	deps := store.Deps{Logger: a.logger}

	switch cfg.Storage.Backend {
	case store.BackendRedis:
		client, err := store.NewRedisClient(ctx, cfg.Redis, a.logger)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.redis = client
		deps.Redis = client
	case store.BackendDatabase:
		if cfg.Database.AutoMigrate {
			if err := migration.UpFromConfig(ctx, cfg.Database, a.logger); err != nil {
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		pool, err := database.Open(cfg.Database, a.logger)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.pool = pool
		deps.DB = pool.DB()
	}

	return store.New(cfg.Storage, deps)
}

// providerFactory 团队配置未给出密钥或地址时使用全局 LLM 配置
func (a *app) providerFactory() func(teamconfig.LLMConfig) (llm.Provider, error) {
	global := a.cfg.LLM
	return func(c teamconfig.LLMConfig) (llm.Provider, error) {
		opts := llm.Options{
			Provider:  c.Provider,
			Model:     c.Model,
			APIKeyEnv: c.APIKeyEnv,
			BaseURL:   c.BaseURL,
			Timeout:   global.Timeout,
		}
		if opts.Provider == "" || opts.Provider == global.Provider {
			if opts.Provider == "" {
				opts.Provider = global.Provider
			}
			if opts.APIKeyEnv == "" {
				opts.APIKey = global.APIKey
			}
			if opts.BaseURL == "" {
				opts.BaseURL = global.BaseURL
			}
		}
		return llm.NewProvider(opts, a.logger)
	}
}

func (a *app) globalProvider(model string) llm.Provider {
	p, err := a.providerFactory()(teamconfig.LLMConfig{Provider: a.cfg.LLM.Provider, Model: model})
	if err != nil {
		a.logger.Warn("llm provider unavailable", zap.String("model", model), zap.Error(err))
		return nil
	}
	return metrics.InstrumentProvider(p, a.collector)
}

// newValidator 配置了 LLM 时启用优化建议
func (a *app) newValidator() *validation.HierarchyValidator {
	opts := []validation.Option{
		validation.WithLogger(a.logger),
		validation.WithObserver(func(r *validation.Report) {
			a.collector.RecordValidation(r.CountBySeverity()[validation.SeverityCritical] == 0, r.OverallScore)
		}),
	}
	if name := a.cfg.LLM.Provider; name != "" && name != "echo" {
		if p := a.globalProvider(a.cfg.LLM.Model); p != nil {
			opts = append(opts, validation.WithProvider(p, a.cfg.LLM.Model))
		}
	}
	return validation.NewHierarchyValidator(opts...)
}

// newJudge 未配置裁判模型时返回 nil，评估退化为关键词判定
func (a *app) newJudge() *evaluation.LLMJudge {
	model := a.cfg.LLM.JudgeModel
	if model == "" {
		return nil
	}
	p := a.globalProvider(model)
	if p == nil {
		return nil
	}
	judgeCfg := evaluation.DefaultJudgeConfig()
	judgeCfg.Model = model
	if a.cfg.LLM.Timeout > 0 {
		judgeCfg.Timeout = a.cfg.LLM.Timeout
	}
	return evaluation.NewLLMJudge(p, judgeCfg, a.logger)
}

// buildHandler 组装中间件链
func (a *app) buildHandler(ctx context.Context, mux *http.ServeMux) http.Handler {
	sc := a.cfg.Server
	auth, mode := authMiddleware(sc, a.logger)
	a.logger.Info("api authentication", zap.String("mode", mode))

	a.limits = NewRateLimitSettings(float64(sc.RateLimitRPS), sc.RateLimitBurst)

	origins := sc.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return Chain(mux,
		RequestID(),
		Recovery(a.logger),
		SecurityHeaders(),
		RequestLogger(a.logger),
		CORS(origins),
		MetricsMiddleware(a.collector),
		OTelTracing(),
		DynamicRateLimiter(ctx, a.limits, a.logger),
		auth,
	)
}

// newWatcher 监听模板与智能体库目录，变更时重新加载智能体库
func (a *app) newWatcher() (*config.FileWatcher, error) {
	var paths []string
	for _, dir := range append([]string{a.cfg.Templates.AgentLibraryDir}, a.cfg.Templates.Dirs...) {
		if dir == "" {
			continue
		}
		if _, err := os.Stat(dir); err == nil {
			paths = append(paths, filepath.Clean(dir))
		}
	}
	if len(paths) == 0 {
		a.logger.Info("template watch enabled but no directory exists, skipping")
		return nil, nil
	}

	opts := []config.WatcherOption{config.WithWatcherLogger(a.logger)}
	if a.cfg.Templates.WatchInterval > 0 {
		opts = append(opts, config.WithPollInterval(a.cfg.Templates.WatchInterval))
	}
	w, err := config.NewFileWatcher(paths, opts...)
	if err != nil {
		return nil, fmt.Errorf("create template watcher: %w", err)
	}
	w.OnChange(func(events []config.FileEvent) {
		a.logger.Info("template files changed, reloading agent library", zap.Int("events", len(events)))
		if err := a.agents.Reload(); err != nil {
			a.logger.Warn("agent library reload failed", zap.Error(err))
		}
	})
	return w, nil
}

// newReloader 配置文件变更时更新日志级别与限流参数
func (a *app) newReloader(configPath string) *config.HotReloadManager {
	opts := []config.HotReloadOption{config.WithHotReloadLogger(a.logger)}
	if a.cfg.Templates.WatchInterval > 0 {
		opts = append(opts, config.WithReloadPollInterval(a.cfg.Templates.WatchInterval))
	}
	m := config.NewHotReloadManager(a.cfg, configPath, opts...)
	m.OnReload(func(_, newConfig *config.Config, changes []config.ConfigChange) error {
		for _, change := range changes {
			switch change.Path {
			case "Log.Level":
				a.level.SetLevel(parseLogLevel(newConfig.Log.Level))
			case "Server.RateLimitRPS", "Server.RateLimitBurst":
				a.limits.Update(float64(newConfig.Server.RateLimitRPS), newConfig.Server.RateLimitBurst)
			}
		}
		return nil
	})
	return m
}

// reportDBStats 定期上报连接池指标
func (a *app) reportDBStats(ctx context.Context) {
	ticker := time.NewTicker(dbStatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := a.pool.GetStats()
			a.collector.RecordDBConnections(a.cfg.Database.Driver, s.OpenConnections, s.Idle)
		}
	}
}

// close 按依赖逆序释放资源
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if a.reloader != nil {
		if err := a.reloader.Stop(); err != nil {
			a.logger.Debug("stop config reloader", zap.Error(err))
		}
	}
	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			a.logger.Debug("stop watcher", zap.Error(err))
		}
	}
	if a.executions != nil {
		if err := a.executions.Shutdown(ctx); err != nil {
			a.logger.Warn("executions did not stop cleanly", zap.Error(err))
		}
	}
	if a.telemetry != nil {
		if err := a.telemetry.Shutdown(ctx); err != nil {
			a.logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.pool != nil {
		errs = append(errs, a.pool.Close())
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("failed to close connections", zap.Error(err))
	}
}
