package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentteams/agent/validation"
	"github.com/BaSui01/agentteams/api"
	"github.com/BaSui01/agentteams/internal/metrics"
	"github.com/BaSui01/agentteams/teamconfig"
	"github.com/BaSui01/agentteams/types"
)

const defaultMaxUploadSize int64 = 10 << 20

var defaultAllowedExtensions = []string{".yml", ".yaml", ".json"}

// ConfigOptions ConfigService 参数
type ConfigOptions struct {
	TemplateDirs      []string
	BaseDirs          []string
	MaxUploadSize     int64
	AllowedExtensions []string
	// Validator 为空时创建不带 LLM 的校验器
	Validator *validation.HierarchyValidator
	Metrics   *metrics.Collector
	Logger    *zap.Logger
}

// ConfigService 配置校验、上传、模板与导出
type ConfigService struct {
	teams  *TeamService
	opts   ConfigOptions
	logger *zap.Logger
}

// NewConfigService 创建配置服务
func NewConfigService(teams *TeamService, opts ConfigOptions) *ConfigService {
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = defaultMaxUploadSize
	}
	if len(opts.AllowedExtensions) == 0 {
		opts.AllowedExtensions = defaultAllowedExtensions
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Validator == nil {
		vopts := []validation.Option{validation.WithLogger(logger)}
		if c := opts.Metrics; c != nil {
			vopts = append(vopts, validation.WithObserver(func(r *validation.Report) {
				c.RecordValidation(r.CountBySeverity()[validation.SeverityCritical] == 0, r.OverallScore)
			}))
		}
		opts.Validator = validation.NewHierarchyValidator(vopts...)
	}
	return &ConfigService{
		teams:  teams,
		opts:   opts,
		logger: logger.With(zap.String("component", "config_service")),
	}
}

// MaxUploadSize 上传大小上限（字节）
func (s *ConfigService) MaxUploadSize() int64 { return s.opts.MaxUploadSize }

// Validate 校验层级或单智能体配置，错误与警告分开返回
func (s *ConfigService) Validate(_ context.Context, req *api.ConfigValidationRequest) (*api.ConfigValidationResponse, error) {
	configType := strings.ToLower(strings.TrimSpace(req.ConfigType))
	if configType == "" {
		configType = teamconfig.TypeHierarchical
	}
	if configType != teamconfig.TypeHierarchical && configType != teamconfig.TypeSingle {
		return nil, types.NewInvalidRequestError(fmt.Sprintf("invalid config_type %q: use hierarchical or single", req.ConfigType))
	}
	if req.ConfigData == nil {
		return nil, types.NewInvalidRequestError("config_data is required")
	}

	resp := &api.ConfigValidationResponse{
		Errors:      []string{},
		Warnings:    []string{},
		ConfigType:  configType,
		ValidatedAt: time.Now().UTC(),
	}

	if configType == teamconfig.TypeHierarchical {
		s.validateHierarchical(req.ConfigData, resp)
	} else {
		validateSingle(req.ConfigData, resp)
	}
	resp.Valid = len(resp.Errors) == 0
	return resp, nil
}

func (s *ConfigService) validateHierarchical(data map[string]any, resp *api.ConfigValidationResponse) {
	cfg, err := teamconfig.FromMap(teamconfig.Clone(data))
	if err != nil {
		resp.Errors = append(resp.Errors, "Validation error: "+err.Error())
		return
	}
	resp.Errors = append(resp.Errors, splitErrors(cfg.Validate())...)

	if len(cfg.Teams) == 0 {
		resp.Warnings = append(resp.Warnings, "No teams configured")
	}

	var envs []string
	if cfg.Coordinator != nil {
		envs = append(envs, cfg.Coordinator.LLM.APIKeyEnv)
	}
	for _, t := range cfg.Teams {
		if t.Supervisor != nil {
			envs = append(envs, t.Supervisor.LLM.APIKeyEnv)
		}
	}
	var seen []string
	for _, env := range envs {
		if env == "" || slices.Contains(seen, env) {
			continue
		}
		seen = append(seen, env)
		if os.Getenv(env) == "" {
			resp.Warnings = append(resp.Warnings, fmt.Sprintf("Environment variable %s not set", env))
		}
	}

	for _, t := range cfg.Teams {
		for _, w := range t.Workers {
			if w.ConfigFile == "" {
				continue
			}
			if _, ok := teamconfig.ResolveWorkerFile(s.opts.BaseDirs, w.ConfigFile); !ok {
				resp.Warnings = append(resp.Warnings, "Worker config file not found: "+w.ConfigFile)
			}
		}
	}
}

func validateSingle(data map[string]any, resp *api.ConfigValidationResponse) {
	cfg, err := teamconfig.AgentFromMap(teamconfig.Clone(data))
	if err != nil {
		resp.Errors = append(resp.Errors, "Validation error: "+err.Error())
		return
	}
	resp.Errors = append(resp.Errors, splitErrors(cfg.Validate())...)
}

// Upload 校验上传的配置文件
func (s *ConfigService) Upload(ctx context.Context, filename string, content []byte) (*api.ConfigUploadResponse, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." {
		return nil, types.NewInvalidRequestError("filename is required")
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !slices.Contains(s.opts.AllowedExtensions, ext) {
		return nil, types.NewError(types.ErrUnsupportedFormat,
			fmt.Sprintf("Unsupported file format. Use %s", strings.Join(s.opts.AllowedExtensions, ", ")))
	}
	if int64(len(content)) > s.opts.MaxUploadSize {
		return nil, types.NewError(types.ErrPayloadTooLarge,
			fmt.Sprintf("File too large. Maximum size: %d bytes", s.opts.MaxUploadSize))
	}

	format, err := teamconfig.FormatFromFilename(name)
	if err != nil {
		return nil, types.NewError(types.ErrUnsupportedFormat, err.Error())
	}
	raw, err := teamconfig.DecodeMap(content, format)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidConfig, "cannot parse uploaded file: "+err.Error()).WithCause(err)
	}

	result, err := s.Validate(ctx, &api.ConfigValidationRequest{
		ConfigData: raw,
		ConfigType: teamconfig.DetectType(raw),
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	s.logger.Info("config uploaded",
		zap.String("filename", name),
		zap.Int("size", len(content)),
		zap.Bool("valid", result.Valid))
	return &api.ConfigUploadResponse{
		FileID:           fmt.Sprintf("upload_%d", now.Unix()),
		Filename:         name,
		UploadedAt:       now,
		ValidationResult: result,
	}, nil
}

// ListTemplates 扫描模板目录。无法解析的文件只记录日志。
func (s *ConfigService) ListTemplates(_ context.Context) *api.TemplateListResponse {
	templates, errs := teamconfig.ScanTemplates(s.opts.TemplateDirs)
	for _, err := range errs {
		s.logger.Warn("skipping invalid template", zap.Error(err))
	}
	if templates == nil {
		templates = []teamconfig.TemplateInfo{}
	}
	return &api.TemplateListResponse{Templates: templates, Total: len(templates)}
}

// GetTemplate 返回模板信息与配置
func (s *ConfigService) GetTemplate(_ context.Context, id string) (*api.TemplateResponse, error) {
	info, raw, err := teamconfig.LoadTemplate(s.opts.TemplateDirs, id)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, types.NewNotFoundError("template", id)
	}
	if err != nil {
		return nil, types.NewError(types.ErrInvalidConfig, "cannot load template: "+err.Error()).WithCause(err)
	}
	return &api.TemplateResponse{Template: *info, ConfigData: raw}, nil
}

// Export 将团队配置导出为 yaml 或 json
func (s *ConfigService) Export(ctx context.Context, req *api.ConfigExportRequest) (*api.ConfigExportResponse, error) {
	if strings.TrimSpace(req.TeamID) == "" {
		return nil, types.NewInvalidRequestError("team_id is required")
	}
	format := req.Format
	if format == "" {
		format = teamconfig.FormatYAML
	}
	normalized, err := teamconfig.NormalizeFormat(format)
	if err != nil {
		return nil, types.NewError(types.ErrUnsupportedFormat,
			fmt.Sprintf("unsupported export format %q: use json or yaml", req.Format))
	}

	rec, err := s.teams.Record(ctx, req.TeamID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var meta *teamconfig.ExportMetadata
	if req.IncludeMetadata == nil || *req.IncludeMetadata {
		meta = &teamconfig.ExportMetadata{
			ExportedAt:        now,
			TeamID:            rec.ID,
			TeamName:          rec.Name,
			OriginalCreatedAt: rec.CreatedAt,
		}
	}

	content, filename, err := teamconfig.Export(rec.ID, rec.ConfigData, normalized, meta)
	if err != nil {
		return nil, err
	}
	return &api.ConfigExportResponse{
		TeamID:     rec.ID,
		Format:     normalized,
		Content:    content,
		Filename:   filename,
		ExportedAt: now,
	}, nil
}

// Analyze 运行层级结构校验器
func (s *ConfigService) Analyze(ctx context.Context, req *api.ConfigAnalyzeRequest) (*validation.Report, error) {
	if req.ConfigData == nil {
		return nil, types.NewInvalidRequestError("config_data is required")
	}
	return s.opts.Validator.Validate(ctx, teamconfig.Clone(req.ConfigData)), nil
}
