package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentteams/llm"
	"github.com/BaSui01/agentteams/teamconfig"
)

const (
	maxHistory = 100

	manualReviewSuggestion = "Consider reviewing the configuration manually for optimization opportunities."
)

var (
	coordinatorRoutingKeywords = []string{"route", "delegate", "assign", "team", "coordinate"}
	supervisorRoutingKeywords  = []string{"delegate", "assign", "worker", "choose", "select", "route"}
)

// HierarchyValidator 层级团队配置校验器。结构与提示词检查为静态规则，
// 配置了 provider 时额外请求 LLM 给出优化建议。
type HierarchyValidator struct {
	provider llm.Provider
	model    string
	logger   *zap.Logger
	observer func(*Report)

	mu      sync.Mutex
	history []*Report
}

// Option 校验器选项
type Option func(*HierarchyValidator)

// WithProvider 设置用于生成建议的 LLM
func WithProvider(p llm.Provider, model string) Option {
	return func(v *HierarchyValidator) {
		v.provider = p
		v.model = model
	}
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(v *HierarchyValidator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithObserver 每次校验完成后回调
func WithObserver(fn func(*Report)) Option {
	return func(v *HierarchyValidator) { v.observer = fn }
}

// NewHierarchyValidator 创建校验器
func NewHierarchyValidator(opts ...Option) *HierarchyValidator {
	v := &HierarchyValidator{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = v.logger.With(zap.String("component", "hierarchy_validator"))
	return v
}

// Validate 校验层级配置。输入不可解析时返回分数 0 与单个 critical 问题。
func (v *HierarchyValidator) Validate(ctx context.Context, configData map[string]any) (report *Report) {
	defer func() {
		if r := recover(); r != nil {
			report = failureReport(fmt.Errorf("%v", r))
		}
		v.record(report)
	}()

	if len(configData) == 0 {
		return failureReport(fmt.Errorf("configuration is empty"))
	}
	config, ok := teamconfig.Normalize(configData).(map[string]any)
	if !ok {
		return failureReport(fmt.Errorf("configuration must be a mapping"))
	}

	var (
		issues   = validateStructure(config)
		analyses []agentAnalysis
	)

	if coord, ok := config["coordinator"]; ok {
		a := analyzeCoordinator(asMap(coord), asList(config["teams"]))
		analyses = append(analyses, a)
		issues = append(issues, a.issues...)
	}
	for _, item := range asList(config["teams"]) {
		team := asMap(item)
		if _, ok := team["supervisor"]; !ok {
			continue
		}
		a := analyzeSupervisor(asMap(team["supervisor"]), asList(team["workers"]), teamName(team, "unknown"))
		analyses = append(analyses, a)
		issues = append(issues, a.issues...)
	}

	coverage, coverageIssues := capabilityCoverage(config)
	issues = append(issues, coverageIssues...)

	suggestions := v.llmSuggestions(ctx, config, issues)

	report = &Report{
		OverallScore:       calculateScore(issues, len(analyses)),
		Issues:             issues,
		CapabilityCoverage: coverage,
		Suggestions:        suggestions,
		OptimizedConfig:    optimize(config, issues),
		ValidatedAt:        time.Now(),
	}
	if n := len(analyses); n > 0 {
		var clarity, quality float64
		for _, a := range analyses {
			clarity += a.routingClarity
			quality += a.promptQuality()
		}
		report.RoutingClarityScore = clarity / float64(n)
		report.PromptQuality = quality / float64(n)
	}

	v.logger.Info("hierarchy validated",
		zap.Float64("score", report.OverallScore),
		zap.Int("issues", len(issues)))
	return report
}

// History 返回最近的校验报告，最新的在前
func (v *HierarchyValidator) History(limit int) []*Report {
	v.mu.Lock()
	defer v.mu.Unlock()

	n := len(v.history)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*Report, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, v.history[i])
	}
	return out
}

func (v *HierarchyValidator) record(r *Report) {
	if r == nil {
		return
	}
	v.mu.Lock()
	v.history = append(v.history, r)
	if len(v.history) > maxHistory {
		v.history = v.history[len(v.history)-maxHistory:]
	}
	v.mu.Unlock()

	if v.observer != nil {
		v.observer(r)
	}
}

func failureReport(err error) *Report {
	return &Report{
		OverallScore: 0,
		Issues: []Issue{{
			Category:   CategoryStructureValidation,
			Severity:   SeverityCritical,
			Message:    "Validation failed with error: " + err.Error(),
			Location:   "root",
			Suggestion: "Please check the configuration format and try again.",
			Confidence: 1.0,
		}},
		Suggestions: []string{"Fix configuration format errors and retry validation."},
		ValidatedAt: time.Now(),
	}
}

// =============================================================================
// 结构检查
// =============================================================================

func validateStructure(config map[string]any) []Issue {
	var issues []Issue

	for _, section := range []string{"team", "coordinator", "teams"} {
		if _, ok := config[section]; !ok {
			issues = append(issues, Issue{
				Category:   CategoryStructureValidation,
				Severity:   SeverityCritical,
				Message:    "Missing required section: " + section,
				Location:   "root." + section,
				Suggestion: fmt.Sprintf("Add the required '%s' section to the configuration.", section),
				Confidence: 1.0,
			})
		}
	}

	raw, ok := config["teams"]
	if !ok {
		return issues
	}
	teams := asList(raw)
	if len(teams) == 0 {
		return append(issues, Issue{
			Category:   CategoryStructureValidation,
			Severity:   SeverityHigh,
			Message:    "Teams section must be a non-empty list",
			Location:   "root.teams",
			Suggestion: "Ensure teams is configured as a list with at least one team.",
			Confidence: 1.0,
		})
	}

	for i, item := range teams {
		team := asMap(item)
		if _, ok := team["supervisor"]; !ok {
			issues = append(issues, Issue{
				Category:   CategoryStructureValidation,
				Severity:   SeverityHigh,
				Message:    fmt.Sprintf("Team %d missing supervisor configuration", i),
				Location:   fmt.Sprintf("teams[%d].supervisor", i),
				Suggestion: "Add supervisor configuration to the team.",
				Confidence: 1.0,
			})
		}
		if len(asList(team["workers"])) == 0 {
			issues = append(issues, Issue{
				Category:   CategoryStructureValidation,
				Severity:   SeverityMedium,
				Message:    fmt.Sprintf("Team %d has no workers configured", i),
				Location:   fmt.Sprintf("teams[%d].workers", i),
				Suggestion: "Add worker agents to the team for proper functionality.",
				Confidence: 1.0,
			})
		}
	}
	return issues
}

// =============================================================================
// 提示词检查
// =============================================================================

const coordinatorPromptLocation = "coordinator.prompts.system_prompt.template"

func analyzeCoordinator(coord map[string]any, teams []any) agentAnalysis {
	a := agentAnalysis{id: "coordinator", kind: "coordinator", routingClarity: 1.0}
	prompt := promptOf(coord)

	if prompt == "" {
		a.issues = append(a.issues, Issue{
			Category:    CategoryPromptClarity,
			Severity:    SeverityHigh,
			Message:     "Coordinator system prompt is empty",
			Location:    coordinatorPromptLocation,
			Suggestion:  "Add a system prompt that explains the coordinator's role in routing tasks to teams.",
			AutoFixable: true,
			Confidence:  0.95,
		})
		a.routingClarity = 0.2
		return a
	}

	if !containsAny(strings.ToLower(prompt), coordinatorRoutingKeywords) {
		a.issues = append(a.issues, Issue{
			Category:    CategoryRoutingLogic,
			Severity:    SeverityMedium,
			Message:     "Coordinator prompt lacks clear routing instructions",
			Location:    coordinatorPromptLocation,
			Suggestion:  "Add specific instructions for how to route tasks to appropriate teams.",
			AutoFixable: true,
			Confidence:  0.85,
		})
		a.routingClarity *= 0.7
	}

	names := make([]string, 0, len(teams))
	for i, t := range teams {
		names = append(names, teamName(asMap(t), fmt.Sprintf("team_%d", i)))
	}
	if len(names) > 0 && !containsAny(prompt, names) {
		a.issues = append(a.issues, Issue{
			Category:    CategoryCapabilityAlignment,
			Severity:    SeverityMedium,
			Message:     "Coordinator prompt doesn't reference specific teams",
			Location:    coordinatorPromptLocation,
			Suggestion:  "Include references to available teams and their capabilities in the prompt.",
			AutoFixable: true,
			Confidence:  0.80,
		})
		a.routingClarity *= 0.8
	}
	return a
}

func supervisorPromptLocation(team string) string {
	return "teams." + team + ".supervisor.prompts.system_prompt"
}

func analyzeSupervisor(sup map[string]any, workers []any, team string) agentAnalysis {
	a := agentAnalysis{id: team + "_supervisor", kind: "supervisor", routingClarity: 0.7}
	location := supervisorPromptLocation(team)

	prompt := promptOf(sup)
	if prompt == "" {
		prompt = promptOf(asMap(sup["config_data"]))
	}

	var names, caps []string
	for _, item := range workers {
		w := asMap(item)
		name := str(w["name"])
		if name == "" {
			name = "unnamed_worker"
		}
		names = append(names, name)
		caps = append(caps, strList(w["capabilities"])...)
	}

	if prompt == "" {
		a.issues = append(a.issues, Issue{
			Category:    CategoryPromptClarity,
			Severity:    SeverityHigh,
			Message:     fmt.Sprintf("Supervisor in team '%s' has no system prompt", team),
			Location:    location,
			Suggestion:  "Add a system prompt that defines the supervisor's role and worker delegation strategy.",
			AutoFixable: true,
			Confidence:  0.95,
		})
		a.routingClarity = 0.2
		return a
	}

	lower := strings.ToLower(prompt)
	if !containsAny(lower, supervisorRoutingKeywords) {
		a.issues = append(a.issues, Issue{
			Category:    CategoryRoutingLogic,
			Severity:    SeverityMedium,
			Message:     fmt.Sprintf("Supervisor in team '%s' lacks clear worker delegation instructions", team),
			Location:    location,
			Suggestion:  "Add specific instructions for how to delegate tasks to workers based on their capabilities.",
			AutoFixable: true,
			Confidence:  0.85,
		})
		a.routingClarity *= 0.7
	}

	if len(names) > 0 && !containsAny(prompt, names) {
		a.issues = append(a.issues, Issue{
			Category:    CategoryCapabilityAlignment,
			Severity:    SeverityMedium,
			Message:     fmt.Sprintf("Supervisor in team '%s' doesn't reference specific workers", team),
			Location:    location,
			Suggestion:  "Include references to available workers and their specific capabilities in the prompt.",
			AutoFixable: true,
			Confidence:  0.80,
		})
		a.routingClarity *= 0.8
	}

	if len(caps) > 0 && !containsAny(lower, lowerAll(caps)) {
		a.issues = append(a.issues, Issue{
			Category:    CategoryCapabilityAlignment,
			Severity:    SeverityLow,
			Message:     fmt.Sprintf("Supervisor in team '%s' doesn't reference worker capabilities", team),
			Location:    location,
			Suggestion:  "Include worker capabilities in the prompt to improve task delegation decisions.",
			AutoFixable: true,
			Confidence:  0.75,
		})
		a.routingClarity *= 0.8
	}
	return a
}

// capabilityCoverage 声明了至少一个能力的 worker 占比
func capabilityCoverage(config map[string]any) (float64, []Issue) {
	var (
		total, covered int
		issues         []Issue
	)
	for i, item := range asList(config["teams"]) {
		team := asMap(item)
		tn := teamName(team, fmt.Sprintf("team_%d", i))
		for j, wi := range asList(team["workers"]) {
			w := asMap(wi)
			total++
			if len(strList(w["capabilities"])) > 0 {
				covered++
				continue
			}
			name := str(w["name"])
			if name == "" {
				name = fmt.Sprintf("worker_%d", j)
			}
			issues = append(issues, Issue{
				Category:   CategoryCapabilityAlignment,
				Severity:   SeverityLow,
				Message:    fmt.Sprintf("Worker '%s' in team '%s' declares no capabilities", name, tn),
				Location:   fmt.Sprintf("teams.%s.workers.%s.capabilities", tn, name),
				Suggestion: "Declare worker capabilities so supervisors can route tasks by capability.",
				Confidence: 0.7,
			})
		}
	}
	if total == 0 {
		return 0, issues
	}
	return float64(covered) / float64(total), issues
}

// calculateScore 100 分起，按严重程度与置信度扣分
func calculateScore(issues []Issue, agents int) float64 {
	if agents <= 0 {
		return 0
	}
	score := 100.0
	for _, issue := range issues {
		score -= issue.Severity.penalty() * issue.Confidence
	}
	score = max(0, score)
	if score > 80 {
		score += min(5, float64(agents))
	}
	return min(100, score)
}

// =============================================================================
// LLM 建议
// =============================================================================

const analysisSystemPrompt = `You are an expert in hierarchical multi-agent systems and configuration optimization.
Analyze agent team configurations and provide specific, actionable suggestions for improving
task routing and coordination efficiency.`

var suggestionSections = []struct {
	header string
	label  string
}{
	{"ADDITIONAL_SUGGESTIONS:", "General"},
	{"ROUTING_IMPROVEMENTS:", "Routing"},
	{"PERFORMANCE_OPTIMIZATIONS:", "Performance"},
}

func (v *HierarchyValidator) llmSuggestions(ctx context.Context, config map[string]any, issues []Issue) []string {
	if v.provider == nil {
		return []string{}
	}

	content, err := llm.Ask(ctx, v.provider, v.model, analysisSystemPrompt, analysisPrompt(config, issues))
	if err != nil {
		v.logger.Warn("llm analysis failed", zap.Error(err))
		return []string{manualReviewSuggestion}
	}
	return parseSuggestions(content)
}

func analysisPrompt(config map[string]any, issues []Issue) string {
	summary, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		summary = []byte(fmt.Sprint(config))
	}

	var b strings.Builder
	b.WriteString("Please analyze this hierarchical agent team configuration for routing effectiveness and optimization opportunities:\n\n")
	b.WriteString("CONFIGURATION:\n")
	b.Write(summary)
	b.WriteString("\n\nISSUES ALREADY IDENTIFIED:\n")
	for _, issue := range issues {
		fmt.Fprintf(&b, "- %s: %s\n", issue.Severity, issue.Message)
	}
	b.WriteString(`
Please provide:
1. ADDITIONAL_SUGGESTIONS: 3-5 specific suggestions for improving task routing and coordination
2. ROUTING_IMPROVEMENTS: specific improvements for supervisor/coordinator prompts
3. PERFORMANCE_OPTIMIZATIONS: ways to improve team performance and efficiency

Respond in this format:
ADDITIONAL_SUGGESTIONS:
- [suggestion]

ROUTING_IMPROVEMENTS:
- [improvement]

PERFORMANCE_OPTIMIZATIONS:
- [optimization]
`)
	return b.String()
}

// parseSuggestions 解析分节的要点列表
func parseSuggestions(content string) []string {
	out := []string{}
	current := ""
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		for _, s := range suggestionSections {
			if strings.HasPrefix(line, s.header) {
				current = s.label
			}
		}
		if current == "" || !strings.HasPrefix(line, "-") {
			continue
		}
		if item := strings.TrimSpace(line[1:]); item != "" {
			out = append(out, fmt.Sprintf("[%s] %s", current, item))
		}
	}
	return out
}

// =============================================================================
// 通用 map 访问
// =============================================================================

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func asList(v any) []any {
	switch val := v.(type) {
	case []any:
		return val
	case []map[string]any:
		out := make([]any, len(val))
		for i, m := range val {
			out[i] = m
		}
		return out
	default:
		return nil
	}
}

func str(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func strList(v any) []string {
	switch val := v.(type) {
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := str(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func promptOf(agent map[string]any) string {
	prompts := asMap(agent["prompts"])
	return strings.TrimSpace(str(asMap(prompts["system_prompt"])["template"]))
}

func teamName(team map[string]any, fallback string) string {
	if name := str(team["name"]); name != "" {
		return name
	}
	return fallback
}

func containsAny(s string, words []string) bool {
	return slices.ContainsFunc(words, func(w string) bool {
		return w != "" && strings.Contains(s, w)
	})
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
