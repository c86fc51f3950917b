package evaluation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentteams/llm"
)

var errNoJudge = errors.New("no judge llm configured")

// JudgeConfig LLM 评判配置
type JudgeConfig struct {
	Model       string        `json:"model"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty"`
}

// DefaultJudgeConfig 返回默认配置
func DefaultJudgeConfig() JudgeConfig {
	return JudgeConfig{
		Model:       "gpt-4o-mini",
		Temperature: 0.1,
		Timeout:     60 * time.Second,
	}
}

// LLMJudge 使用 LLM 判断场景是否成功并为维度打分（1-5）
type LLMJudge struct {
	provider llm.Provider
	config   JudgeConfig
	logger   *zap.Logger
}

// NewLLMJudge 创建评判器；provider 为空时所有判断走回退逻辑
func NewLLMJudge(provider llm.Provider, config JudgeConfig, logger *zap.Logger) *LLMJudge {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	return &LLMJudge{
		provider: provider,
		config:   config,
		logger:   logger.With(zap.String("component", "llm_judge")),
	}
}

func (j *LLMJudge) ask(ctx context.Context, system, user string) (string, error) {
	if j.provider == nil {
		return "", errNoJudge
	}
	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	msgs := make([]llm.Message, 0, 2)
	if system != "" {
		msgs = append(msgs, llm.System(system))
	}
	msgs = append(msgs, llm.User(user))

	resp, err := j.provider.Completion(ctx, &llm.ChatRequest{
		Model:       j.config.Model,
		Messages:    msgs,
		Temperature: j.config.Temperature,
		MaxTokens:   j.config.MaxTokens,
		Agent:       "judge",
	})
	if err != nil {
		return "", fmt.Errorf("judge completion failed: %w", err)
	}
	return resp.Content, nil
}

// ScenarioSuccess 判断响应是否完成场景要求
func (j *LLMJudge) ScenarioSuccess(ctx context.Context, s Scenario, response string) bool {
	trimmed := strings.TrimSpace(response)
	if s.ExpectedOutcome == "" {
		return trimmed != ""
	}

	prompt := fmt.Sprintf(`Evaluate if the following response successfully addresses the scenario requirement.

Scenario: %s
Expected: %s
Response: %s

Return only 'true' if the response adequately addresses the scenario, 'false' otherwise.`,
		s.Prompt, s.ExpectedOutcome, response)

	answer, err := j.ask(ctx, "", prompt)
	if err != nil {
		j.logger.Debug("scenario judge unavailable, using length heuristic",
			zap.String("scenario", s.Name), zap.Error(err))
		return len(trimmed) > 50
	}
	return strings.ToLower(strings.TrimSpace(answer)) == "true"
}

// DimensionContext 维度评判的上下文
type DimensionContext struct {
	TeamName         string
	TeamsCount       int
	WorkersCount     int
	Results          []TestResult
	SuccessRate      float64
	AvgExecutionTime float64
}

// JudgeDimension 为单个维度打分；LLM 失败时给中性分 3（0.5）
func (j *LLMJudge) JudgeDimension(ctx context.Context, d Dimension, dctx DimensionContext) DimensionScore {
	system, user := dimensionPrompt(d, dctx)

	content, err := j.ask(ctx, system, user)
	if err != nil {
		j.logger.Warn("dimension judging failed", zap.String("dimension", string(d)), zap.Error(err))
		return DimensionScore{
			Dimension:   d,
			Score:       0.5,
			RawScore:    3,
			Reasoning:   "Evaluation failed: " + err.Error(),
			Suggestions: []string{"Unable to evaluate this dimension due to technical issues"},
		}
	}

	raw, reasoning, suggestions := parseDimensionEvaluation(content)
	return DimensionScore{
		Dimension:   d,
		Score:       float64(raw-1) / 4.0,
		RawScore:    raw,
		Reasoning:   reasoning,
		Suggestions: suggestions,
	}
}

var scoreLine = regexp.MustCompile(`\d+`)

// parseDimensionEvaluation 优先解析 JSON，其次查找 score:/rating: 行，默认 3
func parseDimensionEvaluation(content string) (int, string, []string) {
	var parsed struct {
		Score       float64  `json:"score"`
		Reasoning   string   `json:"reasoning"`
		Suggestions []string `json:"suggestions"`
	}
	if err := llm.ExtractJSON(content, &parsed); err == nil && parsed.Score > 0 {
		raw := int(math.Round(parsed.Score))
		raw = min(5, max(1, raw))
		reasoning := parsed.Reasoning
		if reasoning == "" {
			reasoning = content
		}
		return raw, reasoning, parsed.Suggestions
	}

	raw := 3
	for _, line := range strings.Split(content, "\n") {
		lower := strings.ToLower(line)
		idx := strings.Index(lower, "score:")
		if idx < 0 {
			idx = strings.Index(lower, "rating:")
		}
		if idx < 0 {
			continue
		}
		if m := scoreLine.FindString(lower[idx:]); m != "" {
			if n, err := strconv.Atoi(m); err == nil && n >= 1 && n <= 5 {
				raw = n
			}
		}
	}
	return raw, strings.TrimSpace(content), nil
}

// =============================================================================
// 维度提示词
// =============================================================================

type dimensionRubric struct {
	subject  string
	criteria [5]string
	consider []string
}

var rubrics = map[Dimension]dimensionRubric{
	DimensionTaskCompletion: {
		subject: "how well a team completes assigned tasks",
		criteria: [5]string{
			"Failure: Tasks not completed or major failures",
			"Poor: Tasks partially completed with significant issues",
			"Satisfactory: Tasks completed adequately, meets basic requirements",
			"Good: Tasks completed well with minor improvements possible",
			"Exceptional: Tasks completed perfectly with additional insights",
		},
		consider: []string{"Accuracy of responses", "Completeness of task fulfillment", "Quality of outputs", "Adherence to requirements"},
	},
	DimensionCollaborationEffectiveness: {
		subject: "how effectively team members work together",
		criteria: [5]string{
			"Failure: Poor collaboration, major coordination failures",
			"Poor: Significant coordination problems, inefficient task distribution",
			"Satisfactory: Adequate collaboration, some coordination gaps",
			"Good: Effective coordination with minor coordination issues",
			"Exceptional: Seamless coordination, optimal task distribution, excellent communication",
		},
		consider: []string{"Coordination between supervisor and workers", "Task distribution efficiency", "Information sharing quality", "Overall team synergy"},
	},
	DimensionResourceUtilization: {
		subject: "how efficiently the team uses computational and time resources",
		criteria: [5]string{
			"Failure: Wasteful resource usage, very slow responses",
			"Poor: Inefficient resource usage with noticeable delays",
			"Satisfactory: Acceptable resource usage",
			"Good: Efficient resource usage with minor waste",
			"Exceptional: Optimal resource usage and fast responses",
		},
		consider: []string{"Execution time", "Number of agents involved per task", "Redundant work", "Appropriate use of specialized workers"},
	},
	DimensionResponseCoherence: {
		subject: "the coherence and consistency of the team's responses",
		criteria: [5]string{
			"Failure: Incoherent or contradictory responses",
			"Poor: Frequently disjointed responses",
			"Satisfactory: Generally coherent with some inconsistencies",
			"Good: Coherent and well-structured responses",
			"Exceptional: Highly coherent, well-organized and consistent responses",
		},
		consider: []string{"Logical flow", "Consistency across outputs", "Integration of worker contributions", "Clarity of final answers"},
	},
	DimensionScalabilityPerformance: {
		subject: "how the team performs under increased load and complexity",
		criteria: [5]string{
			"Failure: Breaks down under load",
			"Poor: Significant degradation under load",
			"Satisfactory: Handles moderate load with some degradation",
			"Good: Handles load well with minor degradation",
			"Exceptional: Scales smoothly with no noticeable degradation",
		},
		consider: []string{"Handling of concurrent requests", "Response time under load", "Stability of output quality", "Load distribution across workers"},
	},
	DimensionErrorHandling: {
		subject: "how the team handles edge cases, invalid input and errors",
		criteria: [5]string{
			"Failure: Crashes or produces harmful output on edge cases",
			"Poor: Handles few edge cases properly",
			"Satisfactory: Handles common edge cases",
			"Good: Handles most edge cases gracefully",
			"Exceptional: Handles all edge cases gracefully with helpful guidance",
		},
		consider: []string{"Empty or malformed input", "Contradictory instructions", "Graceful degradation", "Helpful error messages"},
	},
}

func dimensionPrompt(d Dimension, dctx DimensionContext) (string, string) {
	rubric, ok := rubrics[d]
	if !ok {
		rubric = rubrics[DimensionTaskCompletion]
	}

	var sys strings.Builder
	sys.WriteString("You are an expert evaluator of hierarchical agent team performance.\n")
	fmt.Fprintf(&sys, "Your task is to evaluate %s.\n\nEvaluation Criteria (1-5 scale):\n", rubric.subject)
	for i := 4; i >= 0; i-- {
		fmt.Fprintf(&sys, "%d - %s\n", i+1, rubric.criteria[i])
	}
	sys.WriteString("\nConsider:\n")
	for _, c := range rubric.consider {
		fmt.Fprintf(&sys, "- %s\n", c)
	}
	sys.WriteString(`
Respond in JSON format:
{
  "score": <1-5 integer>,
  "reasoning": "<detailed explanation>",
  "suggestions": ["<improvement suggestion 1>", "<suggestion 2>"]
}`)

	var user strings.Builder
	fmt.Fprintf(&user, "Evaluate the %s of this hierarchical agent team:\n\n", strings.ReplaceAll(string(d), "_", " "))
	fmt.Fprintf(&user, "Team Configuration:\n- Name: %s\n- Teams: %d\n- Workers: %d\n\n", dctx.TeamName, dctx.TeamsCount, dctx.WorkersCount)
	fmt.Fprintf(&user, "Test Results Summary:\n- Success Rate: %.1f%%\n- Average Execution Time: %.1fs\n\n", dctx.SuccessRate*100, dctx.AvgExecutionTime)
	user.WriteString("Detailed Test Results:\n")
	user.WriteString(formatResults(dctx.Results))
	user.WriteString("\nProvide a score from 1-5 with detailed reasoning and improvement suggestions.")

	return sys.String(), user.String()
}

func formatResults(results []TestResult) string {
	if len(results) == 0 {
		return "No relevant test results.\n"
	}
	var b strings.Builder
	for _, r := range results {
		status := "SUCCESS"
		if !r.Success {
			status = "FAILED"
		}
		fmt.Fprintf(&b, "- %s [%s] (%.1fs)\n", r.ScenarioName, status, r.ExecutionTime.Seconds())
		if r.ErrorMessage != "" {
			fmt.Fprintf(&b, "  Error: %s\n", r.ErrorMessage)
		}
		if r.Response != "" {
			fmt.Fprintf(&b, "  Response: %s\n", truncate(r.Response, 500))
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
