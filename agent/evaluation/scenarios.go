package evaluation

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// 场景库
// =============================================================================

// GeneralScenarios 通用场景
func GeneralScenarios() []Scenario {
	return []Scenario{
		{
			Name:            "Simple Question Answering",
			Type:            ScenarioSimpleTask,
			Difficulty:      DifficultyEasy,
			Prompt:          "What is the capital of France?",
			ExpectedOutcome: "Paris",
			Timeout:         30 * time.Second,
			Domain:          "general",
			Tags:            []string{"factual", "simple"},
		},
		{
			Name:            "Multi-Step Problem Solving",
			Type:            ScenarioComplexWorkflow,
			Difficulty:      DifficultyMedium,
			Prompt:          "Plan a 3-day vacation to Tokyo. Include flights, accommodation, and daily activities with estimated costs.",
			ExpectedOutcome: "A detailed 3-day itinerary with flights, hotels, activities, and cost breakdown",
			Timeout:         120 * time.Second,
			Domain:          "travel",
			Tags:            []string{"planning", "research", "calculation"},
		},
		{
			Name:            "Empty Input Handling",
			Type:            ScenarioEdgeCase,
			Difficulty:      DifficultyEasy,
			Prompt:          "",
			ExpectedOutcome: "Appropriate handling of empty input with helpful response",
			Timeout:         30 * time.Second,
			Domain:          "general",
			Tags:            []string{"edge_case", "error_handling"},
		},
		{
			Name:            "Contradictory Instructions",
			Type:            ScenarioEdgeCase,
			Difficulty:      DifficultyHard,
			Prompt:          "Write a short story that is both very sad and extremely funny at the same time, but also completely emotionless.",
			ExpectedOutcome: "Recognition of contradictory requirements and appropriate response",
			Timeout:         90 * time.Second,
			Domain:          "creative",
			Tags:            []string{"contradiction", "edge_case", "creative"},
		},
		{
			Name:            "Information Synthesis",
			Type:            ScenarioComplexWorkflow,
			Difficulty:      DifficultyHard,
			Prompt:          "Compare renewable energy sources (solar, wind, hydro) considering efficiency, cost, environmental impact, and scalability. Provide recommendations for different geographical regions.",
			ExpectedOutcome: "Comprehensive comparison with regional recommendations",
			Timeout:         180 * time.Second,
			Domain:          "analysis",
			Tags:            []string{"research", "analysis", "comparison", "synthesis"},
		},
	}
}

// ResearchScenarios 研究类场景
func ResearchScenarios() []Scenario {
	return []Scenario{
		{
			Name:            "Literature Review",
			Type:            ScenarioComplexWorkflow,
			Difficulty:      DifficultyHard,
			Prompt:          "Conduct a literature review on artificial intelligence in healthcare, focusing on diagnostic applications from 2020-2024.",
			ExpectedOutcome: "Structured literature review with recent sources and key findings",
			Timeout:         300 * time.Second,
			Domain:          "research",
			Tags:            []string{"literature_review", "healthcare", "AI"},
		},
		{
			Name:            "Data Analysis Request",
			Type:            ScenarioComplexWorkflow,
			Difficulty:      DifficultyMedium,
			Prompt:          "Analyze the trend of remote work adoption post-2020. Include statistics, drivers, challenges, and future predictions.",
			ExpectedOutcome: "Data-driven analysis with statistics and predictions",
			Timeout:         240 * time.Second,
			Domain:          "business",
			Tags:            []string{"data_analysis", "trends", "remote_work"},
		},
		{
			Name:            "Technical Explanation",
			Type:            ScenarioSimpleTask,
			Difficulty:      DifficultyMedium,
			Prompt:          "Explain blockchain technology to a non-technical audience, including benefits and limitations.",
			ExpectedOutcome: "Clear, accessible explanation of blockchain with pros/cons",
			Timeout:         90 * time.Second,
			Domain:          "technology",
			Tags:            []string{"explanation", "technical", "accessibility"},
		},
	}
}

// CreativeScenarios 创意类场景
func CreativeScenarios() []Scenario {
	return []Scenario{
		{
			Name:            "Creative Writing",
			Type:            ScenarioSimpleTask,
			Difficulty:      DifficultyMedium,
			Prompt:          "Write a 200-word short story about a robot learning to paint.",
			ExpectedOutcome: "Creative, coherent short story about specified topic",
			Timeout:         120 * time.Second,
			Domain:          "creative",
			Tags:            []string{"creative_writing", "storytelling", "fiction"},
		},
		{
			Name:            "Marketing Campaign",
			Type:            ScenarioComplexWorkflow,
			Difficulty:      DifficultyHard,
			Prompt:          "Create a marketing campaign for a new eco-friendly smartphone. Include target audience, key messages, channels, and success metrics.",
			ExpectedOutcome: "Comprehensive marketing campaign with all requested elements",
			Timeout:         180 * time.Second,
			Domain:          "marketing",
			Tags:            []string{"marketing", "strategy", "creative", "planning"},
		},
		{
			Name:            "Product Innovation",
			Type:            ScenarioComplexWorkflow,
			Difficulty:      DifficultyExpert,
			Prompt:          "Design an innovative solution for urban food waste. Include problem analysis, solution design, implementation plan, and impact measurement.",
			ExpectedOutcome: "Innovative, practical solution with detailed implementation plan",
			Timeout:         300 * time.Second,
			Domain:          "innovation",
			Tags:            []string{"innovation", "sustainability", "problem_solving", "design"},
		},
	}
}

// LoadScenarios 负载类场景
func LoadScenarios() []Scenario {
	return []Scenario{
		{
			Name:            "Concurrent Simple Tasks",
			Type:            ScenarioLoadTest,
			Difficulty:      DifficultyMedium,
			Prompt:          "Answer 5 different questions simultaneously: 1) Capital of Brazil, 2) 15*23, 3) Author of 1984, 4) Chemical formula for water, 5) Year WWII ended",
			ExpectedOutcome: "Correct answers to all 5 questions",
			Timeout:         60 * time.Second,
			Domain:          "general",
			Tags:            []string{"concurrent", "factual", "multiple_tasks"},
		},
		{
			Name:            "Resource Intensive Task",
			Type:            ScenarioLoadTest,
			Difficulty:      DifficultyHard,
			Prompt:          "Generate a comprehensive business plan for a sustainable fashion startup, including market analysis, financial projections, marketing strategy, and operational plan.",
			ExpectedOutcome: "Detailed business plan with all requested components",
			Timeout:         400 * time.Second,
			Domain:          "business",
			Tags:            []string{"comprehensive", "resource_intensive", "business_planning"},
		},
	}
}

func allScenarios() []Scenario {
	var out []Scenario
	out = append(out, GeneralScenarios()...)
	out = append(out, ResearchScenarios()...)
	out = append(out, CreativeScenarios()...)
	out = append(out, LoadScenarios()...)
	return out
}

// QuickSet 快速评估集：5 个场景
func QuickSet() []Scenario {
	general := GeneralScenarios()
	return []Scenario{
		general[0],
		general[1],
		general[2],
		ResearchScenarios()[2],
		CreativeScenarios()[0],
	}
}

// ComprehensiveSet 完整评估集
func ComprehensiveSet() []Scenario {
	var out []Scenario
	out = append(out, GeneralScenarios()...)
	out = append(out, ResearchScenarios()...)
	out = append(out, CreativeScenarios()[:2]...)
	out = append(out, LoadScenarios()[:1]...)
	return out
}

// ByDomain 按领域筛选
func ByDomain(domain string) []Scenario {
	var out []Scenario
	for _, s := range allScenarios() {
		if s.Domain == domain {
			out = append(out, s)
		}
	}
	return out
}

// ByDifficulty 按难度筛选
func ByDifficulty(d Difficulty) []Scenario {
	var out []Scenario
	for _, s := range allScenarios() {
		if s.Difficulty == d {
			out = append(out, s)
		}
	}
	return out
}

// Custom 创建自定义场景；未指定的字段使用默认值
func Custom(name, prompt string, opts ...func(*Scenario)) Scenario {
	s := Scenario{
		Name:       name,
		Type:       ScenarioSimpleTask,
		Difficulty: DifficultyMedium,
		Prompt:     prompt,
		Timeout:    120 * time.Second,
		Domain:     "custom",
		Tags:       []string{"custom"},
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// ScenarioSet 按名称解析场景集：quick、comprehensive 或 domain:<name>
func ScenarioSet(name string) ([]Scenario, error) {
	switch {
	case name == "" || name == "quick":
		return QuickSet(), nil
	case name == "comprehensive":
		return ComprehensiveSet(), nil
	case strings.HasPrefix(name, "domain:"):
		domain := strings.TrimPrefix(name, "domain:")
		scenarios := ByDomain(domain)
		if len(scenarios) == 0 {
			return nil, fmt.Errorf("no scenarios for domain %q", domain)
		}
		return scenarios, nil
	default:
		return nil, fmt.Errorf("unknown scenario set %q", name)
	}
}
