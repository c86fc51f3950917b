package validation

import (
	"fmt"
	"strings"

	"github.com/BaSui01/agentteams/teamconfig"
)

// optimize 深拷贝配置，并为高置信度的可自动修复提示词问题生成新提示词
func optimize(config map[string]any, issues []Issue) map[string]any {
	out := teamconfig.Clone(config)

	for _, issue := range issues {
		if !issue.AutoFixable || issue.Confidence <= 0.7 || issue.Category != CategoryPromptClarity {
			continue
		}
		switch {
		case strings.HasPrefix(issue.Location, "coordinator.") && strings.Contains(issue.Location, "system_prompt"):
			coord := ensureMap(out, "coordinator")
			setPrompt(coord, coordinatorPrompt(asList(out["teams"])))

		case strings.HasPrefix(issue.Location, "teams.") && strings.Contains(issue.Location, ".supervisor."):
			name := strings.TrimSuffix(strings.TrimPrefix(issue.Location, "teams."), ".supervisor.prompts.system_prompt")
			for _, item := range asList(out["teams"]) {
				team, ok := item.(map[string]any)
				if !ok || str(team["name"]) != name {
					continue
				}
				setPrompt(ensureMap(team, "supervisor"), supervisorPrompt(name, asList(team["workers"])))
				break
			}
		}
	}
	return out
}

func ensureMap(parent map[string]any, key string) map[string]any {
	if m, ok := parent[key].(map[string]any); ok {
		return m
	}
	m := map[string]any{}
	parent[key] = m
	return m
}

func setPrompt(agent map[string]any, prompt string) {
	sp := ensureMap(ensureMap(agent, "prompts"), "system_prompt")
	sp["template"] = prompt
}

func coordinatorPrompt(teams []any) string {
	var lines []string
	for i, item := range teams {
		team := asMap(item)
		name := teamName(team, fmt.Sprintf("team_%d", i))
		desc := str(team["description"])
		if desc == "" {
			desc = "No description"
		}
		workers := asList(team["workers"])

		var caps []string
		seen := map[string]bool{}
		for _, w := range workers {
			for _, c := range strList(asMap(w)["capabilities"]) {
				if !seen[c] {
					seen[c] = true
					caps = append(caps, c)
				}
			}
		}
		lines = append(lines, fmt.Sprintf("- %s: %s (%d workers) - Capabilities: %s",
			name, desc, len(workers), strings.Join(caps, ", ")))
	}

	return `You are a team coordinator managing multiple specialized teams in a hierarchical structure.

Available teams:
` + strings.Join(lines, "\n") + `

Your primary responsibilities:
1. Analyze incoming requests to understand the task requirements
2. Determine which team is best suited for the task based on their capabilities
3. Route tasks to the appropriate team supervisor
4. Coordinate between teams when multi-team collaboration is needed
5. Provide final responses by synthesizing results from teams

Routing Decision Framework:
- Match task requirements to team capabilities
- Consider team workload and availability
- Route complex tasks that require multiple specializations to the most capable team
- Use fallback routing if no team is a perfect match

Always provide clear reasoning for your routing decisions and specific instructions for the selected team.`
}

func supervisorPrompt(team string, workers []any) string {
	var lines []string
	for _, item := range workers {
		w := asMap(item)
		name := str(w["name"])
		if name == "" {
			name = "unnamed_worker"
		}
		desc := str(w["description"])
		if desc == "" {
			desc = "No description"
		}
		lines = append(lines, fmt.Sprintf("- %s: %s - Capabilities: %s",
			name, desc, strings.Join(strList(w["capabilities"]), ", ")))
	}

	return fmt.Sprintf(`You are a supervisor for the %s team, responsible for managing and coordinating worker agents.

Available workers:
%s

Your key responsibilities:
1. Analyze tasks assigned to your team
2. Determine which worker is best suited for each task based on their specific capabilities
3. Delegate tasks with clear, specific instructions
4. Monitor task progress and coordinate between workers when needed
5. Provide consolidated responses from worker outputs

Worker Selection Criteria:
- Match task requirements to worker capabilities
- Consider worker specialization and expertise
- Balance workload across available workers
- Choose workers with the most relevant tools and skills

Always explain your reasoning for worker selection and provide detailed instructions for successful task completion.`,
		team, strings.Join(lines, "\n"))
}
