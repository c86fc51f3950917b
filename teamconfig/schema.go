// Package teamconfig defines the on-disk schema for hierarchical agent teams
// and single agents, and the helpers to parse, validate, discover and export
// them.
package teamconfig

import "sort"

// Config types reported by DetectType.
const (
	TypeHierarchical = "hierarchical"
	TypeSingle       = "single"
)

// LLMConfig selects the model behind an agent.
type LLMConfig struct {
	Provider    string  `yaml:"provider,omitempty" json:"provider,omitempty"`
	Model       string  `yaml:"model,omitempty" json:"model,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	APIKeyEnv   string  `yaml:"api_key_env,omitempty" json:"api_key_env,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty" json:"base_url,omitempty"`
}

// PromptTemplate is a prompt body plus its declared variables.
type PromptTemplate struct {
	Template  string   `yaml:"template" json:"template"`
	Variables []string `yaml:"variables,omitempty" json:"variables,omitempty"`
}

// Prompts groups the prompts of an agent.
type Prompts struct {
	SystemPrompt PromptTemplate `yaml:"system_prompt" json:"system_prompt"`
	UserPrompt   PromptTemplate `yaml:"user_prompt,omitempty" json:"user_prompt,omitempty"`
}

// RoutingConfig overrides the default routing strategy of a router agent.
type RoutingConfig struct {
	Strategy string `yaml:"strategy,omitempty" json:"strategy,omitempty"`
}

// AgentInfo names an agent or a whole team.
type AgentInfo struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Version     string `yaml:"version,omitempty" json:"version,omitempty"`
}

// CoordinatorConfig configures the top-level router.
type CoordinatorConfig struct {
	Name    string        `yaml:"name,omitempty" json:"name,omitempty"`
	LLM     LLMConfig     `yaml:"llm,omitempty" json:"llm,omitempty"`
	Prompts Prompts       `yaml:"prompts,omitempty" json:"prompts,omitempty"`
	Routing RoutingConfig `yaml:"routing,omitempty" json:"routing,omitempty"`
}

// SupervisorConfig configures a team's router.
type SupervisorConfig struct {
	Name    string        `yaml:"name,omitempty" json:"name,omitempty"`
	LLM     LLMConfig     `yaml:"llm,omitempty" json:"llm,omitempty"`
	Prompts Prompts       `yaml:"prompts,omitempty" json:"prompts,omitempty"`
	Routing RoutingConfig `yaml:"routing,omitempty" json:"routing,omitempty"`
}

// WorkerConfig declares one worker. The agent definition comes from, in
// order, ConfigData, ConfigFile, or the fields of the entry itself.
type WorkerConfig struct {
	Name         string         `yaml:"name" json:"name"`
	Role         string         `yaml:"role,omitempty" json:"role,omitempty"`
	Description  string         `yaml:"description,omitempty" json:"description,omitempty"`
	Capabilities []string       `yaml:"capabilities,omitempty" json:"capabilities,omitempty"`
	Keywords     []string       `yaml:"keywords,omitempty" json:"keywords,omitempty"`
	Priority     int            `yaml:"priority,omitempty" json:"priority,omitempty"`
	MaxWorkload  int            `yaml:"max_workload,omitempty" json:"max_workload,omitempty"`
	ConfigFile   string         `yaml:"config_file,omitempty" json:"config_file,omitempty"`
	ConfigData   map[string]any `yaml:"config_data,omitempty" json:"config_data,omitempty"`
}

// TeamSpec is one supervisor-led team.
type TeamSpec struct {
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Supervisor  *SupervisorConfig `yaml:"supervisor,omitempty" json:"supervisor,omitempty"`
	Workers     []WorkerConfig    `yaml:"workers" json:"workers"`
}

// HierarchicalConfig is the root of a team configuration file.
type HierarchicalConfig struct {
	Team        AgentInfo          `yaml:"team" json:"team"`
	Coordinator *CoordinatorConfig `yaml:"coordinator" json:"coordinator"`
	Teams       []TeamSpec         `yaml:"teams" json:"teams"`
}

// ToolsConfig lists the tools of a single agent.
type ToolsConfig struct {
	BuiltIn []string     `yaml:"built_in,omitempty" json:"built_in,omitempty"`
	Custom  []CustomTool `yaml:"custom,omitempty" json:"custom,omitempty"`
}

// CustomTool is a user-defined tool declaration.
type CustomTool struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Specialization carries the routing hints of a single agent.
type Specialization struct {
	Capabilities []string `yaml:"capabilities,omitempty" json:"capabilities,omitempty"`
	Keywords     []string `yaml:"keywords,omitempty" json:"keywords,omitempty"`
	Priority     int      `yaml:"priority,omitempty" json:"priority,omitempty"`
}

// AgentConfig is a single agent definition, referenced by workers through
// config_file or config_data and indexed by the agent library.
type AgentConfig struct {
	Agent          AgentInfo      `yaml:"agent" json:"agent"`
	LLM            LLMConfig      `yaml:"llm,omitempty" json:"llm,omitempty"`
	Prompts        Prompts        `yaml:"prompts" json:"prompts"`
	Tools          ToolsConfig    `yaml:"tools,omitempty" json:"tools,omitempty"`
	Specialization Specialization `yaml:"specialization,omitempty" json:"specialization,omitempty"`
}

// ToolNames returns built-in and custom tool names.
func (c *AgentConfig) ToolNames() []string {
	names := append([]string(nil), c.Tools.BuiltIn...)
	for _, t := range c.Tools.Custom {
		names = append(names, t.Name)
	}
	return names
}

// WorkerCount returns the number of workers across all teams.
func (c *HierarchicalConfig) WorkerCount() int {
	n := 0
	for _, t := range c.Teams {
		n += len(t.Workers)
	}
	return n
}

// TeamNames returns team names in declaration order.
func (c *HierarchicalConfig) TeamNames() []string {
	names := make([]string, 0, len(c.Teams))
	for _, t := range c.Teams {
		names = append(names, t.Name)
	}
	return names
}

// Capabilities returns the sorted, de-duplicated worker capabilities.
func (c *HierarchicalConfig) Capabilities() []string {
	seen := make(map[string]struct{})
	for _, t := range c.Teams {
		for _, w := range t.Workers {
			for _, name := range w.Capabilities {
				seen[name] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// SupervisorName returns the configured supervisor name or "<team>_supervisor".
func (t *TeamSpec) SupervisorName() string {
	if t.Supervisor != nil && t.Supervisor.Name != "" {
		return t.Supervisor.Name
	}
	return t.Name + "_supervisor"
}
