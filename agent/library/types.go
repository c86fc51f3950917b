package library

import "time"

// Role 智能体在团队中的角色
type Role string

const (
	RoleCoordinator Role = "coordinator"
	RoleSupervisor  Role = "supervisor"
	RoleWorker      Role = "worker"
	RoleSpecialist  Role = "specialist"
)

// AgentMetadata 智能体库中单个智能体的元数据
type AgentMetadata struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	PrimaryRole        Role     `json:"primary_role"`
	SecondaryRoles     []Role   `json:"secondary_roles"`
	Capabilities       []string `json:"capabilities"`
	Tools              []string `json:"tools"`
	Specializations    []string `json:"specializations"`
	FilePath           string   `json:"file_path"`
	CompatibilityScore float64  `json:"compatibility_score"`
	CanCoordinate      bool     `json:"can_coordinate"`
	CanSupervise       bool     `json:"can_supervise"`
	TeamSizeLimit      int      `json:"team_size_limit"`
}

// HasRole 主角色或次要角色之一
func (m *AgentMetadata) HasRole(r Role) bool {
	if m.PrimaryRole == r {
		return true
	}
	for _, s := range m.SecondaryRoles {
		if s == r {
			return true
		}
	}
	return false
}

// SearchQuery 搜索条件，零值返回全部
type SearchQuery struct {
	Query        string   `json:"query,omitempty"`
	Role         Role     `json:"role,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
	Limit        int      `json:"limit,omitempty"`
	Offset       int      `json:"offset,omitempty"`
}

// Stats 智能体库统计
type Stats struct {
	TotalAgents             int            `json:"total_agents"`
	ByRole                  map[string]int `json:"by_role"`
	ByCapability            map[string]int `json:"by_capability"`
	CoordinationCapable     int            `json:"coordination_capable"`
	SupervisionCapable      int            `json:"supervision_capable"`
	AverageCompatibility    float64        `json:"average_compatibility"`
	MostPopularCapabilities []string       `json:"most_popular_capabilities"`
	LoadedAt                time.Time      `json:"loaded_at"`
}

// CompatibilityReport 多个智能体之间的两两兼容度
type CompatibilityReport struct {
	Matrix               map[string]map[string]float64 `json:"compatibility_matrix"`
	AverageCompatibility float64                       `json:"average_compatibility"`
	Recommendations      []string                      `json:"recommendations"`
}

// TeamSuggestion 一种团队组成建议
type TeamSuggestion struct {
	Coordinator          *AgentMetadata  `json:"coordinator,omitempty"`
	Workers              []AgentMetadata `json:"workers"`
	CoveredCapabilities  []string        `json:"covered_capabilities"`
	Reasoning            string          `json:"reasoning"`
	CompatibilityScore   float64         `json:"compatibility_score"`
	EstimatedPerformance float64         `json:"estimated_performance"`
}

// TaskAnalysis 对任务描述的分析
type TaskAnalysis struct {
	TaskType             string   `json:"task_type"`
	Complexity           string   `json:"complexity"`
	RequiredCapabilities []string `json:"required_capabilities"`
}

// SuggestionResult TeamSuggestions 的返回值
type SuggestionResult struct {
	Suggestions  []TeamSuggestion `json:"suggestions"`
	TaskAnalysis TaskAnalysis     `json:"task_analysis"`
}
