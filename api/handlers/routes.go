package handlers

import "net/http"

// Handlers 全部 HTTP 处理器
type Handlers struct {
	Health      *HealthHandler
	Teams       *TeamHandler
	Executions  *ExecutionHandler
	Configs     *ConfigHandler
	Agents      *AgentHandler
	Evaluations *EvaluationHandler
	System      *SystemConfigHandler
}

// Register 在 mux 上注册全部路由。Health 之外的处理器可为 nil，对应路由不注册。
func (hs *Handlers) Register(mux *http.ServeMux) {
	if h := hs.Health; h != nil {
		mux.HandleFunc("GET /{$}", h.HandleRoot)
		mux.HandleFunc("GET /health", h.HandleHealth)
		mux.HandleFunc("GET /healthz", h.HandleHealthz)
		mux.HandleFunc("GET /ready", h.HandleReady)
		mux.HandleFunc("GET /readyz", h.HandleReady)
		mux.HandleFunc("GET /version", h.HandleVersion)
	}

	if h := hs.Teams; h != nil {
		mux.HandleFunc("POST /api/v1/teams", h.HandleCreate)
		mux.HandleFunc("GET /api/v1/teams", h.HandleList)
		mux.HandleFunc("GET /api/v1/teams/{id}", h.HandleGet)
		mux.HandleFunc("PUT /api/v1/teams/{id}", h.HandleUpdate)
		mux.HandleFunc("DELETE /api/v1/teams/{id}", h.HandleDelete)
		mux.HandleFunc("GET /api/v1/teams/{id}/status", h.HandleStatus)
		mux.HandleFunc("GET /api/v1/teams/{id}/routing", h.HandleRouting)
		mux.HandleFunc("POST /api/v1/teams/{id}/evaluate", h.HandleEvaluate)
	}

	if h := hs.Executions; h != nil {
		mux.HandleFunc("POST /api/v1/executions/{team_id}/execute", h.HandleExecute)
		mux.HandleFunc("POST /api/v1/executions/{team_id}/workers/{worker_id}/execute", h.HandleExecuteWorker)
		mux.HandleFunc("GET /api/v1/executions", h.HandleList)
		mux.HandleFunc("POST /api/v1/executions", h.HandleListPost)
		mux.HandleFunc("GET /api/v1/executions/{id}", h.HandleGet)
		mux.HandleFunc("POST /api/v1/executions/{id}/cancel", h.HandleCancel)
		mux.HandleFunc("GET /api/v1/executions/{id}/stream", h.HandleStream)
	}

	if h := hs.Configs; h != nil {
		mux.HandleFunc("POST /api/v1/configs/validate", h.HandleValidate)
		mux.HandleFunc("POST /api/v1/configs/analyze", h.HandleAnalyze)
		mux.HandleFunc("POST /api/v1/configs/upload", h.HandleUpload)
		mux.HandleFunc("GET /api/v1/configs/templates", h.HandleListTemplates)
		mux.HandleFunc("GET /api/v1/configs/templates/{id}", h.HandleGetTemplate)
		mux.HandleFunc("POST /api/v1/configs/export", h.HandleExport)
	}

	if h := hs.Agents; h != nil {
		mux.HandleFunc("GET /api/v1/agents", h.HandleList)
		mux.HandleFunc("POST /api/v1/agents/search", h.HandleSearch)
		mux.HandleFunc("GET /api/v1/agents/stats", h.HandleStats)
		mux.HandleFunc("POST /api/v1/agents/compatibility", h.HandleCompatibility)
		mux.HandleFunc("POST /api/v1/agents/team-suggestions", h.HandleTeamSuggestions)
		mux.HandleFunc("GET /api/v1/agents/{id}", h.HandleGet)
	}

	if h := hs.Evaluations; h != nil {
		mux.HandleFunc("GET /api/v1/evaluations/{id}", h.HandleGet)
		mux.HandleFunc("POST /api/v1/evaluations/compare", h.HandleCompare)
	}

	if h := hs.System; h != nil {
		mux.HandleFunc("GET /api/v1/system/config", h.HandleStatus)
		mux.HandleFunc("POST /api/v1/system/config/reload", h.HandleReload)
		mux.HandleFunc("POST /api/v1/system/config/rollback", h.HandleRollback)
	}
}
