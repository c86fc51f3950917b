// Package api defines the request and response types of the AgentTeams
// HTTP API.
//
// # API Overview
//
// AgentTeams provides a RESTful API under /api/v1 for:
//   - hierarchical team CRUD, status and routing statistics
//   - background executions with cancellation and a websocket status stream
//   - configuration validation, analysis, upload, templates and export
//   - the single-agent library: search, stats, compatibility, team suggestions
//   - LLM-judged team evaluations and comparisons
//
// Every response is wrapped in the envelope defined by api/handlers:
//
//	{"success": true, "data": {...}, "timestamp": "...", "request_id": "..."}
//
// # Authentication
//
// When API keys are configured, requests carry the X-API-Key header. When a
// JWT secret or public key is configured, requests carry a Bearer token
// instead. Health, readiness and the root path are always public.
package api
