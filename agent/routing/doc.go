// Package routing selects the agent that should handle a task.
//
// The Engine keeps a registry of AgentCapability entries (capabilities,
// specialization keywords, priority, workload and a moving performance
// record) and offers seven strategies:
//
//   - keyword: capability, specialization and keyword-table matches
//   - llm: asks a model for a JSON decision, with name matching as fallback
//   - rule: ordered rules for urgent, simple and complex tasks
//   - capability: exact capability matches plus specialization and priority
//   - workload: highest availability
//   - performance: highest performance score
//   - hybrid: weighted combination of capability, performance, workload and keyword
//
// A strategy that fails falls back to round robin with confidence 0.3.
// Ties are broken by the order of the available agents passed to Route.
//
//	engine := routing.NewEngine(routing.WithLogger(logger))
//	_ = engine.RegisterAgent(*routing.NewAgentCapability("researcher", "research", "web_search"))
//	decision, err := engine.Route(ctx, "research solar panels", []string{"researcher"}, routing.StrategyHybrid, nil)
package routing
