// Package hierarchical 提供 Coordinator -> Supervisor -> Worker 三级 Agent 团队运行时。
//
// Coordinator 通过路由引擎把任务分配给团队，团队的 Supervisor 再委派给
// Worker，Worker 调用 LLM 完成任务。Build 从 teamconfig.HierarchicalConfig
// 构建完整运行时，并为每次执行打开 OpenTelemetry span。
package hierarchical
