// Package config 提供 AgentTeams 服务的配置管理。
//
// 配置按 默认值 → YAML 文件 → AGENTTEAMS_ 环境变量 的顺序合并，
// FileWatcher 轮询模板与智能体库目录，变化时触发重新加载。
package config
