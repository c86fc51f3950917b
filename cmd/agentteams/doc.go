// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 AgentTeams 服务端程序入口。

# 概述

cmd/agentteams 提供 HTTP API 服务、数据库迁移、离线配置校验、
健康检查和版本查询等子命令。配置从 YAML 文件与环境变量加载，
日志使用 zap，指标通过独立端口以 Prometheus 格式暴露。

# 核心类型

  - app        — 装配存储、服务、处理器与中间件的运行期依赖
  - Middleware — HTTP 中间件函数签名 func(http.Handler) http.Handler

# 主要能力

  - 子命令：serve、migrate、validate、version、health
  - 存储后端：memory、redis、database（postgres / mysql / sqlite）
  - 中间件链：RequestID、Recovery、SecurityHeaders、RequestLogger、
    CORS、Metrics、OTel、RateLimiter（基于 IP）、JWT 或 API Key 认证
  - 模板目录监听：文件变更后重新加载智能体库
  - 优雅关闭：信号 → 停止 HTTP 与 Metrics → 等待执行结束 → 关闭连接
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
