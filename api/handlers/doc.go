// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 AgentTeams HTTP API 的请求处理器实现。

# 概述

handlers 包把 internal/service 中的团队、执行、配置、智能体库与评估服务
暴露为 REST 端点，并提供统一的响应信封与错误映射。
所有 Handler 均遵循标准 net/http 接口，路径参数通过 r.PathValue 读取，
Swagger 注解用于生成 API 文档。

# 核心类型

  - Handlers          — 全部处理器的集合，Register 按 Go 1.22 模式注册路由
  - TeamHandler       — 团队 CRUD、状态、路由统计与评估
  - ExecutionHandler  — 异步执行、列表、取消与 websocket 状态流
  - ConfigHandler     — 配置校验、分析、上传、模板与导出
  - AgentHandler      — 智能体库搜索、统计、兼容度与团队建议
  - EvaluationHandler — 评估结果查询与对比
  - SystemConfigHandler — 服务配置版本、手动重载与回滚
  - HealthHandler     — /、/health、/healthz、/ready、/version
  - Response          — 统一 JSON 响应（success + data + error + timestamp + request_id）

# 错误映射

WriteError 通过 types.AsError 取出错误码，HTTP 状态码由 types.Error.Status 决定；
非 *types.Error 的错误一律返回 500 INTERNAL_ERROR，且不暴露内部信息。
*/
package handlers
