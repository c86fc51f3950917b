// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 AgentTeams 的结构化错误类型。

# 概述

types 是最底层的公共包，不依赖任何内部包。服务层、存储层与 HTTP 层
统一使用 *Error 传递错误码，HTTP 状态码由错误码推导。

# 核心类型

  - ErrorCode — 通用错误码与团队领域错误码（TEAM_NOT_FOUND 等）
  - Error     — 错误码、消息、详情、Retryable 标记与原始 cause

# 主要能力

  - 构造：NewError / NewInvalidRequestError / NewNotFoundError / NewInternalError
  - 判定：AsError / IsErrorCode / GetErrorCode / IsRetryable
  - 映射：Error.Status 与 HTTPStatusForCode
*/
package types
