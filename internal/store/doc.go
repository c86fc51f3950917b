// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package store 持久化团队与执行记录。

TeamStore 与 ExecutionStore 有三种实现：

  - Memory：进程内 map，适合单实例与测试；
  - Redis：JSON 值加按创建时间排序的有序集合索引；
  - Gorm：teams / executions 两张表，JSON 字段以文本列存储。

所有后端遵循相同的排序语义：执行记录默认按 created_at 倒序，
completed_at 为空的记录视为最早，created_at 与 id 作为兜底排序键。
记录不存在时统一返回 ErrNotFound。
*/
package store
