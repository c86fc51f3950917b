// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package validation 提供层级团队配置的质量校验。

# 检查项

  - 结构：team / coordinator / teams 三个必需段，团队需要 supervisor 与 worker
  - 提示词：Coordinator 与 Supervisor 的 system prompt 是否包含路由指令、
    是否引用团队或 worker 名称与能力
  - 能力覆盖：声明了能力的 worker 占比

# 评分

从 100 分开始，每个问题扣除 penalty*confidence（critical 25、high 15、
medium 8、low 3、info 1），结果限制在 [0, 100]。配置了 LLM 时会附加
分节的优化建议；可自动修复的提示词问题会在 OptimizedConfig 中生成新的提示词。
*/
package validation
