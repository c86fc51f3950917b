// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package evaluation 使用 LLM-as-judge 对层级团队进行多维度评估。

# 流程

TeamEvaluator.Evaluate 并发执行场景（errgroup，单场景超时），由 LLMJudge
判断场景是否成功，然后按维度挑选相关场景结果交给 LLMJudge 打 1-5 分，
归一化为 (s-1)/4。总分为各维度平均分，并换算为 A+ 到 F 的等级。

# 场景库

GeneralScenarios、ResearchScenarios、CreativeScenarios、LoadScenarios
组成完整场景库；QuickSet 与 ComprehensiveSet 为常用组合，ByDomain、
ByDifficulty 用于筛选，Custom 创建自定义场景。
*/
package evaluation
