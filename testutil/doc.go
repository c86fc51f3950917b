// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 agentteams 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout，自动注册 Cleanup
  - 异步断言: AssertEventuallyTrue / WaitFor / WaitForChannel，
    用于后台执行状态的轮询等待
  - 数据工具: MustJSON / WriteFile，简化请求体与临时配置文件构造

# 子包

  - testutil/mocks: MockProvider（llm.Provider 的脚本化实现），
    支持固定响应、按序响应、延迟、错误注入与调用记录
  - testutil/fixtures: 层级团队配置与单 Agent 配置样例（YAML / JSON）

# 使用示例

	ctx := testutil.TestContext(t)
	provider := mocks.NewMockProvider().WithResponse("hello")
	answer, err := llm.Ask(ctx, provider, "gpt-4o-mini", "system", "question")
	require.NoError(t, err)
*/
package testutil
