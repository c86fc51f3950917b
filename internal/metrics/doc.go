// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的服务指标。

Collector 通过 promauto 注册以下指标，全部按 namespace 隔离：

  - HTTP：请求数、耗时、请求与响应体大小，状态码归类为 2xx/3xx/4xx/5xx；
  - LLM：请求数、耗时、prompt/completion token；InstrumentProvider
    包装 llm.Provider 自动记录，provider 未返回用量时用 tiktoken 估算；
  - 执行：终态执行数与耗时、活跃执行数、已加载团队数；
  - 路由：按 level（coordinator/supervisor）与策略统计决策数和置信度；
  - 校验与评估：层级校验得分、评估等级与总分；
  - 数据库：连接池打开与空闲连接数。
*/
package metrics
