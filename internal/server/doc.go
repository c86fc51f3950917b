// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 管理 API 与 metrics 两个 HTTP 服务器的生命周期。

# 核心类型

  - Manager：封装 net/http.Server，提供 Start/Shutdown/Run。
  - Config：监听地址、读写与空闲超时、最大请求头、优雅关闭超时与 TLS 证书。
    APIConfig/MetricsConfig 由 config.ServerConfig 生成。

# 主要能力

  - 非阻塞启动：Start 在后台 goroutine 中运行服务；配置证书时使用
    tlsutil 的加固 TLS 配置。
  - 阻塞运行：Run 在 ctx 结束（通常来自 signal.NotifyContext）或服务
    异常退出时触发优雅关闭。
  - 错误传播：Errors() 返回异步错误通道。
*/
package server
