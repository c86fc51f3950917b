// 版权所有 2024 AgentFlow Authors. 保留所有权利。
// 本源代码的使用受 LICENSE 文件中的 MIT 许可证约束。

/*
Package service 实现 HTTP 层之下的业务逻辑。

# 组成

  - TeamService: 团队的创建、查询、更新、删除，并维护运行时团队
  - ExecutionService: 后台执行、状态流转、取消与状态订阅
  - ConfigService: 配置校验、上传、模板与导出、层级分析
  - AgentService: 智能体库查询与使用统计
  - EvaluationService: 团队评估与结果对比

所有错误以 *types.Error 返回，handler 据此映射 HTTP 状态码。
*/
package service
