// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 负责打开 GORM 连接（postgres、mysql、sqlite）并管理连接池。

Open 根据 config.DatabaseConfig 选择方言，sqlite 走 modernc.org/sqlite
纯 Go 驱动。PoolManager 配置连接数与生命周期，后台定时 Ping 探活，
Close 时停止探活并释放连接。健康检查接口通过 Ping 报告数据库状态。
*/
package database
