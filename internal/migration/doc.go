// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 migration 管理 teams 与 executions 两张表的版本化 Schema，
基于 golang-migrate 与内嵌 SQL 文件，支持 PostgreSQL、MySQL 与 SQLite。

SQLite 使用 modernc.org/sqlite 纯 Go 驱动。服务以 database 存储后端
启动时调用 UpFromConfig；命令行 `agentteams migrate <command>` 通过 CLI.Run
执行 up、down、status 等操作。
*/
package migration
