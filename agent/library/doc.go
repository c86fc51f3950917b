// Package library 扫描单智能体配置目录，按关键词表推断角色与能力，
// 提供检索、统计、两两兼容度计算以及按任务推荐团队组成。
package library
