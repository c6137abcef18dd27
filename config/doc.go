// Package config 提供 stepflow 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量（STEPFLOW_ 前缀）的顺序加载，
// 覆盖日志、工作流描述符位置与数据覆盖项、项目标识、Prometheus 指标
// 以及 OpenTelemetry 遥测。
package config
