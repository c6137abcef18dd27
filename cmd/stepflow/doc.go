// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 stepflow 命令行程序入口。

# 概述

cmd/stepflow 根据 goal 定位工作流描述符（默认 workflows/<goal>，
可用 --workflow 指定自定义文件），完成语法校验、解析、数据覆盖与
步骤引用校验后执行工作流，并在结束时输出运行摘要。

# 子命令

  - run       执行工作流；--offline 拒绝需要网络的步骤，
    -D <step>[<q>][-rollback]=<data> 覆盖步骤数据
  - validate  只做语法与引用校验
  - print     以分隔线包裹打印描述符
  - steps     列出内置步骤（echo、sleep、fail、mkdir、writeFile、tcpCheck）
  - version   显示构建注入的版本信息

# 配置

配置按 默认值 → YAML（--config）→ STEPFLOW_ 环境变量 → 显式命令行参数
的顺序合并。启用 metrics.textfile_path 或 --metrics-file 时，运行结束后
以 Prometheus textfile 格式写出执行指标；启用 telemetry 时通过 OTLP
导出 span 与指标。
*/
package main
