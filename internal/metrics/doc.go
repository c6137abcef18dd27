// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的工作流执行指标采集能力。

# 概述

Collector 在独立的 Registry 上通过 promauto 注册指标，并实现
workflow.MetricsRecorder，由执行器在运行、步骤与回滚结束时回调。
对于一次性运行的 CLI 进程，WriteTextfile 以 textfile collector
格式落盘，交由 node_exporter 采集。

# 主要指标

  - workflow_runs_total / workflow_run_duration_seconds：按 goal/status 分组。
  - workflow_last_run_timestamp_seconds：最近一次运行结束时间。
  - step_executions_total / step_duration_seconds：按 goal/step/section 分组，
    section 为 try 或 finally。
  - rollback_invocations_total：按 goal/step/handler/status 分组。
*/
package metrics
