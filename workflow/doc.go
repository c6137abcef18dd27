// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package workflow 提供处理步骤的编排与执行引擎。

# 概述

workflow 包实现 stepflow 的内存工作流模型与执行器。工作流由 try 段
（顺序步骤与并行组）和 finally 段组成；执行器在步骤失败时按 LIFO
顺序回滚已启动的步骤，并保证 finally 段总会执行。

# 核心接口与类型

  - StepKey            — 复合步骤标识 id / id[qualifier]，可直接作为 map key
  - ProcessingWorkflow — 解析后的工作流（try 段、finally 段、上下文映射）
  - WorkflowStep       — SimpleStep 与 ParallelStep 两种变体
  - ExecutionContext   — 步骤数据（mapped / unmapped，执行与回滚两套）
  - ContextBuilder     — 默认数据 + Overrides → ExecutionContext
  - Step / StepInfo    — 宿主实现的步骤接口与元数据
  - Registry           — step id → 实现的注册表
  - RollbackHandler    — 显式注册的回滚处理器（过滤器 + 参数形态 + 回调）
  - Executor           — 单次使用的执行器（状态机、回滚栈、finally 段）

# 主要能力

  - 引用校验：缺失的步骤 ID 聚合报告；离线模式拒绝需要网络的步骤
  - 并行组：每组独立的 worker pool，成员全部结束后才继续（屏障语义）
  - 回滚：按失败类型过滤处理器，按名称排序，处理器失败只记录不中断
  - 变量展开：@{project.groupId} / @{project.artifactId} / @{project.version}
  - ErrRollbackRequested：执行回滚与 finally 后以成功结束
  - 可观测性：zap 日志、OpenTelemetry span 与指标、MetricsRecorder 钩子
*/
package workflow
