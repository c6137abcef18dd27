// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 stepflow 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 workflow、dsl、config
以及命令行入口提供统一的错误码与上下文传播约定，避免循环依赖。

# 核心类型

  - ErrorCode / Error — 结构化错误体系（错误码 + 消息 + Cause）
  - Coder             — 携带错误码的错误接口，供 GetErrorCode 识别

# 主要能力

  - 错误码提取：GetErrorCode / IsErrorCode 沿错误链查找
  - Context 传播：WithRunID / WithGoal / WithStep / WithTraceID
*/
package types
