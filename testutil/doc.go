// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 stepflow 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 顺序断言: Recorder 记录并发步骤与回滚处理器的调用顺序，
    AssertBefore 断言两条事件的先后
  - 异步断言: AssertEventuallyTrue / WaitFor
  - 描述符: WriteDescriptor 在临时目录生成工作流描述符

# 子包

  - testutil/mocks: MockStep（可注入失败、panic、延迟与回滚处理器）
    与 MockMetrics（记录执行器上报的指标）

# 使用示例

	rec := testutil.NewRecorder()
	step := mocks.NewMockStep("init", rec).WithError(errBoom)
	registry.MustRegister(workflow.StepInfo{ID: "init"}, step)
*/
package testutil
