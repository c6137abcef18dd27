// =============================================================================
// stepflow 主入口
// =============================================================================
// 根据 goal 加载工作流描述符并执行内置步骤
//
// 使用方法:
//
//	stepflow run deploy                          # 执行 workflows/deploy
//	stepflow run deploy -f custom.flow --offline # 自定义描述符，离线模式
//	stepflow run deploy -D "upload[snap]=repo=>snapshots"
//	stepflow validate deploy                     # 校验语法与步骤引用
//	stepflow print deploy                        # 打印描述符
//	stepflow steps                               # 列出内置步骤
//	stepflow version                             # 显示版本信息
// =============================================================================

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// run 执行命令并返回进程退出码
func run(ctx context.Context, args []string) int {
	cmd := newRootCmd(os.Stdout, os.Stderr)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
