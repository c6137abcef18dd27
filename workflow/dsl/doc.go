/*
Package dsl 实现 stepflow 的行式工作流描述符。

# 语法

	# 注释
	try {
	  init
	  parallel {
	    checkUser
	    checkConnection
	  }
	  upload[snapshot] {
	    data = repo=>snapshots, @{project.version}
	    rollbackData = keep=>false
	  }
	} finally {
	  cleanup
	}

每行一条语句；try/finally 可省略。Parse 对结构保持宽松，
Validate 独立检查 try/finally 的配对，Compile 依次执行两者。

# 来源

Source 优先读取自定义描述符文件，否则读取 <Dir>/<goal>；
Render 以 "==== goal ====" 分隔线包裹输出描述符原文。
*/
package dsl
