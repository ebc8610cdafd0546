// Package runner 定义了等待目标进程退出的基本接口和结果类型
package runner

import (
	"context"
)

// Runner 接口定义了一次完整的等待
type Runner interface {
	Run(context.Context) Result
}
