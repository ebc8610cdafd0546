package runner

import (
	"fmt"
	"time"
)

// Result 是一次等待的结果
type Result struct {
	Status            // 结果状态
	Pid        int    // 目标进程 ID
	ExitStatus int    // 目标进程的退出码（被信号终止时为 128+信号编号）
	Signal     int    // 终止目标进程的信号，正常退出时为 0
	Error      string // 潜在的详细错误信息

	Strategy   string // 使用的等待策略
	AttachMode string // 使用的附加方式
	Iterations int    // 等待循环中观察到的停止次数

	Elapsed time.Duration // 从附加到结束的时间
}

// Success 返回标准输出上的结果行
func (r Result) Success() string {
	return fmt.Sprintf("Process %d exited with code %d", r.Pid, r.ExitStatus)
}

func (r Result) String() string {
	switch r.Status {
	case StatusNormal:
		if r.Signal != 0 {
			return fmt.Sprintf("Result[%d Signalled(%d) code=%d][%s %s %d][%v]", r.Pid, r.Signal, r.ExitStatus, r.AttachMode, r.Strategy, r.Iterations, r.Elapsed)
		}
		return fmt.Sprintf("Result[%d code=%d][%s %s %d][%v]", r.Pid, r.ExitStatus, r.AttachMode, r.Strategy, r.Iterations, r.Elapsed)

	case StatusDetached:
		return fmt.Sprintf("Result[%d Detached][%s %s %d][%v]", r.Pid, r.AttachMode, r.Strategy, r.Iterations, r.Elapsed)

	default:
		return fmt.Sprintf("Result[%d %v(%s)][%s %s %d][%v]", r.Pid, r.Status, r.Error, r.AttachMode, r.Strategy, r.Iterations, r.Elapsed)
	}
}
