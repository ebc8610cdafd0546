//go:build linux
// +build linux

package ptracer

import (
	"os"
	"sync/atomic"

	"github.com/zqzqsb/pwait/pkg/procinfo"
	"github.com/zqzqsb/pwait/runner"
)

// Logger 定义了跟踪过程的诊断输出，*slog.Logger 满足该接口
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Negotiator 确保当前进程有权限跟踪任意进程
type Negotiator interface {
	Ensure() bool
}

// Tracer 附加到一个已存在的进程并等待它退出
type Tracer struct {
	Logger
	Negotiator

	// Target 在 Run 之前确定，之后只读
	Target Target
	// Strategy 在启动时选定，见 SelectStrategy
	Strategy WaitStrategy
	// Signals 是等待期间触发分离的信号，为空时使用 SIGINT 和 SIGTERM
	Signals []os.Signal

	newController func() Controller
	describe      func(pid int) (procinfo.Info, error)

	ctl        Controller
	state      runner.State
	detach     atomic.Bool
	iterations int
	extracted  bool
}

// New 创建一个 Tracer
func New(target Target, strategy WaitStrategy, n Negotiator, l Logger) *Tracer {
	return &Tracer{
		Logger:        l,
		Negotiator:    n,
		Target:        target,
		Strategy:      strategy,
		newController: func() Controller { return newPtraceControl() },
		describe:      procinfo.Describe,
	}
}

// State 返回当前所处的阶段
func (t *Tracer) State() runner.State {
	return t.state
}

func (t *Tracer) advance(next runner.State) {
	if !t.state.CanTransition(next) {
		t.Logger.Warn("unexpected state transition", "from", t.state, "to", next)
	}
	t.Logger.Debug("state", "from", t.state, "to", next)
	t.state = next
}
