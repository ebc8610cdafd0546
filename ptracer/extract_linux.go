package ptracer

import (
	"errors"
	"fmt"

	unix "golang.org/x/sys/unix"

	"github.com/zqzqsb/pwait/runner"
)

// ErrAlreadyExtracted 表示同一次退出事件的退出码已经读取过
var ErrAlreadyExtracted = errors.New("exit status already extracted")

// ExitCode 是从 PTRACE_GETEVENTMSG 解码的退出状态
type ExitCode struct {
	// Code 为正常退出的退出码；被信号终止时为 128+信号编号
	Code int
	// Signal 为终止目标的信号，正常退出时为 0
	Signal unix.Signal
	// Raw 是内核记录的原始状态
	Raw uint
}

// decodeExitMsg 解码退出事件的消息，其格式与 wait 状态相同
func decodeExitMsg(msg uint) ExitCode {
	ws := unix.WaitStatus(uint32(msg))
	switch {
	case ws.Exited():
		return ExitCode{Code: ws.ExitStatus(), Raw: msg}
	case ws.Signaled():
		return ExitCode{Code: 128 + int(ws.Signal()), Signal: ws.Signal(), Raw: msg}
	}
	return ExitCode{Code: int(msg>>8) & 0xff, Raw: msg}
}

// extractExitCode 在确认退出事件之后读取目标真正的退出状态
// 每次退出事件最多查询一次
func (t *Tracer) extractExitCode(pid int) (ExitCode, error) {
	if t.extracted {
		return ExitCode{}, ErrAlreadyExtracted
	}
	if t.state != runner.StateExitObserved {
		return ExitCode{}, fmt.Errorf("cannot extract exit status in state %v", t.state)
	}
	t.extracted = true

	msg, err := t.ctl.EventMsg(pid)
	if err != nil {
		return ExitCode{}, fmt.Errorf("error getting process %d exit status: %w", pid, err)
	}
	return decodeExitMsg(msg), nil
}
