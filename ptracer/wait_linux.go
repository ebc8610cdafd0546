package ptracer

import (
	"errors"
	"fmt"
	"os"
	"unsafe"

	unix "golang.org/x/sys/unix"
)

var (
	// ErrWrongProcess 表示等待调用报告了另一个进程
	ErrWrongProcess = errors.New("wait returned wrong process")
	// ErrNoExitEvent 表示目标在没有产生退出事件的情况下终止
	ErrNoExitEvent = errors.New("process terminated without exit event")
	// ErrDetached 表示等待因分离请求而结束
	ErrDetached = errors.New("detached from process")
)

// 等待策略名称
const (
	StrategyAuto    = "auto"
	StrategyWaitpid = "waitpid"
	StrategyWaitid  = "waitid"
)

// 目标即将退出时，waitpid 返回 (PTRACE_EVENT_EXIT << 16) | (SIGTRAP << 8) | 0x7f，
// waitid 的 si_status 为 (PTRACE_EVENT_EXIT << 8) | SIGTRAP，两者都与该值比较
const exitEventStatus = int(unix.SIGTRAP) | unix.PTRACE_EVENT_EXIT<<8

// waitid 的 si_code
const (
	cldExited  = 1
	cldKilled  = 2
	cldDumped  = 3
	cldTrapped = 4
)

// Event 是一次等待结果的分类
type Event int

const (
	EventUnrelatedStop Event = iota
	EventExiting
	EventError
)

func (e Event) String() string {
	switch e {
	case EventUnrelatedStop:
		return "unrelated-stop"
	case EventExiting:
		return "target-exiting"
	default:
		return "wait-error"
	}
}

// StopKind 决定了停止之后如何让目标继续运行
type StopKind int

const (
	// StopSignal 是信号递送停止，恢复时需要注入该信号
	StopSignal StopKind = iota
	// StopGroup 是 SEIZE 下的组停止，用 PTRACE_LISTEN 恢复
	StopGroup
	// StopEvent 是其他 ptrace 事件停止（包括 PTRACE_INTERRUPT）
	StopEvent
)

// Stop 描述一次等待观察到的状态变化
type Stop struct {
	Pid    int
	Raw    int // 等待调用返回的原始状态
	Signal unix.Signal
	Cause  int // ptrace 事件编号，信号递送停止时为 0
	Kind   StopKind
}

// injected 返回恢复或分离时应当注入的信号
func (s Stop) injected() unix.Signal {
	if s.Kind == StopSignal {
		return s.Signal
	}
	return 0
}

func classify(pid, raw int, sig unix.Signal, cause int) Stop {
	st := Stop{Pid: pid, Raw: raw, Signal: sig, Cause: cause}
	switch {
	case cause == unix.PTRACE_EVENT_STOP && sig != unix.SIGTRAP:
		st.Kind = StopGroup
	case cause != 0:
		st.Kind = StopEvent
	default:
		st.Kind = StopSignal
	}
	return st
}

// WaitStrategy 阻塞到目标的下一次状态变化并分类
// 返回 EventError 时 error 不为 nil，且不应再调用
type WaitStrategy interface {
	Name() string
	Next(pid int) (Stop, Event, error)
}

type waitSyscalls interface {
	Wait4(pid int, wstatus *unix.WaitStatus, options int, rusage *unix.Rusage) (int, error)
	Waitid(idType int, id int, info *unix.Siginfo, options int, rusage *unix.Rusage) error
}

type sysWait struct{}

func (sysWait) Wait4(pid int, wstatus *unix.WaitStatus, options int, rusage *unix.Rusage) (int, error) {
	return unix.Wait4(pid, wstatus, options, rusage)
}

func (sysWait) Waitid(idType int, id int, info *unix.Siginfo, options int, rusage *unix.Rusage) error {
	return unix.Waitid(idType, id, info, options, rusage)
}

// SelectStrategy 根据名称选择等待策略
// auto 时探测 waitid 是否可用，不可用则回退到 waitpid
func SelectStrategy(name string) (WaitStrategy, error) {
	switch name {
	case StrategyWaitpid:
		return &waitpidStrategy{sys: sysWait{}}, nil
	case StrategyWaitid:
		return &waitidStrategy{sys: sysWait{}}, nil
	case "", StrategyAuto:
		if waitidSupported(sysWait{}) {
			return &waitidStrategy{sys: sysWait{}}, nil
		}
		return &waitpidStrategy{sys: sysWait{}}, nil
	}
	return nil, fmt.Errorf("unknown wait strategy %q", name)
}

// waitidSupported 对自身调用一次非阻塞 waitid，只有 ENOSYS 表示不支持
func waitidSupported(sys waitSyscalls) bool {
	var info unix.Siginfo
	err := sys.Waitid(unix.P_PID, os.Getpid(), &info, unix.WEXITED|unix.WNOHANG, nil)
	return err != unix.ENOSYS
}

// waitpidStrategy 使用 wait4 等待任意状态变化并解码 WaitStatus
type waitpidStrategy struct {
	sys waitSyscalls
}

func (s *waitpidStrategy) Name() string { return StrategyWaitpid }

func (s *waitpidStrategy) Next(pid int) (Stop, Event, error) {
	for {
		var wstatus unix.WaitStatus
		wpid, err := s.sys.Wait4(pid, &wstatus, unix.WALL, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return Stop{Pid: pid}, EventError, fmt.Errorf("error waiting for process %d: %w", pid, err)
		}
		if wpid != pid {
			return Stop{Pid: wpid}, EventError, fmt.Errorf("wait4 returned process %d (expected %d): %w", wpid, pid, ErrWrongProcess)
		}

		raw := int(wstatus)
		switch {
		case wstatus.Exited():
			return Stop{Pid: pid, Raw: raw}, EventError,
				fmt.Errorf("process %d exited with %d: %w", pid, wstatus.ExitStatus(), ErrNoExitEvent)
		case wstatus.Signaled():
			return Stop{Pid: pid, Raw: raw}, EventError,
				fmt.Errorf("process %d killed by signal %d: %w", pid, wstatus.Signal(), ErrNoExitEvent)
		case !wstatus.Stopped():
			continue
		}

		st := classify(pid, raw, wstatus.StopSignal(), (raw>>16)&0xff)
		if raw>>8 == exitEventStatus {
			return st, EventExiting, nil
		}
		return st, EventUnrelatedStop, nil
	}
}

// waitidStrategy 使用 waitid(P_PID, WEXITED) 并检查 si_code 与 si_status
// 被跟踪进程的停止总会被报告，不需要 WSTOPPED
type waitidStrategy struct {
	sys waitSyscalls
}

func (s *waitidStrategy) Name() string { return StrategyWaitid }

func (s *waitidStrategy) Next(pid int) (Stop, Event, error) {
	for {
		var info unix.Siginfo
		err := s.sys.Waitid(unix.P_PID, pid, &info, unix.WEXITED, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return Stop{Pid: pid}, EventError, fmt.Errorf("failed to wait on process %d: %w", pid, err)
		}

		ch := sigchldOf(&info)
		if int(ch.Pid) != pid {
			return Stop{Pid: int(ch.Pid)}, EventError, fmt.Errorf("waitid returned process %d (expected %d): %w", ch.Pid, pid, ErrWrongProcess)
		}

		status := int(ch.Status)
		switch ch.Code {
		case cldTrapped:
			st := classify(pid, status, unix.Signal(status&0xff), (status>>8)&0xff)
			if status == exitEventStatus {
				return st, EventExiting, nil
			}
			return st, EventUnrelatedStop, nil
		case cldExited:
			return Stop{Pid: pid, Raw: status}, EventError,
				fmt.Errorf("process %d exited with %d: %w", pid, status, ErrNoExitEvent)
		case cldKilled, cldDumped:
			return Stop{Pid: pid, Raw: status}, EventError,
				fmt.Errorf("process %d killed by signal %d: %w", pid, status, ErrNoExitEvent)
		}
	}
}

func sigchldOf(info *unix.Siginfo) *sigchld {
	return (*sigchld)(unsafe.Pointer(info))
}

/*
	waitForExit 阻塞直到目标停在退出事件上

无关的停止被丢弃，目标随后被恢复运行：
 1. 信号递送停止：注入原信号
 2. SEIZE 下的组停止：PTRACE_LISTEN
 3. 其他 ptrace 事件停止：不注入信号

任何等待错误都会结束循环。观察到分离请求时，在当前停止上分离并返回 ErrDetached。
*/
func (t *Tracer) waitForExit(pid int) (Stop, error) {
	for {
		st, ev, err := t.Strategy.Next(pid)
		if err != nil {
			return st, err
		}
		t.iterations++
		t.Logger.Debug("wait status", "strategy", t.Strategy.Name(), "status", fmt.Sprintf("%#x", st.Raw), "event", ev)

		if t.detach.Load() {
			sig := st.injected()
			// 可能是自己为了唤醒目标发送的 SIGSTOP
			if sig == unix.SIGSTOP {
				sig = 0
			}
			if err := t.ctl.Detach(pid, sig); err != nil {
				t.Logger.Warn("detach failed", "pid", pid, "error", err)
			}
			return st, ErrDetached
		}

		if ev == EventExiting {
			return st, nil
		}

		if err := t.resume(pid, st); err != nil {
			return st, fmt.Errorf("failed to continue process %d: %w", pid, err)
		}
	}
}

func (t *Tracer) resume(pid int, st Stop) error {
	switch st.Kind {
	case StopGroup:
		return t.ctl.Listen(pid)
	case StopSignal:
		return t.ctl.Resume(pid, st.Signal)
	default:
		return t.ctl.Resume(pid, 0)
	}
}

// requestDetach 由取消路径调用，只请求分离：设置标志并唤醒目标，
// 真正的分离由等待循环在下一次停止时完成
func (t *Tracer) requestDetach() {
	if !t.detach.CompareAndSwap(false, true) {
		return
	}
	_ = t.ctl.Interrupt(t.Target.Pid())
}
