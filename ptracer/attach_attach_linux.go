//go:build linux && ptrace_attach

package ptracer

import (
	"fmt"

	unix "golang.org/x/sys/unix"
)

// AttachMode 是编译时选定的附加方式
// PTRACE_ATTACH 会向目标发送 SIGSTOP，适用于不支持 PTRACE_SEIZE 的内核
const AttachMode = "attach"

// attach 以 PTRACE_ATTACH 附加，等待首次 SIGSTOP 停止后设置 PTRACE_O_TRACEEXIT
// 并让目标继续运行（不传递该 SIGSTOP）
func attach(pid int) error {
	if err := unix.PtraceAttach(pid); err != nil {
		return err
	}
	var wstatus unix.WaitStatus
	for {
		wpid, err := unix.Wait4(pid, &wstatus, unix.WALL, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		if wpid != pid {
			return fmt.Errorf("wait4 returned process %d (expected %d): %w", wpid, pid, ErrWrongProcess)
		}
		if !wstatus.Stopped() {
			return fmt.Errorf("process %d terminated during attach: %w", pid, unix.ESRCH)
		}
		if wstatus.StopSignal() == unix.SIGSTOP {
			break
		}
		// 先于 SIGSTOP 到达的信号原样注入
		if err := unix.PtraceCont(pid, int(wstatus.StopSignal())); err != nil {
			return err
		}
	}
	if err := unix.PtraceSetOptions(pid, unix.PTRACE_O_TRACEEXIT); err != nil {
		return fmt.Errorf("failed to set ptrace options: %v", err)
	}
	return unix.PtraceCont(pid, 0)
}

// interrupt 没有 PTRACE_INTERRUPT 可用，改为发送 SIGSTOP
func interrupt(pid int) error {
	return unix.Kill(pid, unix.SIGSTOP)
}
