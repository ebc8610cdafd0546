//go:build linux && !ptrace_attach

package ptracer

import unix "golang.org/x/sys/unix"

// AttachMode 是编译时选定的附加方式
// PTRACE_SEIZE 不会停止目标进程，需要 Linux 3.4 以上
const AttachMode = "seize"

// attach 以 PTRACE_SEIZE 附加，并在 data 中直接打开 PTRACE_O_TRACEEXIT
// （SEIZE 之后目标仍在运行，无法再调用 PTRACE_SETOPTIONS）
func attach(pid int) error {
	return ptrace(unix.PTRACE_SEIZE, pid, 0, unix.PTRACE_O_TRACEEXIT)
}

// interrupt 让目标进入 PTRACE_EVENT_STOP
func interrupt(pid int) error {
	return ptrace(unix.PTRACE_INTERRUPT, pid, 0, 0)
}
