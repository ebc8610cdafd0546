package ptracer

import (
	"errors"
	"runtime"
	"sync"

	unix "golang.org/x/sys/unix"
)

var errThreadClosed = errors.New("ptrace thread already stopped")

// ptrace 发出 x/sys 没有直接封装的请求（带 data 的 SEIZE、INTERRUPT、LISTEN、带信号的 DETACH）
func ptrace(request int, pid int, addr uintptr, data uintptr) error {
	_, _, e := unix.Syscall6(unix.SYS_PTRACE, uintptr(request), uintptr(pid), addr, data, 0, 0)
	if e != 0 {
		return e
	}
	return nil
}

/*
	ptraceThread 在一个锁定的 OS 线程上执行所有 ptrace 请求

跟踪关系属于发起附加的线程（内核任务），之后的 ptrace 请求必须从同一个线程发出：

	Goroutine (ptrace) -----> OS Thread (locked) -----> Target Process
	                                 ^                  (traced)
	Goroutine (main)   --- wait4/waitid（同一线程组内任意线程都可以等待）

等待在调用者的 goroutine 上阻塞，因此取消路径仍然可以在等待期间通过该线程发出
PTRACE_INTERRUPT。
*/
type ptraceThread struct {
	mu     sync.Mutex
	closed bool
	fc     chan func()
}

func startPtraceThread() *ptraceThread {
	t := &ptraceThread{fc: make(chan func())}
	go t.loop()
	return t
}

func (t *ptraceThread) loop() {
	// 不解锁：goroutine 退出时线程随之退出，内核会解除它仍持有的跟踪关系
	runtime.LockOSThread()
	for fn := range t.fc {
		fn()
	}
}

func (t *ptraceThread) do(fn func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errThreadClosed
	}
	done := make(chan struct{})
	t.fc <- func() {
		fn()
		close(done)
	}
	<-done
	return nil
}

func (t *ptraceThread) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.fc)
	}
}

// Controller 封装了对目标进程发出的 ptrace 请求
type Controller interface {
	// Attach 建立跟踪关系，并要求在目标退出前通知
	Attach(pid int) error
	// Resume 让停止的目标继续运行，sig 不为 0 时注入该信号
	Resume(pid int, sig unix.Signal) error
	// Listen 让处于组停止的目标保持停止，但允许之后的事件被报告
	Listen(pid int) error
	// Interrupt 让运行中的目标尽快停下，以便分离
	Interrupt(pid int) error
	// Detach 解除跟踪关系，sig 不为 0 时注入该信号
	Detach(pid int, sig unix.Signal) error
	// EventMsg 读取最近一次 ptrace 事件附带的消息
	EventMsg(pid int) (uint, error)
	// Close 释放控制器，之后的请求都会失败
	Close()
}

type ptraceControl struct {
	thread *ptraceThread
}

func newPtraceControl() *ptraceControl {
	return &ptraceControl{thread: startPtraceThread()}
}

func (c *ptraceControl) exec(fn func() error) error {
	var err error
	if terr := c.thread.do(func() { err = fn() }); terr != nil {
		return terr
	}
	return err
}

func (c *ptraceControl) Attach(pid int) error {
	return c.exec(func() error { return attach(pid) })
}

func (c *ptraceControl) Interrupt(pid int) error {
	return c.exec(func() error { return interrupt(pid) })
}

func (c *ptraceControl) Resume(pid int, sig unix.Signal) error {
	return c.exec(func() error { return unix.PtraceCont(pid, int(sig)) })
}

func (c *ptraceControl) Listen(pid int) error {
	return c.exec(func() error { return ptrace(unix.PTRACE_LISTEN, pid, 0, 0) })
}

func (c *ptraceControl) Detach(pid int, sig unix.Signal) error {
	return c.exec(func() error { return ptrace(unix.PTRACE_DETACH, pid, 0, uintptr(sig)) })
}

func (c *ptraceControl) EventMsg(pid int) (uint, error) {
	var msg uint
	err := c.exec(func() error {
		var err error
		msg, err = unix.PtraceGetEventMsg(pid)
		return err
	})
	return msg, err
}

func (c *ptraceControl) Close() {
	c.thread.stop()
}
