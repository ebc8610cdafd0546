package ptracer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	unix "golang.org/x/sys/unix"

	"github.com/zqzqsb/pwait/pkg/procinfo"
	"github.com/zqzqsb/pwait/pkg/sigguard"
	"github.com/zqzqsb/pwait/runner"
)

/*
	Run 附加到目标进程并等待它退出

流程：
 1. 确认持有 CAP_SYS_PTRACE，否则不附加
 2. 在专用线程上附加（SEIZE 或 ATTACH，编译时决定）
 3. 接管 SIGINT/SIGTERM，并在 c 取消时同样请求分离
 4. 等待退出事件，期间的无关停止被丢弃
 5. 恢复信号处理
 6. 通过 PTRACE_GETEVENTMSG 读取退出状态，并放开目标

状态：
  - 成功：StatusNormal，ExitStatus 为目标的退出码
  - 收到终止信号或 c 被取消：StatusDetached，不会读取退出状态
  - 其他失败：对应的错误状态，Error 中为详细信息
*/
func (t *Tracer) Run(c context.Context) (result runner.Result) {
	pid := t.Target.Pid()
	result.Pid = pid
	result.AttachMode = AttachMode
	if t.Strategy != nil {
		result.Strategy = t.Strategy.Name()
	}
	if !t.Target.Valid() || t.Strategy == nil {
		result.Status = runner.StatusInvalidArgument
		result.Error = ErrInvalidPid.Error()
		return
	}

	if !t.Negotiator.Ensure() {
		result.Status = runner.StatusPrivilegeError
		result.Error = "CAP_SYS_PTRACE is not available"
		return
	}
	t.advance(runner.StateCapabilityChecked)

	if info, err := t.describe(pid); err != nil {
		t.Logger.Warn("could not inspect process", "pid", pid, "error", err)
	} else {
		t.Logger.Info("target process", "pid", pid, "name", info.Name, "ppid", info.Ppid, "status", info.Status, "cmdline", info.Cmdline)
	}

	t.ctl = t.newController()
	defer t.ctl.Close()

	sTime := time.Now()
	defer func() {
		result.Elapsed = time.Since(sTime)
		result.Iterations = t.iterations
	}()

	t.Logger.Info("attempting to set ptrace on process", "pid", pid, "mode", AttachMode)
	if err := t.ctl.Attach(pid); err != nil {
		t.Logger.Warn("error setting ptrace on process", "pid", pid, "error", err)
		result.Status = runner.StatusAttachError
		result.Error = attachError(pid, err).Error()
		return
	}
	t.advance(runner.StateAttached)

	// 目标在此之前已确定，取消路径只读取它
	guard := sigguard.Install(func(os.Signal) { t.requestDetach() }, t.Signals...)
	var wg sync.WaitGroup
	watchDone := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-c.Done():
			t.requestDetach()
		case <-watchDone:
		}
	}()

	t.advance(runner.StateWatching)
	_, err := t.waitForExit(pid)

	guard.Restore()
	close(watchDone)
	wg.Wait()

	if errors.Is(err, ErrDetached) {
		t.advance(runner.StateDetached)
		t.Logger.Warn("interrupted, detached from process", "pid", pid)
		result.Status = runner.StatusDetached
		result.Error = err.Error()
		return
	}
	if err != nil {
		t.Logger.Warn("wait failed", "pid", pid, "error", err)
		result.Status = runner.StatusWaitError
		result.Error = err.Error()
		return
	}
	t.advance(runner.StateExitObserved)
	t.Logger.Info("wait successful", "pid", pid, "iterations", t.iterations)

	code, err := t.extractExitCode(pid)
	if err != nil {
		t.Logger.Warn("exit status extraction failed", "pid", pid, "error", err)
		result.Status = runner.StatusExtractionError
		result.Error = err.Error()
		return
	}
	t.advance(runner.StateStatusExtracted)
	t.Logger.Info("got exit code", "pid", pid, "code", code.Code, "signal", int(code.Signal), "raw", fmt.Sprintf("%#x", code.Raw))

	// 目标停在退出事件上，放开它以完成退出
	if err := t.ctl.Detach(pid, 0); err != nil {
		t.Logger.Debug("release after exit event failed", "pid", pid, "error", err)
	}

	result.Status = runner.StatusNormal
	result.ExitStatus = code.Code
	result.Signal = int(code.Signal)
	return
}

// attachError 为常见的附加失败补充说明
func attachError(pid int, err error) error {
	switch {
	case errors.Is(err, unix.ESRCH) && !procinfo.Exists(pid):
		return fmt.Errorf("process %d does not exist: %w", pid, err)
	case errors.Is(err, unix.ESRCH):
		return fmt.Errorf("process %d cannot be traced (exiting or zombie): %w", pid, err)
	case errors.Is(err, unix.EPERM):
		return fmt.Errorf("not permitted to trace process %d (already traced or insufficient privilege): %w", pid, err)
	}
	return fmt.Errorf("error setting ptrace on process %d: %w", pid, err)
}
