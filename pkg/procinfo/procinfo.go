// Package procinfo 读取目标进程的基本信息，用于附加前的诊断输出
package procinfo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// ErrNotFound 表示目标进程不存在（或已经被回收）
var ErrNotFound = errors.New("process does not exist")

// Info 是目标进程的快照
type Info struct {
	Pid     int
	Ppid    int
	Name    string
	Status  string
	Cmdline string
}

func (i Info) String() string {
	return fmt.Sprintf("%d(%s) ppid=%d status=%s cmd=%q", i.Pid, i.Name, i.Ppid, i.Status, i.Cmdline)
}

// Exists 报告 pid 对应的进程是否存在
func Exists(pid int) bool {
	ok, err := process.PidExists(int32(pid))
	return err == nil && ok
}

// Describe 返回 pid 的快照。除进程不存在外，单个字段读取失败不会导致错误
func Describe(pid int) (Info, error) {
	info := Info{Pid: pid}
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return info, ErrNotFound
		}
		return info, err
	}

	if name, err := p.Name(); err == nil {
		info.Name = name
	}
	if ppid, err := p.Ppid(); err == nil {
		info.Ppid = int(ppid)
	}
	if st, err := p.Status(); err == nil {
		info.Status = strings.Join(st, ",")
	}
	if cmd, err := p.Cmdline(); err == nil {
		info.Cmdline = cmd
	}
	return info, nil
}
