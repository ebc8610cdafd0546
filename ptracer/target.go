package ptracer

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrInvalidPid 表示进程 ID 缺失、无法解析或不是正数
var ErrInvalidPid = errors.New("invalid process id")

// Target 是被观察进程的 ID
// 只能通过 NewTarget 或 ParseTarget 创建，创建后不可修改，因此可以被
// 取消路径并发读取而无需同步
type Target struct {
	pid int
}

// NewTarget 校验 pid 并返回 Target
func NewTarget(pid int) (Target, error) {
	if pid < 1 || pid > math.MaxInt32 {
		return Target{}, fmt.Errorf("%w: %d", ErrInvalidPid, pid)
	}
	return Target{pid: pid}, nil
}

// ParseTarget 解析十进制或带前缀（0x、0o、0b）的进程 ID
func ParseTarget(s string) (Target, error) {
	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %q is not a number", ErrInvalidPid, s)
	}
	if n < 1 || n > math.MaxInt32 {
		return Target{}, fmt.Errorf("%w: %d", ErrInvalidPid, n)
	}
	return Target{pid: int(n)}, nil
}

// Pid 返回进程 ID
func (t Target) Pid() int {
	return t.pid
}

// Valid 报告 t 是否由构造函数创建
func (t Target) Valid() bool {
	return t.pid > 0
}

func (t Target) String() string {
	return strconv.Itoa(t.pid)
}
