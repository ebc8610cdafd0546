package capability

import (
	"errors"
	"fmt"

	"kernel.org/pub/linux/libs/security/libcap/cap"
)

// State 是单个能力的三态
type State int

const (
	// StateUnavailable 不受支持或不允许提升
	StateUnavailable State = iota
	// StateRaisable 位于 Permitted 集合但尚未生效
	StateRaisable
	// StateHeld 已位于 Effective 集合
	StateHeld
)

func (s State) String() string {
	switch s {
	case StateHeld:
		return "held"
	case StateRaisable:
		return "raisable"
	default:
		return "unavailable"
	}
}

// Logger 是协商过程的诊断输出，*slog.Logger 满足该接口
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Set 是进程能力集合的最小视图，*cap.Set 满足该接口
type Set interface {
	GetFlag(vec cap.Flag, val cap.Value) (bool, error)
	SetFlag(vec cap.Flag, enable bool, val ...cap.Value) error
	SetProc() error
}

var errGetProc = errors.New("getting capabilities of this process failed")

// Negotiator 确保当前进程持有 Value 指定的能力
type Negotiator struct {
	Logger Logger
	Value  cap.Value

	getProc func() Set
	maxBits func() cap.Value
}

// NewPtrace 返回协商 CAP_SYS_PTRACE 的 Negotiator
func NewPtrace(l Logger) *Negotiator {
	return &Negotiator{
		Logger:  l,
		Value:   cap.SYS_PTRACE,
		getProc: procSet,
		maxBits: cap.MaxBits,
	}
}

func procSet() Set {
	c := cap.GetProc()
	if c == nil {
		return nil
	}
	return c
}

// Probe 返回能力当前所处的状态，以及读取到的进程能力集合
func (n *Negotiator) Probe() (State, Set, error) {
	if n.Value >= n.maxBits() {
		n.Logger.Warn("capability is not supported by the kernel", "capability", n.Value)
		return StateUnavailable, nil, nil
	}

	set := n.getProc()
	if set == nil {
		return StateUnavailable, nil, errGetProc
	}

	effective, err := set.GetFlag(cap.Effective, n.Value)
	if err != nil {
		return StateUnavailable, set, fmt.Errorf("checking effective capabilities failed: %w", err)
	}
	if effective {
		return StateHeld, set, nil
	}

	permitted, err := set.GetFlag(cap.Permitted, n.Value)
	if err != nil {
		return StateUnavailable, set, fmt.Errorf("checking permitted capabilities failed: %w", err)
	}
	if permitted {
		return StateRaisable, set, nil
	}
	return StateUnavailable, set, nil
}

/*
	Ensure 尽力确保进程持有能力

按顺序执行：
 1. 检查内核是否支持该能力
 2. 检查是否已在 Effective 集合中，是则直接成功
 3. 检查是否在 Permitted 集合中，否则失败
 4. 将其提升到 Effective 集合（作用于所有线程）
 5. 重新读取进程能力并报告结果

每一步的失败都只结束该步骤，并以 false 返回，同时输出诊断信息。
*/
func (n *Negotiator) Ensure() bool {
	state, set, err := n.Probe()
	if err != nil {
		n.Logger.Warn(err.Error(), "capability", n.Value)
		return false
	}
	switch state {
	case StateHeld:
		n.Logger.Info("process has capability", "capability", n.Value)
		return true
	case StateUnavailable:
		if set != nil {
			n.Logger.Info("process does not have capability", "capability", n.Value)
			n.Logger.Warn("process is not permitted to acquire capability", "capability", n.Value)
		}
		return false
	}

	n.Logger.Info("process does not have capability", "capability", n.Value)
	n.Logger.Info("process is permitted to acquire capability", "capability", n.Value)

	if err := set.SetFlag(cap.Effective, true, n.Value); err != nil {
		n.Logger.Warn("modifying capability set failed", "capability", n.Value, "error", err)
		return false
	}
	if err := set.SetProc(); err != nil {
		n.Logger.Warn("setting capability failed", "capability", n.Value, "error", err)
		return false
	}

	// 重新读取，而不是相信内存中的集合
	after := n.getProc()
	if after == nil {
		n.Logger.Warn(errGetProc.Error(), "capability", n.Value)
		return false
	}
	effective, err := after.GetFlag(cap.Effective, n.Value)
	if err != nil {
		n.Logger.Warn("checking effective capabilities failed", "capability", n.Value, "error", err)
		return false
	}
	if effective {
		n.Logger.Info("process has capability", "capability", n.Value)
	} else {
		n.Logger.Warn("process does not have capability", "capability", n.Value)
	}
	return effective
}
