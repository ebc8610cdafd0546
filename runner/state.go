package runner

// State 是等待过程所处的阶段
//
//	Unattached → CapabilityChecked → Attached → Watching → ExitObserved → StatusExtracted
//	                                              └──────→ Detached
type State int

const (
	StateUnattached State = iota
	StateCapabilityChecked
	StateAttached
	StateWatching
	StateExitObserved
	StateStatusExtracted
	StateDetached
)

var stateString = []string{
	"unattached",
	"capability-checked",
	"attached",
	"watching",
	"exit-observed",
	"status-extracted",
	"detached",
}

func (s State) String() string {
	i := int(s)
	if i >= 0 && i < len(stateString) {
		return stateString[i]
	}
	return "unknown"
}

// Terminal 报告该阶段之后是否不再有任何转换
func (s State) Terminal() bool {
	return s == StateStatusExtracted || s == StateDetached
}

// CanTransition 报告 s → next 是否合法
func (s State) CanTransition(next State) bool {
	switch s {
	case StateUnattached:
		return next == StateCapabilityChecked
	case StateCapabilityChecked:
		return next == StateAttached
	case StateAttached:
		return next == StateWatching
	case StateWatching:
		return next == StateExitObserved || next == StateDetached
	case StateExitObserved:
		return next == StateStatusExtracted
	}
	return false
}
