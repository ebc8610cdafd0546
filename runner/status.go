package runner

// Status 是结果状态
type Status int

// 一次等待的结果状态
const (
	StatusInvalid Status = iota // 0 未初始化
	// 正常
	StatusNormal // 1 正常

	// 参数错误
	StatusInvalidArgument // 2 无效参数

	// 运行时错误
	StatusPrivilegeError  // 3 无法获得 CAP_SYS_PTRACE
	StatusAttachError     // 4 附加失败
	StatusWaitError       // 5 等待失败
	StatusExtractionError // 6 读取退出码失败

	// 被取消
	StatusDetached // 7 收到终止信号后已分离
)

var (
	statusString = []string{
		"invalid",
		"",
		"invalid argument",
		"insufficient privilege",
		"attach failed",
		"wait failed",
		"exit code extraction failed",
		"detached",
	}
)

func (t Status) String() string {
	i := int(t)
	if i >= 0 && i < len(statusString) {
		return statusString[i]
	}
	return statusString[0]
}

func (t Status) Error() string {
	return t.String()
}

// ExitCode 将状态映射为程序退出码
// 成功为 0，参数错误为 2，其余均为 1
func (t Status) ExitCode() int {
	switch t {
	case StatusNormal:
		return 0
	case StatusInvalidArgument:
		return 2
	default:
		return 1
	}
}
