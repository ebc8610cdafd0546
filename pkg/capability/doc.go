// Package capability 确保当前进程持有跟踪任意进程所需的 CAP_SYS_PTRACE。
//
// 非特权用户运行时，CAP_SYS_PTRACE 需要在安装阶段以文件能力的形式赋予
// 可执行文件（例如 setcap cap_sys_ptrace+p），此时它位于 Permitted 集合中，
// Negotiator 负责把它提升到 Effective 集合。
//
// 能力的读取和设置使用 libcap 的 Go 实现，设置会作用于 Go 进程的所有 OS 线程，
// 这一点很重要：ptrace 请求由一个专用线程发出，而它不一定是协商能力的线程。
package capability
