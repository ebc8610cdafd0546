//go:build linux && (386 || arm)

package ptracer

// sigchld 是 SIGCHLD 形式的 siginfo_t 前缀
type sigchld struct {
	Signo  int32
	Errno  int32
	Code   int32
	Pid    int32
	Uid    uint32
	Status int32
}
