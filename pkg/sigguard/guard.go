// Package sigguard 在一段阻塞操作期间接管终止信号
//
// Go 的信号处理函数由运行时执行，用户代码只能通过 channel 收到信号，
// 因此回调运行在一个普通的 goroutine 中。回调应当只做一件小事
// （例如请求分离），更复杂的处理交给被中断的主流程。
package sigguard

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// DefaultSignals 是默认接管的终止信号
var DefaultSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}

// Guard 是一次信号接管
type Guard struct {
	ch   chan os.Signal
	quit chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// Install 开始接管 sigs（为空时使用 DefaultSignals），每收到一个信号调用一次 onSignal
func Install(onSignal func(os.Signal), sigs ...os.Signal) *Guard {
	if len(sigs) == 0 {
		sigs = DefaultSignals
	}
	g := &Guard{
		ch:   make(chan os.Signal, len(sigs)),
		quit: make(chan struct{}),
	}
	signal.Notify(g.ch, sigs...)

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		for {
			select {
			case sig := <-g.ch:
				onSignal(sig)
			case <-g.quit:
				return
			}
		}
	}()
	return g
}

// Restore 停止接管并恢复之前的处理方式，返回时回调不会再被调用。可重复调用
func (g *Guard) Restore() {
	g.once.Do(func() {
		signal.Stop(g.ch)
		close(g.quit)
		g.wg.Wait()
	})
}
