package bridge

import (
	"context"
	"sync"
)

// Executor runs posted functions on the context that owns it.
type Executor interface {
	Post(fn func())
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(fn func())

// Post calls f(fn).
func (f ExecutorFunc) Post(fn func()) {
	f(fn)
}

// Inline runs posted functions immediately on the posting goroutine.
var Inline Executor = ExecutorFunc(func(fn func()) { fn() })

// Looper is a serial task loop. Everything posted to it runs one at a time
// on the goroutine that called Run, in posting order.
type Looper struct {
	tasks    chan func()
	done     chan struct{}
	stopOnce sync.Once
}

// NewLooper creates a looper whose queue holds buffer pending tasks.
func NewLooper(buffer int) *Looper {
	return &Looper{
		tasks: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// Post enqueues fn. It blocks while the queue is full and drops fn once the
// loop has stopped.
func (l *Looper) Post(fn func()) {
	select {
	case <-l.done:
		return
	default:
	}

	select {
	case l.tasks <- fn:
	case <-l.done:
	}
}

// Run executes posted tasks until ctx is done. Tasks still queued at that
// point are discarded.
func (l *Looper) Run(ctx context.Context) error {
	defer l.stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Done is closed once Run has returned.
func (l *Looper) Done() <-chan struct{} {
	return l.done
}

func (l *Looper) stop() {
	l.stopOnce.Do(func() { close(l.done) })
}
