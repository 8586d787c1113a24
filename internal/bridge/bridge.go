// Package bridge runs resolver operations in the background and hands each
// outcome back to the context the caller invoked from.
package bridge

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cast"
	"norelock.dev/listenify/gateway/internal/models"
	"norelock.dev/listenify/gateway/internal/utils"
)

// Orchestrator is the set of resolver operations the bridge can dispatch to.
type Orchestrator interface {
	Search(ctx context.Context, query string) ([]models.TrackRecord, error)
	ListChannelItems(ctx context.Context, channelURL string) (*models.ChannelRecord, error)
	ResolveStream(ctx context.Context, videoID string) (*models.StreamResolution, error)
}

// Callback receives the outcome of one invocation.
type Callback func(Outcome)

// Recorder receives per-invocation measurements.
type Recorder interface {
	ObserveInvocation(op, result string, duration time.Duration)
	SetBridgeInFlight(n int)
}

// Options sizes the worker pool.
type Options struct {
	// Workers is the number of invocations running at once
	Workers int
	// QueueSize is the number of accepted invocations waiting for a worker
	QueueSize int
}

type task struct {
	id     string
	op     string
	args   map[string]any
	origin Executor
	cb     Callback
}

// Bridge dispatches operation names onto the orchestrator.
type Bridge struct {
	orch     Orchestrator
	logger   *utils.Logger
	recorder Recorder

	queue    chan task
	workers  *pool.Pool
	inFlight atomic.Int64

	mu       sync.RWMutex
	closed   bool
	stopOnce sync.Once
	stopped  chan struct{}
}

// New starts a bridge with opts.Workers workers.
func New(orch Orchestrator, opts Options, logger *utils.Logger, recorder Recorder) *Bridge {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueSize < 0 {
		opts.QueueSize = 0
	}
	if logger == nil {
		logger = utils.GetLogger()
	}

	b := &Bridge{
		orch:     orch,
		logger:   logger.Named("bridge"),
		recorder: recorder,
		queue:    make(chan task, opts.QueueSize),
		workers:  pool.New().WithMaxGoroutines(opts.Workers),
		stopped:  make(chan struct{}),
	}

	for i := 0; i < opts.Workers; i++ {
		b.workers.Go(b.work)
	}

	b.logger.Info("Bridge started", "workers", opts.Workers, "queue", opts.QueueSize)
	return b
}

// Invoke runs op with args in the background and posts cb with the outcome
// to origin. Missing or nil arguments read as "". Unknown operations are
// answered with a not-implemented outcome. Invoke blocks while the queue is
// full.
func (b *Bridge) Invoke(op string, args map[string]any, origin Executor, cb Callback) {
	_ = b.dispatch(context.Background(), op, args, origin, cb)
}

// dispatch queues the invocation. It gives up with ctx.Err() when ctx is
// done before a queue slot frees, in which case cb is never called.
func (b *Bridge) dispatch(ctx context.Context, op string, args map[string]any, origin Executor, cb Callback) error {
	if origin == nil {
		origin = Inline
	}

	if codeFor(op) == "" {
		b.logger.Debug("Unknown operation", "op", op)
		origin.Post(func() { cb(Outcome{NotImplemented: true}) })
		return nil
	}

	t := task{id: uuid.NewString(), op: op, args: args, origin: origin, cb: cb}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		origin.Post(func() { cb(Outcome{Err: newOperationError(op, ErrShutdown)}) })
		return nil
	}

	select {
	case b.queue <- t:
		b.mu.RUnlock()
		return nil
	case <-ctx.Done():
		b.mu.RUnlock()
		b.logger.Debug("Caller gave up while the queue was full", "op", op)
		return ctx.Err()
	}
}

// Call invokes op and waits for its outcome. The wait ends early when ctx
// is done, whether the invocation is still queued or already running. A
// running invocation keeps going.
func (b *Bridge) Call(ctx context.Context, op string, args map[string]any) (Outcome, error) {
	result := make(chan Outcome, 1)
	if err := b.dispatch(ctx, op, args, Inline, func(o Outcome) { result <- o }); err != nil {
		return Outcome{}, err
	}

	select {
	case o := <-result:
		return o, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Shutdown stops accepting invocations and waits for queued and running
// ones to finish or for ctx to be done. It may be called again after a
// timeout to keep waiting.
func (b *Bridge) Shutdown(ctx context.Context) error {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		close(b.queue)
		b.mu.Unlock()

		go func() {
			b.workers.Wait()
			b.logger.Info("Bridge stopped")
			close(b.stopped)
		}()
	})

	select {
	case <-b.stopped:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("bridge shutdown: %w", ctx.Err())
	}
}

// work drains the queue until it is closed.
func (b *Bridge) work() {
	for t := range b.queue {
		b.run(t)
	}
}

func (b *Bridge) run(t task) {
	b.trackInFlight(1)
	start := time.Now()
	logger := b.logger.With("invocation", t.id, "op", t.op)

	outcome := b.execute(t)

	result := "ok"
	if outcome.Err != nil {
		result = outcome.Err.Reason
		logger.Warn("Invocation failed", "code", outcome.Err.Code, "reason", outcome.Err.Reason, "message", outcome.Err.Message)
	} else {
		logger.Debug("Invocation completed", "duration", time.Since(start).String())
	}
	if b.recorder != nil {
		b.recorder.ObserveInvocation(t.op, result, time.Since(start))
	}
	b.trackInFlight(-1)

	t.origin.Post(func() { t.cb(outcome) })
}

// execute calls the orchestrator. Panics become errors of the operation.
func (b *Bridge) execute(t task) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Invocation panicked", fmt.Errorf("%v", r), "invocation", t.id, "op", t.op)
			out = Outcome{Err: &OperationError{
				Code:    codeFor(t.op),
				Message: fmt.Sprint(r),
				Reason:  ReasonInternal,
			}}
		}
	}()

	// Invocations are not cancelled by their caller
	ctx := context.Background()

	var (
		value any
		err   error
	)

	switch t.op {
	case OpSearch:
		value, err = b.orch.Search(ctx, stringArg(t.args, "query"))
	case OpGetStreamURL:
		var res *models.StreamResolution
		if res, err = b.orch.ResolveStream(ctx, stringArg(t.args, "id")); err == nil {
			value = res.URL
		}
	case OpGetChannelVideos:
		value, err = b.orch.ListChannelItems(ctx, stringArg(t.args, "channelUrl"))
	}

	if err != nil {
		return Outcome{Err: newOperationError(t.op, err)}
	}
	return Outcome{Value: value}
}

func (b *Bridge) trackInFlight(delta int64) {
	n := b.inFlight.Add(delta)
	if b.recorder != nil {
		b.recorder.SetBridgeInFlight(int(n))
	}
}

// stringArg reads args[key] as a string, "" when absent.
func stringArg(args map[string]any, key string) string {
	return cast.ToString(args[key])
}
