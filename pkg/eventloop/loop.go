// Package eventloop provides the single-threaded task queue that every
// asynchronous source in go-companion delivers into.
//
// Timers, recognition events and host input never touch shared state
// directly. They post a task, and the loop runs tasks one at a time in the
// order they were posted. Ordering is FIFO per poster; there is no ordering
// guarantee between independent posters.
//
// Example usage:
//
//	loop := eventloop.New()
//	go loop.Run(ctx)
//
//	loop.Post(func() { fmt.Println("on the loop") })
//	loop.AfterFunc(time.Second, func() { fmt.Println("a second later") })
package eventloop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrStopped is returned when posting to a loop that has been stopped.
var ErrStopped = errors.New("eventloop: stopped")

// Loop is a single-threaded task queue.
// The queue is unbounded so a task may post follow-up tasks without blocking.
type Loop struct {
	clock  Clock
	logger *slog.Logger

	mu      sync.Mutex
	queue   []func()
	stopped bool

	wake chan struct{}
	done chan struct{}
}

// Option configures a Loop.
type Option func(*Loop)

// WithClock sets the clock used by AfterFunc and Now.
func WithClock(c Clock) Option {
	return func(l *Loop) {
		l.clock = c
	}
}

// WithLogger sets the structured logger for the loop.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// New creates a loop. It does nothing until Run or RunPending is called.
func New(opts ...Option) *Loop {
	l := &Loop{
		clock:  SystemClock(),
		logger: slog.Default().With("component", "eventloop"),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Post queues fn to run on the loop.
func (l *Loop) Post(fn func()) error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return ErrStopped
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// AfterFunc posts fn to the loop once d has elapsed on the loop's clock.
// A timer that fires after the loop stopped is dropped.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	return l.clock.AfterFunc(d, func() {
		if err := l.Post(fn); err != nil {
			l.logger.Debug("timer fired after loop stopped", "delay", d)
		}
	})
}

// Now returns the current time on the loop's clock.
func (l *Loop) Now() time.Time {
	return l.clock.Now()
}

// Run processes tasks until ctx is cancelled, then stops the loop.
// Only one goroutine may drive the loop at a time.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	defer l.Stop()

	for {
		l.RunPending()
		select {
		case <-ctx.Done():
			return nil
		case <-l.wake:
		}
	}
}

// RunPending runs queued tasks, including tasks they post, until the queue
// is empty. It returns the number of tasks run. Tests use it to drive the
// loop deterministically; it must not be called while Run is active.
func (l *Loop) RunPending() int {
	n := 0
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return n
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.run(fn)
		n++
	}
}

// Stop rejects further posts. Tasks already queued are discarded.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	l.stopped = true
	if len(l.queue) > 0 {
		l.logger.Debug("discarding queued tasks", "count", len(l.queue))
	}
	l.queue = nil
}

// Stopped reports whether the loop rejects new tasks.
func (l *Loop) Stopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// run executes one task. A panicking task is logged and the loop keeps going.
func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("task panicked", "panic", r)
		}
	}()
	fn()
}
