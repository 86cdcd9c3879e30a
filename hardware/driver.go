package hardware

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/c360/sensorstream/errors"
)

// Driver is the producer side of a sensor. Start launches the acquisition goroutine
// once the sensor is configured; Stop asks it to finish and waits for it.
type Driver interface {
	Start(ctx context.Context) error
	Stop() error
}

// Lifecycle tracks one acquisition goroutine: started and stopping flags that each
// move false to true once, and the wait group the goroutine runs under.
type Lifecycle struct {
	id       string
	name     string
	started  atomic.Bool
	stopping atomic.Bool

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	err       error
	startTime time.Time
	wg        sync.WaitGroup
}

// NewLifecycle creates the lifecycle of the named driver with a fresh instance id.
func NewLifecycle(name string) *Lifecycle {
	return &Lifecycle{
		id:   uuid.New().String(),
		name: name,
		done: make(chan struct{}),
	}
}

// ID returns the instance id.
func (l *Lifecycle) ID() string {
	return l.id
}

// Started reports whether Go ran.
func (l *Lifecycle) Started() bool {
	return l.started.Load()
}

// Stopping reports whether Stop was requested. Acquisition loops poll it.
func (l *Lifecycle) Stopping() bool {
	return l.stopping.Load()
}

// Done is closed once the acquisition goroutine returned.
func (l *Lifecycle) Done() <-chan struct{} {
	return l.done
}

// Err returns what the acquisition goroutine returned, once Done is closed.
func (l *Lifecycle) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Uptime returns how long the goroutine has been running, 0 before Go.
func (l *Lifecycle) Uptime() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.startTime.IsZero() {
		return 0
	}
	return time.Since(l.startTime)
}

// Go runs loop in the acquisition goroutine. The context handed to loop is
// cancelled by Stop or when ctx is done. Go can only be called once.
func (l *Lifecycle) Go(ctx context.Context, loop func(ctx context.Context) error) error {
	l.mu.Lock()
	if l.started.Load() {
		l.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyStarted, l.name, "Start", "lifecycle check")
	}
	// cancel is in place before Stop can observe started
	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.startTime = time.Now()
	l.started.Store(true)
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer close(l.done)
		defer cancel()

		err := loop(runCtx)

		l.mu.Lock()
		l.err = err
		l.mu.Unlock()
	}()

	return nil
}

// Stop sets the stopping flag, cancels the goroutine's context and waits for it
// up to timeout. A zero timeout waits indefinitely.
func (l *Lifecycle) Stop(timeout time.Duration) error {
	if !l.started.Load() {
		return errors.WrapInvalid(errors.ErrNotStarted, l.name, "Stop", "lifecycle check")
	}
	if !l.stopping.CompareAndSwap(false, true) {
		return errors.WrapInvalid(errors.ErrAlreadyStopped, l.name, "Stop", "lifecycle check")
	}

	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	if timeout <= 0 {
		l.wg.Wait()
		return nil
	}

	select {
	case <-l.done:
		return nil
	case <-time.After(timeout):
		return errors.WrapTransient(fmt.Errorf("stop timeout after %v", timeout),
			l.name, "Stop", "graceful shutdown")
	}
}

// Wait blocks until the acquisition goroutine returned and reports its error.
func (l *Lifecycle) Wait() error {
	l.wg.Wait()
	return l.Err()
}
