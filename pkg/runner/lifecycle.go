package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Lifecycle drives one serve-then-drain cycle. Run blocks until the context
// ends, drains, and reports the drain outcome. Shutdown may be called from
// another goroutine to force the same sequence early; the drain runs once
// and its outcome is cached for every caller.
type Lifecycle struct {
	drainer Drainer
	timeout time.Duration

	state atomic.Int32
	once  sync.Once
	err   error
}

func New(drainer Drainer, timeout time.Duration) *Lifecycle {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Lifecycle{drainer: drainer, timeout: timeout}
}

// Run serves until ctx is done, then drains. A Lifecycle runs once.
func (l *Lifecycle) Run(ctx context.Context) error {
	if !l.state.CompareAndSwap(int32(StateIdle), int32(StateServing)) {
		return fmt.Errorf("lifecycle already %s", l.State())
	}
	PrintBanner()
	<-ctx.Done()
	return l.Shutdown()
}

// Shutdown drains with the configured deadline. A drain that overruns the
// deadline is abandoned; its goroutine finishes on its own but the process
// stops waiting for it.
func (l *Lifecycle) Shutdown() error {
	l.once.Do(func() {
		l.state.Store(int32(StateDraining))
		if l.drainer != nil {
			done := make(chan error, 1)
			go func() { done <- l.drainer.Drain() }()
			select {
			case err := <-done:
				l.err = err
			case <-time.After(l.timeout):
				l.err = errors.New("drain deadline exceeded")
			}
		}
		l.state.Store(int32(StateStopped))
	})
	return l.err
}

func (l *Lifecycle) State() State {
	return State(l.state.Load())
}
