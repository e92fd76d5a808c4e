package runner

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubDrainer struct {
	calls int
	err   error
	block chan struct{}
}

func (d *stubDrainer) Drain() error {
	d.calls++
	if d.block != nil {
		<-d.block
	}
	return d.err
}

func TestRunDrainsAfterContextEnd(t *testing.T) {
	d := &stubDrainer{}
	l := New(d, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Run(ctx); err != nil {
		t.Fatalf("run error: %v", err)
	}
	if d.calls != 1 {
		t.Fatalf("expected one drain, got %d", d.calls)
	}
	if l.State() != StateStopped {
		t.Fatalf("expected stopped, got %s", l.State())
	}
}

func TestShutdownPropagatesDrainError(t *testing.T) {
	d := &stubDrainer{err: errors.New("store close failed")}
	l := New(d, time.Second)
	if err := l.Shutdown(); err == nil || err.Error() != "store close failed" {
		t.Fatalf("expected drain error, got %v", err)
	}
	// Repeated shutdowns report the cached outcome without draining again.
	if err := l.Shutdown(); err == nil {
		t.Fatalf("expected cached drain error")
	}
	if d.calls != 1 {
		t.Fatalf("expected one drain, got %d", d.calls)
	}
}

func TestShutdownEnforcesDrainDeadline(t *testing.T) {
	d := &stubDrainer{block: make(chan struct{})}
	l := New(d, 20*time.Millisecond)
	if err := l.Shutdown(); err == nil {
		t.Fatalf("expected deadline error for a stuck drain")
	}
	if l.State() != StateStopped {
		t.Fatalf("expected stopped after deadline, got %s", l.State())
	}
	close(d.block)
}

func TestRunRejectsSecondStart(t *testing.T) {
	l := New(&stubDrainer{}, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Run(ctx); err != nil {
		t.Fatalf("run error: %v", err)
	}
	if err := l.Run(ctx); err == nil {
		t.Fatalf("expected error on second run")
	}
}
