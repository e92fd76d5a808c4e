package relay

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/kaelos-ai/voicebridge/pkg/errorsx"
	"github.com/kaelos-ai/voicebridge/pkg/twilio"
)

func TestCoordinatorTearsDownBothSidesOnCallerStop(t *testing.T) {
	ai := newStubAI()
	dial := func(ctx context.Context) (AIConn, error) { return ai, nil }
	c := NewCoordinator(dial, CoordinatorOptions{}, slog.Default())

	caller := newStubCaller()
	caller.push(startEvent("MZ1"))
	caller.push(mediaEvent("0", "AAAA"))
	caller.push(twilio.StreamEvent{Event: twilio.EventStop})

	done := make(chan struct{})
	go func() {
		c.Run(context.Background(), caller)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("coordinator did not finish after caller stop")
	}

	ai.mu.Lock()
	closed, updates := ai.closed, ai.sessionUpdates
	ai.mu.Unlock()
	if !closed {
		t.Fatalf("expected AI connection closed")
	}
	if updates != 1 {
		t.Fatalf("expected exactly one session update, got %d", updates)
	}
	caller.mu.Lock()
	callerClosed := caller.closed
	caller.mu.Unlock()
	if !callerClosed {
		t.Fatalf("expected caller connection closed")
	}
	got := ai.appended()
	if len(got) != 1 || got[0] != "AAAA" {
		t.Fatalf("expected caller audio relayed before stop, got %v", got)
	}
}

func TestCoordinatorTearsDownWhenAISideCloses(t *testing.T) {
	ai := newStubAI()
	_ = ai.Close() // AI drops immediately after dial
	dial := func(ctx context.Context) (AIConn, error) { return ai, nil }
	c := NewCoordinator(dial, CoordinatorOptions{}, slog.Default())

	caller := newStubCaller()
	caller.push(startEvent("MZ1"))
	// No stop event: only the AI-side failure can end the call.

	done := make(chan struct{})
	go func() {
		c.Run(context.Background(), caller)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("coordinator did not propagate AI-side close")
	}
	caller.mu.Lock()
	closed := caller.closed
	caller.mu.Unlock()
	if !closed {
		t.Fatalf("expected caller connection closed after AI-side close")
	}
}

func TestCoordinatorDialFailureIsFatalForTheCall(t *testing.T) {
	dial := func(ctx context.Context) (AIConn, error) {
		return nil, errorsx.New(errorsx.ReasonAIConnect)
	}
	c := NewCoordinator(dial, CoordinatorOptions{}, slog.Default())

	caller := newStubCaller()
	// Must return promptly without touching the caller stream.
	c.Run(context.Background(), caller)
	if len(caller.frames()) != 0 {
		t.Fatalf("expected no frames after failed dial, got %+v", caller.frames())
	}
}

func TestCoordinatorSendsGreetingWhenConfigured(t *testing.T) {
	ai := newStubAI()
	_ = ai.Close()
	dial := func(ctx context.Context) (AIConn, error) { return ai, nil }
	c := NewCoordinator(dial, CoordinatorOptions{Greeting: "Greet the caller."}, slog.Default())

	caller := newStubCaller()
	caller.push(twilio.StreamEvent{Event: twilio.EventStop})
	c.Run(context.Background(), caller)

	ai.mu.Lock()
	greetings := append([]string(nil), ai.greetings...)
	ai.mu.Unlock()
	if len(greetings) != 1 || greetings[0] != "Greet the caller." {
		t.Fatalf("expected one greeting, got %v", greetings)
	}
}
