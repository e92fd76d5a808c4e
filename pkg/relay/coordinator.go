package relay

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kaelos-ai/voicebridge/pkg/errorsx"
	"github.com/kaelos-ai/voicebridge/pkg/logging"
	"github.com/kaelos-ai/voicebridge/pkg/twilio"
)

// AIDialFunc opens the realtime AI connection for one call.
type AIDialFunc func(ctx context.Context) (AIConn, error)

type CoordinatorOptions struct {
	// Greeting, when set, makes the assistant speak first with this prompt.
	Greeting string
}

// Coordinator owns both connections' lifecycles for one call: it dials the
// AI endpoint on telephony accept, sends the session configuration, runs
// both relays concurrently, and tears everything down together when either
// side ends. A failed AI dial is fatal for the call; there is no retry.
type Coordinator struct {
	dial   AIDialFunc
	opts   CoordinatorOptions
	logger *slog.Logger
}

func NewCoordinator(dial AIDialFunc, opts CoordinatorOptions, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		dial:   dial,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "session_coordinator"),
	}
}

// HandleStream implements twilio.StreamHandler.
func (c *Coordinator) HandleStream(ctx context.Context, stream *twilio.MediaStream) {
	c.Run(ctx, stream)
}

// Run drives one call to completion over an already-accepted caller
// connection.
func (c *Coordinator) Run(ctx context.Context, caller CallerConn) {
	ai, err := c.dial(ctx)
	if err != nil {
		c.logger.Error("ai_dial_failed",
			"reason_code", string(errorsx.Reason(err)), "error", err.Error())
		return
	}
	defer func() { _ = ai.Close() }()

	if err := ai.SendSessionUpdate(); err != nil {
		c.logger.Error("session_update_failed", "error", err.Error())
		return
	}
	if c.opts.Greeting != "" {
		if err := ai.SendInitialGreeting(c.opts.Greeting); err != nil {
			c.logger.Error("initial_greeting_failed", "error", err.Error())
			return
		}
	}

	st := NewCallState()
	ctrl := NewController(st, ai, caller, c.logger)
	inbound := NewInboundRelay(st, caller, ai, c.logger)
	outbound := NewOutboundRelay(st, caller, ai, ctrl, c.logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() { errCh <- inbound.Run(runCtx) }()
	go func() { errCh <- outbound.Run(runCtx) }()

	first := <-errCh
	cancel()
	// Closing both connections unblocks the peer relay's pending read.
	_ = ai.Close()
	_ = caller.Close()
	second := <-errCh

	c.logSessionEnd(first)
	c.logSessionEnd(second)
}

func (c *Coordinator) logSessionEnd(err error) {
	switch {
	case err == nil:
		c.logger.Info("relay_finished")
	case errors.Is(err, context.Canceled):
		c.logger.Debug("relay_canceled")
	default:
		c.logger.Info("relay_closed",
			"reason_code", string(errorsx.Reason(err)), "error", err.Error())
	}
}
