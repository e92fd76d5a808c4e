package relay

import (
	"log/slog"

	"github.com/kaelos-ai/voicebridge/pkg/errorsx"
	"github.com/kaelos-ai/voicebridge/pkg/logging"
)

type truncator interface {
	Truncate(itemID string, audioEndMS int64) error
}

type clearer interface {
	SendClear(streamID string) error
}

// Controller decides when caller speech preempts an in-flight AI utterance
// and issues the truncate/clear sequence. It runs on the outbound relay's
// goroutine; the shared CallState mutex covers its reads of the media clock
// against concurrent inbound writes.
type Controller struct {
	st     *CallState
	ai     truncator
	caller clearer
	logger *slog.Logger
}

func NewController(st *CallState, ai truncator, caller clearer, logger *slog.Logger) *Controller {
	return &Controller{
		st:     st,
		ai:     ai,
		caller: caller,
		logger: logging.NewComponentLogger(logger, "interrupt_controller"),
	}
}

// OnAudioDelta observes one audio delta of an AI utterance. The first delta
// of a new utterance moves IDLE to STREAMING and pins the utterance start to
// the media clock's current value. Later deltas may re-point the active item
// id; the start timestamp stays.
func (c *Controller) OnAudioDelta(itemID string) {
	c.st.mu.Lock()
	defer c.st.mu.Unlock()
	switch c.st.phase {
	case PhaseIdle:
		if itemID == "" {
			c.logger.Warn("audio_delta_without_item_id",
				"reason_code", string(errorsx.ReasonMalformedEvent))
			return
		}
		if err := c.st.transitionLocked(PhaseStreaming); err != nil {
			c.logger.Error("phase_transition_rejected", "error", err.Error())
			return
		}
		now, ok := c.st.clock.Now()
		if !ok {
			now = 0
		}
		c.st.activeItemID = itemID
		c.st.utteranceStartMS = now
		c.logger.Debug("utterance_started", "item_id", itemID, "start_ms", now)
	case PhaseStreaming:
		if itemID != "" && itemID != c.st.activeItemID {
			c.st.activeItemID = itemID
		}
	}
}

// OnSpeechStarted handles a caller-speech-start report from the AI side.
// With an utterance in flight it emits, in order, a truncate instruction to
// the AI connection and a clear instruction to the telephony connection,
// then resets the utterance state. Both sends are fire-and-forget; the
// controller never blocks the next utterance on an acknowledgment. Without
// an utterance in flight this is a no-op.
func (c *Controller) OnSpeechStarted() {
	c.st.mu.Lock()
	if c.st.phase != PhaseStreaming || c.st.activeItemID == "" {
		phase := c.st.phase
		c.st.mu.Unlock()
		c.logger.Debug("speech_started_ignored", "phase", phase.String())
		return
	}
	if err := c.st.transitionLocked(PhaseInterrupting); err != nil {
		c.st.mu.Unlock()
		c.logger.Error("phase_transition_rejected", "error", err.Error())
		return
	}
	itemID := c.st.activeItemID
	start := c.st.utteranceStartMS
	now, ok := c.st.clock.Now()
	if !ok {
		now = 0
	}
	elapsed := now - start
	if elapsed < 0 {
		c.logger.Warn("elapsed_time_clamped",
			"reason_code", string(errorsx.ReasonClockAnomaly),
			"now_ms", now, "start_ms", start)
		elapsed = 0
	}
	streamID := c.st.streamID
	pending := c.st.marks.Len()
	c.st.mu.Unlock()

	c.logger.Info("interrupting_utterance",
		"item_id", itemID, "audio_end_ms", elapsed, "pending_marks", pending)

	if err := c.ai.Truncate(itemID, elapsed); err != nil {
		c.logger.Warn("truncate_send_failed", "error", err.Error())
	}
	if err := c.caller.SendClear(streamID); err != nil {
		c.logger.Warn("clear_send_failed", "error", err.Error())
	}

	c.st.mu.Lock()
	c.st.marks.Clear()
	c.st.activeItemID = ""
	c.st.utteranceStartMS = 0
	if err := c.st.transitionLocked(PhaseIdle); err != nil {
		c.logger.Error("phase_transition_rejected", "error", err.Error())
	}
	c.st.mu.Unlock()
}

// OnUtteranceDone clears the active utterance when the AI reports the
// response finished. Pending markers stay queued; chunks already relayed
// are still awaiting playback acknowledgment.
func (c *Controller) OnUtteranceDone() {
	c.st.mu.Lock()
	defer c.st.mu.Unlock()
	if c.st.phase != PhaseStreaming {
		return
	}
	if err := c.st.transitionLocked(PhaseIdle); err != nil {
		c.logger.Error("phase_transition_rejected", "error", err.Error())
		return
	}
	c.logger.Debug("utterance_done", "item_id", c.st.activeItemID)
	c.st.activeItemID = ""
	c.st.utteranceStartMS = 0
}
