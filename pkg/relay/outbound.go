package relay

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/kaelos-ai/voicebridge/pkg/errorsx"
	"github.com/kaelos-ai/voicebridge/pkg/logging"
	"github.com/kaelos-ai/voicebridge/pkg/openai"
)

// markName is the delivery-marker label echoed back by Twilio. The value
// never identifies a specific chunk; acknowledgment is positional.
const markName = "responsePart"

// OutboundRelay consumes AI events in arrival order, forwarding synthesized
// audio to the telephony connection and driving the interruption controller.
// Frames leave in event order: media, then its marker, with the truncation
// sequence injected in between only by the controller.
type OutboundRelay struct {
	st     *CallState
	caller CallerConn
	ai     AIConn
	ctrl   *Controller
	logger *slog.Logger
}

func NewOutboundRelay(st *CallState, caller CallerConn, ai AIConn, ctrl *Controller, logger *slog.Logger) *OutboundRelay {
	return &OutboundRelay{
		st:     st,
		caller: caller,
		ai:     ai,
		ctrl:   ctrl,
		logger: logging.NewComponentLogger(logger, "outbound_relay"),
	}
}

// Run processes events until the AI side closes, reports an error event, or
// the context is canceled. Malformed events are dropped with a diagnostic.
func (r *OutboundRelay) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ev, err := r.ai.ReadEvent()
		if err != nil {
			if errorsx.HasReason(err, errorsx.ReasonMalformedEvent) {
				r.logger.Warn("ai_event_malformed",
					"reason_code", string(errorsx.ReasonMalformedEvent),
					"error", err.Error())
				continue
			}
			return err
		}

		if openai.Loggable(ev.Type) {
			r.logger.Debug("ai_event", "type", ev.Type)
		}

		switch ev.Type {
		case openai.EventAudioDelta:
			if err := r.relayAudioDelta(ev); err != nil {
				return err
			}
		case openai.EventSpeechStarted:
			r.ctrl.OnSpeechStarted()
		case openai.EventResponseDone:
			r.ctrl.OnUtteranceDone()
		case openai.EventError:
			msg := "unknown"
			if ev.Error != nil {
				msg = ev.Error.Message
			}
			r.logger.Error("ai_error_event", "message", msg)
			return errorsx.Wrap(fmt.Errorf("realtime error event: %s", msg), errorsx.ReasonAIClosed)
		}
	}
}

func (r *OutboundRelay) relayAudioDelta(ev openai.ServerEvent) error {
	if ev.Delta == "" {
		r.logger.Warn("audio_delta_missing_payload",
			"reason_code", string(errorsx.ReasonMalformedEvent))
		return nil
	}
	payload, err := normalizePayload(ev.Delta)
	if err != nil {
		r.logger.Warn("audio_delta_bad_encoding",
			"reason_code", string(errorsx.ReasonMalformedEvent),
			"error", err.Error())
		return nil
	}
	streamID := r.st.StreamID()
	if streamID == "" {
		// Audio before the start event has no frame to ride on.
		r.logger.Warn("audio_delta_before_stream_start")
		return nil
	}
	if err := r.caller.SendMedia(streamID, payload); err != nil {
		return err
	}
	r.ctrl.OnAudioDelta(ev.ItemID)
	r.st.EnqueueMark()
	if err := r.caller.SendMark(streamID, markName); err != nil {
		return err
	}
	return nil
}

// normalizePayload re-encodes the delta payload for the telephony side.
// Input and output codecs match (g711 ulaw both ways), so this is a
// pass-through that doubles as base64 validation.
func normalizePayload(delta string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(delta)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
