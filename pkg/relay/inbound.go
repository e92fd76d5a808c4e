package relay

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/kaelos-ai/voicebridge/pkg/errorsx"
	"github.com/kaelos-ai/voicebridge/pkg/logging"
	"github.com/kaelos-ai/voicebridge/pkg/twilio"
)

// InboundRelay consumes telephony events in arrival order, forwarding
// caller audio to the AI connection and keeping the media clock current.
type InboundRelay struct {
	st     *CallState
	caller CallerConn
	ai     AIConn
	logger *slog.Logger
}

func NewInboundRelay(st *CallState, caller CallerConn, ai AIConn, logger *slog.Logger) *InboundRelay {
	return &InboundRelay{
		st:     st,
		caller: caller,
		ai:     ai,
		logger: logging.NewComponentLogger(logger, "inbound_relay"),
	}
}

// Run processes events until the telephony side stops, the context is
// canceled, or a transport error occurs. A single malformed event never
// terminates the session; it is dropped with a diagnostic.
func (r *InboundRelay) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ev, err := r.caller.ReadEvent()
		if err != nil {
			if errorsx.HasReason(err, errorsx.ReasonMalformedEvent) {
				r.logger.Warn("caller_event_malformed",
					"reason_code", string(errorsx.ReasonMalformedEvent),
					"error", err.Error())
				continue
			}
			return err
		}

		switch ev.Event {
		case twilio.EventMedia:
			if ev.Media == nil || ev.Media.Payload == "" {
				r.logger.Warn("media_event_missing_payload",
					"reason_code", string(errorsx.ReasonMalformedEvent))
				continue
			}
			ts, perr := strconv.ParseInt(ev.Media.Timestamp, 10, 64)
			if perr != nil {
				r.logger.Warn("media_event_bad_timestamp",
					"reason_code", string(errorsx.ReasonMalformedEvent),
					"timestamp", ev.Media.Timestamp)
				continue
			}
			r.st.ObserveMedia(ts)
			if err := r.ai.AppendAudio(ev.Media.Payload); err != nil {
				return err
			}
		case twilio.EventStart:
			if ev.Start == nil || ev.Start.StreamID == "" {
				r.logger.Warn("start_event_missing_stream_id",
					"reason_code", string(errorsx.ReasonMalformedEvent))
				continue
			}
			r.st.BeginStream(ev.Start.StreamID)
			r.logger.Info("stream_started",
				"stream_sid", ev.Start.StreamID, "call_sid", ev.Start.CallSID)
		case twilio.EventMark:
			r.st.AcknowledgeMark()
		case twilio.EventStop:
			r.logger.Info("stream_stopped", "stream_sid", r.st.StreamID())
			return nil
		case twilio.EventConnected:
			r.logger.Debug("stream_connected")
		default:
			r.logger.Debug("caller_event_ignored", "event", ev.Event)
		}
	}
}
