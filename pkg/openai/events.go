package openai

// Server event types the relay reacts to. Everything else from the realtime
// endpoint is logged when listed in logEventTypes and otherwise ignored.
const (
	EventAudioDelta    = "response.audio.delta"
	EventSpeechStarted = "input_audio_buffer.speech_started"
	EventResponseDone  = "response.done"
	EventError         = "error"
)

var logEventTypes = map[string]struct{}{
	"error":                             {},
	"response.content.done":             {},
	"rate_limits.updated":               {},
	"response.done":                     {},
	"input_audio_buffer.committed":      {},
	"input_audio_buffer.speech_stopped": {},
	"input_audio_buffer.speech_started": {},
	"session.created":                   {},
	"session.updated":                   {},
}

// Loggable reports whether an event type belongs to the session-lifecycle
// set worth surfacing in logs.
func Loggable(eventType string) bool {
	_, ok := logEventTypes[eventType]
	return ok
}

type ServerError struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// ServerEvent is one message from the realtime endpoint. Only the fields the
// relay consumes are mapped; unknown fields are dropped by the decoder.
type ServerEvent struct {
	Type   string       `json:"type"`
	Delta  string       `json:"delta,omitempty"`
	ItemID string       `json:"item_id,omitempty"`
	Error  *ServerError `json:"error,omitempty"`
}
