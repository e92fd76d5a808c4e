package twilio

// Media stream events exchanged over the Twilio WebSocket. Twilio frames
// every message as JSON with an "event" discriminator.
const (
	EventConnected = "connected"
	EventStart     = "start"
	EventMedia     = "media"
	EventMark      = "mark"
	EventStop      = "stop"
	EventClear     = "clear"
)

type StartPayload struct {
	CallSID  string `json:"callSid"`
	StreamID string `json:"streamSid"`
	From     string `json:"from"`
}

type MediaPayload struct {
	Track string `json:"track,omitempty"`
	Chunk string `json:"chunk,omitempty"`
	// Timestamp is milliseconds since stream start, sent as a string.
	Timestamp string `json:"timestamp,omitempty"`
	Payload   string `json:"payload"`
}

type MarkPayload struct {
	Name string `json:"name"`
}

type StopPayload struct {
	CallSID string `json:"callSid,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type StreamEvent struct {
	Event    string        `json:"event"`
	StreamID string        `json:"streamSid,omitempty"`
	Start    *StartPayload `json:"start,omitempty"`
	Media    *MediaPayload `json:"media,omitempty"`
	Mark     *MarkPayload  `json:"mark,omitempty"`
	Stop     *StopPayload  `json:"stop,omitempty"`
}
