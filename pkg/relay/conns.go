package relay

import (
	"github.com/kaelos-ai/voicebridge/pkg/openai"
	"github.com/kaelos-ai/voicebridge/pkg/twilio"
)

// AIConn is the realtime AI side of one call.
type AIConn interface {
	ReadEvent() (openai.ServerEvent, error)
	SendSessionUpdate() error
	SendInitialGreeting(text string) error
	AppendAudio(payload string) error
	Truncate(itemID string, audioEndMS int64) error
	Close() error
}

// CallerConn is the telephony media-stream side of one call.
type CallerConn interface {
	ReadEvent() (twilio.StreamEvent, error)
	SendMedia(streamID, payload string) error
	SendMark(streamID, name string) error
	SendClear(streamID string) error
	Close() error
}

var _ AIConn = (*openai.Conn)(nil)
var _ CallerConn = (*twilio.MediaStream)(nil)
