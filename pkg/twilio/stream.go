package twilio

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/kaelos-ai/voicebridge/pkg/errorsx"
)

// MediaStream wraps one accepted Twilio media-stream WebSocket. Reads happen
// on the caller's goroutine; writes are serialized through a pump goroutine
// so media, mark and clear frames leave in enqueue order.
type MediaStream struct {
	conn   *websocket.Conn
	sendCh chan []byte
	done   chan struct{}

	closeOnce sync.Once
}

func newMediaStream(conn *websocket.Conn) *MediaStream {
	s := &MediaStream{
		conn:   conn,
		sendCh: make(chan []byte, 256),
		done:   make(chan struct{}),
	}
	go s.writeLoop()
	return s
}

// ReadEvent blocks for the next frame from Twilio. A transport failure is
// reported with ReasonCallerClosed; an unparseable frame with
// ReasonMalformedEvent (the stream stays usable after the latter).
func (s *MediaStream) ReadEvent() (StreamEvent, error) {
	_, msg, err := s.conn.ReadMessage()
	if err != nil {
		return StreamEvent{}, errorsx.Wrap(err, errorsx.ReasonCallerClosed)
	}
	var evt StreamEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		return StreamEvent{}, errorsx.Wrap(err, errorsx.ReasonMalformedEvent)
	}
	if evt.Event == "" {
		return StreamEvent{}, errorsx.New(errorsx.ReasonMalformedEvent)
	}
	return evt, nil
}

// SendMedia forwards one base64 audio payload to the caller.
func (s *MediaStream) SendMedia(streamID, payload string) error {
	return s.enqueue(map[string]any{
		"event":     EventMedia,
		"streamSid": streamID,
		"media": map[string]any{
			"payload": payload,
		},
	})
}

// SendMark asks Twilio to echo a delivery marker once the preceding media
// frame has been played.
func (s *MediaStream) SendMark(streamID, name string) error {
	return s.enqueue(map[string]any{
		"event":     EventMark,
		"streamSid": streamID,
		"mark": map[string]any{
			"name": name,
		},
	})
}

// SendClear discards any audio Twilio has buffered but not yet played.
func (s *MediaStream) SendClear(streamID string) error {
	return s.enqueue(map[string]any{
		"event":     EventClear,
		"streamSid": streamID,
	})
}

func (s *MediaStream) enqueue(msg map[string]any) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonCallerSend)
	}
	select {
	case <-s.done:
		return errorsx.New(errorsx.ReasonCallerClosed)
	case s.sendCh <- b:
		return nil
	}
}

func (s *MediaStream) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.sendCh:
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				// A dead socket must not leave enqueuers parked on a
				// full channel.
				_ = s.Close()
				return
			}
		}
	}
}

// Close tears the stream down; safe to call from any goroutine and more than
// once. Closing also unblocks a pending ReadEvent.
func (s *MediaStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	return s.conn.Close()
}
