package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kaelos-ai/voicebridge/pkg/errorsx"
)

type fakeRealtime struct {
	upgrader websocket.Upgrader
	received chan map[string]any
	header   chan http.Header
	outbound [][]byte
}

func newFakeRealtime(outbound ...[]byte) *fakeRealtime {
	return &fakeRealtime{
		received: make(chan map[string]any, 16),
		header:   make(chan http.Header, 1),
		outbound: outbound,
	}
}

func (f *fakeRealtime) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.header <- r.Header.Clone()
	ws, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	for _, msg := range f.outbound {
		_ = ws.WriteMessage(websocket.TextMessage, msg)
	}
	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var decoded map[string]any
		if json.Unmarshal(msg, &decoded) == nil {
			f.received <- decoded
		}
	}
}

func dialFake(t *testing.T, f *fakeRealtime, cfg Config) (*Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(f)
	cfg.BaseURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, err := Dial(context.Background(), cfg)
	if err != nil {
		srv.Close()
		t.Fatalf("dial error: %v", err)
	}
	return conn, func() {
		_ = conn.Close()
		srv.Close()
	}
}

func recvMsg(t *testing.T, f *fakeRealtime) map[string]any {
	t.Helper()
	select {
	case msg := <-f.received:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for client message")
		return nil
	}
}

func TestDialSendsAuthHeaders(t *testing.T) {
	f := newFakeRealtime()
	conn, cleanup := dialFake(t, f, Config{APIKey: "sk-test"})
	defer cleanup()
	_ = conn

	header := <-f.header
	if got := header.Get("Authorization"); got != "Bearer sk-test" {
		t.Fatalf("unexpected authorization header: %q", got)
	}
	if got := header.Get("OpenAI-Beta"); got != "realtime=v1" {
		t.Fatalf("unexpected beta header: %q", got)
	}
}

func TestSessionUpdatePayload(t *testing.T) {
	f := newFakeRealtime()
	conn, cleanup := dialFake(t, f, Config{
		APIKey:       "sk-test",
		Instructions: "You are a leasing assistant.",
	})
	defer cleanup()

	if err := conn.SendSessionUpdate(); err != nil {
		t.Fatalf("session update error: %v", err)
	}
	msg := recvMsg(t, f)
	if msg["type"] != "session.update" {
		t.Fatalf("expected session.update, got %v", msg["type"])
	}
	session, _ := msg["session"].(map[string]any)
	if session == nil {
		t.Fatalf("missing session body: %v", msg)
	}
	if session["voice"] != "alloy" ||
		session["input_audio_format"] != "g711_ulaw" ||
		session["output_audio_format"] != "g711_ulaw" {
		t.Fatalf("unexpected session defaults: %v", session)
	}
	if session["instructions"] != "You are a leasing assistant." {
		t.Fatalf("instructions not forwarded: %v", session)
	}
	if session["temperature"] != 0.8 {
		t.Fatalf("expected default temperature 0.8, got %v", session["temperature"])
	}
	td, _ := session["turn_detection"].(map[string]any)
	if td == nil || td["type"] != "server_vad" {
		t.Fatalf("unexpected turn detection: %v", session)
	}
}

func TestAppendAudioAndTruncatePayloads(t *testing.T) {
	f := newFakeRealtime()
	conn, cleanup := dialFake(t, f, Config{APIKey: "sk-test"})
	defer cleanup()

	if err := conn.AppendAudio("cGF5bG9hZA=="); err != nil {
		t.Fatalf("append error: %v", err)
	}
	msg := recvMsg(t, f)
	if msg["type"] != "input_audio_buffer.append" || msg["audio"] != "cGF5bG9hZA==" {
		t.Fatalf("unexpected append payload: %v", msg)
	}

	if err := conn.Truncate("item-1", 250); err != nil {
		t.Fatalf("truncate error: %v", err)
	}
	msg = recvMsg(t, f)
	if msg["type"] != "conversation.item.truncate" ||
		msg["item_id"] != "item-1" ||
		msg["audio_end_ms"] != float64(250) ||
		msg["content_index"] != float64(0) {
		t.Fatalf("unexpected truncate payload: %v", msg)
	}
}

func TestReadEventParsesAndSurvivesMalformed(t *testing.T) {
	f := newFakeRealtime(
		[]byte(`{broken`),
		[]byte(`{"type":"response.audio.delta","delta":"AAAA","item_id":"item-1"}`),
	)
	conn, cleanup := dialFake(t, f, Config{APIKey: "sk-test"})
	defer cleanup()

	_, err := conn.ReadEvent()
	if err == nil || !errorsx.HasReason(err, errorsx.ReasonMalformedEvent) {
		t.Fatalf("expected malformed_event, got %v", err)
	}

	ev, err := conn.ReadEvent()
	if err != nil {
		t.Fatalf("read error after malformed frame: %v", err)
	}
	if ev.Type != EventAudioDelta || ev.Delta != "AAAA" || ev.ItemID != "item-1" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestLoggable(t *testing.T) {
	if !Loggable("session.created") {
		t.Fatalf("expected session.created loggable")
	}
	if Loggable("response.audio.delta") {
		t.Fatalf("audio deltas are not lifecycle events")
	}
}
