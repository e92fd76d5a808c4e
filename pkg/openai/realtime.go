package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/kaelos-ai/voicebridge/pkg/configutil"
	"github.com/kaelos-ai/voicebridge/pkg/errorsx"
)

const defaultBaseURL = "wss://api.openai.com/v1/realtime"

type Config struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`

	Voice             string   `mapstructure:"voice"`
	Temperature       *float64 `mapstructure:"temperature"`
	InputAudioFormat  string   `mapstructure:"input_audio_format"`
	OutputAudioFormat string   `mapstructure:"output_audio_format"`
	TurnDetection     string   `mapstructure:"turn_detection"`

	// Instructions is the assembled system prompt, opaque to this package.
	Instructions string `mapstructure:"-"`
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Model == "" {
		c.Model = "gpt-4o-realtime-preview-2025-06-03"
	}
	if c.Voice == "" {
		c.Voice = "alloy"
	}
	if c.InputAudioFormat == "" {
		c.InputAudioFormat = "g711_ulaw"
	}
	if c.OutputAudioFormat == "" {
		c.OutputAudioFormat = "g711_ulaw"
	}
	if c.TurnDetection == "" {
		c.TurnDetection = "server_vad"
	}
	return c
}

// Conn is one realtime session over a WebSocket. Reads happen on a single
// goroutine; writes may come from both relay goroutines and are serialized
// with a mutex (gorilla permits one concurrent writer).
type Conn struct {
	cfg  Config
	ws   *websocket.Conn
	wrMu sync.Mutex

	closeOnce sync.Once
}

// Dial opens the realtime WebSocket. A failed dial is fatal for the call;
// the coordinator never retries it.
func Dial(ctx context.Context, cfg Config) (*Conn, error) {
	cfg = cfg.withDefaults()
	header := http.Header{}
	header.Set("Authorization", "Bearer "+cfg.APIKey)
	header.Set("OpenAI-Beta", "realtime=v1")
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, cfg.BaseURL+"?model="+cfg.Model, header)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return nil, errorsx.Wrap(err, errorsx.ReasonAIConnect)
	}
	return &Conn{cfg: cfg, ws: ws}, nil
}

// ReadEvent blocks for the next server event. Transport failures carry
// ReasonAIClosed; an unparseable message carries ReasonMalformedEvent and
// leaves the connection usable.
func (c *Conn) ReadEvent() (ServerEvent, error) {
	_, msg, err := c.ws.ReadMessage()
	if err != nil {
		return ServerEvent{}, errorsx.Wrap(err, errorsx.ReasonAIClosed)
	}
	var evt ServerEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		return ServerEvent{}, errorsx.Wrap(err, errorsx.ReasonMalformedEvent)
	}
	if evt.Type == "" {
		return ServerEvent{}, errorsx.New(errorsx.ReasonMalformedEvent)
	}
	return evt, nil
}

// SendSessionUpdate configures the session once after dialing: voice, codec
// identifiers, system instructions and turn-detection mode.
func (c *Conn) SendSessionUpdate() error {
	return c.send(map[string]any{
		"type": "session.update",
		"session": map[string]any{
			"turn_detection":      map[string]any{"type": c.cfg.TurnDetection},
			"input_audio_format":  c.cfg.InputAudioFormat,
			"output_audio_format": c.cfg.OutputAudioFormat,
			"voice":               c.cfg.Voice,
			"instructions":        c.cfg.Instructions,
			"modalities":          []string{"text", "audio"},
			"temperature":         configutil.Float64Value(c.cfg.Temperature, 0.8),
		},
	})
}

// AppendAudio forwards one base64 caller audio chunk into the input buffer.
func (c *Conn) AppendAudio(payload string) error {
	return c.send(map[string]any{
		"type":  "input_audio_buffer.append",
		"audio": payload,
	})
}

// Truncate tells the endpoint how much of the named utterance was actually
// heard, so its transcript of its own speech matches reality.
func (c *Conn) Truncate(itemID string, audioEndMS int64) error {
	return c.send(map[string]any{
		"type":          "conversation.item.truncate",
		"item_id":       itemID,
		"content_index": 0,
		"audio_end_ms":  audioEndMS,
	})
}

// SendInitialGreeting injects a user item prompting the assistant to speak
// first, then asks for a response.
func (c *Conn) SendInitialGreeting(text string) error {
	err := c.send(map[string]any{
		"type": "conversation.item.create",
		"item": map[string]any{
			"type": "message",
			"role": "user",
			"content": []map[string]any{
				{"type": "input_text", "text": text},
			},
		},
	})
	if err != nil {
		return err
	}
	return c.send(map[string]any{"type": "response.create"})
}

func (c *Conn) send(msg map[string]any) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonAISend)
	}
	c.wrMu.Lock()
	defer c.wrMu.Unlock()
	if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonAISend)
	}
	return nil
}

// Close shuts the connection down; safe from any goroutine, unblocks a
// pending ReadEvent.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.ws.Close()
	})
	return err
}
