package relay

import (
	"sync"

	"github.com/kaelos-ai/voicebridge/pkg/errorsx"
	"github.com/kaelos-ai/voicebridge/pkg/openai"
	"github.com/kaelos-ai/voicebridge/pkg/twilio"
)

type truncateCall struct {
	itemID string
	endMS  int64
}

type stubAI struct {
	mu             sync.Mutex
	events         chan openai.ServerEvent
	appends        []string
	truncates      []truncateCall
	sessionUpdates int
	greetings      []string
	closed         bool
	closeOnce      sync.Once
}

func newStubAI() *stubAI {
	return &stubAI{events: make(chan openai.ServerEvent, 64)}
}

func (a *stubAI) push(ev openai.ServerEvent) { a.events <- ev }

func (a *stubAI) ReadEvent() (openai.ServerEvent, error) {
	ev, ok := <-a.events
	if !ok {
		return openai.ServerEvent{}, errorsx.New(errorsx.ReasonAIClosed)
	}
	return ev, nil
}

func (a *stubAI) SendSessionUpdate() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessionUpdates++
	return nil
}

func (a *stubAI) SendInitialGreeting(text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.greetings = append(a.greetings, text)
	return nil
}

func (a *stubAI) AppendAudio(payload string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.appends = append(a.appends, payload)
	return nil
}

func (a *stubAI) Truncate(itemID string, audioEndMS int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.truncates = append(a.truncates, truncateCall{itemID: itemID, endMS: audioEndMS})
	return nil
}

func (a *stubAI) Close() error {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		a.mu.Unlock()
		close(a.events)
	})
	return nil
}

func (a *stubAI) appended() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.appends...)
}

func (a *stubAI) truncated() []truncateCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]truncateCall(nil), a.truncates...)
}

type sentFrame struct {
	kind     string // "media", "mark", "clear"
	streamID string
	payload  string
	name     string
}

type stubCaller struct {
	mu        sync.Mutex
	events    chan twilio.StreamEvent
	sent      []sentFrame
	closed    bool
	closeOnce sync.Once
}

func newStubCaller() *stubCaller {
	return &stubCaller{events: make(chan twilio.StreamEvent, 64)}
}

func (c *stubCaller) push(ev twilio.StreamEvent) { c.events <- ev }

func (c *stubCaller) ReadEvent() (twilio.StreamEvent, error) {
	ev, ok := <-c.events
	if !ok {
		return twilio.StreamEvent{}, errorsx.New(errorsx.ReasonCallerClosed)
	}
	return ev, nil
}

func (c *stubCaller) SendMedia(streamID, payload string) error {
	c.record(sentFrame{kind: "media", streamID: streamID, payload: payload})
	return nil
}

func (c *stubCaller) SendMark(streamID, name string) error {
	c.record(sentFrame{kind: "mark", streamID: streamID, name: name})
	return nil
}

func (c *stubCaller) SendClear(streamID string) error {
	c.record(sentFrame{kind: "clear", streamID: streamID})
	return nil
}

func (c *stubCaller) record(f sentFrame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, f)
}

func (c *stubCaller) frames() []sentFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sentFrame(nil), c.sent...)
}

func (c *stubCaller) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.events)
	})
	return nil
}

var _ AIConn = (*stubAI)(nil)
var _ CallerConn = (*stubCaller)(nil)
