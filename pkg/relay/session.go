// Package relay is the duplex audio relay and interruption controller: it
// ties one telephony media stream to one realtime AI session, translates
// framed events between the two, tracks playback timing, and enforces
// at-most-one-in-flight-response semantics under caller barge-in.
package relay

import "sync"

// CallState is the shared mutable record for one call. Both relay
// goroutines hold a reference; every field is guarded by the one mutex so
// the interruption path can read the media clock concurrently with inbound
// writes without racing. Single-writer discipline still applies per field:
// streamID and the clock belong to the inbound relay, the utterance fields
// and mark queue to the outbound relay and the controller it invokes.
type CallState struct {
	mu sync.Mutex

	streamID string
	clock    Clock
	marks    MarkQueue

	phase            Phase
	activeItemID     string
	utteranceStartMS int64
}

func NewCallState() *CallState {
	return &CallState{}
}

// BeginStream records the stream identifier and resets the per-stream
// state. Twilio may re-establish the stream within one connection; nothing
// from the previous stream (clock, markers, active item) may leak across.
func (s *CallState) BeginStream(streamID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streamID = streamID
	s.clock.Reset()
	s.marks.Clear()
	s.phase = PhaseIdle
	s.activeItemID = ""
	s.utteranceStartMS = 0
}

// StreamID returns the identifier assigned by the start event, or empty
// before one arrives.
func (s *CallState) StreamID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamID
}

// ObserveMedia advances the media clock with an inbound chunk timestamp.
func (s *CallState) ObserveMedia(ms int64) {
	s.clock.Observe(ms)
}

// AcknowledgeMark pops the oldest pending delivery marker.
func (s *CallState) AcknowledgeMark() {
	s.marks.Acknowledge()
}

// EnqueueMark appends a delivery marker for an outbound chunk.
func (s *CallState) EnqueueMark() int {
	return s.marks.Enqueue()
}

// PendingMarks reports the number of unacknowledged outbound chunks.
func (s *CallState) PendingMarks() int {
	return s.marks.Len()
}

// Phase returns the controller phase.
func (s *CallState) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// ActiveItem returns the in-flight utterance id, or empty.
func (s *CallState) ActiveItem() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeItemID
}

func (s *CallState) transitionLocked(to Phase) error {
	if !transitionValid(s.phase, to) {
		return &InvalidTransitionError{From: s.phase, To: to}
	}
	s.phase = to
	return nil
}
