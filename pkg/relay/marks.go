package relay

import "sync"

// MarkQueue correlates outbound audio chunks with Twilio's playback
// acknowledgments. One marker is enqueued per media frame sent and the
// oldest is popped per mark event received. Marker identity never
// round-trips over the wire; position-based FIFO is enough because frames
// ride a single ordered transport.
type MarkQueue struct {
	mu      sync.Mutex
	pending []int
	next    int
}

// Enqueue appends one marker and returns its sequence number.
func (q *MarkQueue) Enqueue() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	seq := q.next
	q.next++
	q.pending = append(q.pending, seq)
	return seq
}

// Acknowledge pops the oldest marker. A spurious acknowledgment against an
// empty queue is a no-op; the queue never goes negative.
func (q *MarkQueue) Acknowledge() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return
	}
	q.pending = q.pending[1:]
}

// Clear drops all pending markers; used when an utterance is truncated so
// no marker survives into the next one.
func (q *MarkQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = q.pending[:0]
}

// Len reports the number of chunks sent but not yet acknowledged.
func (q *MarkQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
