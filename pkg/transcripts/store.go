package transcripts

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Entry is one transcription status-callback delivery from the telephony
// provider. The payload is treated as opaque text; downstream consumers
// (lead extraction and the like) parse it on their own schedule.
type Entry struct {
	TranscriptionSID string
	CallSID          string
	Track            string
	Data             string
	Status           string
}

// Store appends transcript entries as JSON lines. It reuses the slog JSON
// handler as the line encoder so entries interleave cleanly with other
// JSONL artifacts.
type Store struct {
	mu     sync.Mutex
	logger *slog.Logger
	closer io.Closer
}

// Open creates (or appends to) a JSONL transcript file. An empty path yields
// a store that discards entries.
func Open(path string) (*Store, error) {
	if path == "" {
		return NewStore(nil), nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	st := NewStore(f)
	st.closer = f
	return st, nil
}

// NewStore wraps an arbitrary writer, mainly for tests.
func NewStore(w io.Writer) *Store {
	if w == nil {
		return &Store{logger: slog.New(slog.NewJSONHandler(io.Discard, nil))}
	}
	return &Store{logger: slog.New(slog.NewJSONHandler(w, nil))}
}

// Record appends one entry.
func (s *Store) Record(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.LogAttrs(context.TODO(), slog.LevelInfo, "transcript",
		slog.String("transcription_sid", e.TranscriptionSID),
		slog.String("call_sid", e.CallSID),
		slog.String("track", e.Track),
		slog.String("data", e.Data),
		slog.String("status", e.Status),
	)
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
