// Package stabilizer turns noisy per-frame sign predictions into a stable
// "currently held" sign.
package stabilizer

import (
	"sync"
	"time"
)

// DefaultMaxEntries caps a stream when no limit is configured.
const DefaultMaxEntries = 1024

// Prediction is one classified label and the time it was produced.
type Prediction struct {
	Label string    `json:"label"`
	At    time.Time `json:"at"`
}

// StreamConfig bounds a Stream.
type StreamConfig struct {
	// MaxAge bounds how far back entries are kept. Zero disables age eviction.
	MaxAge time.Duration
	// MaxEntries drops the oldest entries beyond this count.
	MaxEntries int
	// Now is the clock used for appends and eviction. Defaults to time.Now.
	Now func() time.Time
}

// Stream is a time-ordered, append-only sequence of predictions.
// Entries are never mutated: they are appended, evicted, or cleared together.
// It is safe for concurrent use.
type Stream struct {
	mu         sync.Mutex
	entries    []Prediction
	maxAge     time.Duration
	maxEntries int
	now        func() time.Time
}

// NewStream creates an empty Stream.
func NewStream(cfg StreamConfig) *Stream {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Stream{
		maxAge:     cfg.MaxAge,
		maxEntries: cfg.MaxEntries,
		now:        cfg.Now,
	}
}

// Append records label at the current time.
func (s *Stream) Append(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.entries = append(s.entries, Prediction{Label: label, At: now})
	s.evictLocked(now)
}

// AppendAt records label with an explicit timestamp. Timestamps need not be
// monotonic.
func (s *Stream) AppendAt(label string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, Prediction{Label: label, At: at})
	s.evictLocked(s.now())
}

// Snapshot returns a copy of the live entries, oldest first.
func (s *Stream) Snapshot() []Prediction {
	entries, _ := s.snapshot()
	return entries
}

// snapshot also returns the clock reading the copy was evicted against.
func (s *Stream) snapshot() ([]Prediction, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictLocked(now)
	return append([]Prediction(nil), s.entries...), now
}

// Len returns the number of live entries.
func (s *Stream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictLocked(s.now())
	return len(s.entries)
}

// Clear removes every entry.
func (s *Stream) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

// Now returns the stream's clock reading.
func (s *Stream) Now() time.Time {
	return s.now()
}

// evictLocked drops every entry positioned before the newest entry older than
// maxAge. That entry is kept: a scan from the tail stops on it, so nothing
// before it can influence a confirmation, and ages only grow.
func (s *Stream) evictLocked(now time.Time) {
	if s.maxAge > 0 {
		cut := 0
		for i := len(s.entries) - 1; i >= 0; i-- {
			if now.Sub(s.entries[i].At) >= s.maxAge {
				cut = i
				break
			}
		}
		s.dropLocked(cut)
	}

	if over := len(s.entries) - s.maxEntries; over > 0 {
		s.dropLocked(over)
	}
}

func (s *Stream) dropLocked(n int) {
	if n <= 0 {
		return
	}
	kept := copy(s.entries, s.entries[n:])
	for i := kept; i < len(s.entries); i++ {
		s.entries[i] = Prediction{}
	}
	s.entries = s.entries[:kept]
}
