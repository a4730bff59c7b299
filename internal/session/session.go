// Package session holds per-user recognition state and the worker that
// serializes everything done to it.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/ayusman/signlens/internal/classifier"
	"github.com/ayusman/signlens/internal/stabilizer"
)

// Status strings reported to the client.
const (
	StatusInProgress = "Recognition in progress..."
	StatusNoSign     = "No continuous sign detected."
	StatusStopped    = "Recognition stopped"
)

// Status is the reply to a recognition status request.
type Status struct {
	Status      string  `json:"status"`
	OrderedSign *string `json:"ordered_sign"`
}

// Config controls session timing and limits.
type Config struct {
	MinHold          time.Duration
	EvictionFactor   int
	MaxStreamEntries int
	// Now is the clock for predictions. Defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig returns a 3 second hold, eviction after three holds and a
// 1024 entry cap.
func DefaultConfig() Config {
	return Config{
		MinHold:          stabilizer.DefaultMinHold,
		EvictionFactor:   3,
		MaxStreamEntries: stabilizer.DefaultMaxEntries,
	}
}

// Session is the state of one client.
type Session struct {
	ID        string
	StartedAt time.Time

	minHold time.Duration
	now     func() time.Time

	stream  *stabilizer.Stream
	tracker *stabilizer.Stream
	stab    *stabilizer.Stabilizer

	mu            sync.Mutex
	processing    bool
	sentence      []string
	transcript    []string
	lastLabel     string
	lastConfirmed string
	generation    uint64
}

// New creates a Session with processing disabled.
func New(id string, cfg Config) *Session {
	def := DefaultConfig()
	if cfg.MinHold <= 0 {
		cfg.MinHold = def.MinHold
	}
	if cfg.EvictionFactor <= 0 {
		cfg.EvictionFactor = def.EvictionFactor
	}
	if cfg.MaxStreamEntries <= 0 {
		cfg.MaxStreamEntries = def.MaxStreamEntries
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	streamCfg := stabilizer.StreamConfig{
		MaxAge:     time.Duration(cfg.EvictionFactor) * cfg.MinHold,
		MaxEntries: cfg.MaxStreamEntries,
		Now:        cfg.Now,
	}
	stream := stabilizer.NewStream(streamCfg)
	tracker := stabilizer.NewStream(streamCfg)

	return &Session{
		ID:        id,
		StartedAt: cfg.Now(),
		minHold:   cfg.MinHold,
		now:       cfg.Now,
		stream:    stream,
		tracker:   tracker,
		stab:      stabilizer.New(stream, tracker),
	}
}

// StartProcessing enables recognition.
func (s *Session) StartProcessing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processing = true
}

// StopProcessing disables recognition without touching any other state.
func (s *Session) StopProcessing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processing = false
}

// Processing reports whether recognition is enabled.
func (s *Session) Processing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processing
}

// Reset clears both sentences, the last label and the tracker.
// The recognition stream is left alone. Calling Reset twice is the same as once.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.sentence = nil
	s.transcript = nil
	s.lastLabel = ""
	s.lastConfirmed = ""
	s.tracker.Clear()
}

// Stop disables processing, resets the state, clears the recognition stream
// and starts a new generation so results of earlier frames are discarded.
func (s *Session) Stop() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.processing = false
	s.resetLocked()
	s.stream.Clear()
	s.generation++

	return Status{Status: StatusStopped}
}

// Generation identifies the current processing run. It changes on every Stop.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// ApplyLabels records the labels of one frame produced during generation gen.
// Each label is appended to the recognition stream and the tracker and then
// fed to the sentence. It reports false, changing nothing, when gen is stale.
func (s *Session) ApplyLabels(gen uint64, labels []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return false
	}
	for _, label := range labels {
		s.applyLabelLocked(label)
	}
	return true
}

// ApplyLabel records one label in the current generation.
func (s *Session) ApplyLabel(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLabelLocked(label)
}

func (s *Session) applyLabelLocked(label string) {
	s.stream.Append(label)
	s.tracker.Append(label)

	switch {
	case classifier.IsSpace(label):
		s.sentence = append(s.sentence, " ")
	case label != s.lastLabel:
		s.sentence = append(s.sentence, label)
	}
	s.lastLabel = label
}

// Sentence returns the sentence built from per-frame labels.
func (s *Session) Sentence() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.sentence, "")
}

// Transcript returns the sentence built from confirmed signs. This is the
// text shown to the user and saved.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.transcript, "")
}

// LastLabel returns the most recently applied label.
func (s *Session) LastLabel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastLabel
}

// Stream exposes the recognition stream.
func (s *Session) Stream() *stabilizer.Stream {
	return s.stream
}

// Tracker exposes the diagnostic record of applied labels.
func (s *Session) Tracker() *stabilizer.Stream {
	return s.tracker
}

// Status runs the stabilizer and builds the client reply. fresh is true the
// first time a sign is confirmed after a different sign or after no sign at
// all; a fresh sign is appended to the transcript.
func (s *Session) Status() (st Status, fresh bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.processing {
		return Status{Status: StatusStopped}, false
	}

	label, ok := s.stab.ConfirmedSign(s.minHold)
	if !ok {
		s.lastConfirmed = ""
		return Status{Status: StatusNoSign}, false
	}

	fresh = label != s.lastConfirmed
	s.lastConfirmed = label
	if fresh {
		if classifier.IsSpace(label) {
			s.transcript = append(s.transcript, " ")
		} else {
			s.transcript = append(s.transcript, label)
		}
	}
	return Status{Status: StatusInProgress, OrderedSign: &label}, fresh
}
