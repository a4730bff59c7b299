package stabilizer

import "time"

// DefaultMinHold is how long a sign must stay the newest distinct label.
const DefaultMinHold = 3 * time.Second

// Stabilizer confirms a sign once it has been held long enough.
type Stabilizer struct {
	stream  *Stream
	tracker *Stream
}

// New creates a Stabilizer over stream. tracker is the diagnostic record that
// a confirmation clears; it may be nil.
func New(stream, tracker *Stream) *Stabilizer {
	return &Stabilizer{stream: stream, tracker: tracker}
}

// ConfirmedSign scans the stream from newest to oldest and returns the label
// that has been held for at least minHold.
//
// A candidate is adopted from the newest entries whenever the label changes,
// recording that entry's age. The first entry aged minHold or more ends the
// scan: it confirms the candidate if one exists. Otherwise the candidate is
// confirmed only if its recorded age reached minHold, which also clears the
// tracker. The stream is read, never modified.
func (s *Stabilizer) ConfirmedSign(minHold time.Duration) (string, bool) {
	entries, now := s.stream.snapshot()

	var (
		candidate string
		have      bool
		duration  time.Duration
	)

	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		age := now.Sub(e.At)

		if age >= minHold {
			if have {
				return candidate, true
			}
			break
		}

		if !have || e.Label != candidate {
			candidate = e.Label
			have = true
			duration = age
		}
	}

	if have && duration >= minHold {
		s.clearTracker()
		return candidate, true
	}
	return "", false
}

func (s *Stabilizer) clearTracker() {
	if s.tracker != nil {
		s.tracker.Clear()
	}
}
