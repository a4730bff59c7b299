package detector

import (
	"errors"

	"gocv.io/x/gocv"
)

// ErrScriptNotFound is returned when the MediaPipe helper script cannot be located.
var ErrScriptNotFound = errors.New("mediapipe_service.py not found")

// Detector defines the interface for hand landmark extraction.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks in detection order.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// StaticImageMode treats every frame independently instead of tracking.
	StaticImageMode bool

	// Script overrides the helper script location.
	Script string

	// Python overrides the interpreter used to run Script.
	Python string
}

// DefaultConfig returns a Config matching how the classifiers were trained:
// static images, detection confidence 0.3.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.3,
		StaticImageMode: true,
	}
}
