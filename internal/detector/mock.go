package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has run.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.hands == nil {
		return nil, nil
	}
	out := make([]HandLandmarks, len(m.hands))
	copy(out, m.hands)
	return out, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// LetterALandmarks returns a preset right hand signing ASL "A":
// a closed fist with the thumb resting against the side of the index finger.
func LetterALandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	landmarks.Points[Wrist] = Point3D{X: 0.50, Y: 0.80, Z: 0.0}

	// Thumb up along the index knuckle
	landmarks.Points[ThumbCMC] = Point3D{X: 0.56, Y: 0.76, Z: -0.01}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.60, Y: 0.70, Z: -0.02}
	landmarks.Points[ThumbIP] = Point3D{X: 0.61, Y: 0.64, Z: -0.03}
	landmarks.Points[ThumbTip] = Point3D{X: 0.61, Y: 0.59, Z: -0.03}

	// Fingers folded into the palm
	landmarks.Points[IndexMCP] = Point3D{X: 0.56, Y: 0.64, Z: -0.02}
	landmarks.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.58, Z: -0.05}
	landmarks.Points[IndexDIP] = Point3D{X: 0.56, Y: 0.63, Z: -0.06}
	landmarks.Points[IndexTip] = Point3D{X: 0.55, Y: 0.67, Z: -0.05}

	landmarks.Points[MiddleMCP] = Point3D{X: 0.51, Y: 0.63, Z: -0.02}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.51, Y: 0.57, Z: -0.05}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.51, Y: 0.62, Z: -0.06}
	landmarks.Points[MiddleTip] = Point3D{X: 0.51, Y: 0.66, Z: -0.05}

	landmarks.Points[RingMCP] = Point3D{X: 0.46, Y: 0.64, Z: -0.02}
	landmarks.Points[RingPIP] = Point3D{X: 0.46, Y: 0.59, Z: -0.05}
	landmarks.Points[RingDIP] = Point3D{X: 0.46, Y: 0.63, Z: -0.06}
	landmarks.Points[RingTip] = Point3D{X: 0.47, Y: 0.67, Z: -0.05}

	landmarks.Points[PinkyMCP] = Point3D{X: 0.42, Y: 0.66, Z: -0.02}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.42, Y: 0.62, Z: -0.04}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.42, Y: 0.65, Z: -0.05}
	landmarks.Points[PinkyTip] = Point3D{X: 0.43, Y: 0.68, Z: -0.04}

	return landmarks
}

// LetterBLandmarks returns a preset right hand signing ASL "B":
// four fingers straight up and together, thumb folded across the palm.
func LetterBLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	landmarks.Points[Wrist] = Point3D{X: 0.50, Y: 0.85, Z: 0.0}

	// Thumb folded in front of the palm
	landmarks.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.80, Z: -0.01}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.57, Y: 0.74, Z: -0.03}
	landmarks.Points[ThumbIP] = Point3D{X: 0.53, Y: 0.70, Z: -0.04}
	landmarks.Points[ThumbTip] = Point3D{X: 0.49, Y: 0.69, Z: -0.04}

	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.66, Z: 0.0}
	landmarks.Points[IndexPIP] = Point3D{X: 0.55, Y: 0.52, Z: 0.0}
	landmarks.Points[IndexDIP] = Point3D{X: 0.55, Y: 0.43, Z: 0.0}
	landmarks.Points[IndexTip] = Point3D{X: 0.55, Y: 0.35, Z: 0.0}

	landmarks.Points[MiddleMCP] = Point3D{X: 0.51, Y: 0.65, Z: 0.0}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.51, Y: 0.50, Z: 0.0}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.51, Y: 0.40, Z: 0.0}
	landmarks.Points[MiddleTip] = Point3D{X: 0.51, Y: 0.31, Z: 0.0}

	landmarks.Points[RingMCP] = Point3D{X: 0.47, Y: 0.66, Z: 0.0}
	landmarks.Points[RingPIP] = Point3D{X: 0.47, Y: 0.52, Z: 0.0}
	landmarks.Points[RingDIP] = Point3D{X: 0.47, Y: 0.43, Z: 0.0}
	landmarks.Points[RingTip] = Point3D{X: 0.47, Y: 0.35, Z: 0.0}

	landmarks.Points[PinkyMCP] = Point3D{X: 0.43, Y: 0.68, Z: 0.0}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.43, Y: 0.57, Z: 0.0}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.43, Y: 0.50, Z: 0.0}
	landmarks.Points[PinkyTip] = Point3D{X: 0.43, Y: 0.44, Z: 0.0}

	return landmarks
}
