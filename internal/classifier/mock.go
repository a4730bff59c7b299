package classifier

import "sync"

// MockClassifier is a test implementation of Classifier that returns a fixed label.
type MockClassifier struct {
	mu       sync.Mutex
	label    string
	err      error
	features int
	calls    int
	panicMsg string
}

// NewMockClassifier creates a MockClassifier that accepts 42 features and returns label.
func NewMockClassifier(label string) *MockClassifier {
	return &MockClassifier{label: label, features: 42}
}

// SetLabel changes the label returned by Predict.
func (m *MockClassifier) SetLabel(label string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.label = label
}

// SetError makes Predict fail with err.
func (m *MockClassifier) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetPanic makes Predict panic with msg.
func (m *MockClassifier) SetPanic(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panicMsg = msg
}

// Calls returns how many times Predict has run.
func (m *MockClassifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Kind implements Classifier.
func (m *MockClassifier) Kind() Kind { return KindTabular }

// NumFeatures implements Classifier.
func (m *MockClassifier) NumFeatures() int { return m.features }

// Predict implements Classifier.
func (m *MockClassifier) Predict(features []float64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	if err := checkLength(m, features); err != nil {
		return "", err
	}
	if m.err != nil {
		return "", m.err
	}
	return m.label, nil
}
