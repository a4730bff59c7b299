// Package classifier maps feature vectors to sign labels using pre-trained models.
package classifier

import (
	"github.com/pkg/errors"
)

var (
	// ErrFeatureLength is returned when a feature vector does not match the model input.
	ErrFeatureLength = errors.New("feature vector length mismatch")
	// ErrUnknownModel is returned for a selector with no loaded classifier.
	ErrUnknownModel = errors.New("unknown model")
)

// Kind identifies the classifier variant.
type Kind string

const (
	// KindTabular is a tree ensemble over the flat feature vector.
	KindTabular Kind = "tabular"
	// KindSequence is a 1-D convolutional network over the feature sequence.
	KindSequence Kind = "sequence"
)

// Classifier predicts a sign label from a feature vector.
type Classifier interface {
	Kind() Kind
	// NumFeatures is the exact feature vector length Predict accepts.
	NumFeatures() int
	Predict(features []float64) (string, error)
}

// SpaceLabel is the label both variants report for the space sign.
const SpaceLabel = "Space"

// IsSpace reports whether label denotes the space sign.
func IsSpace(label string) bool {
	return label == "Space" || label == "space"
}

func checkLength(c Classifier, features []float64) error {
	if len(features) != c.NumFeatures() {
		return errors.Wrapf(ErrFeatureLength, "got %d, want %d", len(features), c.NumFeatures())
	}
	return nil
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
