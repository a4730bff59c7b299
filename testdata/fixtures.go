// Package testdata builds frames and models shared by integration tests.
package testdata

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/signlens/internal/classifier"
	"github.com/ayusman/signlens/internal/pipeline"
)

// Frame returns a black BGR frame of the given size. The caller must Close it.
func Frame(width, height int) gocv.Mat {
	return gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
}

// FrameDataURI returns a JPEG data URI of a black frame, as sent by the browser.
func FrameDataURI(width, height int) (string, error) {
	img := Frame(width, height)
	defer img.Close()

	uri, err := pipeline.EncodeDataURI(img)
	if err != nil {
		return "", fmt.Errorf("encode frame: %w", err)
	}
	return uri, nil
}

// Sequence returns n frames alternating between black and white so that
// consecutive frames always differ.
func Sequence(n, width, height int) []*gocv.Mat {
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		m := Frame(width, height)
		if i%2 == 1 {
			m.SetTo(gocv.NewScalar(255, 255, 255, 0))
		}
		frames[i] = &m
	}
	return frames
}

// CloseAll releases frames.
func CloseAll(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}

// Models returns a Set whose RandomForest and CNN selectors both answer with
// fixed labels.
func Models(forestLabel, cnnLabel string) (*classifier.Set, *classifier.MockClassifier, *classifier.MockClassifier) {
	forest := classifier.NewMockClassifier(forestLabel)
	cnn := classifier.NewMockClassifier(cnnLabel)

	set := classifier.NewSet()
	set.Register(classifier.SelectorRandomForest, forest)
	set.Register(classifier.SelectorCNN, cnn)
	return set, forest, cnn
}
