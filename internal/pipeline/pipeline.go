// Package pipeline runs one frame through landmark extraction, feature
// normalization, classification and annotation.
package pipeline

import (
	"context"
	"fmt"

	"gocv.io/x/gocv"
	"golang.org/x/sync/semaphore"

	"github.com/ayusman/signlens/internal/classifier"
	"github.com/ayusman/signlens/internal/detector"
	"github.com/ayusman/signlens/internal/features"
	"github.com/ayusman/signlens/internal/logging"
)

// Result is the outcome of one frame.
type Result struct {
	// Frame is the annotated frame as a JPEG data URI.
	Frame string
	// Labels holds one label per successfully classified hand, in detection order.
	Labels []string
	// Hands is the number of hands the detector reported.
	Hands int
}

// Label returns the primary label of the frame: the last one produced.
func (r Result) Label() (string, bool) {
	if len(r.Labels) == 0 {
		return "", false
	}
	return r.Labels[len(r.Labels)-1], true
}

// Pipeline processes frames. It is safe for concurrent use; the semaphore
// bounds how many frames run detection and classification at once.
type Pipeline struct {
	detector detector.Detector
	sem      *semaphore.Weighted
}

// New creates a Pipeline. A nil sem leaves concurrency unbounded.
func New(d detector.Detector, sem *semaphore.Weighted) *Pipeline {
	return &Pipeline{detector: d, sem: sem}
}

// Process decodes a data URI frame, classifies it with c and returns the
// annotated result. Only decode failures and context cancellation are
// returned as errors; detector and per-hand failures are logged and leave the
// frame unlabelled.
func (p *Pipeline) Process(ctx context.Context, frameData string, c classifier.Classifier) (Result, error) {
	img, err := DecodeDataURI(frameData)
	if err != nil {
		return Result{}, err
	}
	defer img.Close()

	labels, hands, err := p.ProcessMat(ctx, &img, c)
	if err != nil {
		return Result{}, err
	}

	frame, err := EncodeDataURI(img)
	if err != nil {
		logging.Error.Printf("frame: %v", err)
	}

	return Result{Frame: frame, Labels: labels, Hands: hands}, nil
}

// ProcessMat runs detection and classification on img, annotating it in place.
// It returns the produced labels and the detected hand count.
func (p *Pipeline) ProcessMat(ctx context.Context, img *gocv.Mat, c classifier.Classifier) ([]string, int, error) {
	if p.sem != nil {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return nil, 0, err
		}
		defer p.sem.Release(1)
	}

	hands, err := p.detect(img)
	if err != nil {
		logging.Error.Printf("frame: detect hands: %v", err)
		return nil, 0, nil
	}
	if len(hands) == 0 {
		return nil, 0, nil
	}

	for i := range hands {
		DrawLandmarks(img, &hands[i])
	}

	var labels []string
	for i := range hands {
		label, err := p.classifyHand(c, &hands[i], len(hands))
		if err != nil {
			logging.Warning.Printf("hand %d: %v", i, err)
			continue
		}

		DrawLabel(img, &hands[i], label)
		logging.Trace.Printf("detected sign %s", label)
		labels = append(labels, label)
	}

	return labels, len(hands), nil
}

func (p *Pipeline) detect(img *gocv.Mat) (hands []detector.HandLandmarks, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("detector panic: %v", r)
		}
	}()
	return p.detector.Detect(img)
}

// classifyHand never panics: a failing hand is reported as an error so the
// remaining hands still run.
func (p *Pipeline) classifyHand(c classifier.Classifier, hand *detector.HandLandmarks, handCount int) (label string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("classifier panic: %v", r)
		}
	}()

	return c.Predict(features.ForHand(hand, handCount))
}
