// Package dataset saves labelled captures and turns them into a training
// dataset of feature vectors.
package dataset

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nfnt/resize"

	"github.com/ayusman/signlens/internal/pipeline"
	"github.com/ayusman/signlens/internal/store"
)

// Hands accepted for captures.
const (
	HandLeft  = "left"
	HandRight = "right"
)

// DefaultMaxDimension is the largest width or height Save decodes.
const DefaultMaxDimension = 4096

// ErrInvalidCapture is returned for captures with a bad hand or gesture name.
var ErrInvalidCapture = errors.New("invalid capture")

// CaptureIndex records saved captures.
type CaptureIndex interface {
	Create(c *store.Capture) error
}

// Saver writes captures to <dir>/<hand>_hand/<gesture>/<gesture>_<n>.jpg.
type Saver struct {
	dir      string
	maxWidth int
	maxDim   int
	index    CaptureIndex

	mu sync.Mutex
}

// NewSaver creates a Saver rooted at dir. Images wider than maxWidth are
// downscaled; zero keeps the original size. index may be nil.
func NewSaver(dir string, maxWidth int, index CaptureIndex) *Saver {
	return &Saver{dir: dir, maxWidth: maxWidth, maxDim: DefaultMaxDimension, index: index}
}

// SetMaxDimension changes the largest accepted width or height. Values below
// one are ignored.
func (s *Saver) SetMaxDimension(n int) {
	if n > 0 {
		s.maxDim = n
	}
}

// Dir returns the dataset root.
func (s *Saver) Dir() string {
	return s.dir
}

// Save decodes a data URI image and stores it under hand and gesture.
func (s *Saver) Save(imageData, hand, gesture string) (*store.Capture, error) {
	if err := validate(hand, gesture); err != nil {
		return nil, err
	}

	raw, err := pipeline.DecodePayload(imageData)
	if err != nil {
		return nil, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pipeline.ErrDecode, err)
	}
	if cfg.Width > s.maxDim || cfg.Height > s.maxDim {
		return nil, fmt.Errorf("%w: image is %dx%d, limit %d", pipeline.ErrDecode, cfg.Width, cfg.Height, s.maxDim)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pipeline.ErrDecode, err)
	}

	if s.maxWidth > 0 && img.Bounds().Dx() > s.maxWidth {
		img = resize.Resize(uint(s.maxWidth), 0, img, resize.Lanczos3)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	gestureDir := filepath.Join(s.dir, hand+"_hand", gesture)
	if err := os.MkdirAll(gestureDir, 0755); err != nil {
		return nil, fmt.Errorf("create gesture dir: %w", err)
	}

	f, path, err := createNext(gestureDir, gesture)
	if err != nil {
		return nil, err
	}

	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 95}); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write capture: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("write capture: %w", err)
	}

	c := &store.Capture{Hand: hand, Gesture: gesture, Path: path}
	if s.index != nil {
		if err := s.index.Create(c); err != nil {
			return nil, fmt.Errorf("index capture: %w", err)
		}
	}
	return c, nil
}

// createNext opens <gesture>_<n>.jpg for the first n past the directory's
// current entry count that is not taken.
func createNext(dir, gesture string) (*os.File, string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, "", fmt.Errorf("read gesture dir: %w", err)
	}

	for n := len(entries) + 1; ; n++ {
		path := filepath.Join(dir, fmt.Sprintf("%s_%d.jpg", gesture, n))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("create capture: %w", err)
		}
	}
}

func validate(hand, gesture string) error {
	if hand != HandLeft && hand != HandRight {
		return fmt.Errorf("%w: hand must be %q or %q", ErrInvalidCapture, HandLeft, HandRight)
	}
	if gesture == "" || gesture == "." || gesture == ".." || strings.ContainsAny(gesture, `/\`) {
		return fmt.Errorf("%w: gesture name %q", ErrInvalidCapture, gesture)
	}
	return nil
}
