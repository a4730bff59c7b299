package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/signlens/internal/detector"
	"github.com/ayusman/signlens/internal/features"
	"github.com/ayusman/signlens/internal/logging"
	"github.com/ayusman/signlens/internal/store"
)

// Status is the state of a dataset build.
type Status string

// Build states.
const (
	StatusIdle       Status = "idle"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusStopped    Status = "stopped"
)

var (
	// ErrBusy is returned when a build is already running.
	ErrBusy = errors.New("dataset creation is already in progress")
	// ErrEmpty is returned when no capture produced a sample.
	ErrEmpty = errors.New("no gestures found in data directory")
)

// Dataset is the exported training set.
type Dataset struct {
	Data   [][]float64 `json:"data"`
	Labels []string    `json:"labels"`
}

// SampleStore keeps the extracted samples.
type SampleStore interface {
	Replace(samples []store.Sample) error
}

// BuilderConfig wires a Builder.
type BuilderConfig struct {
	// DataDir holds the <hand>_hand/<gesture>/ capture folders.
	DataDir string
	// OutPath is where the dataset JSON is written.
	OutPath  string
	Detector detector.Detector
	Samples  SampleStore // optional
}

// Builder extracts features from every capture in the background.
type Builder struct {
	cfg BuilderConfig

	mu     sync.Mutex
	status Status
	cancel context.CancelFunc
	done   chan struct{}
}

// NewBuilder creates an idle Builder.
func NewBuilder(cfg BuilderConfig) *Builder {
	return &Builder{cfg: cfg, status: StatusIdle}
}

// Status returns the state of the latest build.
func (b *Builder) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// Start launches a build unless one is already running.
func (b *Builder) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.status == StatusInProgress {
		return ErrBusy
	}

	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.done = make(chan struct{})
	b.status = StatusInProgress

	go b.run(ctx, b.done)
	return nil
}

// Stop cancels a running build. It is a no-op otherwise.
func (b *Builder) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
	}
}

// Wait blocks until the current build, if any, finishes.
func (b *Builder) Wait() {
	b.mu.Lock()
	done := b.done
	b.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (b *Builder) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ds, err := b.Build(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancel = nil

	switch {
	case errors.Is(err, context.Canceled):
		b.status = StatusStopped
		logging.Info.Println("dataset creation stopped")
	case err != nil:
		b.status = StatusFailed
		logging.Error.Printf("dataset creation failed: %v", err)
	default:
		b.status = StatusCompleted
		logging.Info.Printf("dataset created: %d samples", len(ds.Labels))
	}
}

// capture is one image found under the data directory.
type capture struct {
	hand    string
	gesture string
	path    string
}

// Build walks the capture folders, extracts features from every image with a
// detected hand and writes the dataset. Images whose feature count differs
// from the first sample are skipped.
func (b *Builder) Build(ctx context.Context) (*Dataset, error) {
	captures, err := scan(b.cfg.DataDir)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{}
	var samples []store.Sample

	for i, c := range captures {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		vec, err := b.extract(c.path)
		if err != nil {
			logging.Warning.Printf("dataset: %s: %v", c.path, err)
			continue
		}
		if vec == nil {
			continue
		}
		if len(ds.Data) > 0 && len(vec) != len(ds.Data[0]) {
			logging.Warning.Printf("dataset: %s: skipping %d features, want %d", c.path, len(vec), len(ds.Data[0]))
			continue
		}

		ds.Data = append(ds.Data, vec)
		ds.Labels = append(ds.Labels, c.gesture)
		samples = append(samples, store.Sample{Label: c.gesture, Hand: c.hand, Source: c.path, Features: vec})
		logging.Trace.Printf("dataset: %d/%d %s hand %s", i+1, len(captures), c.hand, c.gesture)
	}

	if len(ds.Data) == 0 {
		return nil, ErrEmpty
	}

	if err := writeJSON(b.cfg.OutPath, ds); err != nil {
		return nil, err
	}
	if b.cfg.Samples != nil {
		if err := b.cfg.Samples.Replace(samples); err != nil {
			return nil, fmt.Errorf("store samples: %w", err)
		}
	}
	return ds, nil
}

// extract returns the concatenated features of every hand in the image, or
// nil when no hand was found.
func (b *Builder) extract(path string) ([]float64, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		return nil, errors.New("unreadable image")
	}

	hands, err := b.cfg.Detector.Detect(&img)
	if err != nil {
		return nil, err
	}
	if len(hands) == 0 {
		return nil, nil
	}
	return features.Build(hands), nil
}

// scan lists images under left_hand and right_hand in a stable order.
func scan(dataDir string) ([]capture, error) {
	if info, err := os.Stat(dataDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("data directory %s not found", dataDir)
	}

	var out []capture
	for _, hand := range []string{HandLeft, HandRight} {
		handDir := filepath.Join(dataDir, hand+"_hand")
		gestures, err := readDirs(handDir)
		if err != nil {
			continue
		}
		for _, g := range gestures {
			files, err := os.ReadDir(filepath.Join(handDir, g))
			if err != nil {
				return nil, err
			}
			for _, f := range files {
				if f.IsDir() || !isImage(f.Name()) {
					continue
				}
				out = append(out, capture{hand: hand, gesture: g, path: filepath.Join(handDir, g, f.Name())})
			}
		}
	}
	return out, nil
}

func readDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func isImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

func writeJSON(path string, ds *Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create dataset dir: %w", err)
	}
	data, err := json.Marshal(ds)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	return nil
}
