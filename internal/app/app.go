// Package app wires the SignLens components into a running application.
package app

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/ayusman/signlens/internal/capture"
	"github.com/ayusman/signlens/internal/classifier"
	"github.com/ayusman/signlens/internal/config"
	"github.com/ayusman/signlens/internal/dataset"
	"github.com/ayusman/signlens/internal/detector"
	"github.com/ayusman/signlens/internal/logging"
	"github.com/ayusman/signlens/internal/pipeline"
	"github.com/ayusman/signlens/internal/session"
	"github.com/ayusman/signlens/internal/store"
)

// Config holds what the application needs beyond the settings file.
type Config struct {
	Settings config.Config
	Store    *store.Store
	Models   *classifier.Set
	// Detector overrides the MediaPipe detector, mainly for tests.
	Detector detector.Detector
	// Camera overrides the local capture device.
	Camera capture.Camera
}

// App is the main application that owns the recognition pipeline and the
// live sessions.
type App struct {
	settings config.Config
	store    *store.Store
	models   *classifier.Set
	detector detector.Detector
	camera   capture.Camera

	pipeline *pipeline.Pipeline
	sessions *session.Manager
	saver    *dataset.Saver
	builder  *dataset.Builder

	mu     sync.Mutex
	closed bool
}

// New creates an App. Models and Store are required.
func New(cfg Config) (*App, error) {
	if cfg.Models == nil {
		return nil, fmt.Errorf("app: no classifier models")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("app: no store")
	}
	settings := cfg.Settings

	a := &App{
		settings: settings,
		store:    cfg.Store,
		models:   cfg.Models,
		detector: cfg.Detector,
		camera:   cfg.Camera,
	}

	// Try MediaPipe first, fall back to mock detector
	if a.detector == nil {
		dc := detector.DefaultConfig()
		dc.MaxHands = settings.Detector.MaxHands
		dc.MinConfidence = settings.Detector.MinConfidence
		dc.Script = settings.Detector.Script
		dc.Python = settings.Detector.Python

		if mp, err := detector.NewMediaPipeDetector(dc); err == nil {
			a.detector = mp
			logging.Info.Println("using MediaPipe hand detection")
		} else {
			logging.Warning.Printf("MediaPipe not available (%v), using mock detector", err)
			a.detector = detector.NewMockDetector()
		}
	}

	weight := int64(settings.MaxConcurrentFrames)
	if weight <= 0 {
		weight = 1
	}
	a.pipeline = pipeline.New(a.detector, semaphore.NewWeighted(weight))
	a.sessions = session.NewManager(sessionConfig(settings))
	a.saver = dataset.NewSaver(settings.DataDir, settings.MaxCaptureWidth, a.store.Captures())
	a.saver.SetMaxDimension(settings.MaxCaptureDimension)
	a.builder = dataset.NewBuilder(dataset.BuilderConfig{
		DataDir:  settings.DataDir,
		OutPath:  settings.DatasetPath,
		Detector: a.detector,
		Samples:  a.store.Samples(),
	})

	return a, nil
}

func sessionConfig(settings config.Config) session.Config {
	cfg := session.DefaultConfig()
	if settings.MinHold > 0 {
		cfg.MinHold = settings.MinHold
	}
	if settings.EvictionFactor >= 1 {
		cfg.EvictionFactor = int(math.Ceil(settings.EvictionFactor))
	}
	if settings.MaxStreamEntries > 0 {
		cfg.MaxStreamEntries = settings.MaxStreamEntries
	}
	return cfg
}

// Connection is a live client session with its worker.
type Connection struct {
	Worker *session.Worker

	app *App
}

// Connect creates a session, records it and starts its worker. The worker
// runs until ctx is cancelled; call Close afterwards.
func (a *App) Connect(ctx context.Context, emit func(session.Event)) (*Connection, error) {
	s := a.sessions.Create()
	if err := a.store.Sessions().Start(s.ID, s.StartedAt); err != nil {
		a.sessions.Remove(s.ID)
		return nil, fmt.Errorf("record session: %w", err)
	}

	w := session.NewWorker(s, session.WorkerConfig{
		Pipeline:  a.pipeline,
		Models:    a.models,
		Recorder:  a.store.Recorder(),
		Emit:      emit,
		QueueSize: a.settings.FrameQueue,
	})
	go w.Run(ctx)

	logging.Info.Printf("session %s: connected", s.ID)
	return &Connection{Worker: w, app: a}, nil
}

// Close removes the session and records its end. The worker's context must
// already be cancelled.
func (c *Connection) Close() {
	<-c.Worker.Done()

	id := c.Worker.Session().ID
	c.app.sessions.Remove(id)
	if err := c.app.store.Sessions().End(id, time.Now()); err != nil {
		logging.Error.Printf("session %s: record end: %v", id, err)
	}
	logging.Info.Printf("session %s: disconnected", id)
}

// RunCamera feeds the local camera into its own session until ctx is done.
// It returns immediately when the camera is disabled.
func (a *App) RunCamera(ctx context.Context) error {
	cc := a.settings.Camera
	if !cc.Enabled {
		return nil
	}

	c, err := a.models.Get(cc.Model)
	if err != nil {
		return err
	}

	cam := a.camera
	if cam == nil {
		cam = capture.NewCamera(capture.CameraConfig{Device: cc.Device, FPS: cc.FPS})
	}

	var gate *capture.MotionGate
	if cc.MotionThreshold > 0 {
		gate = capture.NewMotionGate(cc.MotionThreshold)
		defer gate.Close()
	}

	s := a.sessions.Create()
	defer a.sessions.Remove(s.ID)
	if err := a.store.Sessions().Start(s.ID, s.StartedAt); err != nil {
		return fmt.Errorf("record session: %w", err)
	}
	defer func() {
		if err := a.store.Sessions().End(s.ID, time.Now()); err != nil {
			logging.Error.Printf("session %s: record end: %v", s.ID, err)
		}
	}()

	rec := a.store.Recorder()
	src := capture.NewSource(capture.SourceConfig{
		Camera:     cam,
		Motion:     gate,
		Processor:  a.pipeline,
		Classifier: c,
		Session:    s,
		OnSign: func(label string) {
			if err := rec.RecordSign(s.ID, label, time.Now()); err != nil {
				logging.Error.Printf("session %s: record sign: %v", s.ID, err)
			}
		},
	})

	logging.Info.Printf("camera %d: feeding session %s with %s", cc.Device, s.ID, cc.Model)
	return src.Run(ctx)
}

// Sessions returns the live session manager.
func (a *App) Sessions() *session.Manager {
	return a.sessions
}

// Models returns the loaded classifiers.
func (a *App) Models() *classifier.Set {
	return a.models
}

// Store returns the persistence layer.
func (a *App) Store() *store.Store {
	return a.store
}

// Saver returns the dataset capture saver.
func (a *App) Saver() *dataset.Saver {
	return a.saver
}

// Builder returns the dataset builder.
func (a *App) Builder() *dataset.Builder {
	return a.builder
}

// Pipeline returns the frame pipeline.
func (a *App) Pipeline() *pipeline.Pipeline {
	return a.pipeline
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	return a.detector
}

// Close stops any dataset build and releases the detector.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true

	a.builder.Stop()
	a.builder.Wait()
	return a.detector.Close()
}
