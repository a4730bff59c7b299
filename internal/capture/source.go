package capture

import (
	"context"
	"errors"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/signlens/internal/classifier"
	"github.com/ayusman/signlens/internal/logging"
	"github.com/ayusman/signlens/internal/session"
)

// Frame rates and idle timeout for the local loop.
const (
	IdleFPS     = 5
	ActiveFPS   = 15
	IdleTimeout = 2 * time.Second
)

// MatProcessor detects and classifies the hands in a decoded frame.
type MatProcessor interface {
	ProcessMat(ctx context.Context, img *gocv.Mat, c classifier.Classifier) ([]string, int, error)
}

// SourceConfig wires a Source.
type SourceConfig struct {
	Camera     Camera
	Motion     *MotionGate // nil processes every frame
	Processor  MatProcessor
	Classifier classifier.Classifier
	Session    *session.Session

	IdleFPS     int
	ActiveFPS   int
	IdleTimeout time.Duration

	// OnSign is called once per newly confirmed sign.
	OnSign func(label string)
	Now    func() time.Time
}

// Source runs recognition on a local camera, feeding labels into a session.
type Source struct {
	cfg SourceConfig

	active     bool
	lastMotion time.Time
}

// NewSource creates a Source. Zero rates and timeout take the package defaults.
func NewSource(cfg SourceConfig) *Source {
	if cfg.IdleFPS <= 0 {
		cfg.IdleFPS = IdleFPS
	}
	if cfg.ActiveFPS <= 0 {
		cfg.ActiveFPS = ActiveFPS
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = IdleTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Source{cfg: cfg}
}

// Active reports whether the source is running at the active frame rate.
func (s *Source) Active() bool {
	return s.active
}

// Run opens the camera and processes frames until ctx is done or the camera
// runs out of frames. The session is stopped on return.
func (s *Source) Run(ctx context.Context) error {
	if err := s.cfg.Camera.Open(); err != nil {
		return err
	}
	defer s.cfg.Camera.Close()
	defer s.cfg.Session.Stop()

	s.cfg.Session.StartProcessing()
	s.cfg.Camera.SetFPS(s.cfg.IdleFPS)

	ticker := time.NewTicker(time.Second / time.Duration(s.cfg.IdleFPS))
	defer ticker.Stop()
	wasActive := s.active

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			err := s.Step(ctx)
			if errors.Is(err, ErrNoFrames) {
				logging.Info.Println("camera: no more frames")
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			if err != nil {
				logging.Warning.Printf("camera: %v", err)
			}
			if s.active != wasActive {
				wasActive = s.active
				fps := s.cfg.IdleFPS
				if s.active {
					fps = s.cfg.ActiveFPS
				}
				s.cfg.Camera.SetFPS(fps)
				ticker.Reset(time.Second / time.Duration(fps))
			}
		}
	}
}

// Step reads and processes a single frame.
func (s *Source) Step(ctx context.Context) error {
	frame, err := s.cfg.Camera.ReadFrame()
	if err != nil {
		return err
	}
	defer frame.Close()

	now := s.cfg.Now()
	moving := true
	if s.cfg.Motion != nil {
		var changed float64
		moving, changed = s.cfg.Motion.Changed(frame)
		logging.Trace.Printf("camera: %.2f%% of pixels changed", changed)
	}

	if moving {
		s.lastMotion = now
		if !s.active {
			s.active = true
			logging.Trace.Println("camera: switched to active mode")
		}
	} else if s.active && now.Sub(s.lastMotion) > s.cfg.IdleTimeout {
		s.active = false
		logging.Trace.Println("camera: switched to idle mode")
	}

	if !s.active {
		return nil
	}

	sess := s.cfg.Session
	gen := sess.Generation()
	labels, _, err := s.cfg.Processor.ProcessMat(ctx, frame, s.cfg.Classifier)
	if err != nil {
		return err
	}
	sess.ApplyLabels(gen, labels)

	st, fresh := sess.Status()
	if fresh && st.OrderedSign != nil {
		logging.Info.Printf("camera: confirmed sign %q, sentence %q", *st.OrderedSign, sess.Transcript())
		if s.cfg.OnSign != nil {
			s.cfg.OnSign(*st.OrderedSign)
		}
	}
	return nil
}
