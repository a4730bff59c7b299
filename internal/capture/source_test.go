package capture

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/signlens/internal/classifier"
	"github.com/ayusman/signlens/internal/logging"
	"github.com/ayusman/signlens/internal/session"
)

// scriptedProcessor returns its labels in order, one slice per frame.
type scriptedProcessor struct {
	mu     sync.Mutex
	labels [][]string
	calls  int
	err    error
}

func (p *scriptedProcessor) ProcessMat(ctx context.Context, img *gocv.Mat, c classifier.Classifier) ([]string, int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, 0, p.err
	}
	var out []string
	if p.calls < len(p.labels) {
		out = p.labels[p.calls]
	}
	p.calls++
	return out, len(out), nil
}

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time { return c.now }

func (c *stepClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestSource_ConfirmsHeldSign(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	clock := &stepClock{now: time.Unix(1000, 0)}
	sess := session.New("local", session.Config{Now: clock.Now})
	sess.StartProcessing()

	cam := NewMockCamera(solidFrames(t, 0), true)
	cam.Open()
	defer cam.Close()

	proc := &scriptedProcessor{labels: [][]string{{"A"}, {"A"}, {"A"}}}
	var signs []string
	src := NewSource(SourceConfig{
		Camera:    cam,
		Processor: proc,
		Session:   sess,
		OnSign:    func(l string) { signs = append(signs, l) },
		Now:       clock.Now,
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := src.Step(ctx); err != nil {
			t.Fatalf("Step() %d failed: %v", i, err)
		}
		clock.Advance(2 * time.Second)
	}

	if len(signs) != 1 || signs[0] != "A" {
		t.Errorf("signs = %v, want [A]", signs)
	}
	if got := sess.Sentence(); got != "A" {
		t.Errorf("Sentence() = %q, want %q", got, "A")
	}
	if got := sess.Transcript(); got != "A" {
		t.Errorf("Transcript() = %q, want %q", got, "A")
	}
}

func TestSource_IdleWithoutMotion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	clock := &stepClock{now: time.Unix(1000, 0)}
	sess := session.New("local", session.Config{Now: clock.Now})
	sess.StartProcessing()

	cam := NewMockCamera(solidFrames(t, 0, 255, 255, 255), false)
	cam.Open()
	defer cam.Close()

	var logs bytes.Buffer
	logging.Init(&logs, logging.LevelTrace)
	defer logging.Init(os.Stderr, logging.LevelInfo)

	gate := NewMotionGate(1.0)
	defer gate.Close()
	proc := &scriptedProcessor{}
	src := NewSource(SourceConfig{Camera: cam, Motion: gate, Processor: proc, Session: sess, Now: clock.Now})

	ctx := context.Background()
	steps := []struct {
		advance    time.Duration
		wantActive bool
	}{
		{0, false},          // baseline frame
		{0, true},           // black to white
		{time.Second, true}, // still within the idle timeout
		{2 * time.Second, false},
	}
	for i, st := range steps {
		clock.Advance(st.advance)
		if err := src.Step(ctx); err != nil {
			t.Fatalf("Step() %d failed: %v", i, err)
		}
		if src.Active() != st.wantActive {
			t.Errorf("step %d: Active() = %v, want %v", i, src.Active(), st.wantActive)
		}
	}
	if proc.calls != 2 {
		t.Errorf("processor called %d times, want 2", proc.calls)
	}
	if !strings.Contains(logs.String(), "% of pixels changed") {
		t.Errorf("motion amount not logged:\n%s", logs.String())
	}
}

func TestSource_RunStopsSession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	sess := session.New("local", session.DefaultConfig())
	cam := NewMockCamera(solidFrames(t, 0, 0), false)
	proc := &scriptedProcessor{labels: [][]string{{"A"}, {"B"}}}
	src := NewSource(SourceConfig{Camera: cam, Processor: proc, Session: sess, IdleFPS: 100})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := src.Run(ctx); err != nil {
		t.Fatalf("Run() = %v", err)
	}

	if sess.Processing() {
		t.Error("session should be stopped after Run returns")
	}
	if sess.Sentence() != "" {
		t.Errorf("Sentence() = %q, want empty after stop", sess.Sentence())
	}
	if cam.IsOpen() {
		t.Error("camera should be closed after Run returns")
	}
}

func TestSource_ProcessorError(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	sess := session.New("local", session.DefaultConfig())
	sess.StartProcessing()
	cam := NewMockCamera(solidFrames(t, 0), true)
	cam.Open()
	defer cam.Close()

	boom := errors.New("boom")
	src := NewSource(SourceConfig{Camera: cam, Processor: &scriptedProcessor{err: boom}, Session: sess})
	if err := src.Step(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Step() = %v, want %v", err, boom)
	}
}
