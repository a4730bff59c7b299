package detector

import (
	"errors"
	"math"
	"strings"
	"testing"
)

const epsilon = 1e-9

func TestHandLandmarks_Bounds(t *testing.T) {
	hand := LetterBLandmarks()
	b := hand.Bounds()

	// B: middle fingertip is highest, wrist is lowest
	if math.Abs(b.MinY-hand.Points[MiddleTip].Y) > epsilon {
		t.Errorf("expected MinY %f, got %f", hand.Points[MiddleTip].Y, b.MinY)
	}
	if math.Abs(b.MaxY-hand.Points[Wrist].Y) > epsilon {
		t.Errorf("expected MaxY %f, got %f", hand.Points[Wrist].Y, b.MaxY)
	}
	if b.MinX > b.MaxX || b.MinY > b.MaxY {
		t.Errorf("bounds are inverted: %+v", b)
	}

	for i, p := range hand.Points {
		if p.X < b.MinX || p.X > b.MaxX || p.Y < b.MinY || p.Y > b.MaxY {
			t.Errorf("landmark %d (%f,%f) outside bounds %+v", i, p.X, p.Y, b)
		}
	}
}

func TestHandLandmarks_Translate(t *testing.T) {
	hand := LetterALandmarks()
	moved := hand.Translate(0.1, -0.2)

	for i := range hand.Points {
		if math.Abs(moved.Points[i].X-(hand.Points[i].X+0.1)) > epsilon {
			t.Errorf("landmark %d X not shifted", i)
		}
		if math.Abs(moved.Points[i].Y-(hand.Points[i].Y-0.2)) > epsilon {
			t.Errorf("landmark %d Y not shifted", i)
		}
	}

	// original untouched
	if hand.Points[Wrist].X != 0.50 {
		t.Errorf("Translate mutated the receiver")
	}
}

func TestConnections_ValidIndices(t *testing.T) {
	for _, c := range Connections {
		if c[0] < 0 || c[0] >= NumLandmarks || c[1] < 0 || c[1] >= NumLandmarks {
			t.Errorf("connection %v out of range", c)
		}
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty hands by default", func(t *testing.T) {
		mock := NewMockDetector()

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if hands != nil {
			t.Errorf("expected nil hands, got %v", hands)
		}
	})

	t.Run("returns configured hands", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands([]HandLandmarks{LetterALandmarks(), LetterBLandmarks()})

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(hands) != 2 {
			t.Errorf("expected 2 hands, got %d", len(hands))
		}
		if mock.Calls() != 1 {
			t.Errorf("expected 1 call, got %d", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		hands, err := mock.Detect(nil)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if hands != nil {
			t.Errorf("expected nil hands when error is set, got %v", hands)
		}
	})

	t.Run("Close returns nil", func(t *testing.T) {
		if err := NewMockDetector().Close(); err != nil {
			t.Errorf("expected Close to return nil, got %v", err)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*MediaPipeDetector)(nil)
	})
}

func TestLetterFixtures(t *testing.T) {
	t.Run("A has folded fingers", func(t *testing.T) {
		a := LetterALandmarks()
		for _, f := range [][2]int{{IndexMCP, IndexTip}, {MiddleMCP, MiddleTip}, {RingMCP, RingTip}, {PinkyMCP, PinkyTip}} {
			if a.Points[f[0]].Y-a.Points[f[1]].Y > 0.05 {
				t.Errorf("finger %d appears extended", f[1])
			}
		}
	})

	t.Run("B has extended fingers", func(t *testing.T) {
		b := LetterBLandmarks()
		for _, f := range [][2]int{{IndexMCP, IndexTip}, {MiddleMCP, MiddleTip}, {RingMCP, RingTip}, {PinkyMCP, PinkyTip}} {
			if b.Points[f[0]].Y-b.Points[f[1]].Y < 0.2 {
				t.Errorf("finger %d not extended enough", f[1])
			}
		}
	})
}

func TestParseResponse(t *testing.T) {
	points := make([]string, NumLandmarks)
	for i := range points {
		points[i] = `{"x":0.5,"y":0.5,"z":0}`
	}
	fullHand := `{"points":[` + strings.Join(points, ",") + `],"handedness":"Left","score":0.8}`
	shortHand := `{"points":[{"x":0.1,"y":0.1,"z":0}],"handedness":"Right","score":0.9}`

	t.Run("valid hands", func(t *testing.T) {
		hands, err := parseResponse([]byte(`{"hands":[` + fullHand + `]}` + "\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 1 || hands[0].Handedness != "Left" {
			t.Fatalf("unexpected hands: %+v", hands)
		}
	})

	t.Run("drops malformed hand but keeps others", func(t *testing.T) {
		hands, err := parseResponse([]byte(`{"hands":[` + shortHand + `,` + fullHand + `]}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 1 {
			t.Fatalf("expected 1 hand, got %d", len(hands))
		}
	})

	t.Run("no hands", func(t *testing.T) {
		hands, err := parseResponse([]byte(`{"hands":[]}`))
		if err != nil || len(hands) != 0 {
			t.Fatalf("expected no hands and no error, got %v, %v", hands, err)
		}
	})

	t.Run("helper error", func(t *testing.T) {
		if _, err := parseResponse([]byte(`{"error":"bad image"}`)); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		if _, err := parseResponse([]byte(`not json`)); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestNewMediaPipeDetector_MissingScript(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Script = "/definitely/not/here.py"

	_, err := NewMediaPipeDetector(cfg)
	if !errors.Is(err, ErrScriptNotFound) {
		t.Errorf("expected ErrScriptNotFound, got %v", err)
	}
}
