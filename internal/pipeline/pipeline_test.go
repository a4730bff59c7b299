package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
	"golang.org/x/sync/semaphore"

	"github.com/ayusman/signlens/internal/classifier"
	"github.com/ayusman/signlens/internal/detector"
)

func testFrame(t *testing.T) string {
	t.Helper()
	img := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer img.Close()

	uri, err := EncodeDataURI(img)
	require.NoError(t, err)
	return uri
}

func TestDecodePayload(t *testing.T) {
	raw := []byte{0xff, 0xd8, 0xff}
	enc := base64.StdEncoding.EncodeToString(raw)

	got, err := DecodePayload(DataURIPrefix + enc)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	got, err = DecodePayload(enc)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	for _, bad := range []string{"", "data:image/jpeg;base64", "data:image/jpeg;base64,!!!", DataURIPrefix} {
		_, err := DecodePayload(bad)
		assert.True(t, errors.Is(err, ErrDecode), "input %q: %v", bad, err)
	}
}

func TestBoundingBox(t *testing.T) {
	hand := detector.LetterBLandmarks()
	b := hand.Bounds()

	box := BoundingBox(&hand, 640, 480)
	want := image.Rect(
		int(b.MinX*640)-BoxOffset,
		int(b.MinY*480)-BoxOffset,
		int(b.MaxX*640)+BoxOffset,
		int(b.MaxY*480)+BoxOffset,
	).Intersect(image.Rect(0, 0, 640, 480))
	assert.Equal(t, want, box)

	assert.Equal(t, image.Pt(box.Min.X, box.Min.Y-10), LabelOrigin(box))
}

func TestBoundingBox_ClampedToFrame(t *testing.T) {
	var hand detector.HandLandmarks
	for i := range hand.Points {
		hand.Points[i] = detector.Point3D{X: 0.5, Y: 0.5}
	}
	hand.Points[0] = detector.Point3D{X: 0, Y: 0.01}
	hand.Points[1] = detector.Point3D{X: 1, Y: 1}

	box := BoundingBox(&hand, 640, 480)
	assert.Equal(t, image.Rect(0, 0, 640, 480), box)
}

func TestResult_Label(t *testing.T) {
	_, ok := Result{}.Label()
	assert.False(t, ok)

	label, ok := Result{Labels: []string{"A", "B"}}.Label()
	require.True(t, ok)
	assert.Equal(t, "B", label)
}

func TestPipeline_Process(t *testing.T) {
	frame := testFrame(t)

	t.Run("no hands", func(t *testing.T) {
		det := detector.NewMockDetector()
		clf := classifier.NewMockClassifier("A")

		res, err := New(det, nil).Process(context.Background(), frame, clf)
		require.NoError(t, err)
		assert.Empty(t, res.Labels)
		assert.Equal(t, 0, res.Hands)
		assert.True(t, strings.HasPrefix(res.Frame, DataURIPrefix))
		assert.Equal(t, 0, clf.Calls())
	})

	t.Run("one hand", func(t *testing.T) {
		det := detector.NewMockDetector()
		det.SetHands([]detector.HandLandmarks{detector.LetterALandmarks()})
		clf := classifier.NewMockClassifier("A")

		res, err := New(det, nil).Process(context.Background(), frame, clf)
		require.NoError(t, err)
		assert.Equal(t, []string{"A"}, res.Labels)
		assert.Equal(t, 1, res.Hands)
		assert.NotEmpty(t, res.Frame)
	})

	t.Run("two hands classified separately", func(t *testing.T) {
		det := detector.NewMockDetector()
		det.SetHands([]detector.HandLandmarks{detector.LetterALandmarks(), detector.LetterBLandmarks()})
		clf := classifier.NewMockClassifier("B")

		res, err := New(det, nil).Process(context.Background(), frame, clf)
		require.NoError(t, err)
		assert.Equal(t, []string{"B", "B"}, res.Labels)
		assert.Equal(t, 2, clf.Calls())
	})

	t.Run("classifier error skips hand", func(t *testing.T) {
		det := detector.NewMockDetector()
		det.SetHands([]detector.HandLandmarks{detector.LetterALandmarks()})
		clf := classifier.NewMockClassifier("A")
		clf.SetError(classifier.ErrFeatureLength)

		res, err := New(det, nil).Process(context.Background(), frame, clf)
		require.NoError(t, err)
		assert.Empty(t, res.Labels)
		assert.Equal(t, 1, res.Hands)
		assert.NotEmpty(t, res.Frame)
	})

	t.Run("classifier panic is recovered", func(t *testing.T) {
		det := detector.NewMockDetector()
		det.SetHands([]detector.HandLandmarks{detector.LetterALandmarks()})
		clf := classifier.NewMockClassifier("A")
		clf.SetPanic("boom")

		res, err := New(det, nil).Process(context.Background(), frame, clf)
		require.NoError(t, err)
		assert.Empty(t, res.Labels)
	})

	t.Run("detector error leaves frame unlabelled", func(t *testing.T) {
		det := detector.NewMockDetector()
		det.SetError(errors.New("helper crashed"))
		clf := classifier.NewMockClassifier("A")

		res, err := New(det, nil).Process(context.Background(), frame, clf)
		require.NoError(t, err)
		assert.Empty(t, res.Labels)
		assert.True(t, strings.HasPrefix(res.Frame, DataURIPrefix))
	})

	t.Run("decode failure", func(t *testing.T) {
		det := detector.NewMockDetector()
		_, err := New(det, nil).Process(context.Background(), "data:image/jpeg;base64,bm90IGFuIGltYWdl", classifier.NewMockClassifier("A"))
		assert.True(t, errors.Is(err, ErrDecode), "got %v", err)
		assert.Equal(t, 0, det.Calls())
	})
}

// Run with -tags matprofile to make the Mat count meaningful.
func TestPipeline_DecodeFailureReleasesMats(t *testing.T) {
	p := New(detector.NewMockDetector(), nil)
	clf := classifier.NewMockClassifier("A")
	before := gocv.MatProfile.Count()

	for _, frame := range []string{
		"data:,!!",
		"data:image/jpeg;base64",
		"data:image/jpeg;base64,bm90IGFuIGltYWdl",
	} {
		_, err := p.Process(context.Background(), frame, clf)
		assert.True(t, errors.Is(err, ErrDecode), "%q: got %v", frame, err)
	}

	assert.Equal(t, before, gocv.MatProfile.Count())
}

func TestPipeline_SemaphoreHonorsContext(t *testing.T) {
	sem := semaphore.NewWeighted(1)
	require.True(t, sem.TryAcquire(1))
	defer sem.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(detector.NewMockDetector(), sem).Process(ctx, testFrame(t), classifier.NewMockClassifier("A"))
	assert.ErrorIs(t, err, context.Canceled)
}
