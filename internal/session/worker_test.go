package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/signlens/internal/classifier"
	"github.com/ayusman/signlens/internal/pipeline"
)

// fakeProcessor labels every frame with its own payload.
type fakeProcessor struct {
	mu     sync.Mutex
	frames []string
	delay  time.Duration
}

func (p *fakeProcessor) Process(ctx context.Context, frameData string, c classifier.Classifier) (pipeline.Result, error) {
	if frameData == "bad" {
		return pipeline.Result{}, fmt.Errorf("%w: test", pipeline.ErrDecode)
	}
	if p.delay > 0 {
		time.Sleep(p.delay)
	}

	p.mu.Lock()
	p.frames = append(p.frames, frameData)
	p.mu.Unlock()

	res := pipeline.Result{Frame: pipeline.DataURIPrefix + "eA==", Hands: 1}
	if frameData != "" {
		res.Labels = []string{frameData}
	}
	return res, nil
}

type fakeRecorder struct {
	mu        sync.Mutex
	signs     []string
	sentences []string
}

func (r *fakeRecorder) RecordSign(sessionID, label string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signs = append(r.signs, label)
	return nil
}

func (r *fakeRecorder) SaveSentence(sessionID, text string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sentences = append(r.sentences, text)
	return fmt.Sprintf("sentence-%d", len(r.sentences)), nil
}

func (r *fakeRecorder) Signs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.signs...)
}

type workerHarness struct {
	worker   *Worker
	session  *Session
	clock    *fakeClock
	proc     *fakeProcessor
	recorder *fakeRecorder
	events   chan Event
	cancel   context.CancelFunc
}

func startWorker(t *testing.T, queue int) *workerHarness {
	t.Helper()

	clock := newFakeClock()
	cfg := DefaultConfig()
	cfg.Now = clock.Now

	models := classifier.NewSet()
	models.Register(classifier.SelectorRandomForest, classifier.NewMockClassifier("A"))

	h := &workerHarness{
		session:  New("worker", cfg),
		clock:    clock,
		proc:     &fakeProcessor{},
		recorder: &fakeRecorder{},
		events:   make(chan Event, 256),
	}
	h.worker = NewWorker(h.session, WorkerConfig{
		Pipeline:  h.proc,
		Models:    models,
		Recorder:  h.recorder,
		Emit:      func(e Event) { h.events <- e },
		QueueSize: queue,
	})

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go h.worker.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.worker.Done()
	})
	return h
}

func (h *workerHarness) next(t *testing.T) Event {
	t.Helper()
	select {
	case e := <-h.events:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

// until reads events until one named name arrives and returns everything read.
func (h *workerHarness) until(t *testing.T, name string) []Event {
	t.Helper()
	var seen []Event
	for {
		e := h.next(t)
		seen = append(seen, e)
		if e.Name == name {
			return seen
		}
	}
}

func TestWorker_FrameEmitsProcessedFrame(t *testing.T) {
	h := startWorker(t, 8)

	require.NoError(t, h.worker.SubmitFrame("H", classifier.SelectorRandomForest))

	e := h.next(t)
	assert.Equal(t, EventProcessedFrame, e.Name)
	assert.Equal(t, pipeline.DataURIPrefix+"eA==", e.Data)

	require.NoError(t, h.worker.RequestStatus(context.Background(), classifier.SelectorRandomForest))
	events := h.until(t, EventRecognitionStatus)
	for _, e := range events {
		assert.NotEqual(t, EventSentenceUpdate, e.Name, "unconfirmed labels do not update the transcript")
	}
	assert.Equal(t, "H", h.session.Sentence())
	assert.Equal(t, "", h.session.Transcript())
	assert.True(t, h.session.Processing())
}

func TestWorker_NoLabelLeavesSentence(t *testing.T) {
	h := startWorker(t, 8)

	require.NoError(t, h.worker.SubmitFrame("", classifier.SelectorRandomForest))
	require.NoError(t, h.worker.RequestStatus(context.Background(), classifier.SelectorRandomForest))

	events := h.until(t, EventRecognitionStatus)
	for _, e := range events {
		assert.NotEqual(t, EventSentenceUpdate, e.Name)
	}
	assert.Equal(t, Status{Status: StatusNoSign}, events[len(events)-1].Data)
	assert.Equal(t, "", h.session.Sentence())
}

func TestWorker_StopOrderedAfterFrames(t *testing.T) {
	h := startWorker(t, 16)
	h.proc.delay = 5 * time.Millisecond

	for _, l := range []string{"A", "B", "C"} {
		require.NoError(t, h.worker.SubmitFrame(l, classifier.SelectorRandomForest))
	}
	require.NoError(t, h.worker.Stop(context.Background()))

	events := h.until(t, EventRecognitionStatus)

	frames := 0
	for _, e := range events {
		if e.Name == EventProcessedFrame {
			frames++
		}
	}
	assert.Equal(t, 3, frames, "every frame is processed before the stop")
	assert.Equal(t, Status{Status: StatusStopped}, events[len(events)-1].Data)

	h.proc.mu.Lock()
	assert.Equal(t, []string{"A", "B", "C"}, h.proc.frames)
	h.proc.mu.Unlock()

	assert.False(t, h.session.Processing())
	assert.Equal(t, "", h.session.Sentence())
	assert.Equal(t, 0, h.session.Stream().Len())
}

// submit sends a frame and waits for it to be processed.
func (h *workerHarness) submit(t *testing.T, label string) {
	t.Helper()
	require.NoError(t, h.worker.SubmitFrame(label, classifier.SelectorRandomForest))
	h.until(t, EventProcessedFrame)
}

// status requests a status and returns the events it produced.
func (h *workerHarness) status(t *testing.T) (Status, []Event) {
	t.Helper()
	require.NoError(t, h.worker.RequestStatus(context.Background(), classifier.SelectorRandomForest))
	events := h.until(t, EventRecognitionStatus)
	st := events[len(events)-1].Data.(Status)

	// a sentence update follows a fresh confirmation
	select {
	case e := <-h.events:
		events = append(events, e)
	case <-time.After(50 * time.Millisecond):
	}
	return st, events
}

func sentenceUpdates(events []Event) []string {
	var out []string
	for _, e := range events {
		if e.Name == EventSentenceUpdate {
			out = append(out, e.Data.(SentenceUpdate).Sentence)
		}
	}
	return out
}

func TestWorker_StatusRecordsConfirmedSignOnce(t *testing.T) {
	h := startWorker(t, 8)

	h.submit(t, "L")
	h.clock.Advance(2 * time.Second)
	h.submit(t, "L")
	h.clock.Advance(2 * time.Second)

	var updates []string
	for i := 0; i < 2; i++ {
		st, events := h.status(t)
		require.NotNil(t, st.OrderedSign)
		assert.Equal(t, StatusInProgress, st.Status)
		assert.Equal(t, "L", *st.OrderedSign)
		updates = append(updates, sentenceUpdates(events)...)
	}

	assert.Equal(t, []string{"L"}, updates)
	assert.Equal(t, []string{"L"}, h.recorder.Signs())
}

func TestWorker_RepeatedSignAfterGap(t *testing.T) {
	h := startWorker(t, 8)

	h.submit(t, "L")
	h.clock.Advance(4 * time.Second)
	h.submit(t, "L")

	st, _ := h.status(t)
	require.NotNil(t, st.OrderedSign)
	assert.Equal(t, "L", *st.OrderedSign)

	// hand lowered: the newest entry ages past the hold
	h.clock.Advance(4 * time.Second)
	st, _ = h.status(t)
	assert.Nil(t, st.OrderedSign)
	assert.Equal(t, StatusNoSign, st.Status)

	h.submit(t, "L")
	st, events := h.status(t)
	require.NotNil(t, st.OrderedSign)
	assert.Equal(t, "L", *st.OrderedSign)
	assert.Equal(t, []string{"LL"}, sentenceUpdates(events))

	assert.Equal(t, []string{"L", "L"}, h.recorder.Signs())
	assert.Equal(t, "LL", h.session.Transcript())
}

func TestWorker_UnknownModel(t *testing.T) {
	h := startWorker(t, 8)

	require.NoError(t, h.worker.SubmitFrame("A", "SVM"))
	e := h.next(t)
	assert.Equal(t, EventError, e.Name)
	assert.Contains(t, e.Data.(ErrorMessage).Message, "unknown model")
}

func TestWorker_DecodeError(t *testing.T) {
	h := startWorker(t, 8)

	require.NoError(t, h.worker.SubmitFrame("bad", classifier.SelectorRandomForest))
	e := h.next(t)
	assert.Equal(t, EventError, e.Name)
}

func TestWorker_SaveSentence(t *testing.T) {
	h := startWorker(t, 8)

	require.NoError(t, h.worker.SaveSentence(context.Background()))
	e := h.next(t)
	assert.Equal(t, EventError, e.Name, "empty sentence is not saved")

	// held A with the classifier flickering to B
	h.submit(t, "A")
	h.clock.Advance(time.Second)
	h.submit(t, "A")
	h.clock.Advance(time.Second)
	h.submit(t, "B")
	h.clock.Advance(time.Second)
	h.submit(t, "A")
	h.clock.Advance(500 * time.Millisecond)

	st, events := h.status(t)
	require.NotNil(t, st.OrderedSign)
	assert.Equal(t, "A", *st.OrderedSign)
	assert.Equal(t, []string{"A"}, sentenceUpdates(events))
	assert.Equal(t, "ABA", h.session.Sentence())

	require.NoError(t, h.worker.SaveSentence(context.Background()))
	events = h.until(t, EventSentenceSaved)
	assert.Equal(t, SentenceSaved{ID: "sentence-1", Text: "A"}, events[len(events)-1].Data)
}

func TestWorker_QueueFullDropsFrames(t *testing.T) {
	s := New("idle", DefaultConfig())
	w := NewWorker(s, WorkerConfig{QueueSize: 1})

	require.NoError(t, w.SubmitFrame("A", classifier.SelectorRandomForest))
	assert.ErrorIs(t, w.SubmitFrame("B", classifier.SelectorRandomForest), ErrQueueFull)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, w.Stop(ctx), context.DeadlineExceeded, "control commands wait for room")
}

func TestWorker_Closed(t *testing.T) {
	s := New("closed", DefaultConfig())
	w := NewWorker(s, WorkerConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Run(ctx)

	assert.ErrorIs(t, w.SubmitFrame("A", classifier.SelectorRandomForest), ErrClosed)
	assert.ErrorIs(t, w.Stop(context.Background()), ErrClosed)
}
