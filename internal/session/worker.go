package session

import (
	"context"
	"errors"
	"time"

	"github.com/ayusman/signlens/internal/classifier"
	"github.com/ayusman/signlens/internal/logging"
	"github.com/ayusman/signlens/internal/pipeline"
)

// Outgoing event names.
const (
	EventProcessedFrame    = "processed_frame_data"
	EventRecognitionStatus = "recognition_status"
	EventSentenceUpdate    = "sentence_update"
	EventSentenceSaved     = "sentence_saved"
	EventError             = "error"
)

// DefaultQueueSize is the command queue length when none is configured.
const DefaultQueueSize = 8

// ErrQueueFull is returned when a frame is dropped because the worker is behind.
var ErrQueueFull = errors.New("session queue full")

// ErrClosed is returned for commands submitted after the worker stopped.
var ErrClosed = errors.New("session closed")

// Event is one message for the client.
type Event struct {
	Name string
	Data any
}

// SentenceUpdate is the payload of EventSentenceUpdate.
type SentenceUpdate struct {
	Sentence string `json:"sentence"`
}

// SentenceSaved is the payload of EventSentenceSaved.
type SentenceSaved struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ErrorMessage is the payload of EventError.
type ErrorMessage struct {
	Message string `json:"message"`
}

// FrameProcessor turns a frame into labels.
type FrameProcessor interface {
	Process(ctx context.Context, frameData string, c classifier.Classifier) (pipeline.Result, error)
}

// Models resolves a client model selector.
type Models interface {
	Get(selector string) (classifier.Classifier, error)
}

// Recorder persists session history.
type Recorder interface {
	RecordSign(sessionID, label string, at time.Time) error
	SaveSentence(sessionID, text string) (string, error)
}

// WorkerConfig wires a Worker.
type WorkerConfig struct {
	Pipeline  FrameProcessor
	Models    Models
	Recorder  Recorder // optional
	Emit      func(Event)
	QueueSize int
}

type commandKind int

const (
	cmdFrame commandKind = iota
	cmdStatus
	cmdStop
	cmdSave
)

type command struct {
	kind  commandKind
	frame string
	model string
}

// Worker owns a Session. Commands run one at a time in submission order, so
// frame results land in arrival order and a stop follows every earlier frame.
type Worker struct {
	session *Session
	cfg     WorkerConfig
	cmds    chan command
	done    chan struct{}
}

// NewWorker creates a Worker for s. Call Run to start it.
func NewWorker(s *Session, cfg WorkerConfig) *Worker {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Emit == nil {
		cfg.Emit = func(Event) {}
	}
	return &Worker{
		session: s,
		cfg:     cfg,
		cmds:    make(chan command, cfg.QueueSize),
		done:    make(chan struct{}),
	}
}

// Session returns the session the worker owns.
func (w *Worker) Session() *Session {
	return w.session
}

// SubmitFrame queues a frame. It never blocks: when the queue is full the
// frame is dropped and ErrQueueFull returned.
func (w *Worker) SubmitFrame(frameData, model string) error {
	cmd := command{kind: cmdFrame, frame: frameData, model: model}
	select {
	case <-w.done:
		return ErrClosed
	default:
	}

	select {
	case w.cmds <- cmd:
		return nil
	default:
		return ErrQueueFull
	}
}

// RequestStatus queues a recognition status query.
func (w *Worker) RequestStatus(ctx context.Context, model string) error {
	return w.submit(ctx, command{kind: cmdStatus, model: model})
}

// Stop queues a stop.
func (w *Worker) Stop(ctx context.Context) error {
	return w.submit(ctx, command{kind: cmdStop})
}

// SaveSentence queues persisting the transcript.
func (w *Worker) SaveSentence(ctx context.Context) error {
	return w.submit(ctx, command{kind: cmdSave})
}

func (w *Worker) submit(ctx context.Context, cmd command) error {
	select {
	case <-w.done:
		return ErrClosed
	default:
	}

	select {
	case w.cmds <- cmd:
		return nil
	case <-w.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once Run returns.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Run executes commands until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-w.cmds:
			w.execute(ctx, cmd)
		}
	}
}

func (w *Worker) execute(ctx context.Context, cmd command) {
	switch cmd.kind {
	case cmdFrame:
		w.handleFrame(ctx, cmd)
	case cmdStatus:
		w.handleStatus()
	case cmdStop:
		w.cfg.Emit(Event{Name: EventRecognitionStatus, Data: w.session.Stop()})
		logging.Info.Printf("session %s: recognition stopped", w.session.ID)
	case cmdSave:
		w.handleSave()
	}
}

func (w *Worker) handleFrame(ctx context.Context, cmd command) {
	w.session.StartProcessing()
	gen := w.session.Generation()

	c, err := w.cfg.Models.Get(cmd.model)
	if err != nil {
		logging.Warning.Printf("session %s: %v", w.session.ID, err)
		w.emitError(err)
		return
	}

	res, err := w.cfg.Pipeline.Process(ctx, cmd.frame, c)
	if err != nil {
		if errors.Is(err, pipeline.ErrDecode) {
			logging.Error.Printf("session %s: %v", w.session.ID, err)
			w.emitError(err)
		}
		return
	}

	if res.Frame != "" {
		w.cfg.Emit(Event{Name: EventProcessedFrame, Data: res.Frame})
	}

	if len(res.Labels) == 0 {
		return
	}
	// a Stop while the frame was in the pipeline invalidates its labels
	if !w.session.ApplyLabels(gen, res.Labels) {
		logging.Trace.Printf("session %s: dropping labels from generation %d", w.session.ID, gen)
	}
}

func (w *Worker) handleStatus() {
	st, fresh := w.session.Status()
	w.cfg.Emit(Event{Name: EventRecognitionStatus, Data: st})

	if !fresh {
		return
	}
	w.cfg.Emit(Event{Name: EventSentenceUpdate, Data: SentenceUpdate{Sentence: w.session.Transcript()}})
	if w.cfg.Recorder == nil {
		return
	}
	if err := w.cfg.Recorder.RecordSign(w.session.ID, *st.OrderedSign, w.session.now()); err != nil {
		logging.Error.Printf("session %s: record sign: %v", w.session.ID, err)
	}
}

func (w *Worker) handleSave() {
	text := w.session.Transcript()
	if text == "" {
		w.emitError(errors.New("sentence is empty"))
		return
	}
	if w.cfg.Recorder == nil {
		w.emitError(errors.New("sentence storage unavailable"))
		return
	}

	id, err := w.cfg.Recorder.SaveSentence(w.session.ID, text)
	if err != nil {
		logging.Error.Printf("session %s: save sentence: %v", w.session.ID, err)
		w.emitError(err)
		return
	}
	w.cfg.Emit(Event{Name: EventSentenceSaved, Data: SentenceSaved{ID: id, Text: text}})
}

func (w *Worker) emitError(err error) {
	w.cfg.Emit(Event{Name: EventError, Data: ErrorMessage{Message: err.Error()}})
}
