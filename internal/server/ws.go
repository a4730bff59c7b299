package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/signlens/internal/app"
	"github.com/ayusman/signlens/internal/logging"
	"github.com/ayusman/signlens/internal/session"
)

// Incoming event names.
const (
	EventSendFrame                = "send_frame"
	EventRecognitionStatusRequest = "recognition_status_request"
	EventStopProcessing           = "stop_processing"
	EventSaveSentence             = "save_sentence"
)

const (
	// maxMessageSize bounds one incoming event, frames included.
	maxMessageSize = 8 << 20
	writeWait      = 10 * time.Second
	outboxSize     = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 << 10,
	WriteBufferSize: 64 << 10,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Envelope is the JSON frame for every websocket message.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outgoing struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// FrameRequest is the payload of send_frame.
type FrameRequest struct {
	FrameData     string `json:"frameData"`
	SelectedModel string `json:"selectedModel"`
}

// StatusRequest is the payload of recognition_status_request.
type StatusRequest struct {
	SelectedModel string `json:"selectedModel"`
}

// EventHandler runs one recognition session per websocket connection.
type EventHandler struct {
	app *app.App
}

// NewEventHandler creates a new EventHandler over a.
func NewEventHandler(a *app.App) *EventHandler {
	return &EventHandler{app: a}
}

// ServeHTTP upgrades the request and serves events until the client leaves.
func (h *EventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warning.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outbox := make(chan outgoing, outboxSize)
	emit := func(e session.Event) {
		select {
		case outbox <- outgoing{Event: e.Name, Data: e.Data}:
		case <-ctx.Done():
		}
	}

	c, err := h.app.Connect(ctx, emit)
	if err != nil {
		logging.Error.Printf("websocket: %v", err)
		conn.WriteJSON(outgoing{Event: session.EventError, Data: session.ErrorMessage{Message: "session unavailable"}})
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		writeLoop(ctx, conn, outbox)
		cancel()
	}()
	// unblock the reader on shutdown or writer failure
	go func() {
		defer wg.Done()
		<-ctx.Done()
		conn.Close()
	}()

	h.readLoop(ctx, conn, c.Worker)

	cancel()
	wg.Wait()
	c.Close()
}

func (h *EventHandler) readLoop(ctx context.Context, conn *websocket.Conn, w *session.Worker) {
	id := w.Session().ID
	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Warning.Printf("session %s: read: %v", id, err)
			}
			return
		}

		if err := dispatch(ctx, w, env); err != nil {
			if errors.Is(err, session.ErrClosed) || errors.Is(err, context.Canceled) {
				return
			}
			logging.Warning.Printf("session %s: %s: %v", id, env.Event, err)
		}
	}
}

func dispatch(ctx context.Context, w *session.Worker, env Envelope) error {
	switch env.Event {
	case EventSendFrame:
		var req FrameRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return err
		}
		err := w.SubmitFrame(req.FrameData, req.SelectedModel)
		if errors.Is(err, session.ErrQueueFull) {
			logging.Trace.Printf("session %s: worker behind, frame dropped", w.Session().ID)
			return nil
		}
		return err
	case EventRecognitionStatusRequest:
		var req StatusRequest
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &req); err != nil {
				return err
			}
		}
		return w.RequestStatus(ctx, req.SelectedModel)
	case EventStopProcessing:
		return w.Stop(ctx)
	case EventSaveSentence:
		return w.SaveSentence(ctx)
	default:
		return errors.New("unknown event")
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, outbox <-chan outgoing) {
	for {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-outbox:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				logging.Warning.Printf("websocket write: %v", err)
				return
			}
		}
	}
}
