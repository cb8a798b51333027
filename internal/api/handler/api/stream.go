package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/newthinker/sextant/internal/api/job"
	"github.com/newthinker/sextant/internal/api/response"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamHandler pushes job status changes over a WebSocket.
type StreamHandler struct {
	jobs   *job.Store
	logger *zap.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(jobs *job.Store, logger *zap.Logger) *StreamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamHandler{jobs: jobs, logger: logger}
}

// Stream sends the job's current state, then every change until it
// finishes, then closes the connection normally.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	updates, cancel, err := h.jobs.Subscribe(r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// The reader only notices the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case j, ok := <-updates:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished"))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(j); err != nil {
				h.logger.Debug("websocket write failed", zap.String("job_id", j.ID), zap.Error(err))
				return
			}
		case <-gone:
			return
		}
	}
}
