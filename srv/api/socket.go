package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	writeWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleWebSocket replays a job's message history, then streams its live
// updates until the job finishes or the client goes away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if !isValidJobID(jobID) {
		http.Error(w, "Invalid job id", http.StatusBadRequest)
		return
	}
	progress, ok := s.lookupJob(jobID)
	if !ok {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "job", jobID, "error", err)
		return
	}
	logger := s.logger.With("job", jobID)
	logger.Debug("websocket connection established")

	defer func() {
		progress.Detach(conn)
		conn.Close()
		logger.Debug("websocket connection closed")
	}()

	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	replay := func(c *websocket.Conn) error {
		messages, _ := s.history(jobID)
		for _, msg := range messages {
			if err := c.WriteJSON(msg); err != nil {
				return err
			}
		}
		return nil
	}
	if err := progress.Attach(conn, replay); err != nil {
		logger.Warn("failed to replay history", "error", err)
		return
	}

	select {
	case <-progress.Done:
		closeNormally(conn)
		return
	default:
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			case <-progress.Done:
				closeNormally(conn)
				return
			case <-done:
				return
			}
		}
	}()

	for {
		messageType, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket error", "error", err)
			}
			return
		}
		if messageType == websocket.CloseMessage {
			return
		}
	}
}

func closeNormally(conn *websocket.Conn) {
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished"),
		time.Now().Add(writeWait))
}
