package exporter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/opd-ai/readnotes/notecompiler"
)

type ExportState string

const (
	StateQueued    ExportState = "queued"
	StateRunning   ExportState = "running"
	StateCompleted ExportState = "completed"
	StateError     ExportState = "error"
	StateCancelled ExportState = "cancelled"
)

// Terminal reports whether no further transitions can happen.
func (s ExportState) Terminal() bool {
	return s == StateCompleted || s == StateError || s == StateCancelled
}

// MessageEmitter records a message sent for a job, e.g. into its history.
type MessageEmitter func(jobID string, msg WSMessage)

// ExportProgress tracks one export job and streams its updates to an
// optional websocket connection.
type ExportProgress struct {
	mu        sync.RWMutex
	JobID     string
	Title     string
	State     ExportState
	Output    string
	Error     error
	Result    *notecompiler.Result
	File      string
	StartTime time.Time
	EndTime   time.Time
	Done      chan struct{}

	doneOnce sync.Once
	wsConn   *websocket.Conn
	cancel   context.CancelFunc
	emitter  MessageEmitter
	logger   *slog.Logger
}

// NewExportProgress returns a queued job. emitter may be nil.
func NewExportProgress(jobID, title string, emitter MessageEmitter, logger *slog.Logger) *ExportProgress {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportProgress{
		JobID:     jobID,
		Title:     title,
		State:     StateQueued,
		StartTime: time.Now(),
		Done:      make(chan struct{}),
		emitter:   emitter,
		logger:    logger.With("job", jobID),
	}
}

// SendUpdate records message and pushes it to the attached connection, if any.
func (p *ExportProgress) SendUpdate(message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	msg := NewWSMessage("update", string(p.State), message, p.Output)

	if p.emitter != nil {
		p.emitter(p.JobID, msg)
	}

	if p.wsConn == nil {
		p.logger.Debug("message queued without websocket", "message", message)
		return nil
	}
	if err := p.wsConn.WriteJSON(msg); err != nil {
		p.logger.Warn("failed to send websocket message", "error", err)
		return err
	}
	return nil
}

// UpdateState moves the job to state and announces the transition.
func (p *ExportProgress) UpdateState(state ExportState) {
	p.mu.Lock()
	old := p.State
	p.State = state
	if state.Terminal() {
		p.EndTime = time.Now()
	}
	p.mu.Unlock()
	p.logger.Info("state transition", "from", old, "to", state)

	message := ""
	switch state {
	case StateRunning:
		message = "Exporting notes..."
	case StateCompleted:
		message = "Export completed"
	case StateError:
		message = "Export failed"
	case StateCancelled:
		message = "Export cancelled"
	}
	p.SendUpdate(message)
}

// UpdateOutput implements readnotes.Progressor.
func (p *ExportProgress) UpdateOutput(output string) {
	p.mu.Lock()
	p.Output = output
	p.mu.Unlock()
	p.SendUpdate(output)
}

// Attach makes conn the job's live connection, closing any previous one.
// replay runs first under the job lock, so no update is missed or sent
// twice between replayed history and the live stream.
func (p *ExportProgress) Attach(conn *websocket.Conn, replay func(*websocket.Conn) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if replay != nil {
		if err := replay(conn); err != nil {
			return err
		}
	}
	if p.wsConn != nil && p.wsConn != conn {
		p.wsConn.Close()
	}
	p.wsConn = conn
	return nil
}

// Detach drops conn if it is still the live connection.
func (p *ExportProgress) Detach(conn *websocket.Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.wsConn == conn {
		p.wsConn = nil
	}
}

// Close sends a normal closure on the live connection.
func (p *ExportProgress) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.wsConn != nil {
		p.wsConn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		p.wsConn.Close()
		p.wsConn = nil
	}
}

// Bind derives the job's context from parent so Cancel can stop it.
func (p *ExportProgress) Bind(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()
	return ctx
}

// Cancel stops a running export. It reports false once the job has finished.
func (p *ExportProgress) Cancel() bool {
	p.mu.RLock()
	cancel, state := p.cancel, p.State
	p.mu.RUnlock()
	if state.Terminal() || cancel == nil {
		return false
	}
	cancel()
	return true
}

// MarkDone closes Done once the owner is finished with the job.
func (p *ExportProgress) MarkDone() {
	p.doneOnce.Do(func() { close(p.Done) })
}

func (p *ExportProgress) GetState() ExportState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.State
}

// Status is a point-in-time copy of the job for API responses.
func (p *ExportProgress) Status() JobStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	status := JobStatus{
		ID:        p.JobID,
		Title:     p.Title,
		State:     p.State,
		Output:    p.Output,
		Result:    p.Result,
		StartTime: p.StartTime,
	}
	if p.Error != nil {
		status.Error = p.Error.Error()
	}
	if !p.EndTime.IsZero() {
		end := p.EndTime
		status.EndTime = &end
	}
	return status
}

func (p *ExportProgress) finish(state ExportState, result *notecompiler.Result, file string, err error) {
	p.mu.Lock()
	p.Result = result
	p.File = file
	p.Error = err
	p.mu.Unlock()
	p.UpdateState(state)
}

// OutputFile returns the exported document path once the job completed.
func (p *ExportProgress) OutputFile() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.File, p.State == StateCompleted && p.File != ""
}

// JobStatus is the JSON view of an export job.
type JobStatus struct {
	ID        string               `json:"id"`
	Title     string               `json:"title"`
	State     ExportState          `json:"state"`
	Output    string               `json:"output,omitempty"`
	Error     string               `json:"error,omitempty"`
	Result    *notecompiler.Result `json:"result,omitempty"`
	StartTime time.Time            `json:"startTime"`
	EndTime   *time.Time           `json:"endTime,omitempty"`
}

type WSMessage struct {
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Output    string    `json:"output"`
	Timestamp time.Time `json:"timestamp"`
}

func NewWSMessage(msgType, status, message, output string) WSMessage {
	return WSMessage{
		Type:      msgType,
		Status:    status,
		Message:   message,
		Output:    output,
		Timestamp: time.Now(),
	}
}
