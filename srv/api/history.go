package api

import (
	"sync"

	"github.com/opd-ai/readnotes/srv/exporter"
)

// MaxHistoryMessages bounds the messages kept per job. Long notes report
// progress per entry, so only the most recent messages are replayed.
const MaxHistoryMessages = 256

// messageHistory keeps the latest messages of one job.
type messageHistory struct {
	mu       sync.RWMutex
	messages []exporter.WSMessage
	limit    int
	dropped  int
}

func newMessageHistory(limit int) *messageHistory {
	return &messageHistory{limit: limit}
}

func (h *messageHistory) add(msg exporter.WSMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
	if h.limit > 0 && len(h.messages) > h.limit {
		excess := len(h.messages) - h.limit
		h.messages = append(h.messages[:0:0], h.messages[excess:]...)
		h.dropped += excess
	}
}

// snapshot returns a copy of the kept messages, oldest first, and how many
// older ones were dropped.
func (h *messageHistory) snapshot() ([]exporter.WSMessage, int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	messages := make([]exporter.WSMessage, len(h.messages))
	copy(messages, h.messages)
	return messages, h.dropped
}
