package readnotes

import "log/slog"

// Progressor receives human readable progress updates from long running work.
type Progressor interface {
	UpdateOutput(message string)
}

type nullProgressor struct{}

func (n nullProgressor) UpdateOutput(message string) {}

// OrNull returns p, or a progressor that drops every update when p is nil.
func OrNull(p Progressor) Progressor {
	if p != nil {
		return p
	}
	return nullProgressor{}
}

// LogProgressor forwards progress updates to a structured logger.
type LogProgressor struct {
	Logger *slog.Logger
	Attrs  []any
}

func (l LogProgressor) UpdateOutput(message string) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug(message, l.Attrs...)
}
