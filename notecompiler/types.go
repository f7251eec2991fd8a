package notecompiler

import (
	"errors"
	"log/slog"

	readnotes "github.com/opd-ai/readnotes/src"
)

// Page geometry in PDF points (A4 at 72 points per inch). Exported documents
// depend on these staying fixed.
const (
	PageWidth    = 595.0
	PageHeight   = 842.0
	Margin       = 40.0
	ContentWidth = PageWidth - 2*Margin
)

// Vertical advances of the layout.
const (
	LineHeight       = 24.0
	TitleAdvance     = 40.0
	ImageSize        = 200.0
	ImageBlockHeight = 220.0
	SummaryGuard     = 80.0
	SummaryGap       = 40.0
)

// SummaryLabel is drawn above the summary body.
const SummaryLabel = "Summary:"

var (
	// ErrBackground means the note's background could not be resolved or decoded.
	ErrBackground = errors.New("background unavailable")
	// ErrRender means the document could not be drawn or serialized.
	ErrRender = errors.New("render failed")
)

// Result describes a finished export
type Result struct {
	Pages         int   `json:"pages"`
	Images        int   `json:"images"`
	SkippedImages int   `json:"skippedImages"`
	Bytes         int64 `json:"bytes"`
}

// NoteCompiler lays notes out on fixed-size pages and serializes them
type NoteCompiler struct {
	backgrounds BackgroundResolver
	fetcher     ImageFetcher
	newCanvas   CanvasFactory
	fontDir     string
	prefetch    int
	logger      *slog.Logger
}

// DocumentInfo is what a canvas needs to know before the first page.
type DocumentInfo struct {
	Title    string
	Typeface readnotes.Typeface
	FontDir  string
}
