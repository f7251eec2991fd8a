package readnotes

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidNote is returned when a note cannot be exported as given.
var ErrInvalidNote = errors.New("invalid note")

// Note is a set of reading notes taken from one book
type Note struct {
	Title      string      `json:"title" yaml:"title"`
	Entries    []NoteEntry `json:"entries" yaml:"entries"`
	Summary    string      `json:"summary,omitempty" yaml:"summary,omitempty"`
	Font       string      `json:"font" yaml:"font"`
	FontSize   int         `json:"fontSize" yaml:"fontSize"`
	Background string      `json:"background" yaml:"background"`
}

// NoteEntry is one selected passage and the reader's thoughts about it
type NoteEntry struct {
	Text     string `json:"text" yaml:"text"`
	Thoughts string `json:"thoughts" yaml:"thoughts"`
	ImageURL string `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
}

// DefaultFontSize is used by loaders when a note does not pick a size.
const DefaultFontSize = 16

// HasSummary reports whether the note carries a summary block.
func (n *Note) HasSummary() bool {
	return n.Summary != ""
}

// HasImage reports whether an illustration was requested for the entry.
func (e *NoteEntry) HasImage() bool {
	return e.ImageURL != ""
}

// ReaderFont resolves the note's font id, falling back to the system font.
func (n *Note) ReaderFont() ReaderFont {
	return FontByID(n.Font)
}

// TitleSize is the point size used for the note title.
func (n *Note) TitleSize() float64 {
	return float64(n.FontSize) * 1.5
}

// HeadingSize is the point size used for the summary heading.
func (n *Note) HeadingSize() float64 {
	return float64(n.FontSize) * 1.1
}

// BodySize is the point size used for passages, thoughts and the summary.
func (n *Note) BodySize() float64 {
	return float64(n.FontSize)
}

// Validate checks the invariants the exporter depends on.
func (n *Note) Validate() error {
	if n == nil {
		return fmt.Errorf("%w: nil note", ErrInvalidNote)
	}
	if n.FontSize <= 0 {
		return fmt.Errorf("%w: font size must be positive, got %d", ErrInvalidNote, n.FontSize)
	}
	if strings.TrimSpace(n.Background) == "" {
		return fmt.Errorf("%w: background is required", ErrInvalidNote)
	}
	return nil
}

// Text renders the note as plain text, mostly for logs and previews.
func (n *Note) Text() string {
	var b strings.Builder
	b.WriteString("# " + n.Title + "\n")
	for _, e := range n.Entries {
		b.WriteString("> " + e.Text + "\n")
		if e.Thoughts != "" {
			b.WriteString(e.Thoughts + "\n")
		}
		if e.HasImage() {
			b.WriteString("Image: " + e.ImageURL + "\n")
		}
	}
	if n.HasSummary() {
		b.WriteString("Summary: " + n.Summary + "\n")
	}
	return b.String()
}
