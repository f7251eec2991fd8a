package notecompiler

import "io"

// Ink is the colour a category of text is drawn with.
type Ink int

const (
	// InkNeutral is used for titles, passages and the summary body.
	InkNeutral Ink = iota
	// InkAccent is used for the reader's thoughts.
	InkAccent
	// InkHeading is used for the summary heading.
	InkHeading
)

// RGB returns the ink colour as 0-255 components.
func (i Ink) RGB() (r, g, b int) {
	switch i {
	case InkAccent:
		return 156, 39, 176
	case InkHeading:
		return 0, 0, 255
	default:
		return 0, 0, 0
	}
}

func (i Ink) String() string {
	switch i {
	case InkAccent:
		return "accent"
	case InkHeading:
		return "heading"
	default:
		return "neutral"
	}
}

// TextStyle selects size, weight and ink for subsequent text operations.
type TextStyle struct {
	Size float64
	Bold bool
	Ink  Ink
}

// Canvas is a multi-page drawing surface. Coordinates are points from the
// top-left corner; text y is the baseline, image y is the top edge.
// Drawing calls record their first error, which FinishPage and WriteTo report.
type Canvas interface {
	BeginPage() error
	FinishPage() error

	SetTextStyle(style TextStyle)
	// MeasureText returns the width of s in the current text style.
	MeasureText(s string) float64
	DrawText(x, y float64, s string)
	DrawImage(img *Image, x, y, w, h float64)

	// WriteTo serializes every finished page in order.
	WriteTo(w io.Writer) (int64, error)
	// Close releases the document. It is safe to call after WriteTo.
	Close() error
}

// CanvasFactory opens a fresh canvas for one export.
type CanvasFactory func(info DocumentInfo) (Canvas, error)
