package notecompiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
	"unicode/utf8"

	readnotes "github.com/opd-ai/readnotes/src"
)

type drawOp struct {
	kind string // "text" or "image"
	text string
	key  string
	ink  Ink
	size float64
	bold bool
	x, y float64
	w, h float64
}

// recordingCanvas measures every rune as charWidth points and records draws
// page by page.
type recordingCanvas struct {
	charWidth float64
	info      DocumentInfo
	pages     [][]drawOp
	current   []drawOp
	open      bool
	style     TextStyle
	closed    bool
	written   bool
	beginErr  error
}

func newRecordingCanvas(charWidth float64) *recordingCanvas {
	return &recordingCanvas{charWidth: charWidth}
}

func (c *recordingCanvas) factory(info DocumentInfo) (Canvas, error) {
	c.info = info
	return c, nil
}

func (c *recordingCanvas) BeginPage() error {
	if c.beginErr != nil {
		return c.beginErr
	}
	if c.open {
		return errors.New("page already open")
	}
	c.open = true
	c.current = nil
	return nil
}

func (c *recordingCanvas) FinishPage() error {
	if !c.open {
		return errors.New("no open page")
	}
	c.pages = append(c.pages, c.current)
	c.current = nil
	c.open = false
	return nil
}

func (c *recordingCanvas) SetTextStyle(style TextStyle) { c.style = style }

func (c *recordingCanvas) MeasureText(s string) float64 {
	return float64(utf8.RuneCountInString(s)) * c.charWidth
}

func (c *recordingCanvas) DrawText(x, y float64, s string) {
	c.current = append(c.current, drawOp{
		kind: "text", text: s, ink: c.style.Ink, size: c.style.Size, bold: c.style.Bold, x: x, y: y,
	})
}

func (c *recordingCanvas) DrawImage(img *Image, x, y, w, h float64) {
	c.current = append(c.current, drawOp{kind: "image", key: img.Key, x: x, y: y, w: w, h: h})
}

func (c *recordingCanvas) WriteTo(w io.Writer) (int64, error) {
	if c.open {
		return 0, errors.New("unfinished page")
	}
	c.written = true
	n, err := fmt.Fprintf(w, "pages=%d", len(c.pages))
	return int64(n), err
}

func (c *recordingCanvas) Close() error {
	c.closed = true
	return nil
}

// texts returns every drawn string in document order.
func (c *recordingCanvas) texts() []drawOp {
	var ops []drawOp
	for _, page := range c.pages {
		for _, op := range page {
			if op.kind == "text" {
				ops = append(ops, op)
			}
		}
	}
	return ops
}

func (c *recordingCanvas) images() []drawOp {
	var ops []drawOp
	for _, page := range c.pages {
		for _, op := range page {
			if op.kind == "image" && op.w == ImageSize {
				ops = append(ops, op)
			}
		}
	}
	return ops
}

type fakeFetcher struct {
	mu     sync.Mutex
	images map[string]*Image
	calls  []string
	block  bool
}

func newFakeFetcher(urls ...string) *fakeFetcher {
	f := &fakeFetcher{images: make(map[string]*Image)}
	for _, u := range urls {
		f.images[u] = SolidImage(u, color.Black)
	}
	return f
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*Image, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	block := f.block
	img, ok := f.images[url]
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if !ok {
		return nil, fmt.Errorf("fetching %s: connection refused", url)
	}
	return img, nil
}

type staticResolver struct {
	img *Image
	err error
}

func (r staticResolver) Resolve(handle string) (*Image, error) {
	return r.img, r.err
}

func testBackground() BackgroundResolver {
	return staticResolver{img: SolidImage("background:test", color.White)}
}

func testNote(entries ...readnotes.NoteEntry) *readnotes.Note {
	return &readnotes.Note{
		Title:      "Test",
		Entries:    entries,
		Font:       "system",
		FontSize:   16,
		Background: "plain",
	}
}

type progressRecorder struct {
	mu       sync.Mutex
	messages []string
}

func (p *progressRecorder) UpdateOutput(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, message)
}

func pngBytes(w, h int, c color.Color) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}
