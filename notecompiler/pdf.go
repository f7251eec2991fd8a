package notecompiler

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/image/font/sfnt"

	readnotes "github.com/opd-ai/readnotes/src"
)

// Creator is recorded as the producing application in exported documents.
const Creator = "readnotes"

type pdfCanvas struct {
	pdf       *gofpdf.Fpdf
	family    string
	baseStyle string
	translate func(string) string
	images    map[string]bool
	closed    bool
}

// NewPDFCanvas opens an A4 PDF canvas. Typefaces backed by a TTF file are
// loaded from info.FontDir; when the file is missing or unreadable the
// canvas falls back to readnotes.DefaultTypeface. Core faces are replaced by
// readnotes.UnicodeFontFile when info.FontDir holds one.
func NewPDFCanvas(info DocumentInfo) (Canvas, error) {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: PageWidth, Ht: PageHeight},
	})
	pdf.SetMargins(Margin, Margin, Margin)
	pdf.SetAutoPageBreak(false, Margin)
	pdf.SetCreator(Creator, true)
	if info.Title != "" {
		pdf.SetTitle(info.Title, true)
	}

	c := &pdfCanvas{
		pdf:    pdf,
		images: make(map[string]bool),
	}
	c.loadTypeface(info.Typeface, info.FontDir)
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("initializing PDF: %w", err)
	}
	return c, nil
}

// unicodeFamily is the registration name of readnotes.UnicodeFontFile.
const unicodeFamily = "ReaderUnicode"

func (c *pdfCanvas) loadTypeface(face readnotes.Typeface, fontDir string) {
	if face.File != "" {
		if c.loadFontFile(face.Family, filepath.Join(fontDir, face.File)) {
			c.family = face.Family
			c.translate = func(s string) string { return s }
			return
		}
		face = readnotes.DefaultTypeface
	}

	if fontDir != "" && c.loadFontFile(unicodeFamily, filepath.Join(fontDir, readnotes.UnicodeFontFile)) {
		c.family = unicodeFamily
		c.translate = func(s string) string { return s }
		return
	}

	c.family = face.Family
	c.baseStyle = face.Style
	c.translate = c.pdf.UnicodeTranslatorFromDescriptor("")
}

// loadFontFile registers the TTF at path under family. It reports false,
// leaving the document error clear, when the file is missing or unusable.
func (c *pdfCanvas) loadFontFile(family, path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	// gofpdf prints parse failures instead of reporting them.
	if _, err := sfnt.Parse(data); err != nil {
		return false
	}
	if !c.addUTF8Font(family, data) {
		c.pdf.ClearError()
		return false
	}
	return true
}

// addUTF8Font registers regular and bold styles from the same TTF data and
// selects each once; a style gofpdf failed to register leaves an error. The
// font parser panics on some malformed files.
func (c *pdfCanvas) addUTF8Font(family string, data []byte) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	c.pdf.AddUTF8FontFromBytes(family, "", data)
	c.pdf.AddUTF8FontFromBytes(family, "B", data)
	c.pdf.SetFont(family, "", 12)
	c.pdf.SetFont(family, "B", 12)
	return !c.pdf.Err()
}

func (c *pdfCanvas) BeginPage() error {
	c.pdf.AddPage()
	return c.pdf.Error()
}

func (c *pdfCanvas) FinishPage() error {
	return c.pdf.Error()
}

func (c *pdfCanvas) SetTextStyle(style TextStyle) {
	fontStyle := c.baseStyle
	if style.Bold {
		fontStyle = "B" + fontStyle
	}
	c.pdf.SetFont(c.family, fontStyle, style.Size)
	c.pdf.SetTextColor(style.Ink.RGB())
}

func (c *pdfCanvas) MeasureText(s string) float64 {
	return c.pdf.GetStringWidth(c.translate(s))
}

func (c *pdfCanvas) DrawText(x, y float64, s string) {
	c.pdf.Text(x, y, c.translate(s))
}

func (c *pdfCanvas) DrawImage(img *Image, x, y, w, h float64) {
	if img == nil || c.pdf.Err() {
		return
	}
	name := fmt.Sprintf("%s@%dx%d", img.Key, pixels(w), pixels(h))
	options := gofpdf.ImageOptions{ImageType: "PNG"}
	if !c.images[name] {
		data, err := img.encodePNG(w, h)
		if err != nil {
			c.pdf.SetError(err)
			return
		}
		c.pdf.RegisterImageOptionsReader(name, options, bytes.NewReader(data))
		c.images[name] = true
	}
	c.pdf.ImageOptions(name, x, y, w, h, false, options, 0, "")
}

func (c *pdfCanvas) WriteTo(w io.Writer) (int64, error) {
	cw := &countWriter{w: w}
	err := c.pdf.Output(cw)
	c.closed = true
	return cw.n, err
}

func (c *pdfCanvas) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.pdf.Close()
	return nil
}

type countWriter struct {
	w io.Writer
	n int64
}

func (cw *countWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
