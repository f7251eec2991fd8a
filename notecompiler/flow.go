package notecompiler

// pageFlow places draw units top to bottom on a canvas, starting a new page
// whenever the next unit would cross the bottom margin.
type pageFlow struct {
	canvas     Canvas
	background *Image
	y          float64
	pages      int
	open       bool
}

func newPageFlow(canvas Canvas, background *Image) *pageFlow {
	return &pageFlow{canvas: canvas, background: background}
}

// beginPage starts a page and paints the background full-bleed before any
// content.
func (f *pageFlow) beginPage() error {
	if err := f.canvas.BeginPage(); err != nil {
		return err
	}
	f.open = true
	f.pages++
	f.y = Margin
	if f.background != nil {
		f.canvas.DrawImage(f.background, 0, 0, PageWidth, PageHeight)
	}
	return nil
}

func (f *pageFlow) finishPage() error {
	if !f.open {
		return nil
	}
	f.open = false
	return f.canvas.FinishPage()
}

// ensureSpace breaks the page if required points do not fit above the
// bottom margin.
func (f *pageFlow) ensureSpace(required float64) error {
	if f.y+required <= PageHeight-Margin {
		return nil
	}
	if err := f.finishPage(); err != nil {
		return err
	}
	return f.beginPage()
}

func (f *pageFlow) advance(h float64) {
	f.y += h
}

// lines draws each line as its own draw unit in the canvas's current style.
func (f *pageFlow) lines(lines []string) error {
	for _, line := range lines {
		if err := f.ensureSpace(LineHeight); err != nil {
			return err
		}
		f.canvas.DrawText(Margin, f.y, line)
		f.advance(LineHeight)
	}
	return nil
}

// image draws img as a square block at the left margin.
func (f *pageFlow) image(img *Image) error {
	if err := f.ensureSpace(ImageBlockHeight); err != nil {
		return err
	}
	f.canvas.DrawImage(img, Margin, f.y, ImageSize, ImageSize)
	f.advance(ImageBlockHeight)
	return nil
}
