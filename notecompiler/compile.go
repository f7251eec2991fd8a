package notecompiler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	readnotes "github.com/opd-ai/readnotes/src"
)

// NewNoteCompiler returns a compiler resolving backgrounds through
// backgrounds. By default images are fetched over HTTP one at a time and
// documents are rendered as PDF.
func NewNoteCompiler(backgrounds BackgroundResolver, opts ...Option) *NoteCompiler {
	nc := &NoteCompiler{
		backgrounds: backgrounds,
		newCanvas:   NewPDFCanvas,
		prefetch:    1,
	}
	for _, opt := range opts {
		opt(nc)
	}
	if nc.logger == nil {
		nc.logger = slog.Default()
	}
	if nc.fetcher == nil {
		nc.fetcher = NewHTTPFetcher(DefaultImageTimeout, WithFetchLogger(nc.logger))
	}
	return nc
}

// Export renders note and writes the document to w.
func (nc *NoteCompiler) Export(ctx context.Context, note *readnotes.Note, w io.Writer) (*Result, error) {
	return nc.ExportProgress(ctx, note, w, nil)
}

// ExportProgress is Export with progress updates sent to p. Nothing is
// written to w unless the whole document rendered successfully.
func (nc *NoteCompiler) ExportProgress(ctx context.Context, note *readnotes.Note, w io.Writer, p readnotes.Progressor) (*Result, error) {
	pr := readnotes.OrNull(p)

	if err := note.Validate(); err != nil {
		return nil, err
	}

	pr.UpdateOutput("Loading background...")
	background, err := nc.backgrounds.Resolve(note.Background)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackground, err)
	}

	canvas, err := nc.newCanvas(DocumentInfo{
		Title:    note.Title,
		Typeface: note.ReaderFont().Typeface(),
		FontDir:  nc.fontDir,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	defer canvas.Close()

	prefetched := nc.prefetchImages(ctx, note, pr)

	result := &Result{}
	if err := nc.layout(ctx, note, canvas, background, prefetched, result, pr); err != nil {
		return nil, err
	}

	pr.UpdateOutput(fmt.Sprintf("Serializing %d pages...", result.Pages))
	var buf bytes.Buffer
	if _, err := canvas.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("%w: serializing document: %w", ErrRender, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n, err := buf.WriteTo(w)
	if err != nil {
		return nil, fmt.Errorf("writing document: %w", err)
	}
	result.Bytes = n

	nc.logger.Info("note exported",
		"title", note.Title,
		"pages", result.Pages,
		"images", result.Images,
		"skipped_images", result.SkippedImages,
		"bytes", result.Bytes)
	return result, nil
}

// Backgrounds lists the background handles notes may use. Resolvers that
// cannot enumerate themselves report only the built-ins.
func (nc *NoteCompiler) Backgrounds() ([]string, error) {
	if lister, ok := nc.backgrounds.(BackgroundLister); ok {
		return lister.List()
	}
	return BuiltinBackgrounds(), nil
}

// ExportFile renders note into path. The file only appears once the
// document is complete.
func (nc *NoteCompiler) ExportFile(ctx context.Context, note *readnotes.Note, path string, p readnotes.Progressor) (*Result, error) {
	var result *Result
	err := readnotes.WriteAtomic(path, 0o644, func(w io.Writer) error {
		var err error
		result, err = nc.ExportProgress(ctx, note, w, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (nc *NoteCompiler) layout(ctx context.Context, note *readnotes.Note, canvas Canvas, background *Image, prefetched []fetchResult, result *Result, pr readnotes.Progressor) error {
	flow := newPageFlow(canvas, background)
	if err := flow.beginPage(); err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}

	body := TextStyle{Size: note.BodySize(), Ink: InkNeutral}
	thoughts := TextStyle{Size: note.BodySize(), Ink: InkAccent}

	canvas.SetTextStyle(TextStyle{Size: note.TitleSize(), Bold: true, Ink: InkNeutral})
	canvas.DrawText(Margin, flow.y, note.Title)
	flow.advance(TitleAdvance)

	for i := range note.Entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry := &note.Entries[i]
		pr.UpdateOutput(fmt.Sprintf("Laying out entry %d of %d", i+1, len(note.Entries)))

		canvas.SetTextStyle(body)
		if err := flow.lines(Wrap(entry.Text, ContentWidth, canvas.MeasureText)); err != nil {
			return fmt.Errorf("%w: %w", ErrRender, err)
		}
		canvas.SetTextStyle(thoughts)
		if err := flow.lines(Wrap(entry.Thoughts, ContentWidth, canvas.MeasureText)); err != nil {
			return fmt.Errorf("%w: %w", ErrRender, err)
		}

		if !entry.HasImage() {
			continue
		}
		img, err := nc.entryImage(ctx, i, entry.ImageURL, prefetched)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			result.SkippedImages++
			nc.logger.Warn("skipping entry image", "entry", i, "url", entry.ImageURL, "error", err)
			pr.UpdateOutput(fmt.Sprintf("Skipped image for entry %d", i+1))
			continue
		}
		if err := flow.image(img); err != nil {
			return fmt.Errorf("%w: %w", ErrRender, err)
		}
		result.Images++
	}

	if note.HasSummary() {
		if err := flow.ensureSpace(SummaryGuard); err != nil {
			return fmt.Errorf("%w: %w", ErrRender, err)
		}
		canvas.SetTextStyle(TextStyle{Size: note.HeadingSize(), Bold: true, Ink: InkHeading})
		canvas.DrawText(Margin, flow.y, SummaryLabel)
		flow.advance(LineHeight)

		canvas.SetTextStyle(body)
		if err := flow.lines(Wrap(note.Summary, ContentWidth, canvas.MeasureText)); err != nil {
			return fmt.Errorf("%w: %w", ErrRender, err)
		}
		flow.advance(SummaryGap)
	}

	if err := flow.finishPage(); err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	result.Pages = flow.pages
	return nil
}

type fetchResult struct {
	img *Image
	err error
}

func (nc *NoteCompiler) entryImage(ctx context.Context, index int, url string, prefetched []fetchResult) (*Image, error) {
	if prefetched != nil {
		r := prefetched[index]
		return r.img, r.err
	}
	return nc.fetchImage(ctx, url)
}

// fetchImage runs the fetch on its own goroutine so layout only waits for
// the result or for cancellation.
func (nc *NoteCompiler) fetchImage(ctx context.Context, url string) (*Image, error) {
	done := make(chan fetchResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fetchResult{err: fmt.Errorf("fetching %s: panic: %v", url, p)}
			}
		}()
		img, err := nc.fetcher.Fetch(ctx, url)
		if err == nil && img == nil {
			err = fmt.Errorf("fetching %s: %w", url, errEmptyImage)
		}
		done <- fetchResult{img: img, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.img, r.err
	}
}

// prefetchImages fetches every entry image concurrently when prefetching is
// enabled. Results are indexed by entry so layout order is unchanged.
func (nc *NoteCompiler) prefetchImages(ctx context.Context, note *readnotes.Note, pr readnotes.Progressor) []fetchResult {
	if nc.prefetch <= 1 {
		return nil
	}

	results := make([]fetchResult, len(note.Entries))
	var g errgroup.Group
	g.SetLimit(nc.prefetch)
	for i := range note.Entries {
		url := note.Entries[i].ImageURL
		if url == "" {
			continue
		}
		i := i
		g.Go(func() error {
			img, err := nc.fetchImage(ctx, url)
			results[i] = fetchResult{img: img, err: err}
			return nil
		})
	}
	pr.UpdateOutput("Fetching images...")
	_ = g.Wait()
	return results
}
