package exporter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/readnotes/notecompiler"
	readnotes "github.com/opd-ai/readnotes/src"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// blockingFetcher waits for cancellation on every fetch.
type blockingFetcher struct {
	started chan struct{}
	once    sync.Once
}

func (f *blockingFetcher) Fetch(ctx context.Context, url string) (*notecompiler.Image, error) {
	f.once.Do(func() { close(f.started) })
	<-ctx.Done()
	return nil, ctx.Err()
}

type failingFetcher struct{}

func (failingFetcher) Fetch(ctx context.Context, url string) (*notecompiler.Image, error) {
	return nil, errors.New("offline")
}

type recorder struct {
	mu   sync.Mutex
	msgs []WSMessage
}

func (r *recorder) emit(jobID string, msg WSMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) statuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.msgs {
		out = append(out, m.Status)
	}
	return out
}

func newCompiler(fetcher notecompiler.ImageFetcher) *notecompiler.NoteCompiler {
	return notecompiler.NewNoteCompiler(notecompiler.NewAssetResolver(nil),
		notecompiler.WithFetcher(fetcher), notecompiler.WithLogger(quietLogger))
}

func sampleNote() *readnotes.Note {
	return &readnotes.Note{
		Title:      "Meditations",
		Entries:    []readnotes.NoteEntry{{Text: "You have power over your mind.", Thoughts: "not outside events", ImageURL: "https://img.test/a.png"}},
		Summary:    "Stoicism.",
		Font:       "serif",
		FontSize:   14,
		Background: "parchment",
	}
}

func TestRunExportCompletes(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	progress := NewExportProgress("job-1", "Meditations", rec.emit, quietLogger)
	ctx := progress.Bind(context.Background())

	err := RunExport(ctx, newCompiler(failingFetcher{}), progress, sampleNote(), dir)
	require.NoError(t, err)

	status := progress.Status()
	assert.Equal(t, StateCompleted, status.State)
	require.NotNil(t, status.Result)
	assert.Equal(t, 1, status.Result.Pages)
	assert.Equal(t, 1, status.Result.SkippedImages)
	assert.NotNil(t, status.EndTime)

	file, ok := progress.OutputFile()
	require.True(t, ok)
	assert.Equal(t, OutputPath(dir, "job-1"), file)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-", string(data[:5]))

	statuses := rec.statuses()
	assert.Equal(t, "running", statuses[0])
	assert.Equal(t, "completed", statuses[len(statuses)-1])
	assert.False(t, progress.Cancel())
}

func TestRunExportInvalidNote(t *testing.T) {
	dir := t.TempDir()
	progress := NewExportProgress("job-2", "", nil, quietLogger)
	note := sampleNote()
	note.FontSize = 0

	err := RunExport(progress.Bind(context.Background()), newCompiler(failingFetcher{}), progress, note, dir)
	assert.ErrorIs(t, err, readnotes.ErrInvalidNote)
	assert.Equal(t, StateError, progress.GetState())
	assert.Contains(t, progress.Status().Error, "validating note")

	_, ok := progress.OutputFile()
	assert.False(t, ok)
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestRunExportCancel(t *testing.T) {
	dir := t.TempDir()
	fetcher := &blockingFetcher{started: make(chan struct{})}
	progress := NewExportProgress("job-3", "Meditations", nil, quietLogger)
	ctx := progress.Bind(context.Background())

	errc := make(chan error, 1)
	go func() {
		errc <- RunExport(ctx, newCompiler(fetcher), progress, sampleNote(), dir)
	}()

	<-fetcher.started
	assert.True(t, progress.Cancel())
	assert.ErrorIs(t, <-errc, context.Canceled)
	assert.Equal(t, StateCancelled, progress.GetState())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "a cancelled export must not leave files behind")
}

func TestCancelBeforeStart(t *testing.T) {
	progress := NewExportProgress("job-4", "", nil, quietLogger)
	assert.False(t, progress.Cancel(), "unbound job cannot be cancelled")

	ctx := progress.Bind(context.Background())
	assert.True(t, progress.Cancel())

	err := RunExport(ctx, newCompiler(failingFetcher{}), progress, sampleNote(), t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateCancelled, progress.GetState())
}

func TestExportStateTerminal(t *testing.T) {
	assert.False(t, StateQueued.Terminal())
	assert.False(t, StateRunning.Terminal())
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateError.Terminal())
	assert.True(t, StateCancelled.Terminal())
}
