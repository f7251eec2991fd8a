package exporter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/opd-ai/readnotes/notecompiler"
	readnotes "github.com/opd-ai/readnotes/src"
)

// OutputPath is where a job's document is written inside outputDir.
func OutputPath(outputDir, jobID string) string {
	return filepath.Join(outputDir, jobID+".pdf")
}

// RunExport exports note for progress into outputDir, reporting each step.
// ctx should come from progress.Bind so the job can be cancelled.
func RunExport(ctx context.Context, nc *notecompiler.NoteCompiler, progress *ExportProgress, note *readnotes.Note, outputDir string) error {
	progress.UpdateState(StateRunning)

	var result *notecompiler.Result
	path := OutputPath(outputDir, progress.JobID)

	steps := []struct {
		name     string
		function func() error
	}{
		{
			name: "validating note",
			function: func() error {
				progress.UpdateOutput(fmt.Sprintf("Validating %q (%d entries)...", note.Title, len(note.Entries)))
				return note.Validate()
			},
		},
		{
			name: "rendering document",
			function: func() error {
				var err error
				result, err = nc.ExportFile(ctx, note, path, progress)
				return err
			},
		},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			progress.finish(StateCancelled, nil, "", err)
			return err
		}
		if err := step.function(); err != nil {
			if errors.Is(err, context.Canceled) {
				progress.finish(StateCancelled, nil, "", err)
				return err
			}
			progress.UpdateOutput(fmt.Sprintf("Error during %s: %v", step.name, err))
			err = fmt.Errorf("failed during %s: %w", step.name, err)
			progress.finish(StateError, nil, "", err)
			return err
		}
	}

	progress.UpdateOutput(fmt.Sprintf("Exported %d pages (%d bytes)", result.Pages, result.Bytes))
	progress.finish(StateCompleted, result, path, nil)
	return nil
}
