package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	readnotes "github.com/opd-ai/readnotes/src"
)

var (
	batchOutput  string
	batchJobs    int
	batchPattern string
)

var batchCmd = &cobra.Command{
	Use:   "batch DIR",
	Short: "Export every note file in a directory",
	Long: `batch exports each .json, .md and .markdown file directly inside DIR.
A note that fails to export is reported and does not stop the others.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			files []string
			err   error
		)
		if batchPattern != "" {
			files, err = readnotes.MatchNoteFiles(args[0], batchPattern)
		} else {
			files, err = readnotes.ListNoteFiles(args[0])
		}
		if err != nil {
			return err
		}

		outDir := batchOutput
		if outDir == "" {
			outDir = cfg.Export.OutputDir
		}
		jobs := batchJobs
		if jobs <= 0 {
			jobs = runtime.NumCPU()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		nc := newCompiler(cfg.Export)
		var (
			mu       sync.Mutex
			failures int
		)
		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(jobs)
		for _, notePath := range files {
			notePath := notePath
			g.Go(func() error {
				outPath := outputPath(args[0], outDir, notePath)
				result, err := exportNote(ctx, nc, notePath, outPath)
				if err == nil {
					printResult(cmd, notePath, outPath, result)
					return nil
				}
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				slog.Error("export failed", "note", notePath, "error", err)
				mu.Lock()
				failures++
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if failures > 0 {
			return fmt.Errorf("%d of %d notes failed to export", failures, len(files))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "Output directory (default: output_dir from config)")
	batchCmd.Flags().IntVarP(&batchJobs, "jobs", "j", 4, "Notes exported concurrently (0 = one per CPU)")
	batchCmd.Flags().StringVarP(&batchPattern, "pattern", "p", "", "Recursive glob of note files relative to DIR")
}
