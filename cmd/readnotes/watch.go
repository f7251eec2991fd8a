package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/opd-ai/readnotes/notewatch"
)

var (
	watchOutput   string
	watchPattern  string
	watchDebounce = notewatch.DefaultDebounce
)

var watchCmd = &cobra.Command{
	Use:   "watch DIR",
	Short: "Re-export notes whenever they change",
	Long: `watch keeps DIR and its subdirectories under observation and exports a
note again each time its file is created or saved. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := args[0]
		outDir := watchOutput
		if outDir == "" {
			outDir = cfg.Export.OutputDir
		}

		nc := newCompiler(cfg.Export)
		handle := func(ctx context.Context, notePath string) {
			outPath := outputPath(root, outDir, notePath)
			result, err := exportNote(ctx, nc, notePath, outPath)
			if err != nil {
				slog.Error("export failed", "note", notePath, "error", err)
				return
			}
			printResult(cmd, notePath, outPath, result)
		}

		w, err := notewatch.New(root, handle,
			notewatch.WithPattern(watchPattern),
			notewatch.WithDebounce(watchDebounce),
			notewatch.WithLogger(slog.Default()),
		)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return w.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "", "Output directory (default: output_dir from config)")
	watchCmd.Flags().StringVarP(&watchPattern, "pattern", "p", "", "Only watch note files matching this glob, relative to DIR")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", notewatch.DefaultDebounce, "Quiet period before a changed note is exported")
}
