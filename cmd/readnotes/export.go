package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/opd-ai/readnotes/notecompiler"
	readnotes "github.com/opd-ai/readnotes/src"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export NOTE",
	Short: "Export one .json or .md note file as a PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		notePath := args[0]
		outPath := exportOutput
		if outPath == "" {
			outPath = filepath.Join(cfg.Export.OutputDir, readnotes.OutputName(notePath, ".pdf"))
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		result, err := exportNote(ctx, newCompiler(cfg.Export), notePath, outPath)
		if err != nil {
			return err
		}
		printResult(cmd, notePath, outPath, result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output PDF path (default: <output_dir>/<note>.pdf)")
}

func exportNote(ctx context.Context, nc *notecompiler.NoteCompiler, notePath, outPath string) (*notecompiler.Result, error) {
	note, err := readnotes.LoadNote(notePath)
	if err != nil {
		return nil, err
	}
	return nc.ExportFile(ctx, note, outPath, readnotes.LogProgressor{Attrs: []any{"note", notePath}})
}
