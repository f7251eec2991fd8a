package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/opd-ai/readnotes/notecompiler"
	readnotes "github.com/opd-ai/readnotes/src"
)

var (
	verbose    bool
	configPath string
	fontDir    string
	assetDir   string
	prefetch   int

	cfg *readnotes.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "readnotes",
	Short: "Export reading notes as paginated PDF documents",
	Long: `readnotes turns the passages and thoughts you collect while reading
into printable A4 PDFs, using your chosen reader font and page background.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		loaded, err := readnotes.LoadConfigOrDefault(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("font-dir") {
			loaded.Export.FontDir = fontDir
		}
		if cmd.Flags().Changed("asset-dir") {
			loaded.Export.AssetDir = assetDir
		}
		if cmd.Flags().Changed("prefetch") {
			loaded.Export.Prefetch = prefetch
		}
		cfg = loaded
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "readnotes.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&fontDir, "font-dir", "", "Directory holding reader font TTF files")
	rootCmd.PersistentFlags().StringVar(&assetDir, "asset-dir", "", "Directory holding background images")
	rootCmd.PersistentFlags().IntVar(&prefetch, "prefetch", 1, "Concurrent image downloads per note")
}

// newCompiler builds a note compiler from the loaded configuration.
func newCompiler(export readnotes.ExportConfig) *notecompiler.NoteCompiler {
	logger := slog.Default()
	fetcher := notecompiler.NewHTTPFetcher(export.ImageTimeout,
		notecompiler.WithMaxBytes(export.MaxImageBytes),
		notecompiler.WithCacheTTL(export.CacheTTL),
		notecompiler.WithFetchLogger(logger),
	)

	var resolver *notecompiler.AssetResolver
	if info, err := os.Stat(export.AssetDir); err == nil && info.IsDir() {
		resolver = notecompiler.NewAssetResolver(os.DirFS(export.AssetDir))
	} else {
		logger.Debug("asset directory unavailable, using built-in backgrounds", "dir", export.AssetDir)
		resolver = notecompiler.NewAssetResolver(nil)
	}

	return notecompiler.NewNoteCompiler(resolver,
		notecompiler.WithFetcher(fetcher),
		notecompiler.WithFontDir(export.FontDir),
		notecompiler.WithPrefetch(export.Prefetch),
		notecompiler.WithLogger(logger),
	)
}

var printMu sync.Mutex

func printResult(cmd *cobra.Command, notePath, outPath string, result *notecompiler.Result) {
	printMu.Lock()
	defer printMu.Unlock()
	fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%d pages", notePath, outPath, result.Pages)
	if result.SkippedImages > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), ", %d images skipped", result.SkippedImages)
	}
	fmt.Fprintln(cmd.OutOrStdout(), ")")
}

// outputPath places the PDF for a note found under root in outDir, keeping
// the note's subdirectory.
func outputPath(root, outDir, notePath string) string {
	relDir, err := filepath.Rel(root, filepath.Dir(notePath))
	if err != nil || strings.HasPrefix(relDir, "..") {
		relDir = "."
	}
	return filepath.Join(outDir, relDir, readnotes.OutputName(notePath, ".pdf"))
}
