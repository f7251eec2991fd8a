package notecompiler

import "log/slog"

// Option configures a NoteCompiler.
type Option func(*NoteCompiler)

// WithFetcher sets the remote image fetcher.
func WithFetcher(fetcher ImageFetcher) Option {
	return func(nc *NoteCompiler) {
		nc.fetcher = fetcher
	}
}

// WithCanvasFactory replaces the PDF canvas, e.g. with a recording fake.
func WithCanvasFactory(factory CanvasFactory) Option {
	return func(nc *NoteCompiler) {
		nc.newCanvas = factory
	}
}

// WithFontDir sets where TTF files for non-core reader fonts live.
func WithFontDir(dir string) Option {
	return func(nc *NoteCompiler) {
		nc.fontDir = dir
	}
}

// WithPrefetch fetches entry images up front, n at a time. n <= 1 keeps the
// serial one-image-per-entry behaviour.
func WithPrefetch(n int) Option {
	return func(nc *NoteCompiler) {
		nc.prefetch = n
	}
}

// WithLogger sets the logger for the compiler.
func WithLogger(logger *slog.Logger) Option {
	return func(nc *NoteCompiler) {
		nc.logger = logger
	}
}
