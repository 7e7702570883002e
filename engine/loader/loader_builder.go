package loader

import (
	"log/slog"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithLogger sets the logger used for import warnings and debug output.
//
// Parameters:
//   - logger: the logger (nil keeps slog.Default())
//
// Returns:
//   - LoaderBuilderOption: a function that applies the logger option to a loader
func WithLogger(logger *slog.Logger) LoaderBuilderOption {
	return func(l *loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithDecodeWorkers sets how many goroutines decode embedded images in parallel.
// A value of 1 or less decodes images inline on the calling goroutine.
//
// Parameters:
//   - workers: the worker count (defaults to runtime.NumCPU())
//
// Returns:
//   - LoaderBuilderOption: a function that applies the worker count to a loader
func WithDecodeWorkers(workers int) LoaderBuilderOption {
	return func(l *loader) {
		l.decodeWorkers = workers
	}
}
