package model

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-viewer/engine/loader"
)

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*model)

// WithName is an option builder that overrides the name reported by the Model.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithLoader is an option builder that sets the Loader used to decode files.
// The default is a glTF loader sharing the Model's logger.
//
// Parameters:
//   - l: the loader
//
// Returns:
//   - ModelBuilderOption: a function that applies the loader option to a model
func WithLoader(l loader.Loader) ModelBuilderOption {
	return func(m *model) {
		m.loader = l
	}
}

// WithLogger is an option builder that sets the Model's logger.
//
// Parameters:
//   - logger: the logger (nil keeps slog.Default())
//
// Returns:
//   - ModelBuilderOption: a function that applies the logger option to a model
func WithLogger(logger *slog.Logger) ModelBuilderOption {
	return func(m *model) {
		if logger != nil {
			m.logger = logger
		}
	}
}
