package scene

import "log/slog"

// CatalogBuilderOption is a functional option applied to a Catalog during construction.
type CatalogBuilderOption func(*catalog)

// WithLogger sets the logger used for catalog diagnostics.
//
// Parameters:
//   - logger: the logger (nil keeps slog.Default())
//
// Returns:
//   - CatalogBuilderOption: a function that applies the logger option to a catalog
func WithLogger(logger *slog.Logger) CatalogBuilderOption {
	return func(c *catalog) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithScenes seeds the catalog with scenes, skipping empty or duplicate names.
//
// Parameters:
//   - scenes: the initial scenes
//
// Returns:
//   - CatalogBuilderOption: a function that applies the scenes to a catalog
func WithScenes(scenes ...Scene) CatalogBuilderOption {
	return func(c *catalog) {
		for _, s := range scenes {
			if s.Name == "" || c.indexOf(s.Name) >= 0 {
				continue
			}
			c.scenes = append(c.scenes, s)
		}
	}
}
