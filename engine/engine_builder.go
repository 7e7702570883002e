package engine

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-viewer/engine/camera"
	"github.com/Carmen-Shannon/oxy-viewer/engine/model"
	"github.com/Carmen-Shannon/oxy-viewer/engine/profiler"
	"github.com/Carmen-Shannon/oxy-viewer/engine/renderer"
	"github.com/Carmen-Shannon/oxy-viewer/engine/scene"
	"github.com/Carmen-Shannon/oxy-viewer/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfiler replaces the default one-second profiler.
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithWindow sets the window the engine draws into and reads input from.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRenderer sets the renderer. It must render into the window given by WithWindow.
//
// Parameters:
//   - r: the renderer
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderer(r renderer.Renderer) EngineBuilderOption {
	return func(e *engine) {
		e.renderer = r
	}
}

// WithCamera sets the viewer camera. Its clip space is overwritten to match the renderer.
func WithCamera(c camera.Camera) EngineBuilderOption {
	return func(e *engine) {
		e.camera = c
	}
}

// WithModel sets the model the engine loads into and draws.
func WithModel(m model.Model) EngineBuilderOption {
	return func(e *engine) {
		e.model = m
	}
}

// WithCatalog sets the scene catalog browsed with NextScene and PrevScene.
//
// Parameters:
//   - c: the catalog
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithCatalog(c scene.Catalog) EngineBuilderOption {
	return func(e *engine) {
		e.catalog = c
	}
}

// WithShaderSource replaces the built-in lit shader. The source must declare the uniforms
// the engine and the model set.
func WithShaderSource(src renderer.ShaderSource) EngineBuilderOption {
	return func(e *engine) {
		e.shaderSource = &src
	}
}

// WithWatch enables hot reload: the current mesh is loaded again when its file changes.
//
// Parameters:
//   - enabled: if true, starts a file watcher
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWatch(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.watchEnabled = enabled
	}
}

// WithLogger sets the logger for the engine and the parts it creates.
func WithLogger(logger *slog.Logger) EngineBuilderOption {
	return func(e *engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTitle sets the window title prefix; the current scene name is appended.
func WithTitle(title string) EngineBuilderOption {
	return func(e *engine) {
		e.title = title
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
	}
}
