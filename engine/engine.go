package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/Carmen-Shannon/oxy-viewer/engine/camera"
	"github.com/Carmen-Shannon/oxy-viewer/engine/model"
	"github.com/Carmen-Shannon/oxy-viewer/engine/profiler"
	"github.com/Carmen-Shannon/oxy-viewer/engine/renderer"
	"github.com/Carmen-Shannon/oxy-viewer/engine/scene"
	"github.com/Carmen-Shannon/oxy-viewer/engine/shaders"
	"github.com/Carmen-Shannon/oxy-viewer/engine/window"
	"github.com/fsnotify/fsnotify"
)

var (
	errNoWindow   = errors.New("engine has no window")
	errNoRenderer = errors.New("engine has no renderer")
	errNoScenes   = errors.New("scene catalog is empty")
)

const (
	// zoomStep is the fov change in degrees per scroll notch.
	zoomStep float32 = 2

	// orbitSpeed is radians of orbit per pixel of middle-mouse drag.
	orbitSpeed float32 = 0.01
)

// engine implements the Engine interface.
// Drives the viewer frame loop on the window's goroutine.
type engine struct {
	logger *slog.Logger
	title  string

	wg sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	// reloadChannel carries changed file paths from the watcher goroutine to the frame loop.
	reloadChannel chan string

	window   window.Window
	renderer renderer.Renderer
	camera   camera.Camera
	model    model.Model
	catalog  scene.Catalog

	shaderSource *renderer.ShaderSource
	shader       renderer.Shader

	profiler         *profiler.Profiler
	profilingEnabled bool

	watchEnabled bool
	watcher      *fsnotify.Watcher
	watchedDir   string

	lightPos         [3]float32
	ambientIntensity float32

	dragging   bool
	lastMouseX int32
	lastMouseY int32

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point for the viewer.
// It owns the frame loop, the loaded model, the scene catalog and the file watcher.
// Every method except Quit must be called from the goroutine that owns the window.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer the model draws through.
	Renderer() renderer.Renderer

	// Camera returns the viewer camera.
	Camera() camera.Camera

	// Model returns the currently displayed model.
	Model() model.Model

	// Catalog returns the scene catalog.
	Catalog() scene.Catalog

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// ProfilingEnabled reports whether frame stats are being logged.
	ProfilingEnabled() bool

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Open loads the mesh at path, selecting the catalog scene that uses it or adding a new
	// scene named after the file.
	//
	// Parameters:
	//   - path: the .glb or .gltf file
	//
	// Returns:
	//   - error: the load error; the previous model stays displayed
	Open(path string) error

	// SelectScene makes catalog scene i current and loads its mesh and lighting.
	//
	// Parameters:
	//   - i: the scene index
	//
	// Returns:
	//   - error: an error if i is out of range or the mesh fails to load
	SelectScene(i int) error

	// NextScene advances to the next catalog scene, wrapping around.
	NextScene() error

	// PrevScene moves back to the previous catalog scene, wrapping around.
	PrevScene() error

	// Reload loads the current mesh again from disk.
	Reload() error

	// Frame renders one frame: applies pending reloads, updates the camera, sets the frame
	// uniforms and draws the model.
	//
	// Returns:
	//   - error: the first begin, draw or end failure
	Frame() error

	// Run starts the frame loop (blocks until the window closes or Quit is called).
	Run()

	// Quit signals the engine to stop. Safe to call multiple times and from any goroutine.
	Quit()

	// Release frees the model, the shader, the watcher and the renderer.
	Release()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine with the provided options.
// A renderer and a window are required. The camera, catalog and model are created when not
// supplied, and the lit shader for the renderer's backend is compiled.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: an error if a required part is missing or the shader or watcher cannot be created
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		logger:           slog.Default(),
		title:            "oxy-viewer",
		quitChannel:      make(chan struct{}),
		reloadChannel:    make(chan string, 1),
		wg:               sync.WaitGroup{},
		lightPos:         scene.DefaultLightPos,
		ambientIntensity: scene.DefaultAmbientIntensity,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window == nil {
		return nil, errNoWindow
	}
	if e.renderer == nil {
		return nil, errNoRenderer
	}

	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(e.logger, time.Second)
	}
	if e.catalog == nil {
		e.catalog = scene.NewCatalog(scene.WithLogger(e.logger))
	}
	if e.camera == nil {
		e.camera = camera.NewCamera()
	}
	e.camera.SetClipSpace(e.renderer.ClipSpace())
	if w, h := e.window.Size(); h > 0 {
		e.camera.SetAspect(float32(w) / float32(h))
	}
	if e.model == nil {
		e.model = model.NewModel(e.renderer, model.WithLogger(e.logger))
	}

	src := shaders.Basic(e.renderer.BackendType())
	if e.shaderSource != nil {
		src = *e.shaderSource
	}
	shader, err := e.renderer.CreateShader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to create viewer shader: %w", err)
	}
	e.shader = shader

	if e.watchEnabled {
		if e.watcher, err = fsnotify.NewWatcher(); err != nil {
			shader.Release()
			return nil, fmt.Errorf("failed to create file watcher: %w", err)
		}
		e.wg.Add(1)
		go e.handleWatch()
	}

	e.window.Listen(window.Events{
		Resize:       e.onResize,
		Scroll:       e.onScroll,
		Key:          e.onKey,
		MiddleButton: e.onMiddleButton,
		CursorMove:   e.onCursorMove,
	})

	return e, nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) Model() model.Model {
	return e.model
}

func (e *engine) Catalog() scene.Catalog {
	return e.catalog
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
	e.profiler.Reset()
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

func (e *engine) ProfilingEnabled() bool {
	return e.profilingEnabled
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}

func (e *engine) Open(path string) error {
	path = scene.NormalizePath(path)
	if s, ok := e.catalog.SelectMesh(path); ok {
		return e.loadScene(s)
	}

	s := scene.Scene{Name: scene.NameFromPath(path), MeshPath: path}
	if err := e.catalog.Add(s); err != nil {
		// A scene with that name already exists for a different mesh.
		s.Name = filepath.Base(filepath.Dir(path)) + "/" + s.Name
		if err := e.catalog.Add(s); err != nil {
			return fmt.Errorf("failed to add scene for %q: %w", path, err)
		}
	}
	if _, err := e.catalog.Select(e.catalog.Len() - 1); err != nil {
		return err
	}
	return e.loadScene(s)
}

func (e *engine) SelectScene(i int) error {
	s, err := e.catalog.Select(i)
	if err != nil {
		return err
	}
	return e.loadScene(s)
}

func (e *engine) NextScene() error {
	s, ok := e.catalog.Next()
	if !ok {
		return errNoScenes
	}
	return e.loadScene(s)
}

func (e *engine) PrevScene() error {
	s, ok := e.catalog.Prev()
	if !ok {
		return errNoScenes
	}
	return e.loadScene(s)
}

func (e *engine) Reload() error {
	if path := e.model.Path(); path != "" {
		return e.model.Load(path)
	}
	s, ok := e.catalog.Current()
	if !ok {
		return errNoScenes
	}
	return e.loadScene(s)
}

// loadScene loads the scene's mesh and, on success, adopts its lighting and watches its file.
// On failure the previous model and lighting stay in place.
func (e *engine) loadScene(s scene.Scene) error {
	if err := e.model.Load(s.MeshPath); err != nil {
		return err
	}
	e.lightPos = s.Light()
	e.ambientIntensity = s.Ambient()
	e.window.SetTitle(e.title + " - " + s.Name)
	e.watchMesh(s.MeshPath)
	return nil
}

// watchMesh moves the watcher to the directory of path. Editors often replace files
// rather than write them in place, so the directory is watched instead of the file.
func (e *engine) watchMesh(path string) {
	if e.watcher == nil {
		return
	}
	dir := filepath.Dir(path)
	if dir == e.watchedDir {
		return
	}
	if e.watchedDir != "" {
		_ = e.watcher.Remove(e.watchedDir)
	}
	if err := e.watcher.Add(dir); err != nil {
		e.logger.Warn("failed to watch model directory", "dir", dir, "error", err)
		e.watchedDir = ""
		return
	}
	e.watchedDir = dir
	e.logger.Debug("watching model directory", "dir", dir)
}

// handleWatch forwards file change events to the frame loop until quit.
func (e *engine) handleWatch() {
	defer e.wg.Done()
	for {
		select {
		case <-e.quitChannel:
			return
		case event, ok := <-e.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			e.requestReload(event.Name)
		case err, ok := <-e.watcher.Errors:
			if !ok {
				return
			}
			e.logger.Warn("file watcher error", "error", err)
		}
	}
}

// requestReload queues path for the frame loop, replacing any pending path.
func (e *engine) requestReload(path string) {
	select {
	case e.reloadChannel <- path:
	default:
		select {
		case <-e.reloadChannel:
		default:
		}
		select {
		case e.reloadChannel <- path:
		default:
		}
	}
}

// applyReloads reloads the model if a pending change names its file.
func (e *engine) applyReloads() {
	select {
	case path := <-e.reloadChannel:
		current := e.model.Path()
		if current == "" || !scene.SameMesh(path, current) {
			return
		}
		if err := e.model.Load(current); err != nil {
			e.logger.Warn("hot reload failed, keeping previous model", "path", current, "error", err)
		}
	default:
	}
}

func (e *engine) Frame() error {
	e.applyReloads()
	e.camera.Update()

	if err := e.renderer.BeginFrame(); err != nil {
		return err
	}
	err := e.drawModel()
	if endErr := e.renderer.EndFrame(); err == nil {
		err = endErr
	}

	if e.profilingEnabled {
		e.profiler.Tick()
	}
	return err
}

func (e *engine) drawModel() error {
	r, s := e.renderer, e.shader
	if err := r.UseShader(s); err != nil {
		return err
	}

	var identity [16]float32
	common.Identity(identity[:])
	r.SetUniformMat4(s, shaders.UniformModel, identity)
	r.SetUniformMat4(s, shaders.UniformView, e.camera.ViewMatrix())
	r.SetUniformMat4(s, shaders.UniformProjection, e.camera.ProjectionMatrix())
	r.SetUniformFloat(s, shaders.UniformAmbientIntensity, e.ambientIntensity)
	r.SetUniformVec3(s, shaders.UniformLightPos, e.lightPos)
	r.SetUniformVec3(s, shaders.UniformViewPos, e.camera.Position())

	return e.model.Draw(s)
}

func (e *engine) Run() {
	e.window.Run(e.onUpdate)
	e.signalQuit()
}

// onUpdate runs one frame per window message loop iteration.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) onUpdate() {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("frame loop recovered from panic", "panic", r)
			e.signalQuit()
			_ = e.window.Close()
		}
	}()

	select {
	case <-e.quitChannel:
		_ = e.window.Close()
		return
	default:
	}

	start := time.Now()
	if err := e.Frame(); err != nil {
		e.logger.Error("frame failed", "error", err)
		e.signalQuit()
		_ = e.window.Close()
		return
	}

	if e.renderFrameLimit > 0 {
		if remaining := e.renderFrameLimit - time.Since(start); remaining > 0 {
			time.Sleep(remaining)
		}
	}
}

// Quit signals all engine goroutines to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) Release() {
	e.signalQuit()
	if e.watcher != nil {
		_ = e.watcher.Close()
	}
	e.wg.Wait()

	e.model.Release()
	if e.shader != nil {
		e.shader.Release()
		e.shader = nil
	}
	e.renderer.Release()
}

func (e *engine) onResize(width, height int) {
	e.renderer.Resize(width, height)
	if height > 0 {
		e.camera.SetAspect(float32(width) / float32(height))
	}
}

func (e *engine) onScroll(delta float32) {
	e.camera.Zoom(delta * zoomStep)
}

func (e *engine) onKey(keyCode uint32, down bool) {
	if !down {
		return
	}
	var err error
	switch keyCode {
	case common.KeyN:
		err = e.NextScene()
	case common.KeyP:
		err = e.PrevScene()
	case common.KeyR:
		err = e.Reload()
	case common.KeyF:
		if e.profilingEnabled {
			e.DisableProfiler()
		} else {
			e.EnableProfiler()
		}
	case common.KeyEsc:
		e.Quit()
	}
	if err != nil {
		e.logger.Warn("scene change failed", "error", err)
	}
}

func (e *engine) onMiddleButton(x, y int32, down bool) {
	e.dragging = down
	e.lastMouseX, e.lastMouseY = x, y
}

func (e *engine) onCursorMove(x, y int32) {
	if !e.dragging {
		return
	}
	dx, dy := float32(x-e.lastMouseX), float32(y-e.lastMouseY)
	e.lastMouseX, e.lastMouseY = x, y
	e.camera.Controller().Orbit(-dx*orbitSpeed, dy*orbitSpeed)
}
