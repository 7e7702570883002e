package renderer

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/Carmen-Shannon/oxy-viewer/engine/window"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu     *sync.Mutex
	logger *slog.Logger

	backendType RendererBackendType
	backend     RendererBackend
	released    bool

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
	clearColor           [4]float64
}

// Renderer is the graphics context: it creates GPU resources, sets shader state and issues draws.
//
// Every resource it hands out is owned by the caller and must be released before the Renderer.
// Failures to allocate or upload are returned as *common.ResourceError.
// The Renderer is not safe for concurrent draws; call it from the goroutine that owns the window.
type Renderer interface {
	// BackendType reports which GPU API this renderer drives.
	BackendType() RendererBackendType

	// ClipSpace reports the depth range projection matrices must target for this backend.
	ClipSpace() common.ClipSpace

	// Resize configures the underlying backend to handle a new surface size.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SetPresentMode sets the surface present mode. Takes effect on the next Resize.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// CreateBuffer uploads data into a new static GPU buffer.
	//
	// Parameters:
	//   - kind: what the buffer will be bound as
	//   - label: debug label
	//   - data: the bytes to upload (may be empty)
	//
	// Returns:
	//   - Buffer: the new buffer
	//   - error: *common.ResourceError if allocation or upload fails
	CreateBuffer(kind BufferKind, label string, data []byte) (Buffer, error)

	// CreateVertexArray binds a vertex and an index buffer under a vertex layout.
	//
	// Parameters:
	//   - label: debug label
	//   - vertices: a BufferKindVertex buffer
	//   - indices: a BufferKindIndex buffer of uint32 indices
	//   - indexCount: the number of indices to draw
	//   - layout: how each vertex record maps to shader slots
	//
	// Returns:
	//   - VertexArray: the new vertex array
	//   - error: *common.ResourceError on failure
	CreateVertexArray(label string, vertices, indices Buffer, indexCount int, layout common.VertexLayout) (VertexArray, error)

	// CreateTexture uploads RGB8 or RGBA8 pixels into a 2D texture, generates its mip chain,
	// and sets linear-mipmap-linear minification with linear magnification.
	//
	// Parameters:
	//   - label: debug label
	//   - staging: tightly packed pixels with 3 or 4 channels
	//
	// Returns:
	//   - Texture: the new texture
	//   - error: *common.ResourceError if the staging data is invalid or the upload fails
	CreateTexture(label string, staging common.TextureStagingData) (Texture, error)

	// CreateShader compiles and links a shader program.
	//
	// Parameters:
	//   - src: the program source
	//
	// Returns:
	//   - Shader: the linked program
	//   - error: *common.ResourceError with the compiler log on failure
	CreateShader(src ShaderSource) (Shader, error)

	// UseShader makes shader current for subsequent draws.
	UseShader(shader Shader) error

	// SetUniformBool sets a bool uniform on shader. Unknown names are ignored.
	SetUniformBool(shader Shader, name string, v bool)

	// SetUniformInt sets an int uniform (also used for sampler units) on shader.
	SetUniformInt(shader Shader, name string, v int32)

	// SetUniformFloat sets a float uniform on shader.
	SetUniformFloat(shader Shader, name string, v float32)

	// SetUniformVec3 sets a vec3 uniform on shader.
	SetUniformVec3(shader Shader, name string, v [3]float32)

	// SetUniformMat4 sets a column-major mat4 uniform on shader.
	SetUniformMat4(shader Shader, name string, v [16]float32)

	// BindTexture binds tex to the given texture unit.
	BindTexture(unit int, tex Texture)

	// BindVertexArray binds va for the next DrawIndexed.
	BindVertexArray(va VertexArray)

	// DrawIndexed draws indexCount indices from the bound vertex array as triangles.
	//
	// Parameters:
	//   - indexCount: the number of indices to draw
	//
	// Returns:
	//   - error: an error if no shader or vertex array is bound
	DrawIndexed(indexCount int) error

	// BeginFrame acquires the backbuffer and clears color and depth.
	// Must be paired with EndFrame.
	BeginFrame() error

	// EndFrame submits the frame and presents it.
	EndFrame() error

	// Release destroys the context. Resources created from it must be released first.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer instance with the specified backend type, rendering into the window.
//
// Parameters:
//   - backendType: the type of rendering backend to use (BackendTypeGL or BackendTypeWGPU)
//   - window: the window to render into; for GL its context is made current on the calling goroutine
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
//   - error: *common.ResourceError if the GPU context cannot be created
func NewRenderer(backendType RendererBackendType, window window.Window, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:          &sync.Mutex{},
		logger:      slog.Default(),
		backendType: backendType,
		clearColor:  [4]float64{0.1, 0.1, 0.1, 1.0},
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	var err error
	switch backendType {
	case BackendTypeWGPU:
		msaa := MSAA4x
		if r.pendingMSAA != nil {
			msaa = *r.pendingMSAA
		}
		r.backend, err = newWGPURendererBackend(window, r.forceFallbackAdapter, msaa, r.clearColor)
	case BackendTypeGL:
		r.backend, err = newGLRendererBackend(window, r.clearColor)
	default:
		err = fmt.Errorf("unknown renderer backend %d", backendType)
	}
	if err != nil {
		return nil, common.NewResourceError("create "+backendType.String()+" context", err)
	}

	width, height := window.Size()
	if err := r.start(width, height); err != nil {
		r.backend.Release()
		return nil, common.NewResourceError("configure "+backendType.String()+" surface", err)
	}
	return r, nil
}

// NewRendererWithBackend wraps an existing backend, for headless use.
//
// Parameters:
//   - backend: the backend to drive
//   - width: the initial surface width
//   - height: the initial surface height
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the renderer
func NewRendererWithBackend(backend RendererBackend, width, height int, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:      &sync.Mutex{},
		logger:  slog.Default(),
		backend: backend,
	}
	for _, opt := range options {
		opt(r)
	}
	if err := r.start(width, height); err != nil {
		r.logger.Error("failed to configure surface", "width", width, "height", height, "error", err)
	}
	return r
}

// start applies the pending present mode and configures the initial surface.
func (r *renderer) start(width, height int) error {
	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	if err := r.backend.ConfigureSurface(width, height); err != nil {
		return err
	}
	r.logger.Debug("renderer ready", "backend", r.backendType, "width", width, "height", height)
	return nil
}

func (r *renderer) BackendType() RendererBackendType {
	return r.backendType
}

func (r *renderer) ClipSpace() common.ClipSpace {
	return r.backend.ClipSpace()
}

func (r *renderer) Resize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released || width <= 0 || height <= 0 {
		return
	}
	if err := r.backend.ConfigureSurface(width, height); err != nil {
		r.logger.Error("failed to resize surface, keeping previous size", "width", width, "height", height, "error", err)
	}
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) CreateBuffer(kind BufferKind, label string, data []byte) (Buffer, error) {
	op := fmt.Sprintf("create %s buffer %q", kind, label)
	if err := r.checkLive(op); err != nil {
		return nil, err
	}
	if kind == BufferKindIndex && len(data)%4 != 0 {
		return nil, common.NewResourceError(op, fmt.Errorf("index data of %d bytes is not a whole number of uint32", len(data)))
	}
	buf, err := r.backend.CreateBuffer(kind, label, data)
	if err != nil {
		return nil, wrapResourceError(op, err)
	}
	return buf, nil
}

func (r *renderer) CreateVertexArray(label string, vertices, indices Buffer, indexCount int, layout common.VertexLayout) (VertexArray, error) {
	op := fmt.Sprintf("create vertex array %q", label)
	if err := r.checkLive(op); err != nil {
		return nil, err
	}
	if vertices == nil || indices == nil {
		return nil, common.NewResourceError(op, errNilResource)
	}
	if indexCount < 0 || indexCount*4 > indices.Size() {
		return nil, common.NewResourceError(op, fmt.Errorf("%w: %d indices, buffer holds %d", errIndexCountTooHigh, indexCount, indices.Size()/4))
	}
	va, err := r.backend.CreateVertexArray(label, vertices, indices, indexCount, layout)
	if err != nil {
		return nil, wrapResourceError(op, err)
	}
	return va, nil
}

func (r *renderer) CreateTexture(label string, staging common.TextureStagingData) (Texture, error) {
	op := fmt.Sprintf("create texture %q", label)
	if err := r.checkLive(op); err != nil {
		return nil, err
	}
	format, err := validateStaging(staging)
	if err != nil {
		return nil, common.NewResourceError(op, err)
	}
	tex, err := r.backend.CreateTexture(label, format, staging)
	if err != nil {
		return nil, wrapResourceError(op, err)
	}
	return tex, nil
}

func (r *renderer) CreateShader(src ShaderSource) (Shader, error) {
	op := fmt.Sprintf("create shader %q", src.Label)
	if err := r.checkLive(op); err != nil {
		return nil, err
	}
	s, err := r.backend.CreateShader(src)
	if err != nil {
		return nil, wrapResourceError(op, err)
	}
	r.logger.Debug("shader compiled", "label", src.Label, "backend", r.backendType)
	return s, nil
}

func (r *renderer) UseShader(shader Shader) error {
	if shader == nil {
		return errNilResource
	}
	return r.backend.UseShader(shader)
}

func (r *renderer) setUniform(shader Shader, name string, value any) {
	if shader == nil {
		return
	}
	if err := r.backend.SetUniform(shader, name, value); err != nil {
		r.logger.Warn("failed to set uniform", "name", name, "error", err)
	}
}

func (r *renderer) SetUniformBool(shader Shader, name string, v bool) {
	r.setUniform(shader, name, v)
}

func (r *renderer) SetUniformInt(shader Shader, name string, v int32) {
	r.setUniform(shader, name, v)
}

func (r *renderer) SetUniformFloat(shader Shader, name string, v float32) {
	r.setUniform(shader, name, v)
}

func (r *renderer) SetUniformVec3(shader Shader, name string, v [3]float32) {
	r.setUniform(shader, name, v)
}

func (r *renderer) SetUniformMat4(shader Shader, name string, v [16]float32) {
	r.setUniform(shader, name, v)
}

func (r *renderer) BindTexture(unit int, tex Texture) {
	if err := r.backend.BindTexture(unit, tex); err != nil {
		r.logger.Warn("failed to bind texture", "unit", unit, "error", err)
	}
}

func (r *renderer) BindVertexArray(va VertexArray) {
	if err := r.backend.BindVertexArray(va); err != nil {
		r.logger.Warn("failed to bind vertex array", "error", err)
	}
}

func (r *renderer) DrawIndexed(indexCount int) error {
	if indexCount == 0 {
		return nil
	}
	return r.backend.DrawIndexed(indexCount)
}

func (r *renderer) BeginFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return errRendererReleased
	}
	return r.backend.BeginFrame()
}

func (r *renderer) EndFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return errRendererReleased
	}
	return r.backend.EndFrame()
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return
	}
	r.released = true
	r.backend.Release()
	r.logger.Debug("renderer released", "backend", r.backendType)
}

func (r *renderer) checkLive(op string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return common.NewResourceError(op, errRendererReleased)
	}
	return nil
}

// wrapResourceError wraps err as a ResourceError unless it already is one.
func wrapResourceError(op string, err error) error {
	if _, ok := err.(*common.ResourceError); ok {
		return err
	}
	return common.NewResourceError(op, err)
}
