package model

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-viewer/engine/loader"
	"github.com/Carmen-Shannon/oxy-viewer/engine/renderer"
)

var errNoRenderer = errors.New("model has no renderer")

// model is the implementation of the Model interface.
type model struct {
	mu     *sync.Mutex
	logger *slog.Logger

	renderer renderer.Renderer
	loader   loader.Loader
	builder  *gpuBuilder

	name   string
	assets *assetSet
}

// Model owns the GPU resources of exactly one loaded scene and draws them.
// Load and Draw must be called from the goroutine that owns the renderer's context.
type Model interface {
	// Name returns the model name: the WithName override, else the loaded scene's name.
	//
	// Returns:
	//   - string: the model name, empty when nothing is loaded and no override is set
	Name() string

	// Path returns the path of the loaded file, or "" in StateEmpty.
	Path() string

	// State reports whether an asset is loaded.
	State() State

	// Load decodes path and uploads it. On success the previous asset is released and replaced.
	// On failure the previous asset stays loaded and untouched.
	//
	// Parameters:
	//   - path: the .glb or .gltf file to load
	//
	// Returns:
	//   - error: wrapping *common.IOError, *common.FormatError, or *common.ResourceError
	Load(path string) error

	// Draw issues one indexed draw per primitive, in document order, with the shader the caller
	// already made current. For each primitive it binds the base-color texture to unit 0 when
	// the material has one, sets the hasBaseColor uniform, and binds the primitive's vertex array.
	//
	// Parameters:
	//   - shader: the active shader receiving the material uniforms
	//
	// Returns:
	//   - error: the first draw failure, if any
	Draw(shader renderer.Shader) error

	// Release frees every GPU resource the model owns and returns it to StateEmpty.
	// Calling it again does nothing.
	Release()

	// Primitives describes the loaded primitives in draw order.
	Primitives() []PrimitiveInfo

	// Materials returns a copy of the material table.
	Materials() []Material

	// Textures describes the loaded textures, indexed like Material.BaseColorTexture.
	Textures() []TextureInfo
}

var _ Model = &model{}

// NewModel creates an empty Model that uploads through r.
//
// Parameters:
//   - r: the renderer that creates and draws GPU resources
//   - options: a variadic list of ModelBuilderOption functions to configure the Model
//
// Returns:
//   - Model: a new Model in StateEmpty
func NewModel(r renderer.Renderer, options ...ModelBuilderOption) Model {
	m := &model{
		mu:       &sync.Mutex{},
		logger:   slog.Default(),
		renderer: r,
	}
	for _, opt := range options {
		opt(m)
	}
	if m.loader == nil {
		m.loader = loader.NewLoader(loader.BackendTypeGLTF, loader.WithLogger(m.logger))
	}
	m.builder = &gpuBuilder{renderer: r, logger: m.logger}
	return m
}

func (m *model) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.name != "" || m.assets == nil {
		return m.name
	}
	return m.assets.name
}

func (m *model) Path() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.assets == nil {
		return ""
	}
	return m.assets.path
}

func (m *model) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.assets == nil {
		return StateEmpty
	}
	return StateLoaded
}

func (m *model) Load(path string) error {
	if m.renderer == nil {
		return errNoRenderer
	}

	scene, err := m.loader.Load(path)
	if err != nil {
		m.logger.Warn("failed to load model", "path", path, "error", err)
		return fmt.Errorf("failed to load model %q: %w", path, err)
	}

	staged, err := m.builder.build(scene, path)
	if err != nil {
		m.logger.Warn("failed to upload model", "path", path, "error", err)
		return fmt.Errorf("failed to load model %q: %w", path, err)
	}

	m.mu.Lock()
	previous := m.assets
	m.assets = staged
	m.mu.Unlock()

	if previous != nil {
		m.logger.Debug("releasing replaced model", "path", previous.path, "resources", previous.resources.Len())
		previous.release()
	}

	m.logger.Info("loaded model", "path", path, "name", staged.name,
		"primitives", len(staged.primitives), "materials", len(staged.materials), "textures", len(staged.textures))
	return nil
}

func (m *model) Draw(shader renderer.Shader) error {
	m.mu.Lock()
	assets := m.assets
	m.mu.Unlock()
	if assets == nil {
		return nil
	}

	r := m.renderer
	for i := range assets.primitives {
		p := &assets.primitives[i]

		textureIndex := -1
		if p.materialIndex >= 0 {
			textureIndex = assets.materials[p.materialIndex].BaseColorTexture
		}
		hasBaseColor := textureIndex >= 0

		if hasBaseColor {
			r.BindTexture(BaseColorTextureUnit, assets.textures[textureIndex].texture)
			r.SetUniformInt(shader, UniformBaseColorTexture, BaseColorTextureUnit)
		}
		r.SetUniformBool(shader, UniformHasBaseColor, hasBaseColor)

		r.BindVertexArray(p.vertexArray)
		if err := r.DrawIndexed(p.indexCount); err != nil {
			return fmt.Errorf("failed to draw primitive %q: %w", p.name, err)
		}
	}
	return nil
}

func (m *model) Release() {
	m.mu.Lock()
	assets := m.assets
	m.assets = nil
	m.mu.Unlock()

	if assets == nil {
		return
	}
	m.logger.Debug("releasing model", "path", assets.path, "resources", assets.resources.Len())
	assets.release()
}

func (m *model) Primitives() []PrimitiveInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.assets == nil {
		return nil
	}
	out := make([]PrimitiveInfo, len(m.assets.primitives))
	for i, p := range m.assets.primitives {
		out[i] = PrimitiveInfo{
			Name:          p.name,
			MaterialIndex: p.materialIndex,
			VertexCount:   p.vertexCount,
			IndexCount:    p.indexCount,
		}
	}
	return out
}

func (m *model) Materials() []Material {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.assets == nil {
		return nil
	}
	return append([]Material(nil), m.assets.materials...)
}

func (m *model) Textures() []TextureInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.assets == nil {
		return nil
	}
	out := make([]TextureInfo, len(m.assets.textures))
	for i, t := range m.assets.textures {
		out[i] = TextureInfo{Label: t.texture.Label(), Width: t.width, Height: t.height, Format: t.format}
	}
	return out
}
