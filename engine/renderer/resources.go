package renderer

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-viewer/common"
)

var (
	errRendererReleased  = errors.New("renderer has been released")
	errNilResource       = errors.New("nil resource handle")
	errInvalidStaging    = errors.New("invalid texture staging data")
	errForeignResource   = errors.New("resource was created by a different backend")
	errNoShaderInUse     = errors.New("no shader in use")
	errNoVertexArray     = errors.New("no vertex array bound")
	errFrameNotStarted   = errors.New("no frame in progress")
	errIndexCountTooHigh = errors.New("index count exceeds bound vertex array")
	errNoSurfaceFormat   = errors.New("surface reports no usable format")
)

// BufferKind identifies what a GPU buffer is bound as.
type BufferKind int

const (
	// BufferKindVertex holds packed common.Vertex records.
	BufferKindVertex BufferKind = iota
	// BufferKindIndex holds little-endian uint32 indices.
	BufferKindIndex
)

func (k BufferKind) String() string {
	switch k {
	case BufferKindVertex:
		return "vertex"
	case BufferKindIndex:
		return "index"
	default:
		return fmt.Sprintf("BufferKind(%d)", int(k))
	}
}

// TextureFormat is the pixel layout of a 2D texture.
type TextureFormat int

const (
	// TextureFormatRGB8 stores 3 bytes per pixel.
	TextureFormatRGB8 TextureFormat = iota
	// TextureFormatRGBA8 stores 4 bytes per pixel.
	TextureFormatRGBA8
)

func (f TextureFormat) String() string {
	switch f {
	case TextureFormatRGB8:
		return "RGB8"
	case TextureFormatRGBA8:
		return "RGBA8"
	default:
		return fmt.Sprintf("TextureFormat(%d)", int(f))
	}
}

// TextureFormatFor returns the format matching a staging buffer's channel count.
//
// Parameters:
//   - channels: 3 or 4
//
// Returns:
//   - TextureFormat: the matching format
//   - bool: false for any other channel count
func TextureFormatFor(channels uint32) (TextureFormat, bool) {
	switch channels {
	case 3:
		return TextureFormatRGB8, true
	case 4:
		return TextureFormatRGBA8, true
	}
	return 0, false
}

// Resource is a GPU object owned by whoever created it. Release is idempotent.
type Resource interface {
	// Label returns the debug label given at creation.
	Label() string

	// Release frees the GPU object. Calling it again does nothing.
	Release()
}

// Buffer is a GPU buffer filled once at creation.
type Buffer interface {
	Resource
	Kind() BufferKind
	Size() int
}

// VertexArray binds one vertex buffer and one index buffer under a vertex layout.
// Releasing it does not release the buffers.
type VertexArray interface {
	Resource
	IndexCount() int
}

// Texture is a sampled 2D texture with a full mip chain.
type Texture interface {
	Resource
	Width() uint32
	Height() uint32
	Format() TextureFormat
}

// Shader is a linked vertex+fragment program.
type Shader interface {
	Resource
}

// UniformBlock describes a uniform struct as byte offsets by member name.
type UniformBlock struct {
	// Size is the struct size in bytes, padded as the shading language requires.
	Size uint64
	// Offsets maps a uniform name to its byte offset within the struct.
	Offsets map[string]uint64
}

// ShaderSource is the source text of one shader program. GL reads Vertex and Fragment
// as GLSL and looks uniforms up by name. WebGPU compiles Vertex and Fragment as WGSL and
// uses Globals (bind group 0) and Material (bind group 1, binding 0) to place uniforms;
// TextureUniform names the sampler uniform bound at group 1, bindings 1 and 2.
type ShaderSource struct {
	Label    string
	Vertex   string
	Fragment string

	Globals        UniformBlock
	Material       UniformBlock
	TextureUniform string

	// Layout is the vertex input layout. The zero value means common.DefaultVertexLayout().
	Layout common.VertexLayout
}

func (s ShaderSource) vertexLayout() common.VertexLayout {
	if s.Layout.Stride == 0 {
		return common.DefaultVertexLayout()
	}
	return s.Layout
}

// ResourceSet collects resources so they can be released together, newest first.
// The zero value is ready to use.
type ResourceSet struct {
	resources []Resource
}

// Add appends r to the set. Nil resources are ignored.
//
// Parameters:
//   - r: the resource to track
func (s *ResourceSet) Add(r Resource) {
	if r == nil {
		return
	}
	s.resources = append(s.resources, r)
}

// Len returns the number of tracked resources.
func (s *ResourceSet) Len() int {
	return len(s.resources)
}

// ReleaseAll releases every tracked resource in reverse insertion order and empties the set.
func (s *ResourceSet) ReleaseAll() {
	for i := len(s.resources) - 1; i >= 0; i-- {
		s.resources[i].Release()
	}
	s.resources = nil
}

// validateStaging checks that the pixel buffer matches its declared dimensions.
func validateStaging(staging common.TextureStagingData) (TextureFormat, error) {
	format, ok := TextureFormatFor(staging.Channels)
	if !ok {
		return 0, fmt.Errorf("%w: %d channels", errInvalidStaging, staging.Channels)
	}
	if staging.Width == 0 || staging.Height == 0 {
		return 0, fmt.Errorf("%w: %s", errInvalidStaging, staging)
	}
	want := uint64(staging.Width) * uint64(staging.Height) * uint64(staging.Channels)
	if uint64(len(staging.Pixels)) != want {
		return 0, fmt.Errorf("%w: %s needs %d bytes, have %d", errInvalidStaging, staging, want, len(staging.Pixels))
	}
	return format, nil
}
