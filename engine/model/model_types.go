package model

import (
	"github.com/Carmen-Shannon/oxy-viewer/engine/renderer"
)

// State is the lifecycle state of a Model.
type State int

const (
	// StateEmpty means no asset is loaded; Draw does nothing.
	StateEmpty State = iota

	// StateLoaded means exactly one asset is loaded.
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// Uniform names and texture unit used by Draw. Shaders drawn through a Model declare these.
const (
	UniformHasBaseColor     = "hasBaseColor"
	UniformBaseColorTexture = "baseColorTexture"
	BaseColorTextureUnit    = 0
)

// Material is the render-side view of an imported material.
type Material struct {
	// Name is the material identifier from the source file.
	Name string

	// BaseColor is the RGBA base color factor.
	BaseColor [4]float32

	// BaseColorTexture indexes the Model's texture table, or -1 for none.
	BaseColorTexture int
}

// PrimitiveInfo describes one loaded primitive.
type PrimitiveInfo struct {
	Name          string
	MaterialIndex int
	VertexCount   int
	IndexCount    int
}

// TextureInfo describes one loaded texture.
type TextureInfo struct {
	Label  string
	Width  uint32
	Height uint32
	Format renderer.TextureFormat
}
