// Package shaders holds the viewer's built-in lit shader for each backend.
package shaders

import (
	_ "embed"
	"fmt"

	"github.com/Carmen-Shannon/oxy-viewer/engine/renderer"
)

// Uniform names set by the viewer each frame.
const (
	UniformModel            = "model"
	UniformView             = "view"
	UniformProjection       = "projection"
	UniformLightPos         = "lightPos"
	UniformViewPos          = "viewPos"
	UniformAmbientIntensity = "ambientIntensity"
)

// BasicVertexGLSL and BasicFragmentGLSL are the GLSL 4.1 core stages of the lit shader.
//
//go:embed assets/basic.vert.glsl
var BasicVertexGLSL string

//go:embed assets/basic.frag.glsl
var BasicFragmentGLSL string

// BasicWGSL carries both entry points (vs_main, fs_main) of the lit shader.
//
//go:embed assets/basic.wgsl
var BasicWGSL string

var basicWGSLSource = mustWGSLSource("basic", BasicWGSL)

func mustWGSLSource(label, source string) renderer.ShaderSource {
	src, err := NewWGSLSource(label, source)
	if err != nil {
		panic(fmt.Sprintf("built-in shader %q: %v", label, err))
	}
	return src
}

// Basic returns the lit shader source for backend.
//
// Parameters:
//   - backend: the renderer backend the source is compiled by
//
// Returns:
//   - renderer.ShaderSource: GLSL for BackendTypeGL, WGSL otherwise
func Basic(backend renderer.RendererBackendType) renderer.ShaderSource {
	if backend == renderer.BackendTypeGL {
		return renderer.ShaderSource{
			Label:    "basic",
			Vertex:   BasicVertexGLSL,
			Fragment: BasicFragmentGLSL,
		}
	}
	return basicWGSLSource
}
