package renderer

import (
	"github.com/Carmen-Shannon/oxy-viewer/common"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeGL selects the OpenGL 4.1 core-profile backend.
	BackendTypeGL RendererBackendType = iota

	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU
)

func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeGL:
		return "gl"
	case BackendTypeWGPU:
		return "wgpu"
	default:
		return "unknown"
	}
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// Only the WebGPU backend honors it; GL uses the default framebuffer as created by the window.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4× multisample anti-aliasing.
	MSAA4x MSAASampleCount = 4
)

// RendererBackend is the API-specific half of the Renderer. The Renderer validates inputs
// and wraps failures; the backend only talks to the GPU.
type RendererBackend interface {
	// ConfigureSurface resizes the backbuffer and any size-dependent attachments.
	// On failure the previous attachments stay in place.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	//
	// Returns:
	//   - error: if the surface reports no usable format or an attachment cannot be created
	ConfigureSurface(width, height int) error

	// SetPresentMode sets how frames are delivered to the display.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// ClipSpace reports the depth range projection matrices must target.
	ClipSpace() common.ClipSpace

	CreateBuffer(kind BufferKind, label string, data []byte) (Buffer, error)
	CreateVertexArray(label string, vertices, indices Buffer, indexCount int, layout common.VertexLayout) (VertexArray, error)
	CreateTexture(label string, format TextureFormat, staging common.TextureStagingData) (Texture, error)
	CreateShader(src ShaderSource) (Shader, error)

	UseShader(shader Shader) error
	SetUniform(shader Shader, name string, value any) error
	BindTexture(unit int, tex Texture) error
	BindVertexArray(va VertexArray) error
	DrawIndexed(indexCount int) error

	BeginFrame() error
	EndFrame() error

	// Release frees everything the backend still owns. Resources handed out earlier must
	// already be released.
	Release()
}
