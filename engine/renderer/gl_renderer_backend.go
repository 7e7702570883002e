package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/Carmen-Shannon/oxy-viewer/engine/window"
	"github.com/go-gl/gl/v4.1-core/gl"
)

// glBuffer is a GL buffer object.
type glBuffer struct {
	id    uint32
	kind  BufferKind
	size  int
	label string
}

func (b *glBuffer) Label() string    { return b.label }
func (b *glBuffer) Kind() BufferKind { return b.kind }
func (b *glBuffer) Size() int        { return b.size }

func (b *glBuffer) Release() {
	if b.id == 0 {
		return
	}
	gl.DeleteBuffers(1, &b.id)
	b.id = 0
}

// glVertexArray is a vertex array object with its element buffer attached.
type glVertexArray struct {
	id         uint32
	indexCount int
	label      string
}

func (v *glVertexArray) Label() string   { return v.label }
func (v *glVertexArray) IndexCount() int { return v.indexCount }

func (v *glVertexArray) Release() {
	if v.id == 0 {
		return
	}
	gl.DeleteVertexArrays(1, &v.id)
	v.id = 0
}

// glTexture is a mipmapped 2D texture object.
type glTexture struct {
	id            uint32
	width, height uint32
	format        TextureFormat
	label         string
}

func (t *glTexture) Label() string         { return t.label }
func (t *glTexture) Width() uint32         { return t.width }
func (t *glTexture) Height() uint32        { return t.height }
func (t *glTexture) Format() TextureFormat { return t.format }

func (t *glTexture) Release() {
	if t.id == 0 {
		return
	}
	gl.DeleteTextures(1, &t.id)
	t.id = 0
}

// glShader is a linked program with a cache of uniform locations.
type glShader struct {
	program   uint32
	label     string
	locations map[string]int32
}

func (s *glShader) Label() string { return s.label }

func (s *glShader) Release() {
	if s.program == 0 {
		return
	}
	gl.DeleteProgram(s.program)
	s.program = 0
}

// location returns the cached uniform location, -1 when the program has no such uniform.
func (s *glShader) location(name string) int32 {
	if loc, ok := s.locations[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(s.program, gl.Str(name+"\x00"))
	s.locations[name] = loc
	return loc
}

type glRendererBackendImpl struct {
	window     window.Window
	clearColor [4]float64

	current *glShader
	bound   *glVertexArray
	inFrame bool
}

var _ RendererBackend = &glRendererBackendImpl{}

func newGLRendererBackend(w window.Window, clearColor [4]float64) (RendererBackend, error) {
	runtime.LockOSThread()
	w.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL bindings: %w", err)
	}

	b := &glRendererBackendImpl{window: w, clearColor: clearColor}
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.ClearColor(float32(clearColor[0]), float32(clearColor[1]), float32(clearColor[2]), float32(clearColor[3]))
	if err := glCheck(); err != nil {
		return nil, err
	}
	return b, nil
}

// glCheck drains the GL error queue and reports the first error found.
func glCheck() error {
	var first uint32
	for code := gl.GetError(); code != gl.NO_ERROR; code = gl.GetError() {
		if first == 0 {
			first = code
		}
	}
	switch first {
	case 0:
		return nil
	case gl.OUT_OF_MEMORY:
		return errors.New("GL_OUT_OF_MEMORY")
	case gl.INVALID_VALUE:
		return errors.New("GL_INVALID_VALUE")
	case gl.INVALID_OPERATION:
		return errors.New("GL_INVALID_OPERATION")
	default:
		return fmt.Errorf("GL error 0x%04x", first)
	}
}

// glPtr returns a pointer to the first byte of data, or nil for an empty slice.
func glPtr(data []byte) unsafe.Pointer {
	if len(data) == 0 {
		return nil
	}
	return gl.Ptr(data)
}

func (b *glRendererBackendImpl) ConfigureSurface(width, height int) error {
	gl.Viewport(0, 0, int32(width), int32(height))
	return nil
}

func (b *glRendererBackendImpl) SetPresentMode(mode PresentMode) {
	switch mode {
	case PresentModeVSync:
		b.window.SetSwapInterval(1)
	default:
		b.window.SetSwapInterval(0)
	}
}

func (b *glRendererBackendImpl) ClipSpace() common.ClipSpace {
	return common.ClipSpaceGL
}

func (b *glRendererBackendImpl) CreateBuffer(kind BufferKind, label string, data []byte) (Buffer, error) {
	// Index data is uploaded through ARRAY_BUFFER too: ELEMENT_ARRAY_BUFFER is VAO state
	// and is attached in CreateVertexArray.
	buf := &glBuffer{kind: kind, size: len(data), label: label}
	gl.GenBuffers(1, &buf.id)
	gl.BindBuffer(gl.ARRAY_BUFFER, buf.id)
	gl.BufferData(gl.ARRAY_BUFFER, len(data), glPtr(data), gl.STATIC_DRAW)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	if err := glCheck(); err != nil {
		buf.Release()
		return nil, err
	}
	return buf, nil
}

func (b *glRendererBackendImpl) CreateVertexArray(label string, vertices, indices Buffer, indexCount int, layout common.VertexLayout) (VertexArray, error) {
	vb, ok := vertices.(*glBuffer)
	if !ok {
		return nil, errForeignResource
	}
	ib, ok := indices.(*glBuffer)
	if !ok {
		return nil, errForeignResource
	}

	va := &glVertexArray{indexCount: indexCount, label: label}
	gl.GenVertexArrays(1, &va.id)
	gl.BindVertexArray(va.id)

	gl.BindBuffer(gl.ARRAY_BUFFER, vb.id)
	for _, attr := range layout.Attributes {
		gl.VertexAttribPointerWithOffset(attr.Slot, int32(attr.Components), gl.FLOAT, false, int32(layout.Stride), uintptr(attr.Offset))
		gl.EnableVertexAttribArray(attr.Slot)
	}
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, ib.id)

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	b.bound = nil

	if err := glCheck(); err != nil {
		va.Release()
		return nil, err
	}
	return va, nil
}

func (b *glRendererBackendImpl) CreateTexture(label string, format TextureFormat, staging common.TextureStagingData) (Texture, error) {
	internal, external := int32(gl.RGBA8), uint32(gl.RGBA)
	if format == TextureFormatRGB8 {
		internal, external = gl.RGB8, gl.RGB
	}

	tex := &glTexture{width: staging.Width, height: staging.Height, format: format, label: label}
	gl.GenTextures(1, &tex.id)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, tex.id)

	// RGB rows are not 4-byte aligned for odd widths.
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(staging.Width), int32(staging.Height), 0, external, gl.UNSIGNED_BYTE, gl.Ptr(staging.Pixels))
	gl.GenerateMipmap(gl.TEXTURE_2D)

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)

	if err := glCheck(); err != nil {
		tex.Release()
		return nil, err
	}
	return tex, nil
}

func (b *glRendererBackendImpl) CreateShader(src ShaderSource) (Shader, error) {
	vs, err := compileGLShader(src.Vertex, gl.VERTEX_SHADER)
	if err != nil {
		return nil, fmt.Errorf("vertex stage: %w", err)
	}
	defer gl.DeleteShader(vs)

	fs, err := compileGLShader(src.Fragment, gl.FRAGMENT_SHADER)
	if err != nil {
		return nil, fmt.Errorf("fragment stage: %w", err)
	}
	defer gl.DeleteShader(fs)

	program := gl.CreateProgram()
	gl.AttachShader(program, vs)
	gl.AttachShader(program, fs)
	gl.LinkProgram(program)
	gl.DetachShader(program, vs)
	gl.DetachShader(program, fs)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		msg := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(msg))
		gl.DeleteProgram(program)
		return nil, fmt.Errorf("failed to link program: %s", strings.TrimRight(msg, "\x00"))
	}

	return &glShader{program: program, label: src.Label, locations: make(map[string]int32)}, nil
}

func compileGLShader(source string, shaderType uint32) (uint32, error) {
	handle := gl.CreateShader(shaderType)

	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(handle, 1, csources, nil)
	free()
	gl.CompileShader(handle)

	var status int32
	gl.GetShaderiv(handle, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(handle, gl.INFO_LOG_LENGTH, &logLength)
		msg := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(handle, logLength, nil, gl.Str(msg))
		gl.DeleteShader(handle)
		return 0, fmt.Errorf("failed to compile: %s", strings.TrimRight(msg, "\x00"))
	}
	return handle, nil
}

func (b *glRendererBackendImpl) UseShader(shader Shader) error {
	s, ok := shader.(*glShader)
	if !ok {
		return errForeignResource
	}
	gl.UseProgram(s.program)
	b.current = s
	return nil
}

func (b *glRendererBackendImpl) SetUniform(shader Shader, name string, value any) error {
	s, ok := shader.(*glShader)
	if !ok {
		return errForeignResource
	}
	loc := s.location(name)
	if loc < 0 {
		// Unused uniforms are optimized out by the driver.
		return nil
	}

	switch v := value.(type) {
	case bool:
		var i int32
		if v {
			i = 1
		}
		gl.ProgramUniform1i(s.program, loc, i)
	case int32:
		gl.ProgramUniform1i(s.program, loc, v)
	case float32:
		gl.ProgramUniform1f(s.program, loc, v)
	case [3]float32:
		gl.ProgramUniform3f(s.program, loc, v[0], v[1], v[2])
	case [16]float32:
		gl.ProgramUniformMatrix4fv(s.program, loc, 1, false, &v[0])
	default:
		return fmt.Errorf("unsupported uniform type %T", value)
	}
	return nil
}

func (b *glRendererBackendImpl) BindTexture(unit int, tex Texture) error {
	t, ok := tex.(*glTexture)
	if !ok {
		return errForeignResource
	}
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	return nil
}

func (b *glRendererBackendImpl) BindVertexArray(va VertexArray) error {
	v, ok := va.(*glVertexArray)
	if !ok {
		return errForeignResource
	}
	gl.BindVertexArray(v.id)
	b.bound = v
	return nil
}

func (b *glRendererBackendImpl) DrawIndexed(indexCount int) error {
	if b.current == nil {
		return errNoShaderInUse
	}
	if b.bound == nil {
		return errNoVertexArray
	}
	if indexCount > b.bound.indexCount {
		return fmt.Errorf("%w: %d > %d", errIndexCountTooHigh, indexCount, b.bound.indexCount)
	}
	gl.DrawElements(gl.TRIANGLES, int32(indexCount), gl.UNSIGNED_INT, nil)
	return nil
}

func (b *glRendererBackendImpl) BeginFrame() error {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	b.inFrame = true
	return nil
}

func (b *glRendererBackendImpl) EndFrame() error {
	if !b.inFrame {
		return errFrameNotStarted
	}
	b.inFrame = false
	b.window.SwapBuffers()
	return glCheck()
}

func (b *glRendererBackendImpl) Release() {
	gl.UseProgram(0)
	gl.BindVertexArray(0)
	b.current = nil
	b.bound = nil
}
