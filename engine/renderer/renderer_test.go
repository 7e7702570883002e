package renderer_test

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/Carmen-Shannon/oxy-viewer/engine/renderer"
	"github.com/Carmen-Shannon/oxy-viewer/engine/renderer/renderertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(t *testing.T) (renderer.Renderer, *renderertest.Recorder) {
	t.Helper()
	rec := renderertest.NewRecorder()
	r := renderer.NewRendererWithBackend(rec, 640, 480)
	t.Cleanup(r.Release)
	return r, rec
}

func TestNewRendererWithBackend_ConfiguresSurface(t *testing.T) {
	r, rec := newTestRenderer(t)
	w, h := rec.Size()
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)

	r.Resize(0, 100)
	w, _ = rec.Size()
	assert.Equal(t, 640, w, "degenerate sizes are ignored")

	r.Resize(800, 600)
	w, h = rec.Size()
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)
	assert.Equal(t, common.ClipSpaceGL, r.ClipSpace())
}

func TestResize_FailureKeepsPreviousSurface(t *testing.T) {
	r, rec := newTestRenderer(t)
	rec.FailOn(renderertest.OpConfigureSurface, 1)

	assert.NotPanics(t, func() { r.Resize(1024, 768) })
	w, h := rec.Size()
	assert.Equal(t, []int{640, 480}, []int{w, h})

	require.NoError(t, r.BeginFrame())
	require.NoError(t, r.EndFrame())

	r.Resize(1024, 768)
	w, h = rec.Size()
	assert.Equal(t, []int{1024, 768}, []int{w, h})
}

func TestCreateBuffer_IndexDataMustBeWholeWords(t *testing.T) {
	r, rec := newTestRenderer(t)

	_, err := r.CreateBuffer(renderer.BufferKindIndex, "ibo", make([]byte, 6))
	var resErr *common.ResourceError
	require.ErrorAs(t, err, &resErr)
	assert.Empty(t, rec.Filter(renderertest.OpCreateBuffer))

	buf, err := r.CreateBuffer(renderer.BufferKindIndex, "ibo", make([]byte, 8))
	require.NoError(t, err)
	assert.Equal(t, 8, buf.Size())
	assert.Equal(t, renderer.BufferKindIndex, buf.Kind())
}

func TestCreateVertexArray_Validation(t *testing.T) {
	r, _ := newTestRenderer(t)
	vbo, err := r.CreateBuffer(renderer.BufferKindVertex, "vbo", make([]byte, 4*common.VertexSize))
	require.NoError(t, err)
	ibo, err := r.CreateBuffer(renderer.BufferKindIndex, "ibo", common.MarshalIndices([]uint32{0, 1, 2, 0, 2, 3}))
	require.NoError(t, err)

	_, err = r.CreateVertexArray("vao", nil, ibo, 6, common.DefaultVertexLayout())
	var resErr *common.ResourceError
	assert.ErrorAs(t, err, &resErr)

	_, err = r.CreateVertexArray("vao", vbo, ibo, 7, common.DefaultVertexLayout())
	assert.ErrorAs(t, err, &resErr)

	va, err := r.CreateVertexArray("vao", vbo, ibo, 6, common.DefaultVertexLayout())
	require.NoError(t, err)
	assert.Equal(t, 6, va.IndexCount())
}

func TestCreateTexture_FormatFromChannels(t *testing.T) {
	r, rec := newTestRenderer(t)

	tex, err := r.CreateTexture("rgb", common.TextureStagingData{Pixels: make([]byte, 12), Width: 2, Height: 2, Channels: 3})
	require.NoError(t, err)
	assert.Equal(t, renderer.TextureFormatRGB8, tex.Format())
	assert.Equal(t, uint32(2), tex.Width())

	_, err = r.CreateTexture("bad", common.TextureStagingData{Pixels: make([]byte, 3), Width: 2, Height: 2, Channels: 3})
	var resErr *common.ResourceError
	require.ErrorAs(t, err, &resErr)
	assert.Len(t, rec.Filter(renderertest.OpCreateTexture), 1, "invalid staging never reaches the backend")
}

func TestBackendFailureIsResourceError(t *testing.T) {
	r, rec := newTestRenderer(t)
	rec.FailOn(renderertest.OpCreateShader, 1)

	_, err := r.CreateShader(renderer.ShaderSource{Label: "basic"})
	var resErr *common.ResourceError
	require.ErrorAs(t, err, &resErr)
	assert.True(t, errors.Is(err, renderertest.ErrInjected))
	assert.Contains(t, err.Error(), `"basic"`)

	s, err := r.CreateShader(renderer.ShaderSource{Label: "basic"})
	require.NoError(t, err)
	assert.Equal(t, "basic", s.Label())
}

func TestUniformsAndDraw(t *testing.T) {
	r, rec := newTestRenderer(t)
	s, err := r.CreateShader(renderer.ShaderSource{Label: "basic"})
	require.NoError(t, err)

	require.NoError(t, r.UseShader(s))
	r.SetUniformBool(s, "hasBaseColor", true)
	r.SetUniformInt(s, "baseColorTexture", 0)
	r.SetUniformFloat(s, "ambientIntensity", 0.5)
	r.SetUniformBool(nil, "ignored", true)
	require.NoError(t, r.DrawIndexed(0))
	require.NoError(t, r.DrawIndexed(6))

	uniforms := rec.Filter(renderertest.OpSetUniform)
	require.Len(t, uniforms, 3)
	assert.Equal(t, "hasBaseColor", uniforms[0].Name)
	assert.Equal(t, true, uniforms[0].Value)
	assert.Equal(t, int32(0), uniforms[1].Value)
	assert.Equal(t, float32(0.5), uniforms[2].Value)

	draws := rec.Filter(renderertest.OpDrawIndexed)
	require.Len(t, draws, 1, "empty draws are skipped")
	assert.Equal(t, 6, draws[0].Count)
}

func TestReleasedRendererRejectsCreation(t *testing.T) {
	rec := renderertest.NewRecorder()
	r := renderer.NewRendererWithBackend(rec, 1, 1)
	r.Release()
	r.Release()

	_, err := r.CreateBuffer(renderer.BufferKindVertex, "late", nil)
	var resErr *common.ResourceError
	assert.ErrorAs(t, err, &resErr)
	assert.Error(t, r.BeginFrame())
}
