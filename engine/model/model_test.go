package model

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/Carmen-Shannon/oxy-viewer/engine/loader/loadertest"
	"github.com/Carmen-Shannon/oxy-viewer/engine/renderer"
	"github.com/Carmen-Shannon/oxy-viewer/engine/renderer/renderertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	rec    *renderertest.Recorder
	r      renderer.Renderer
	shader renderer.Shader
	model  Model
	dir    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rec := renderertest.NewRecorder()
	r := renderer.NewRendererWithBackend(rec, 64, 64)
	shader, err := r.CreateShader(renderer.ShaderSource{Label: "basic"})
	require.NoError(t, err)
	f := &fixture{rec: rec, r: r, shader: shader, model: NewModel(r), dir: t.TempDir()}
	t.Cleanup(func() {
		f.model.Release()
		shader.Release()
		r.Release()
	})
	return f
}

func (f *fixture) write(t *testing.T, name string, b *loadertest.Builder) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, b.WriteGLB(path))
	return path
}

// assetHandles returns the recorder handles created for models, excluding the test shader.
func (f *fixture) assetHandles() []*renderertest.Handle {
	var out []*renderertest.Handle
	for _, h := range f.rec.Handles() {
		if h.Label() != "basic" {
			out = append(out, h)
		}
	}
	return out
}

func (f *fixture) drawCalls() []renderertest.Call {
	return f.rec.Filter(renderertest.OpBindTexture, renderertest.OpSetUniform,
		renderertest.OpBindVertexArray, renderertest.OpDrawIndexed)
}

// gatingScene has one textured, one untextured, and one material-less primitive.
func gatingScene() *loadertest.Builder {
	b := loadertest.New()
	pos4 := b.AddVec3([][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}})
	pos3 := b.AddVec3([][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	idx9 := b.AddIndicesU16([]uint16{0, 1, 2, 2, 3, 0, 0, 1, 3})
	idx6 := b.AddIndicesU32([]uint32{0, 1, 2, 0, 2, 3})

	b.AddImage(loadertest.SolidPNG(2, 2, loadertest.Opaque), "image/png")
	tex := b.AddTexture(loadertest.Ptr(0))
	textured := b.AddMaterial("textured", loadertest.Ptr(tex))
	plain := b.AddMaterial("plain", nil)

	b.AddMesh("a", loadertest.Primitive{
		Attributes: map[string]int{"POSITION": pos4},
		Indices:    loadertest.Ptr(idx9),
		Material:   loadertest.Ptr(textured),
	})
	b.AddMesh("b", loadertest.Primitive{
		Attributes: map[string]int{"POSITION": pos4},
		Indices:    loadertest.Ptr(idx6),
		Material:   loadertest.Ptr(plain),
	})
	b.AddMesh("c", loadertest.Primitive{
		Attributes: map[string]int{"POSITION": pos3},
	})
	return b
}

func TestModel_QuadScenario(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "quad.glb", loadertest.Quad())

	require.NoError(t, f.model.Load(path))
	assert.Equal(t, StateLoaded, f.model.State())
	assert.Equal(t, path, f.model.Path())
	assert.Equal(t, "quad", f.model.Name())

	prims := f.model.Primitives()
	require.Len(t, prims, 1)
	assert.Equal(t, 6, prims[0].IndexCount)
	assert.Equal(t, 4, prims[0].VertexCount)
	assert.Equal(t, -1, prims[0].MaterialIndex)
	assert.Empty(t, f.model.Materials())
	assert.Empty(t, f.model.Textures())

	buffers := f.rec.Filter(renderertest.OpCreateBuffer)
	require.Len(t, buffers, 2)
	assert.Equal(t, 4*common.VertexSize, buffers[0].Count)
	assert.Equal(t, 6*4, buffers[1].Count)

	f.rec.Reset()
	require.NoError(t, f.model.Draw(f.shader))

	calls := f.drawCalls()
	require.Len(t, calls, 3)
	assert.Equal(t, renderertest.OpSetUniform, calls[0].Op)
	assert.Equal(t, UniformHasBaseColor, calls[0].Name)
	assert.Equal(t, false, calls[0].Value)
	assert.Equal(t, renderertest.OpBindVertexArray, calls[1].Op)
	assert.Equal(t, "quad#0", calls[1].Label)
	assert.Equal(t, renderertest.OpDrawIndexed, calls[2].Op)
	assert.Equal(t, 6, calls[2].Count)
}

func TestModel_DrawGatesTextures(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.model.Load(f.write(t, "gating.glb", gatingScene())))

	textures := f.model.Textures()
	require.Len(t, textures, 1)
	assert.Equal(t, renderer.TextureFormatRGB8, textures[0].Format)
	materials := f.model.Materials()
	require.Len(t, materials, 2)
	assert.Equal(t, "textured", materials[0].Name)
	assert.Equal(t, 0, materials[0].BaseColorTexture)
	assert.Equal(t, "plain", materials[1].Name)
	assert.Equal(t, -1, materials[1].BaseColorTexture)

	f.rec.Reset()
	require.NoError(t, f.model.Draw(f.shader))

	want := []renderertest.Call{
		{Op: renderertest.OpBindTexture, Label: textures[0].Label, Unit: BaseColorTextureUnit},
		{Op: renderertest.OpSetUniform, Label: "basic", Name: UniformBaseColorTexture, Value: int32(0)},
		{Op: renderertest.OpSetUniform, Label: "basic", Name: UniformHasBaseColor, Value: true},
		{Op: renderertest.OpBindVertexArray, Label: "a#0"},
		{Op: renderertest.OpDrawIndexed, Count: 9},
		{Op: renderertest.OpSetUniform, Label: "basic", Name: UniformHasBaseColor, Value: false},
		{Op: renderertest.OpBindVertexArray, Label: "b#0"},
		{Op: renderertest.OpDrawIndexed, Count: 6},
		{Op: renderertest.OpSetUniform, Label: "basic", Name: UniformHasBaseColor, Value: false},
		{Op: renderertest.OpBindVertexArray, Label: "c#0"},
		{Op: renderertest.OpDrawIndexed, Count: 3},
	}
	assert.Equal(t, want, f.drawCalls())
}

func TestModel_DrawEmptyIsNoop(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, StateEmpty, f.model.State())
	require.NoError(t, f.model.Draw(f.shader))
	assert.Empty(t, f.drawCalls())
	assert.Empty(t, f.model.Primitives())
	assert.Empty(t, f.model.Path())
}

func TestModel_FailedLoadKeepsPreviousAsset(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "quad.glb", loadertest.Quad())
	require.NoError(t, f.model.Load(path))
	live := f.rec.Live()

	err := f.model.Load(filepath.Join(f.dir, "missing.glb"))
	var ioErr *common.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	assert.Equal(t, StateLoaded, f.model.State())
	assert.Equal(t, path, f.model.Path())
	assert.Equal(t, live, f.rec.Live())
	for _, h := range f.assetHandles() {
		assert.Zero(t, h.Releases, h.Label())
	}

	f.rec.Reset()
	require.NoError(t, f.model.Draw(f.shader))
	assert.Len(t, f.rec.Filter(renderertest.OpDrawIndexed), 1)
}

func TestModel_MissingPositionIsFormatError(t *testing.T) {
	f := newFixture(t)
	b := loadertest.New()
	normals := b.AddVec3([][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}})
	b.AddMesh("broken", loadertest.Primitive{Attributes: map[string]int{"NORMAL": normals}})

	err := f.model.Load(f.write(t, "broken.glb", b))
	var formatErr *common.FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, StateEmpty, f.model.State())
	assert.Equal(t, 1, f.rec.Live(), "only the shader is live")
}

func TestModel_EmptyIndexListIsFormatError(t *testing.T) {
	f := newFixture(t)
	b := loadertest.Quad()
	b.SetAccessorCount(1, 0)

	err := f.model.Load(f.write(t, "empty.glb", b))
	var formatErr *common.FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.ErrorIs(t, err, errNoIndices)
	assert.Equal(t, StateEmpty, f.model.State())
	assert.Equal(t, 1, f.rec.Live(), "only the shader is live")
	assert.Empty(t, f.rec.Filter(renderertest.OpCreateBuffer))
}

func TestModel_UploadFailureRollsBack(t *testing.T) {
	tests := []struct {
		name string
		op   string
		nth  int
	}{
		{name: "texture", op: renderertest.OpCreateTexture, nth: 1},
		{name: "first vertex buffer", op: renderertest.OpCreateBuffer, nth: 1},
		{name: "second index buffer", op: renderertest.OpCreateBuffer, nth: 4},
		{name: "last vertex array", op: renderertest.OpCreateVertexArray, nth: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			quad := f.write(t, "quad.glb", loadertest.Quad())
			require.NoError(t, f.model.Load(quad))
			before := f.assetHandles()

			f.rec.FailOn(tt.op, tt.nth)
			err := f.model.Load(f.write(t, "gating.glb", gatingScene()))
			var resErr *common.ResourceError
			require.ErrorAs(t, err, &resErr)
			assert.True(t, errors.Is(err, renderertest.ErrInjected))

			assert.Equal(t, quad, f.model.Path())
			for _, h := range f.assetHandles() {
				want := 1
				for _, kept := range before {
					if kept == h {
						want = 0
					}
				}
				assert.Equal(t, want, h.Releases, h.Label())
			}
			assert.Equal(t, len(before)+1, f.rec.Live())
		})
	}
}

func TestModel_ReloadReleasesPrevious(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.model.Load(f.write(t, "gating.glb", gatingScene())))
	first := f.assetHandles()
	require.Len(t, first, 1+3*3)

	require.NoError(t, f.model.Load(f.write(t, "quad.glb", loadertest.Quad())))
	for _, h := range first {
		assert.Equal(t, 1, h.Releases, h.Label())
	}
	assert.Equal(t, 1+3, f.rec.Live())
	assert.Len(t, f.model.Primitives(), 1)

	// The old set goes newest first: the last vertex array before the texture.
	releases := f.rec.Filter(renderertest.OpRelease)
	require.NotEmpty(t, releases)
	assert.Equal(t, "c#0", releases[0].Label)
	assert.Equal(t, first[0].Label(), releases[len(releases)-1].Label)
}

func TestModel_LoadTwiceIsIdempotent(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "gating.glb", gatingScene())

	require.NoError(t, f.model.Load(path))
	prims, materials, textures := f.model.Primitives(), f.model.Materials(), f.model.Textures()
	require.Len(t, prims, 3)

	require.NoError(t, f.model.Load(path))
	assert.Equal(t, prims, f.model.Primitives())
	assert.Len(t, f.model.Materials(), len(materials))
	assert.Len(t, f.model.Textures(), len(textures))
	assert.Equal(t, materials, f.model.Materials())
	assert.Equal(t, 1+1+3*3, f.rec.Live(), "shader plus one asset set")
}

func TestModel_ReleaseIsIdempotent(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.model.Load(f.write(t, "gating.glb", gatingScene())))

	f.model.Release()
	f.model.Release()

	for _, h := range f.assetHandles() {
		assert.Equal(t, 1, h.Releases, h.Label())
	}
	assert.Equal(t, StateEmpty, f.model.State())
	assert.Equal(t, 1, f.rec.Live())

	f.rec.Reset()
	require.NoError(t, f.model.Draw(f.shader))
	assert.Empty(t, f.drawCalls())
}

func TestModel_DrawFailureStops(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.model.Load(f.write(t, "gating.glb", gatingScene())))

	f.rec.FailOn(renderertest.OpDrawIndexed, 2)
	err := f.model.Draw(f.shader)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b#0")
	assert.Len(t, f.rec.Filter(renderertest.OpDrawIndexed), 2)
}

func TestModel_WithName(t *testing.T) {
	rec := renderertest.NewRecorder()
	r := renderer.NewRendererWithBackend(rec, 1, 1)
	m := NewModel(r, WithName("hero"))
	assert.Equal(t, "hero", m.Name())
	assert.Equal(t, "empty", m.State().String())
}
