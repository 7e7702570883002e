package loader

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/Carmen-Shannon/oxy-viewer/engine/loader/loadertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderLoadQuad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "box.glb")
	require.NoError(t, loadertest.Quad().WriteGLB(path))

	scene, err := NewLoader(BackendTypeGLTF).Load(path)
	require.NoError(t, err)
	assert.Equal(t, "quad", scene.Name)
	require.Len(t, scene.Primitives, 1)
	assert.Len(t, scene.Primitives[0].Vertices, 4)
	assert.Empty(t, scene.Materials)
	assert.Empty(t, scene.Images)
}

func TestLoaderSceneNameFallsBackToFileName(t *testing.T) {
	b := loadertest.New()
	pos := b.AddVec3([][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	b.AddMesh("", loadertest.Primitive{Attributes: map[string]int{"POSITION": pos}})
	path := filepath.Join(t.TempDir(), "unnamed.glb")
	require.NoError(t, b.WriteGLB(path))

	scene, err := NewLoader(BackendTypeGLTF).Load(path)
	require.NoError(t, err)
	assert.Equal(t, "unnamed", scene.Name)
}

func TestLoaderMissingFile(t *testing.T) {
	_, err := NewLoader(BackendTypeGLTF).Load(filepath.Join(t.TempDir(), "nope.glb"))
	var ioErr *common.IOError
	assert.ErrorAs(t, err, &ioErr)
}

func texturedScene(images ...[]byte) *loadertest.Builder {
	b := loadertest.New()
	pos := b.AddVec3([][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	uv := b.AddVec2([][2]float32{{0, 0}, {1, 0}, {0, 1}})
	for i, data := range images {
		b.AddImage(data, "image/png")
		b.AddTexture(loadertest.Ptr(i))
	}
	mat := b.AddMaterial("m", loadertest.Ptr(0))
	b.AddMesh("tex", loadertest.Primitive{
		Attributes: map[string]int{"POSITION": pos, "TEXCOORD_0": uv},
		Material:   loadertest.Ptr(mat),
	})
	return b
}

func TestLoaderDecodesImagesInParallel(t *testing.T) {
	b := texturedScene(
		loadertest.SolidPNG(4, 2, loadertest.Opaque),
		loadertest.SolidPNG(2, 2, loadertest.Translucent),
		loadertest.SolidPNG(1, 1, loadertest.Opaque),
	)

	scene, err := NewLoader(BackendTypeGLTF, WithDecodeWorkers(4)).LoadReader(bytes.NewReader(b.GLB()), "")
	require.NoError(t, err)
	require.Len(t, scene.Images, 3)

	opaque := scene.Images[0].Staging
	assert.Equal(t, uint32(4), opaque.Width)
	assert.Equal(t, uint32(2), opaque.Height)
	assert.Equal(t, uint32(3), opaque.Channels)
	assert.Len(t, opaque.Pixels, 4*2*3)
	assert.Equal(t, []byte{200, 100, 50}, opaque.Pixels[:3])

	assert.Equal(t, uint32(4), scene.Images[1].Staging.Channels)
	assert.Len(t, scene.Images[1].Staging.Pixels, 2*2*4)
	assert.Nil(t, scene.Images[0].Data)
}

func TestLoaderReportsUndecodableImage(t *testing.T) {
	b := texturedScene(
		loadertest.SolidPNG(1, 1, loadertest.Opaque),
		[]byte("definitely not a png"),
	)

	for _, workers := range []int{1, 4} {
		_, err := NewLoader(BackendTypeGLTF, WithDecodeWorkers(workers)).LoadReader(bytes.NewReader(b.GLB()), "")
		var formatErr *common.FormatError
		require.ErrorAs(t, err, &formatErr)
		assert.Contains(t, err.Error(), "image 1")
	}
}

func TestLoaderSupports(t *testing.T) {
	l := NewLoader(BackendTypeGLTF)
	assert.True(t, l.Supports("a/b/Model.GLB"))
	assert.True(t, l.Supports("scene.gltf"))
	assert.False(t, l.Supports("scene.obj"))
}
