package loader

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/Carmen-Shannon/oxy-viewer/engine/loader/loadertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractQuadZeroFillsMissingAttributes(t *testing.T) {
	p := parseBytes(t, loadertest.Quad().GLB())

	prims, err := newGLTFMeshExtractor(p).ExtractAllPrimitives()
	require.NoError(t, err)
	require.Len(t, prims, 1)

	prim := prims[0]
	assert.Equal(t, "quad#0", prim.Name)
	assert.Equal(t, -1, prim.MaterialIndex)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, prim.Indices)
	require.Len(t, prim.Vertices, 4)
	for _, v := range prim.Vertices {
		assert.Equal(t, [3]float32{}, v.Normal)
		assert.Equal(t, [2]float32{}, v.TexCoord)
	}
	assert.Equal(t, [3]float32{1, 1, 0}, prim.Vertices[2].Position)
}

func TestExtractAllAttributes(t *testing.T) {
	b := loadertest.New()
	pos := b.AddVec3([][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	nrm := b.AddVec3([][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}})
	uv := b.AddVec2([][2]float32{{0, 0}, {1, 0}, {0, 1}})
	idx := b.AddIndicesU32([]uint32{0, 1, 2})
	b.AddMesh("", loadertest.Primitive{
		Attributes: map[string]int{"POSITION": pos, "NORMAL": nrm, "TEXCOORD_0": uv},
		Indices:    loadertest.Ptr(idx),
	})
	p := parseBytes(t, b.GLB())

	prim, err := newGLTFMeshExtractor(p).ExtractPrimitive(0, 0)
	require.NoError(t, err)
	assert.Equal(t, "mesh0#0", prim.Name)
	assert.Equal(t, common.Vertex{
		Position: [3]float32{1, 0, 0},
		Normal:   [3]float32{0, 0, 1},
		TexCoord: [2]float32{1, 0},
	}, prim.Vertices[1])
}

func TestExtractWidensU16IndicesAboveByteRange(t *testing.T) {
	b := loadertest.New()
	positions := make([][3]float32, 1000)
	for i := range positions {
		positions[i] = [3]float32{float32(i), 0, 0}
	}
	pos := b.AddVec3(positions)
	idx := b.AddIndicesU16([]uint16{0, 256, 999, 257, 512, 0x01FF})
	b.AddMesh("wide", loadertest.Primitive{
		Attributes: map[string]int{"POSITION": pos},
		Indices:    loadertest.Ptr(idx),
	})
	p := parseBytes(t, b.GLB())

	prim, err := newGLTFMeshExtractor(p).ExtractPrimitive(0, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 256, 999, 257, 512, 511}, prim.Indices)
	assert.Equal(t, [3]float32{999, 0, 0}, prim.Vertices[prim.Indices[2]].Position)
}

func TestExtractMissingPosition(t *testing.T) {
	b := loadertest.New()
	nrm := b.AddVec3([][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}})
	b.AddMesh("broken", loadertest.Primitive{Attributes: map[string]int{"NORMAL": nrm}})
	p := parseBytes(t, b.GLB())

	_, err := newGLTFMeshExtractor(p).ExtractAllPrimitives()
	var formatErr *common.FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.ErrorIs(t, err, errMissingPosition)
}

func TestExtractGeneratesSequentialIndices(t *testing.T) {
	b := loadertest.New()
	pos := b.AddVec3([][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	b.AddMesh("tri", loadertest.Primitive{Attributes: map[string]int{"POSITION": pos}})
	p := parseBytes(t, b.GLB())

	prim, err := newGLTFMeshExtractor(p).ExtractPrimitive(0, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 2}, prim.Indices)
}

func TestExtractRejectsMalformedPrimitives(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *loadertest.Builder)
		want  error
	}{
		{
			name: "non-triangle mode",
			build: func(b *loadertest.Builder) {
				pos := b.AddVec3([][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
				b.AddMesh("lines", loadertest.Primitive{
					Attributes: map[string]int{"POSITION": pos},
					Mode:       loadertest.Ptr(1),
				})
			},
			want: errUnsupportedMode,
		},
		{
			name: "index past last vertex",
			build: func(b *loadertest.Builder) {
				pos := b.AddVec3([][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
				idx := b.AddIndicesU16([]uint16{0, 1, 3})
				b.AddMesh("oob", loadertest.Primitive{
					Attributes: map[string]int{"POSITION": pos},
					Indices:    loadertest.Ptr(idx),
				})
			},
			want: errIndexOutOfRange,
		},
		{
			name: "incomplete triangle",
			build: func(b *loadertest.Builder) {
				pos := b.AddVec3([][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
				idx := b.AddIndicesU16([]uint16{0, 1})
				b.AddMesh("short", loadertest.Primitive{
					Attributes: map[string]int{"POSITION": pos},
					Indices:    loadertest.Ptr(idx),
				})
			},
			want: errIncompleteTriangle,
		},
		{
			name: "normal count mismatch",
			build: func(b *loadertest.Builder) {
				pos := b.AddVec3([][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
				nrm := b.AddVec3([][3]float32{{0, 0, 1}})
				b.AddMesh("mismatch", loadertest.Primitive{
					Attributes: map[string]int{"POSITION": pos, "NORMAL": nrm},
				})
			},
			want: errAttributeCount,
		},
		{
			name: "material out of range",
			build: func(b *loadertest.Builder) {
				pos := b.AddVec3([][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
				b.AddMesh("nomat", loadertest.Primitive{
					Attributes: map[string]int{"POSITION": pos},
					Material:   loadertest.Ptr(2),
				})
			},
			want: errMaterialIndexOutRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := loadertest.New()
			tt.build(b)
			p := parseBytes(t, b.GLB())

			_, err := newGLTFMeshExtractor(p).ExtractAllPrimitives()
			var formatErr *common.FormatError
			require.ErrorAs(t, err, &formatErr)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
