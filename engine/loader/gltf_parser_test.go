package loader

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/Carmen-Shannon/oxy-viewer/engine/loader/loadertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseBytes(t *testing.T, data []byte) gltfParser {
	t.Helper()
	p := newGLTFParser()
	require.NoError(t, p.ParseReader(bytes.NewReader(data), t.TempDir()))
	return p
}

func TestParseGLBQuad(t *testing.T) {
	p := parseBytes(t, loadertest.Quad().GLB())

	doc := p.Document()
	require.NotNil(t, doc)
	assert.Len(t, doc.Meshes, 1)
	assert.Len(t, doc.Accessors, 2)

	positions, err := p.ReadVec3Accessor(0)
	require.NoError(t, err)
	assert.Equal(t, [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}, positions)

	indices, err := p.ReadIndicesAccessor(1)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, indices)
}

func TestParseGLTFWithDataURI(t *testing.T) {
	p := parseBytes(t, loadertest.Quad().GLTF())

	positions, err := p.ReadVec3Accessor(0)
	require.NoError(t, err)
	assert.Len(t, positions, 4)
}

func TestParseFileDetectsGLBByMagic(t *testing.T) {
	// Wrong extension: the magic number decides.
	path := filepath.Join(t.TempDir(), "quad.bin")
	require.NoError(t, loadertest.Quad().WriteGLB(path))

	p := newGLTFParser()
	require.NoError(t, p.Parse(path))
	assert.NotNil(t, p.Document())
}

func TestParseMissingFileIsIOError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.glb")

	err := newGLTFParser().Parse(path)
	var ioErr *common.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, path, ioErr.Path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParseTruncatedGLBIsIOError(t *testing.T) {
	glb := loadertest.Quad().GLB()

	for name, data := range map[string][]byte{
		"header":  glb[:8],
		"payload": glb[:len(glb)-6],
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "short.glb")
			require.NoError(t, os.WriteFile(path, data, 0o644))

			err := newGLTFParser().Parse(path)
			var ioErr *common.IOError
			require.ErrorAs(t, err, &ioErr)
			assert.Equal(t, path, ioErr.Path)
			assert.ErrorIs(t, err, errTruncatedGLB)
		})
	}
}

func TestParseGLBBadVersion(t *testing.T) {
	glb := loadertest.Quad().GLB()
	binary.LittleEndian.PutUint32(glb[4:8], 1)

	err := newGLTFParser().ParseReader(bytes.NewReader(glb), "")
	var formatErr *common.FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.ErrorIs(t, err, errInvalidGLBVersion)
}

func TestParseBufferShorterThanDeclared(t *testing.T) {
	b := loadertest.Quad()
	b.BufferLengthDelta = 8

	err := newGLTFParser().ParseReader(bytes.NewReader(b.GLB()), "")
	var formatErr *common.FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.ErrorIs(t, err, errBufferSizeMismatch)
}

func TestParseRejectsRequiredExtension(t *testing.T) {
	b := loadertest.Quad()
	b.RequireExtension("KHR_draco_mesh_compression")

	err := newGLTFParser().ParseReader(bytes.NewReader(b.GLB()), "")
	assert.ErrorIs(t, err, errUnsupportedExtension)
}

func TestParseRejectsInvalidJSON(t *testing.T) {
	err := newGLTFParser().ParseReader(bytes.NewReader([]byte("{not json")), "")
	var formatErr *common.FormatError
	assert.ErrorAs(t, err, &formatErr)
}

func TestReadIndicesRejectsUnsignedByte(t *testing.T) {
	b := loadertest.New()
	b.AddVec3([][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	idx := b.AddIndicesU8([]uint8{0, 1, 2})
	p := parseBytes(t, b.GLB())

	_, err := p.ReadIndicesAccessor(idx)
	var formatErr *common.FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.ErrorIs(t, err, errUnsupportedIndexType)
}

func TestReadIndicesWidensU32(t *testing.T) {
	b := loadertest.New()
	idx := b.AddIndicesU32([]uint32{70000, 1, 2})
	p := parseBytes(t, b.GLB())

	indices, err := p.ReadIndicesAccessor(idx)
	require.NoError(t, err)
	assert.Equal(t, []uint32{70000, 1, 2}, indices)
}

func TestReadAccessorPastEndOfView(t *testing.T) {
	b := loadertest.New()
	pos := b.AddVec3([][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	b.SetAccessorCount(pos, 4)
	p := parseBytes(t, b.GLB())

	_, err := p.ReadVec3Accessor(pos)
	assert.ErrorIs(t, err, errRegionOutOfBounds)
}

func TestParseHugeViewOffsetIsFormatError(t *testing.T) {
	b := loadertest.Quad()
	b.SetViewOffset(0, math.MaxInt64)

	err := newGLTFParser().ParseReader(bytes.NewReader(b.GLTF()), "")
	var formatErr *common.FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.ErrorIs(t, err, errRegionOutOfBounds)
}

func TestReadAccessorHugeCountIsFormatError(t *testing.T) {
	b := loadertest.Quad()
	b.SetAccessorCount(0, 768614336404564651)
	p := parseBytes(t, b.GLTF())

	_, err := p.ReadVec3Accessor(0)
	var formatErr *common.FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.ErrorIs(t, err, errRegionOutOfBounds)
}

func TestReadAccessorOffsetPastView(t *testing.T) {
	b := loadertest.New()
	pos := b.AddVec3([][3]float32{{0, 0, 0}})
	b.SetAccessorOffset(pos, math.MaxInt64)
	p := parseBytes(t, b.GLB())

	_, err := p.ReadVec3Accessor(pos)
	assert.ErrorIs(t, err, errRegionOutOfBounds)
}

func TestReadAccessorTypeMismatch(t *testing.T) {
	b := loadertest.New()
	uv := b.AddVec2([][2]float32{{0, 0}})
	p := parseBytes(t, b.GLB())

	_, err := p.ReadVec3Accessor(uv)
	assert.ErrorIs(t, err, errUnexpectedAccessor)
}

func TestReadInterleavedAccessors(t *testing.T) {
	b := loadertest.New()
	pos, uv := b.AddInterleaved(
		[][3]float32{{1, 2, 3}, {4, 5, 6}},
		[][2]float32{{0.25, 0.5}, {0.75, 1}},
	)
	p := parseBytes(t, b.GLB())

	positions, err := p.ReadVec3Accessor(pos)
	require.NoError(t, err)
	assert.Equal(t, [][3]float32{{1, 2, 3}, {4, 5, 6}}, positions)

	uvs, err := p.ReadVec2Accessor(uv)
	require.NoError(t, err)
	assert.Equal(t, [][2]float32{{0.25, 0.5}, {0.75, 1}}, uvs)
}

func TestReadImageDataFromBufferView(t *testing.T) {
	b := loadertest.New()
	png := loadertest.SolidPNG(2, 2, loadertest.Opaque)
	img := b.AddImage(png, "image/png")
	p := parseBytes(t, b.GLB())

	data, mime, err := p.ReadImageData(img)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, png, data)
}

func TestDecodeDataURIRequiresBase64(t *testing.T) {
	_, err := decodeDataURI("data:text/plain,hello")
	assert.ErrorIs(t, err, errInvalidBufferURI)

	data, err := decodeDataURI("data:application/octet-stream;base64,AAEC")
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2}, data)
}
