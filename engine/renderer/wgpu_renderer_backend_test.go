package renderer

import (
	"encoding/binary"
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeUniform(t *testing.T) {
	b, err := encodeUniform(true)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(b))

	b, err = encodeUniform(false)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(b))

	b, err = encodeUniform(float32(0.5))
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), math.Float32frombits(binary.LittleEndian.Uint32(b)))

	b, err = encodeUniform([3]float32{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, b, 12)
	assert.Equal(t, float32(3), math.Float32frombits(binary.LittleEndian.Uint32(b[8:])))

	b, err = encodeUniform([16]float32{})
	require.NoError(t, err)
	assert.Len(t, b, 64)

	_, err = encodeUniform("nope")
	assert.Error(t, err)
}

func TestMipChain(t *testing.T) {
	base := image.NewRGBA(image.Rect(0, 0, 8, 2))
	chain := mipChain(base)
	require.Len(t, chain, 4)
	assert.Same(t, base, chain[0])

	sizes := make([]image.Point, len(chain))
	for i, img := range chain {
		sizes[i] = img.Rect.Size()
	}
	assert.Equal(t, []image.Point{{8, 2}, {4, 1}, {2, 1}, {1, 1}}, sizes)
}

func TestMipChain_SinglePixel(t *testing.T) {
	chain := mipChain(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	assert.Len(t, chain, 1)
}
