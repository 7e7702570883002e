package bind_group_provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageAndFlush(t *testing.T) {
	p := NewBindGroupProvider("Globals", WithBuffer(0, nil, 16))
	assert.Equal(t, "Globals", p.Label())

	assert.Empty(t, p.Flush(), "nothing staged yet")

	require.True(t, p.Stage(0, 4, []byte{1, 2, 3, 4}))
	assert.False(t, p.Stage(0, 14, []byte{1, 2, 3, 4}), "write past the end")
	assert.False(t, p.Stage(1, 0, []byte{1}), "unknown binding")

	writes := p.Flush()
	require.Len(t, writes, 1)
	assert.Equal(t, 0, writes[0].Binding)
	assert.Nil(t, writes[0].Buffer)
	assert.Equal(t, []byte{0, 0, 0, 0, 1, 2, 3, 4, 0, 0, 0, 0, 0, 0, 0, 0}, writes[0].Data)

	assert.Empty(t, p.Flush(), "flush clears dirty marks")

	// The flushed copy is detached from the shadow.
	require.True(t, p.Stage(0, 0, []byte{9}))
	assert.Equal(t, byte(0), writes[0].Data[0])
}

func TestRelease_NilBuffers(t *testing.T) {
	p := NewBindGroupProvider("Material", WithBuffer(0, nil, 16), WithTextureView(1, nil), WithSampler(2, nil))
	p.Release()
	p.Release()
	assert.Nil(t, p.Buffer(0))
	assert.False(t, p.Stage(0, 0, []byte{1}))
}
