package renderer

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderedResource struct {
	name  string
	order *[]string
}

func (o *orderedResource) Label() string { return o.name }
func (o *orderedResource) Release()      { *o.order = append(*o.order, o.name) }

func TestResourceSet_ReleaseAllReverseOrder(t *testing.T) {
	var order []string
	var set ResourceSet
	set.Add(&orderedResource{name: "vbo", order: &order})
	set.Add(nil)
	set.Add(&orderedResource{name: "ibo", order: &order})
	set.Add(&orderedResource{name: "vao", order: &order})
	assert.Equal(t, 3, set.Len())

	set.ReleaseAll()
	assert.Equal(t, []string{"vao", "ibo", "vbo"}, order)
	assert.Zero(t, set.Len())

	set.ReleaseAll()
	assert.Len(t, order, 3, "an emptied set releases nothing")
}

func TestTextureFormatFor(t *testing.T) {
	f, ok := TextureFormatFor(3)
	require.True(t, ok)
	assert.Equal(t, TextureFormatRGB8, f)

	f, ok = TextureFormatFor(4)
	require.True(t, ok)
	assert.Equal(t, TextureFormatRGBA8, f)

	_, ok = TextureFormatFor(1)
	assert.False(t, ok)
}

func TestValidateStaging(t *testing.T) {
	tests := []struct {
		name    string
		staging common.TextureStagingData
		want    TextureFormat
		wantErr bool
	}{
		{
			name:    "rgb",
			staging: common.TextureStagingData{Pixels: make([]byte, 2*2*3), Width: 2, Height: 2, Channels: 3},
			want:    TextureFormatRGB8,
		},
		{
			name:    "rgba",
			staging: common.TextureStagingData{Pixels: make([]byte, 4), Width: 1, Height: 1, Channels: 4},
			want:    TextureFormatRGBA8,
		},
		{
			name:    "gray",
			staging: common.TextureStagingData{Pixels: make([]byte, 4), Width: 2, Height: 2, Channels: 1},
			wantErr: true,
		},
		{
			name:    "zero width",
			staging: common.TextureStagingData{Width: 0, Height: 2, Channels: 4},
			wantErr: true,
		},
		{
			name:    "short pixels",
			staging: common.TextureStagingData{Pixels: make([]byte, 15), Width: 2, Height: 2, Channels: 4},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validateStaging(tt.staging)
			if tt.wantErr {
				assert.True(t, errors.Is(err, errInvalidStaging))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShaderSource_DefaultLayout(t *testing.T) {
	assert.Equal(t, common.DefaultVertexLayout(), ShaderSource{}.vertexLayout())

	custom := common.VertexLayout{Stride: 12, Attributes: []common.VertexAttribute{{Slot: 0, Components: 3}}}
	assert.Equal(t, custom, ShaderSource{Layout: custom}.vertexLayout())
}

func TestKindAndFormatStrings(t *testing.T) {
	assert.Equal(t, "vertex", BufferKindVertex.String())
	assert.Equal(t, "index", BufferKindIndex.String())
	assert.Equal(t, "RGBA8", TextureFormatRGBA8.String())
	assert.Equal(t, "gl", BackendTypeGL.String())
	assert.Equal(t, "wgpu", BackendTypeWGPU.String())
}
