package common

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDeclaredChannels(t *testing.T) {
	rect := image.Rect(0, 0, 1, 1)
	opaqueNRGBA := image.NewNRGBA(rect)
	opaqueNRGBA.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	tests := []struct {
		name string
		img  image.Image
		want uint32
	}{
		{"opaque nrgba keeps alpha", opaqueNRGBA, 4},
		{"nrgba64", image.NewNRGBA64(rect), 4},
		{"rgb", image.NewRGBA(rect), 3},
		{"gray", image.NewGray(rect), 3},
		{"ycbcr", image.NewYCbCr(rect, image.YCbCrSubsampleRatio420), 3},
		{"opaque palette", image.NewPaletted(rect, color.Palette{color.NRGBA{A: 255}}), 3},
		{"palette with transparency", image.NewPaletted(rect, color.Palette{color.NRGBA{A: 255}, color.NRGBA{}}), 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, declaredChannels(tt.img))
		})
	}
}

func TestDecode_PaletteWithTransparencyIsRGBA(t *testing.T) {
	pal := color.Palette{color.NRGBA{R: 255, A: 255}, color.NRGBA{}}
	img := image.NewPaletted(image.Rect(0, 0, 2, 1), pal)

	// Every pixel uses the opaque entry; the file still declares alpha.
	decoded := &ImportedImage{Name: "pal", Data: encodePNG(t, img)}
	require.NoError(t, decoded.Decode())
	assert.Equal(t, uint32(4), decoded.Staging.Channels)
	assert.Equal(t, []byte{255, 0, 0, 255, 255, 0, 0, 255}, decoded.Staging.Pixels)
	assert.Equal(t, "image/png", decoded.MimeType)
}

func TestDecode_GrayIsRGB(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 1, 1))
	img.SetGray(0, 0, color.Gray{Y: 128})

	decoded := &ImportedImage{Name: "gray", Data: encodePNG(t, img)}
	require.NoError(t, decoded.Decode())
	assert.Equal(t, uint32(3), decoded.Staging.Channels)
	assert.Equal(t, []byte{128, 128, 128}, decoded.Staging.Pixels)
}

func TestDecode_RejectsGarbage(t *testing.T) {
	decoded := &ImportedImage{Name: "junk", Data: []byte("not an image"), MimeType: "image/png"}
	var formatErr *FormatError
	assert.ErrorAs(t, decoded.Decode(), &formatErr)
}
