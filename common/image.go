package common

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var (
	errEmptyImage       = errors.New("image has no data")
	errUnsupportedImage = errors.New("unsupported image type")
)

// supportedImageTypes lists the MIME types with a registered image decoder.
var supportedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/webp": true,
}

// ImportedImage represents an image referenced by a model file. The encoded bytes are
// filled in by the loader; Decode then populates the pixel fields.
type ImportedImage struct {
	// Name is an identifier for this image.
	Name string

	// Data contains the encoded image bytes (PNG/JPEG/...).
	Data []byte

	// MimeType is the declared type. Decode trusts the content over the declaration.
	MimeType string

	// Staging holds the decoded pixels after a successful Decode.
	Staging TextureStagingData
}

// Decode decodes Data into tightly packed pixels. The channel count follows the color
// model the file declares: 4 when it carries alpha, 3 otherwise.
// Reference: https://pkg.go.dev/image
//
// Returns:
//   - error: a *FormatError if the bytes are not a supported, decodable image
func (i *ImportedImage) Decode() error {
	if i == nil || len(i.Data) == 0 {
		return &FormatError{Op: "image", Err: errEmptyImage}
	}

	mime := i.MimeType
	if kind, err := filetype.Match(i.Data); err == nil && kind != filetype.Unknown {
		mime = kind.MIME.Value
	}
	if !supportedImageTypes[mime] {
		return NewFormatError("image "+i.Name, "%w: %q", errUnsupportedImage, mime)
	}

	img, _, err := image.Decode(bytes.NewReader(i.Data))
	if err != nil {
		return NewFormatError("image "+i.Name, "failed to decode %s: %w", mime, err)
	}
	i.MimeType = mime

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	i.Staging = TextureStagingData{
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	}
	i.Staging.Channels = declaredChannels(img)
	if i.Staging.Channels == 3 {
		i.Staging.Pixels = StripAlpha(rgba.Pix)
	} else {
		i.Staging.Pixels = rgba.Pix
	}
	return nil
}

// declaredChannels reports 4 for decoded images whose source format has an alpha channel,
// even when every pixel is opaque. The png and bmp decoders return *image.RGBA and
// *image.RGBA64 only for files without alpha; alpha files decode to the N* types.
func declaredChannels(img image.Image) uint32 {
	switch m := img.(type) {
	case *image.RGBA, *image.RGBA64, *image.Gray, *image.Gray16, *image.YCbCr, *image.CMYK:
		return 3
	case *image.Paletted:
		for _, c := range m.Palette {
			if _, _, _, a := c.RGBA(); a != 0xffff {
				return 4
			}
		}
		return 3
	default:
		return 4
	}
}

// StripAlpha packs RGBA pixels into RGB by dropping every fourth byte.
//
// Parameters:
//   - rgba: RGBA pixel data, 4 bytes per pixel
//
// Returns:
//   - []byte: RGB pixel data, 3 bytes per pixel
func StripAlpha(rgba []byte) []byte {
	out := make([]byte, 0, len(rgba)/4*3)
	for p := 0; p+3 < len(rgba); p += 4 {
		out = append(out, rgba[p], rgba[p+1], rgba[p+2])
	}
	return out
}

// ExpandAlpha converts tightly packed RGB pixels to RGBA with an opaque alpha channel.
//
// Parameters:
//   - rgb: RGB pixel data, 3 bytes per pixel
//
// Returns:
//   - []byte: RGBA pixel data, 4 bytes per pixel
func ExpandAlpha(rgb []byte) []byte {
	out := make([]byte, 0, len(rgb)/3*4)
	for p := 0; p+2 < len(rgb); p += 3 {
		out = append(out, rgb[p], rgb[p+1], rgb[p+2], 0xFF)
	}
	return out
}

// String implements fmt.Stringer for log output.
func (s TextureStagingData) String() string {
	return fmt.Sprintf("%dx%dx%d", s.Width, s.Height, s.Channels)
}
