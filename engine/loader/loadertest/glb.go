// Package loadertest builds small glTF/GLB containers in memory for tests.
package loadertest

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
)

const (
	componentUnsignedByte  = 5121
	componentUnsignedShort = 5123
	componentUnsignedInt   = 5125
	componentFloat         = 5126
)

// Fill colors for SolidPNG.
var (
	Opaque      = color.NRGBA{R: 200, G: 100, B: 50, A: 255}
	Translucent = color.NRGBA{R: 200, G: 100, B: 50, A: 128}
)

// Ptr returns a pointer to v, for optional glTF fields.
func Ptr[T any](v T) *T {
	return &v
}

// Primitive describes one mesh primitive. Attributes maps glTF semantics to accessor indices.
type Primitive struct {
	Attributes map[string]int `json:"attributes"`
	Indices    *int           `json:"indices,omitempty"`
	Material   *int           `json:"material,omitempty"`
	Mode       *int           `json:"mode,omitempty"`
}

type mesh struct {
	Name       string      `json:"name,omitempty"`
	Primitives []Primitive `json:"primitives"`
}

// Builder accumulates binary data and JSON objects and serializes them as GLB or glTF.
type Builder struct {
	bin []byte

	bufferViews        []map[string]any
	accessors          []map[string]any
	meshes             []mesh
	materials          []map[string]any
	textures           []map[string]any
	images             []map[string]any
	extensionsRequired []string

	// BufferLengthDelta is added to the declared buffer byteLength, to fake a short buffer.
	BufferLengthDelta int
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{}
}

// addView appends data to the binary buffer, 4-byte aligned, and returns the bufferView index.
func (b *Builder) addView(data []byte, stride int) int {
	for len(b.bin)%4 != 0 {
		b.bin = append(b.bin, 0)
	}
	view := map[string]any{
		"buffer":     0,
		"byteOffset": len(b.bin),
		"byteLength": len(data),
	}
	if stride > 0 {
		view["byteStride"] = stride
	}
	b.bin = append(b.bin, data...)
	b.bufferViews = append(b.bufferViews, view)
	return len(b.bufferViews) - 1
}

func (b *Builder) addAccessor(view, componentType, count int, typ string) int {
	b.accessors = append(b.accessors, map[string]any{
		"bufferView":    view,
		"componentType": componentType,
		"count":         count,
		"type":          typ,
	})
	return len(b.accessors) - 1
}

// AddVec3 stores float triples and returns the accessor index.
func (b *Builder) AddVec3(data [][3]float32) int {
	buf := make([]byte, 0, len(data)*12)
	for _, v := range data {
		for _, f := range v {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}
	}
	return b.addAccessor(b.addView(buf, 0), componentFloat, len(data), "VEC3")
}

// AddVec2 stores float pairs and returns the accessor index.
func (b *Builder) AddVec2(data [][2]float32) int {
	buf := make([]byte, 0, len(data)*8)
	for _, v := range data {
		for _, f := range v {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}
	}
	return b.addAccessor(b.addView(buf, 0), componentFloat, len(data), "VEC2")
}

// AddInterleaved stores position/uv pairs interleaved in one strided view
// (position at offset 0, uv at offset 12, stride 20) and returns both accessor indices.
func (b *Builder) AddInterleaved(positions [][3]float32, uvs [][2]float32) (int, int) {
	const stride = 20
	buf := make([]byte, 0, len(positions)*stride)
	for i := range positions {
		for _, f := range positions[i] {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}
		for _, f := range uvs[i] {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}
	}
	view := b.addView(buf, stride)
	pos := b.addAccessor(view, componentFloat, len(positions), "VEC3")
	uv := b.addAccessor(view, componentFloat, len(uvs), "VEC2")
	b.accessors[uv]["byteOffset"] = 12
	return pos, uv
}

// AddIndicesU16 stores 16-bit indices and returns the accessor index.
func (b *Builder) AddIndicesU16(indices []uint16) int {
	buf := make([]byte, 0, len(indices)*2)
	for _, i := range indices {
		buf = binary.LittleEndian.AppendUint16(buf, i)
	}
	return b.addAccessor(b.addView(buf, 0), componentUnsignedShort, len(indices), "SCALAR")
}

// AddIndicesU32 stores 32-bit indices and returns the accessor index.
func (b *Builder) AddIndicesU32(indices []uint32) int {
	buf := make([]byte, 0, len(indices)*4)
	for _, i := range indices {
		buf = binary.LittleEndian.AppendUint32(buf, i)
	}
	return b.addAccessor(b.addView(buf, 0), componentUnsignedInt, len(indices), "SCALAR")
}

// AddIndicesU8 stores 8-bit indices and returns the accessor index.
func (b *Builder) AddIndicesU8(indices []uint8) int {
	return b.addAccessor(b.addView(append([]byte(nil), indices...), 0), componentUnsignedByte, len(indices), "SCALAR")
}

// SetAccessorCount overrides the declared element count of an accessor.
func (b *Builder) SetAccessorCount(accessor, count int) {
	b.accessors[accessor]["count"] = count
}

// SetAccessorOffset overrides the byteOffset of accessor inside its buffer view.
func (b *Builder) SetAccessorOffset(accessor, offset int) {
	b.accessors[accessor]["byteOffset"] = offset
}

// SetViewOffset overrides the byteOffset of the buffer view behind accessor, for building
// out-of-bounds documents.
func (b *Builder) SetViewOffset(accessor, offset int) {
	view := b.accessors[accessor]["bufferView"].(int)
	b.bufferViews[view]["byteOffset"] = offset
}

// AddMesh appends a mesh and returns its index.
func (b *Builder) AddMesh(name string, prims ...Primitive) int {
	b.meshes = append(b.meshes, mesh{Name: name, Primitives: prims})
	return len(b.meshes) - 1
}

// AddImage embeds encoded image bytes in a bufferView and returns the image index.
func (b *Builder) AddImage(data []byte, mimeType string) int {
	b.images = append(b.images, map[string]any{
		"bufferView": b.addView(data, 0),
		"mimeType":   mimeType,
	})
	return len(b.images) - 1
}

// AddTexture appends a texture with an optional image source and returns its index.
func (b *Builder) AddTexture(source *int) int {
	tex := map[string]any{}
	if source != nil {
		tex["source"] = *source
	}
	b.textures = append(b.textures, tex)
	return len(b.textures) - 1
}

// AddMaterial appends a material with an optional base-color texture and returns its index.
func (b *Builder) AddMaterial(name string, baseColorTexture *int) int {
	pbr := map[string]any{"baseColorFactor": []float32{1, 1, 1, 1}}
	if baseColorTexture != nil {
		pbr["baseColorTexture"] = map[string]any{"index": *baseColorTexture}
	}
	b.materials = append(b.materials, map[string]any{
		"name":                 name,
		"pbrMetallicRoughness": pbr,
	})
	return len(b.materials) - 1
}

// RequireExtension adds an entry to extensionsRequired.
func (b *Builder) RequireExtension(name string) {
	b.extensionsRequired = append(b.extensionsRequired, name)
}

// document assembles the JSON root. A nil buffer URI means the GLB BIN chunk.
func (b *Builder) document(bufferURI string) map[string]any {
	doc := map[string]any{
		"asset": map[string]any{"version": "2.0", "generator": "loadertest"},
	}
	if len(b.bin) > 0 {
		buf := map[string]any{"byteLength": len(b.bin) + b.BufferLengthDelta}
		if bufferURI != "" {
			buf["uri"] = bufferURI
		}
		doc["buffers"] = []any{buf}
	}
	set := func(key string, v []map[string]any) {
		if len(v) > 0 {
			doc[key] = v
		}
	}
	set("bufferViews", b.bufferViews)
	set("accessors", b.accessors)
	set("materials", b.materials)
	set("textures", b.textures)
	set("images", b.images)
	if len(b.meshes) > 0 {
		doc["meshes"] = b.meshes
	}
	if len(b.extensionsRequired) > 0 {
		doc["extensionsRequired"] = b.extensionsRequired
	}
	return doc
}

// GLB serializes the container as binary glTF.
func (b *Builder) GLB() []byte {
	js, err := json.Marshal(b.document(""))
	if err != nil {
		panic(err)
	}
	for len(js)%4 != 0 {
		js = append(js, ' ')
	}
	bin := append([]byte(nil), b.bin...)
	for len(bin)%4 != 0 {
		bin = append(bin, 0)
	}

	total := 12 + 8 + len(js)
	if len(bin) > 0 {
		total += 8 + len(bin)
	}

	var out bytes.Buffer
	_ = binary.Write(&out, binary.LittleEndian, [3]uint32{0x46546C67, 2, uint32(total)})
	_ = binary.Write(&out, binary.LittleEndian, [2]uint32{uint32(len(js)), 0x4E4F534A})
	out.Write(js)
	if len(bin) > 0 {
		_ = binary.Write(&out, binary.LittleEndian, [2]uint32{uint32(len(bin)), 0x004E4942})
		out.Write(bin)
	}
	return out.Bytes()
}

// GLTF serializes the container as glTF JSON with the buffer embedded as a data URI.
func (b *Builder) GLTF() []byte {
	uri := ""
	if len(b.bin) > 0 {
		uri = "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(b.bin)
	}
	js, err := json.Marshal(b.document(uri))
	if err != nil {
		panic(err)
	}
	return js
}

// WriteGLB writes the GLB serialization to path.
func (b *Builder) WriteGLB(path string) error {
	return os.WriteFile(path, b.GLB(), 0o644)
}

// Quad returns a builder holding one mesh with one primitive: four positions,
// no normals or texture coordinates, six 16-bit indices, and no material.
func Quad() *Builder {
	b := New()
	pos := b.AddVec3([][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}})
	idx := b.AddIndicesU16([]uint16{0, 1, 2, 0, 2, 3})
	b.AddMesh("quad", Primitive{
		Attributes: map[string]int{"POSITION": pos},
		Indices:    Ptr(idx),
	})
	return b
}

// SolidPNG encodes a w×h PNG filled with c.
func SolidPNG(w, h int, c color.NRGBA) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
