// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"encoding/binary"
	"math"
)

// VertexSize is the size in bytes of one Vertex as laid out in GPU memory.
const VertexSize = 32

// Vertex is the fixed per-vertex record uploaded for every primitive.
// Attributes missing from the source file are zero-filled so the layout never changes.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	TexCoord [2]float32
}

// Marshal writes the vertex into a 32-byte little-endian buffer matching VertexLayout.
//
// Returns:
//   - []byte: the serialized vertex
func (v Vertex) Marshal() []byte {
	buf := make([]byte, VertexSize)
	v.put(buf)
	return buf
}

func (v Vertex) put(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(v.Position[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(v.Position[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(v.Position[2]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(v.Normal[0]))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(v.Normal[1]))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(v.Normal[2]))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(v.TexCoord[0]))
	binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(v.TexCoord[1]))
}

// MarshalVertices serializes a vertex slice into one contiguous buffer of len(vertices)*VertexSize bytes.
//
// Parameters:
//   - vertices: the vertices to serialize
//
// Returns:
//   - []byte: the packed vertex data
func MarshalVertices(vertices []Vertex) []byte {
	buf := make([]byte, len(vertices)*VertexSize)
	for i, v := range vertices {
		v.put(buf[i*VertexSize:])
	}
	return buf
}

// MarshalIndices serializes 32-bit indices into a little-endian buffer of len(indices)*4 bytes.
//
// Parameters:
//   - indices: the indices to serialize
//
// Returns:
//   - []byte: the packed index data
func MarshalIndices(indices []uint32) []byte {
	buf := make([]byte, len(indices)*4)
	for i, idx := range indices {
		binary.LittleEndian.PutUint32(buf[i*4:], idx)
	}
	return buf
}

// VertexAttribute describes one float attribute slot within the vertex record.
type VertexAttribute struct {
	// Slot is the shader input location.
	Slot uint32
	// Components is the number of float32 components (2 or 3).
	Components uint32
	// Offset is the byte offset of the attribute inside the vertex record.
	Offset uint32
}

// VertexLayout describes how a vertex buffer is interpreted by the vertex stage.
type VertexLayout struct {
	Stride     uint32
	Attributes []VertexAttribute
}

// Vertex attribute slots shared by the loader, the GPU backends and the shaders.
const (
	SlotPosition uint32 = 0
	SlotNormal   uint32 = 1
	SlotTexCoord uint32 = 2
)

// DefaultVertexLayout returns the layout for Vertex: position, normal and texture coordinate
// bound to slots 0, 1 and 2.
//
// Returns:
//   - VertexLayout: the layout descriptor
func DefaultVertexLayout() VertexLayout {
	return VertexLayout{
		Stride: VertexSize,
		Attributes: []VertexAttribute{
			{Slot: SlotPosition, Components: 3, Offset: 0},
			{Slot: SlotNormal, Components: 3, Offset: 12},
			{Slot: SlotTexCoord, Components: 2, Offset: 24},
		},
	}
}

// ImportedScene is the CPU-side result of decoding one container: a flat list of primitives
// plus the material and image tables they reference.
type ImportedScene struct {
	// Name is taken from the first scene or mesh, or falls back to the file name.
	Name string

	// Primitives are listed in document order (mesh order, then primitive order).
	Primitives []ImportedPrimitive

	// Materials has exactly one entry per material declared in the document.
	Materials []ImportedMaterial

	// Images has exactly one entry per image declared in the document, decoded.
	Images []ImportedImage
}

// ImportedPrimitive is one indexed triangle list ready for upload.
type ImportedPrimitive struct {
	// Name is the owning mesh name with the primitive ordinal appended.
	Name string

	Vertices []Vertex
	Indices  []uint32

	// MaterialIndex indexes ImportedScene.Materials, or -1 when the primitive has no material.
	MaterialIndex int
}

// ImportedMaterial represents material properties from an imported model file.
type ImportedMaterial struct {
	// Name is the material identifier.
	Name string

	// BaseColor is the albedo/diffuse color factor (RGBA).
	BaseColor [4]float32

	// BaseColorTexture indexes ImportedScene.Images, or -1 when the material has no base-color texture.
	BaseColorTexture int
}

// TextureStagingData holds decoded pixel data pending GPU upload.
type TextureStagingData struct {
	// Pixels is tightly packed row-major pixel data with Channels bytes per pixel.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
	// Channels is 3 (RGB) or 4 (RGBA).
	Channels uint32
}
