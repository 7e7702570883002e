package loader

import (
	"cmp"
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-viewer/common"
)

var (
	errMissingPosition       = errors.New("primitive has no POSITION attribute")
	errUnsupportedMode       = errors.New("unsupported primitive mode (only triangles supported)")
	errAttributeCount        = errors.New("attribute count does not match vertex count")
	errIndexOutOfRange       = errors.New("index references a vertex past the end of the primitive")
	errIncompleteTriangle    = errors.New("index count is not a multiple of 3")
	errMaterialIndexOutRange = errors.New("material index out of range")
)

// vertexAttribute enumerates the attribute semantics the extractor consumes.
type vertexAttribute int

const (
	attributePosition vertexAttribute = iota
	attributeNormal
	attributeTexCoord
	attributeCount
)

// gltfSemantic is the glTF attribute name for each vertexAttribute.
var gltfSemantic = [attributeCount]string{
	attributePosition: "POSITION",
	attributeNormal:   "NORMAL",
	attributeTexCoord: "TEXCOORD_0",
}

func (a vertexAttribute) String() string {
	if a < 0 || a >= attributeCount {
		return fmt.Sprintf("attribute(%d)", int(a))
	}
	return gltfSemantic[a]
}

// primitiveAttributes holds the accessor index per attribute, or -1 when absent.
type primitiveAttributes [attributeCount]int

// resolveAttributes performs the single string-keyed lookup per primitive.
func resolveAttributes(prim *gltfPrimitive) primitiveAttributes {
	var attrs primitiveAttributes
	for a := attributePosition; a < attributeCount; a++ {
		attrs[a] = -1
		if idx, ok := prim.Attributes[gltfSemantic[a]]; ok {
			attrs[a] = idx
		}
	}
	return attrs
}

func (pa primitiveAttributes) has(a vertexAttribute) bool {
	return pa[a] >= 0
}

// gltfMeshExtractorImpl is the implementation of the gltfMeshExtractor interface.
type gltfMeshExtractorImpl struct {
	parser gltfParser
}

// gltfMeshExtractor turns the primitives of a parsed document into flat vertex and index arrays.
type gltfMeshExtractor interface {
	// ExtractPrimitive extracts one primitive of one mesh.
	//
	// Parameters:
	//   - meshIndex: the index of the mesh
	//   - primIndex: the index of the primitive within the mesh
	//
	// Returns:
	//   - common.ImportedPrimitive: the flattened primitive
	//   - error: *common.FormatError if the primitive is malformed
	ExtractPrimitive(meshIndex, primIndex int) (common.ImportedPrimitive, error)

	// ExtractAllPrimitives extracts every primitive of every mesh in document order.
	//
	// Returns:
	//   - []common.ImportedPrimitive: one entry per primitive
	//   - error: the first extraction failure
	ExtractAllPrimitives() ([]common.ImportedPrimitive, error)
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

// newGLTFMeshExtractor creates a new mesh extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - gltfMeshExtractor: the mesh extractor
func newGLTFMeshExtractor(parser gltfParser) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{parser: parser}
}

func (e *gltfMeshExtractorImpl) ExtractAllPrimitives() ([]common.ImportedPrimitive, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, errNoDocumentLoaded
	}

	var all []common.ImportedPrimitive
	for meshIdx := range doc.Meshes {
		for primIdx := range doc.Meshes[meshIdx].Primitives {
			prim, err := e.ExtractPrimitive(meshIdx, primIdx)
			if err != nil {
				return nil, err
			}
			all = append(all, prim)
		}
	}
	return all, nil
}

func (e *gltfMeshExtractorImpl) ExtractPrimitive(meshIndex, primIndex int) (common.ImportedPrimitive, error) {
	doc := e.parser.Document()
	if doc == nil {
		return common.ImportedPrimitive{}, errNoDocumentLoaded
	}
	op := fmt.Sprintf("mesh %d primitive %d", meshIndex, primIndex)
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) || primIndex < 0 || primIndex >= len(doc.Meshes[meshIndex].Primitives) {
		return common.ImportedPrimitive{}, &common.FormatError{Op: op, Err: errOutOfRange}
	}

	mesh := &doc.Meshes[meshIndex]
	prim := &mesh.Primitives[primIndex]

	out, err := e.extractPrimitive(prim, len(doc.Materials))
	if err != nil {
		return common.ImportedPrimitive{}, fmt.Errorf("%s: %w", op, err)
	}
	out.Name = fmt.Sprintf("%s#%d", cmp.Or(mesh.Name, fmt.Sprintf("mesh%d", meshIndex)), primIndex)
	return out, nil
}

// extractPrimitive validates the primitive and builds its vertex and index arrays.
// NORMAL and TEXCOORD_0 are zero-filled when absent.
func (e *gltfMeshExtractorImpl) extractPrimitive(prim *gltfPrimitive, materialCount int) (common.ImportedPrimitive, error) {
	if prim.Mode != nil && *prim.Mode != gltfPrimitiveModeTriangles {
		return common.ImportedPrimitive{}, common.NewFormatError("mode", "%w: %d", errUnsupportedMode, *prim.Mode)
	}

	attrs := resolveAttributes(prim)
	if !attrs.has(attributePosition) {
		return common.ImportedPrimitive{}, &common.FormatError{Op: "attributes", Err: errMissingPosition}
	}

	positions, err := e.parser.ReadVec3Accessor(attrs[attributePosition])
	if err != nil {
		return common.ImportedPrimitive{}, fmt.Errorf("failed to read %s: %w", attributePosition, err)
	}

	vertexCount := len(positions)
	vertices := make([]common.Vertex, vertexCount)
	for i, pos := range positions {
		vertices[i].Position = pos
	}

	if attrs.has(attributeNormal) {
		normals, err := e.parser.ReadVec3Accessor(attrs[attributeNormal])
		if err != nil {
			return common.ImportedPrimitive{}, fmt.Errorf("failed to read %s: %w", attributeNormal, err)
		}
		if len(normals) != vertexCount {
			return common.ImportedPrimitive{}, common.NewFormatError(attributeNormal.String(), "%w: %d != %d", errAttributeCount, len(normals), vertexCount)
		}
		for i := range normals {
			vertices[i].Normal = normals[i]
		}
	}

	if attrs.has(attributeTexCoord) {
		texCoords, err := e.parser.ReadVec2Accessor(attrs[attributeTexCoord])
		if err != nil {
			return common.ImportedPrimitive{}, fmt.Errorf("failed to read %s: %w", attributeTexCoord, err)
		}
		if len(texCoords) != vertexCount {
			return common.ImportedPrimitive{}, common.NewFormatError(attributeTexCoord.String(), "%w: %d != %d", errAttributeCount, len(texCoords), vertexCount)
		}
		for i := range texCoords {
			vertices[i].TexCoord = texCoords[i]
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		indices, err = e.parser.ReadIndicesAccessor(*prim.Indices)
		if err != nil {
			return common.ImportedPrimitive{}, fmt.Errorf("failed to read indices: %w", err)
		}
		for i, idx := range indices {
			if int64(idx) >= int64(vertexCount) {
				return common.ImportedPrimitive{}, common.NewFormatError("indices", "%w: indices[%d]=%d, %d vertices", errIndexOutOfRange, i, idx, vertexCount)
			}
		}
	} else {
		// Non-indexed geometry draws vertices in order.
		indices = make([]uint32, vertexCount)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	if len(indices)%3 != 0 {
		return common.ImportedPrimitive{}, common.NewFormatError("indices", "%w: %d", errIncompleteTriangle, len(indices))
	}

	materialIndex := -1
	if prim.Material != nil {
		if *prim.Material < 0 || *prim.Material >= materialCount {
			return common.ImportedPrimitive{}, common.NewFormatError("material", "%w: %d of %d", errMaterialIndexOutRange, *prim.Material, materialCount)
		}
		materialIndex = *prim.Material
	}

	return common.ImportedPrimitive{
		Vertices:      vertices,
		Indices:       indices,
		MaterialIndex: materialIndex,
	}, nil
}
