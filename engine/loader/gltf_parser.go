package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-viewer/common"
)

// Errors returned by the parser, always wrapped in a common.FormatError or common.IOError.
var (
	errInvalidGLTFVersion    = errors.New("invalid glTF version: must be 2.0")
	errInvalidGLBMagic       = errors.New("invalid GLB magic number")
	errInvalidGLBVersion     = errors.New("invalid GLB version: must be 2")
	errTruncatedGLB          = errors.New("GLB container truncated")
	errMissingJSONChunk      = errors.New("GLB file missing JSON chunk")
	errInvalidBufferURI      = errors.New("invalid buffer URI")
	errBufferSizeMismatch    = errors.New("buffer shorter than declared byteLength")
	errMissingBuffer         = errors.New("buffer has no URI and no GLB binary chunk")
	errOutOfRange            = errors.New("index out of range")
	errRegionOutOfBounds     = errors.New("byte range exceeds its backing storage")
	errSparseAccessor        = errors.New("sparse accessors are not supported")
	errMissingBufferView     = errors.New("accessor has no bufferView")
	errInvalidStride         = errors.New("invalid byteStride")
	errUnexpectedAccessor    = errors.New("unexpected accessor type")
	errUnsupportedIndexType  = errors.New("unsupported index component type")
	errUnsupportedExtension  = errors.New("required extension is not supported")
	errImageHasNoSource      = errors.New("image has neither uri nor bufferView")
	errNoDocumentLoaded      = errors.New("no document loaded")
	errUnknownComponentCount = errors.New("unknown accessor type or component type")
)

// supportedExtensions lists the extensionsRequired entries the loader can honor.
var supportedExtensions = map[string]bool{}

// gltfParserImpl is the implementation of the gltfParser interface.
type gltfParserImpl struct {
	baseDir        string
	document       *gltfDocument
	glbBinaryChunk []byte
}

// gltfParser loads the container, validates its structure, and offers bounds-checked,
// typed reads over its accessors and images. This is internal to the loader package.
type gltfParser interface {
	// Parse loads and parses a glTF/GLB file from the given path.
	// GLB is detected by its magic number, falling back to the file extension.
	//
	// Parameters:
	//   - path: path to the glTF or GLB file
	//
	// Returns:
	//   - error: *common.IOError if the file cannot be read or is truncated, *common.FormatError if malformed
	Parse(path string) error

	// ParseReader parses a glTF document from a reader.
	//
	// Parameters:
	//   - r: reader containing glTF JSON or GLB data
	//   - baseDir: directory used to resolve relative buffer and image URIs
	//
	// Returns:
	//   - error: *common.IOError or *common.FormatError
	ParseReader(r io.Reader, baseDir string) error

	// Document returns the parsed glTF document, or nil before a successful parse.
	Document() *gltfDocument

	// ReadVec2Accessor reads a VEC2 FLOAT accessor.
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//
	// Returns:
	//   - [][2]float32: one element per accessor entry
	//   - error: *common.FormatError on a type mismatch or out-of-bounds range
	ReadVec2Accessor(accessorIndex int) ([][2]float32, error)

	// ReadVec3Accessor reads a VEC3 FLOAT accessor.
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//
	// Returns:
	//   - [][3]float32: one element per accessor entry
	//   - error: *common.FormatError on a type mismatch or out-of-bounds range
	ReadVec3Accessor(accessorIndex int) ([][3]float32, error)

	// ReadIndicesAccessor reads a SCALAR index accessor and widens it to uint32.
	// Only UNSIGNED_SHORT and UNSIGNED_INT component types are accepted.
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//
	// Returns:
	//   - []uint32: the indices in source order
	//   - error: *common.FormatError for any other component type or an out-of-bounds range
	ReadIndicesAccessor(accessorIndex int) ([]uint32, error)

	// ReadImageData returns the encoded bytes of an image and its declared MIME type.
	// Images may live in a bufferView, a data: URI, or a file relative to the document.
	//
	// Parameters:
	//   - imageIndex: the index of the image
	//
	// Returns:
	//   - []byte: the encoded image bytes
	//   - string: the declared MIME type (may be empty)
	//   - error: *common.IOError if an external file cannot be read, *common.FormatError otherwise
	ReadImageData(imageIndex int) ([]byte, string, error)
}

var _ gltfParser = &gltfParserImpl{}

// newGLTFParser creates a new glTF parser instance.
//
// Returns:
//   - gltfParser: a new parser instance
func newGLTFParser() gltfParser {
	return &gltfParserImpl{}
}

func (p *gltfParserImpl) Document() *gltfDocument {
	return p.document
}

func (p *gltfParserImpl) Parse(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return common.NewIOError(path, err)
	}
	p.baseDir = filepath.Dir(path)

	if isGLB(data) || strings.EqualFold(filepath.Ext(path), ".glb") {
		err = p.parseGLB(data)
	} else {
		err = p.parseGLTF(data)
	}
	var ioErr *common.IOError
	if errors.As(err, &ioErr) && ioErr.Path == "" {
		ioErr.Path = path
	}
	return err
}

func (p *gltfParserImpl) ParseReader(r io.Reader, baseDir string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return common.NewIOError("", err)
	}
	p.baseDir = baseDir

	if isGLB(data) {
		return p.parseGLB(data)
	}
	return p.parseGLTF(data)
}

func isGLB(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == gltfGLBMagic
}

// parseGLTF parses a glTF JSON file.
func (p *gltfParserImpl) parseGLTF(data []byte) error {
	return p.decodeDocument(data)
}

// parseGLB parses a GLB binary file. A container shorter than its header or chunk
// lengths claim is reported as an IOError.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
func (p *gltfParserImpl) parseGLB(data []byte) error {
	r := bytes.NewReader(data)

	var header gltfGLBHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return common.NewIOError("", fmt.Errorf("failed to read GLB header: %w", errTruncatedGLB))
	}
	if header.Magic != gltfGLBMagic {
		return &common.FormatError{Op: "GLB header", Err: errInvalidGLBMagic}
	}
	if header.Version != gltfGLBVersion {
		return &common.FormatError{Op: "GLB header", Err: errInvalidGLBVersion}
	}
	if int64(header.Length) > int64(len(data)) {
		return common.NewIOError("", fmt.Errorf("header declares %d bytes, have %d: %w", header.Length, len(data), errTruncatedGLB))
	}
	r = bytes.NewReader(data[:header.Length])

	var jsonData, binData []byte
	for chunk := 0; ; chunk++ {
		var chunkHeader gltfGLBChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &chunkHeader); err != nil {
			if err == io.EOF {
				break
			}
			return common.NewIOError("", fmt.Errorf("chunk %d header: %w", chunk, errTruncatedGLB))
		}
		if int64(chunkHeader.ChunkLength) > int64(r.Len()) {
			return common.NewIOError("", fmt.Errorf("chunk %d declares %d bytes, have %d: %w", chunk, chunkHeader.ChunkLength, r.Len(), errTruncatedGLB))
		}

		chunkData := make([]byte, chunkHeader.ChunkLength)
		if _, err := io.ReadFull(r, chunkData); err != nil {
			return common.NewIOError("", fmt.Errorf("chunk %d data: %w", chunk, errTruncatedGLB))
		}

		switch chunkHeader.ChunkType {
		case gltfGLBChunkJSON:
			if chunk != 0 {
				return common.NewFormatError("GLB chunks", "JSON chunk must come first, found at %d", chunk)
			}
			jsonData = chunkData
		case gltfGLBChunkBIN:
			if binData == nil {
				binData = chunkData
			}
		}
	}

	if jsonData == nil {
		return &common.FormatError{Op: "GLB chunks", Err: errMissingJSONChunk}
	}
	p.glbBinaryChunk = binData

	return p.decodeDocument(jsonData)
}

// decodeDocument unmarshals the JSON chunk, validates it, and loads buffer data.
func (p *gltfParserImpl) decodeDocument(jsonData []byte) error {
	var doc gltfDocument
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return common.NewFormatError("JSON", "failed to parse glTF JSON: %w", err)
	}

	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return &common.FormatError{Op: "asset", Err: errInvalidGLTFVersion}
	}
	for _, ext := range doc.ExtensionsRequired {
		if !supportedExtensions[ext] {
			return common.NewFormatError("extensionsRequired", "%w: %s", errUnsupportedExtension, ext)
		}
	}

	if err := p.loadBuffers(&doc); err != nil {
		return fmt.Errorf("failed to load buffers: %w", err)
	}
	if err := validateBufferViews(&doc); err != nil {
		return err
	}

	p.document = &doc
	return nil
}

// loadBuffers loads all buffer data (from URIs, embedded data, or GLB binary chunk).
func (p *gltfParserImpl) loadBuffers(doc *gltfDocument) error {
	for i := range doc.Buffers {
		buf := &doc.Buffers[i]
		op := fmt.Sprintf("buffer %d", i)

		if buf.URI == "" {
			if i != 0 || p.glbBinaryChunk == nil {
				return &common.FormatError{Op: op, Err: errMissingBuffer}
			}
			buf.Data = p.glbBinaryChunk
		} else {
			data, err := p.loadURI(buf.URI)
			if err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			buf.Data = data
		}

		if buf.ByteLength < 0 || len(buf.Data) < buf.ByteLength {
			return common.NewFormatError(op, "%w: declared %d, have %d", errBufferSizeMismatch, buf.ByteLength, len(buf.Data))
		}
		buf.Data = buf.Data[:buf.ByteLength]
	}

	return nil
}

// validateBufferViews checks that every buffer view lies inside its buffer.
func validateBufferViews(doc *gltfDocument) error {
	for i, bv := range doc.BufferViews {
		op := fmt.Sprintf("bufferView %d", i)
		if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
			return common.NewFormatError(op, "buffer %d: %w", bv.Buffer, errOutOfRange)
		}
		n := len(doc.Buffers[bv.Buffer].Data)
		if bv.ByteOffset < 0 || bv.ByteLength < 0 || bv.ByteOffset > n || bv.ByteLength > n-bv.ByteOffset {
			return common.NewFormatError(op, "[%d, +%d) in buffer of %d bytes: %w",
				bv.ByteOffset, bv.ByteLength, len(doc.Buffers[bv.Buffer].Data), errRegionOutOfBounds)
		}
		if bv.ByteStride != nil && (*bv.ByteStride < 4 || *bv.ByteStride > 252) {
			return common.NewFormatError(op, "%w: %d", errInvalidStride, *bv.ByteStride)
		}
	}
	return nil
}

// loadURI loads bytes from a data: URI or a file relative to the document.
func (p *gltfParserImpl) loadURI(uri string) ([]byte, error) {
	if strings.HasPrefix(uri, "data:") {
		return decodeDataURI(uri)
	}

	rel, err := url.PathUnescape(uri)
	if err != nil {
		rel = uri
	}
	fullPath := filepath.Join(p.baseDir, filepath.FromSlash(rel))
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, common.NewIOError(fullPath, err)
	}
	return data, nil
}

// decodeDataURI decodes a base64 data URI.
// Format: data:[<mediatype>][;base64],<data>
func decodeDataURI(uri string) ([]byte, error) {
	commaIdx := strings.Index(uri, ",")
	if commaIdx < 0 {
		return nil, &common.FormatError{Op: "data URI", Err: errInvalidBufferURI}
	}

	header := uri[5:commaIdx]
	if !strings.HasSuffix(header, ";base64") {
		return nil, common.NewFormatError("data URI", "%w: unsupported encoding %q", errInvalidBufferURI, header)
	}

	data, err := base64.StdEncoding.DecodeString(uri[commaIdx+1:])
	if err != nil {
		return nil, common.NewFormatError("data URI", "failed to decode base64: %w", err)
	}
	return data, nil
}

// accessorRegion resolves an accessor to the raw byte region it covers and the stride
// between elements, validating every offset against the buffer view.
func (p *gltfParserImpl) accessorRegion(accessorIndex int) (region []byte, stride, elementSize int, acc *gltfAccessor, err error) {
	if p.document == nil {
		return nil, 0, 0, nil, errNoDocumentLoaded
	}
	op := fmt.Sprintf("accessor %d", accessorIndex)
	if accessorIndex < 0 || accessorIndex >= len(p.document.Accessors) {
		return nil, 0, 0, nil, &common.FormatError{Op: op, Err: errOutOfRange}
	}
	acc = &p.document.Accessors[accessorIndex]

	if acc.Sparse != nil {
		return nil, 0, 0, nil, &common.FormatError{Op: op, Err: errSparseAccessor}
	}
	if acc.BufferView == nil {
		return nil, 0, 0, nil, &common.FormatError{Op: op, Err: errMissingBufferView}
	}
	if *acc.BufferView < 0 || *acc.BufferView >= len(p.document.BufferViews) {
		return nil, 0, 0, nil, common.NewFormatError(op, "bufferView %d: %w", *acc.BufferView, errOutOfRange)
	}

	componentSize := gltfComponentTypeSize(acc.ComponentType)
	componentCount := gltfAccessorTypeComponentCount(acc.Type)
	if componentSize == 0 || componentCount == 0 {
		return nil, 0, 0, nil, common.NewFormatError(op, "%w: type=%s componentType=%d", errUnknownComponentCount, acc.Type, acc.ComponentType)
	}
	elementSize = componentSize * componentCount

	bv := &p.document.BufferViews[*acc.BufferView]
	view := p.document.Buffers[bv.Buffer].Data[bv.ByteOffset : bv.ByteOffset+bv.ByteLength]

	stride = elementSize
	if bv.ByteStride != nil {
		if *bv.ByteStride < elementSize {
			return nil, 0, 0, nil, common.NewFormatError(op, "%w: %d smaller than element size %d", errInvalidStride, *bv.ByteStride, elementSize)
		}
		stride = *bv.ByteStride
	}

	if acc.Count < 0 || acc.ByteOffset < 0 {
		return nil, 0, 0, nil, &common.FormatError{Op: op, Err: errRegionOutOfBounds}
	}
	if acc.Count == 0 {
		return nil, stride, elementSize, acc, nil
	}
	// Compared by division so huge declared counts or offsets cannot overflow.
	if acc.ByteOffset > len(view) || len(view)-acc.ByteOffset < elementSize ||
		acc.Count-1 > (len(view)-acc.ByteOffset-elementSize)/stride {
		return nil, 0, 0, nil, common.NewFormatError(op, "%d elements at stride %d from offset %d do not fit a view of %d bytes: %w",
			acc.Count, stride, acc.ByteOffset, len(view), errRegionOutOfBounds)
	}
	end := acc.ByteOffset + (acc.Count-1)*stride + elementSize

	return view[acc.ByteOffset:end], stride, elementSize, acc, nil
}

// readFloats reads a FLOAT accessor of the given type into a flat component slice.
func (p *gltfParserImpl) readFloats(accessorIndex int, accessorType string) ([]float32, error) {
	region, stride, elementSize, acc, err := p.accessorRegion(accessorIndex)
	if err != nil {
		return nil, err
	}
	if acc.Type != accessorType || acc.ComponentType != gltfComponentTypeFloat {
		return nil, common.NewFormatError(fmt.Sprintf("accessor %d", accessorIndex),
			"%w: want %s FLOAT, have type=%s componentType=%d", errUnexpectedAccessor, accessorType, acc.Type, acc.ComponentType)
	}

	components := elementSize / 4
	out := make([]float32, acc.Count*components)
	for i := 0; i < acc.Count; i++ {
		src := region[i*stride : i*stride+elementSize]
		for c := 0; c < components; c++ {
			out[i*components+c] = math.Float32frombits(binary.LittleEndian.Uint32(src[c*4:]))
		}
	}
	return out, nil
}

func (p *gltfParserImpl) ReadVec2Accessor(accessorIndex int) ([][2]float32, error) {
	flat, err := p.readFloats(accessorIndex, gltfAccessorTypeVec2)
	if err != nil {
		return nil, err
	}
	result := make([][2]float32, len(flat)/2)
	for i := range result {
		result[i] = [2]float32{flat[i*2], flat[i*2+1]}
	}
	return result, nil
}

func (p *gltfParserImpl) ReadVec3Accessor(accessorIndex int) ([][3]float32, error) {
	flat, err := p.readFloats(accessorIndex, gltfAccessorTypeVec3)
	if err != nil {
		return nil, err
	}
	result := make([][3]float32, len(flat)/3)
	for i := range result {
		result[i] = [3]float32{flat[i*3], flat[i*3+1], flat[i*3+2]}
	}
	return result, nil
}

func (p *gltfParserImpl) ReadIndicesAccessor(accessorIndex int) ([]uint32, error) {
	op := fmt.Sprintf("accessor %d", accessorIndex)
	if p.document != nil && accessorIndex >= 0 && accessorIndex < len(p.document.Accessors) {
		acc := &p.document.Accessors[accessorIndex]
		if acc.Type != gltfAccessorTypeScalar {
			return nil, common.NewFormatError(op, "%w: index accessor type=%s", errUnexpectedAccessor, acc.Type)
		}
		if acc.ComponentType != gltfComponentTypeUnsignedShort && acc.ComponentType != gltfComponentTypeUnsignedInt {
			return nil, common.NewFormatError(op, "%w: %d", errUnsupportedIndexType, acc.ComponentType)
		}
	}

	region, stride, _, acc, err := p.accessorRegion(accessorIndex)
	if err != nil {
		return nil, err
	}

	result := make([]uint32, acc.Count)
	switch acc.ComponentType {
	case gltfComponentTypeUnsignedShort:
		for i := range result {
			result[i] = uint32(binary.LittleEndian.Uint16(region[i*stride:]))
		}
	case gltfComponentTypeUnsignedInt:
		for i := range result {
			result[i] = binary.LittleEndian.Uint32(region[i*stride:])
		}
	}
	return result, nil
}

func (p *gltfParserImpl) ReadImageData(imageIndex int) ([]byte, string, error) {
	if p.document == nil {
		return nil, "", errNoDocumentLoaded
	}
	op := fmt.Sprintf("image %d", imageIndex)
	if imageIndex < 0 || imageIndex >= len(p.document.Images) {
		return nil, "", &common.FormatError{Op: op, Err: errOutOfRange}
	}
	img := &p.document.Images[imageIndex]

	switch {
	case img.BufferView != nil:
		bvIdx := *img.BufferView
		if bvIdx < 0 || bvIdx >= len(p.document.BufferViews) {
			return nil, "", common.NewFormatError(op, "bufferView %d: %w", bvIdx, errOutOfRange)
		}
		bv := &p.document.BufferViews[bvIdx]
		return p.document.Buffers[bv.Buffer].Data[bv.ByteOffset : bv.ByteOffset+bv.ByteLength], img.MimeType, nil
	case img.URI != "":
		data, err := p.loadURI(img.URI)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", op, err)
		}
		mime := img.MimeType
		if mime == "" && strings.HasPrefix(img.URI, "data:") {
			mime, _, _ = strings.Cut(strings.TrimPrefix(img.URI, "data:"), ";")
		}
		return data, mime, nil
	default:
		return nil, "", &common.FormatError{Op: op, Err: errImageHasNoSource}
	}
}

// --- Helper Functions ---

// gltfComponentTypeSize returns the byte size of a component type.
func gltfComponentTypeSize(componentType int) int {
	switch componentType {
	case gltfComponentTypeByte, gltfComponentTypeUnsignedByte:
		return 1
	case gltfComponentTypeShort, gltfComponentTypeUnsignedShort:
		return 2
	case gltfComponentTypeUnsignedInt, gltfComponentTypeFloat:
		return 4
	default:
		return 0
	}
}

// gltfAccessorTypeComponentCount returns the number of components for an accessor type.
func gltfAccessorTypeComponentCount(accessorType string) int {
	switch accessorType {
	case gltfAccessorTypeScalar:
		return 1
	case gltfAccessorTypeVec2:
		return 2
	case gltfAccessorTypeVec3:
		return 3
	case gltfAccessorTypeVec4, gltfAccessorTypeMat2:
		return 4
	case gltfAccessorTypeMat3:
		return 9
	case gltfAccessorTypeMat4:
		return 16
	default:
		return 0
	}
}
