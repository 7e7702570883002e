package loader

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-viewer/common"
)

var errTextureIndexOutOfRange = errors.New("texture index out of range")

// gltfMaterialExtractorImpl is the implementation of the gltfMaterialExtractor interface.
type gltfMaterialExtractorImpl struct {
	parser gltfParser
	logger *slog.Logger
}

// gltfMaterialExtractor resolves glTF materials into ImportedMaterial records whose
// base-color texture points directly at an entry of the image table.
type gltfMaterialExtractor interface {
	// ExtractMaterial extracts a single material by index.
	// The base-color texture is resolved through textures[i].source to an image index.
	//
	// Parameters:
	//   - materialIndex: the index of the material in the document
	//
	// Returns:
	//   - common.ImportedMaterial: the material, BaseColorTexture -1 when it has none
	//   - error: *common.FormatError if the material references a missing texture or image
	ExtractMaterial(materialIndex int) (common.ImportedMaterial, error)

	// ExtractAllMaterials extracts all materials in document order. The result always
	// has exactly one entry per document material.
	//
	// Returns:
	//   - []common.ImportedMaterial: all extracted materials
	//   - error: the first extraction failure
	ExtractAllMaterials() ([]common.ImportedMaterial, error)
}

var _ gltfMaterialExtractor = &gltfMaterialExtractorImpl{}

// newGLTFMaterialExtractor creates a new material extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//   - logger: receives warnings for textures that cannot be honored
//
// Returns:
//   - gltfMaterialExtractor: the material extractor
func newGLTFMaterialExtractor(parser gltfParser, logger *slog.Logger) gltfMaterialExtractor {
	return &gltfMaterialExtractorImpl{parser: parser, logger: logger}
}

func (e *gltfMaterialExtractorImpl) ExtractMaterial(materialIndex int) (common.ImportedMaterial, error) {
	doc := e.parser.Document()
	if doc == nil {
		return common.ImportedMaterial{}, errNoDocumentLoaded
	}
	op := fmt.Sprintf("material %d", materialIndex)
	if materialIndex < 0 || materialIndex >= len(doc.Materials) {
		return common.ImportedMaterial{}, &common.FormatError{Op: op, Err: errOutOfRange}
	}

	mat := &doc.Materials[materialIndex]
	result := common.ImportedMaterial{
		Name:             mat.Name,
		BaseColor:        [4]float32{1, 1, 1, 1},
		BaseColorTexture: -1,
	}

	pbr := mat.PbrMetallicRoughness
	if pbr == nil {
		return result, nil
	}
	if pbr.BaseColorFactor != nil {
		result.BaseColor = *pbr.BaseColorFactor
	}
	if pbr.BaseColorTexture == nil {
		return result, nil
	}

	texIdx := pbr.BaseColorTexture.Index
	if texIdx < 0 || texIdx >= len(doc.Textures) {
		return common.ImportedMaterial{}, common.NewFormatError(op, "%w: %d of %d", errTextureIndexOutOfRange, texIdx, len(doc.Textures))
	}
	tex := &doc.Textures[texIdx]
	if tex.Source == nil {
		e.logger.Warn("base color texture has no image source, ignoring", "material", mat.Name, "texture", texIdx)
		return result, nil
	}
	if *tex.Source < 0 || *tex.Source >= len(doc.Images) {
		return common.ImportedMaterial{}, common.NewFormatError(op, "texture %d source %d: %w", texIdx, *tex.Source, errOutOfRange)
	}
	if pbr.BaseColorTexture.TexCoord != 0 {
		e.logger.Warn("base color texture uses a secondary UV set, sampling TEXCOORD_0 instead",
			"material", mat.Name, "texCoord", pbr.BaseColorTexture.TexCoord)
	}

	result.BaseColorTexture = *tex.Source
	return result, nil
}

func (e *gltfMaterialExtractorImpl) ExtractAllMaterials() ([]common.ImportedMaterial, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, errNoDocumentLoaded
	}

	materials := make([]common.ImportedMaterial, len(doc.Materials))
	for i := range doc.Materials {
		mat, err := e.ExtractMaterial(i)
		if err != nil {
			return nil, err
		}
		materials[i] = mat
	}
	return materials, nil
}
