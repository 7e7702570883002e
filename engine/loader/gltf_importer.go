package loader

import (
	"cmp"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-viewer/common"
)

// gltfImporterImpl is the implementation of the gltfImporter interface.
type gltfImporterImpl struct {
	logger *slog.Logger
	pool   worker.DynamicWorkerPool
}

// gltfImporter orchestrates a full glTF/GLB import: parse, extract primitives,
// extract materials, decode images.
type gltfImporter interface {
	// Import loads a glTF/GLB file into an ImportedScene.
	//
	// Parameters:
	//   - path: the file path to the glTF or GLB file
	//
	// Returns:
	//   - *common.ImportedScene: the imported scene
	//   - error: *common.IOError or *common.FormatError
	Import(path string) (*common.ImportedScene, error)

	// ImportReader loads a glTF/GLB stream into an ImportedScene.
	//
	// Parameters:
	//   - r: the reader providing glTF/GLB data
	//   - baseDir: directory used to resolve relative URIs
	//
	// Returns:
	//   - *common.ImportedScene: the imported scene
	//   - error: *common.IOError or *common.FormatError
	ImportReader(r io.Reader, baseDir string) (*common.ImportedScene, error)
}

var _ gltfImporter = &gltfImporterImpl{}

// newGLTFImporter creates a new glTF importer.
//
// Parameters:
//   - logger: destination for non-fatal import warnings
//   - pool: worker pool for image decoding (may be nil)
//
// Returns:
//   - gltfImporter: the importer
func newGLTFImporter(logger *slog.Logger, pool worker.DynamicWorkerPool) gltfImporter {
	return &gltfImporterImpl{logger: logger, pool: pool}
}

func (imp *gltfImporterImpl) Import(path string) (*common.ImportedScene, error) {
	parser := newGLTFParser()
	if err := parser.Parse(path); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return imp.importFromParser(parser, path)
}

func (imp *gltfImporterImpl) ImportReader(r io.Reader, baseDir string) (*common.ImportedScene, error) {
	parser := newGLTFParser()
	if err := parser.ParseReader(r, baseDir); err != nil {
		return nil, fmt.Errorf("failed to parse from reader: %w", err)
	}
	return imp.importFromParser(parser, "")
}

// importFromParser performs a full import from a parser that has already loaded a document.
func (imp *gltfImporterImpl) importFromParser(parser gltfParser, fallbackPath string) (*common.ImportedScene, error) {
	doc := parser.Document()
	if doc == nil {
		return nil, errNoDocumentLoaded
	}

	for _, ext := range doc.ExtensionsUsed {
		imp.logger.Debug("ignoring optional glTF extension", "extension", ext)
	}

	materials, err := newGLTFMaterialExtractor(parser, imp.logger).ExtractAllMaterials()
	if err != nil {
		return nil, fmt.Errorf("material extraction failed: %w", err)
	}

	primitives, err := newGLTFMeshExtractor(parser).ExtractAllPrimitives()
	if err != nil {
		return nil, fmt.Errorf("mesh extraction failed: %w", err)
	}

	images, err := newGLTFImageDecoder(parser, imp.pool).DecodeAll()
	if err != nil {
		return nil, fmt.Errorf("image decoding failed: %w", err)
	}

	return &common.ImportedScene{
		Name:       gltfExtractSceneName(doc, fallbackPath),
		Primitives: primitives,
		Materials:  materials,
		Images:     images,
	}, nil
}

// gltfExtractSceneName derives a name from the default scene, the first mesh, or the file name.
func gltfExtractSceneName(doc *gltfDocument, fallbackPath string) string {
	var sceneName, meshName, fileName string
	if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
		sceneName = doc.Scenes[*doc.Scene].Name
	}
	if len(doc.Meshes) > 0 {
		meshName = doc.Meshes[0].Name
	}
	if fallbackPath != "" {
		fileName = strings.TrimSuffix(filepath.Base(fallbackPath), filepath.Ext(fallbackPath))
	}
	return cmp.Or(sceneName, meshName, fileName, "unnamed_scene")
}
