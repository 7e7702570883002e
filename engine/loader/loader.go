package loader

import (
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-viewer/common"
)

// LoaderBackendType identifies the model file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// loader is the implementation of the Loader interface.
type loader struct {
	logger *slog.Logger

	decodeWorkers int
	pool          worker.DynamicWorkerPool

	backend importer
}

// importer decodes one file format. gltfImporter is the only one.
type importer interface {
	Import(path string) (*common.ImportedScene, error)
	ImportReader(r io.Reader, baseDir string) (*common.ImportedScene, error)
}

// Loader decodes model files into CPU-side scenes. It never touches the GPU;
// uploading is the job of the model package.
type Loader interface {
	// Load decodes the file at path into an ImportedScene.
	//
	// Parameters:
	//   - path: the file path to the model file
	//
	// Returns:
	//   - *common.ImportedScene: primitives, materials, and decoded images
	//   - error: *common.IOError if the file is unreadable or truncated, *common.FormatError if malformed
	Load(path string) (*common.ImportedScene, error)

	// LoadReader decodes a model stream into an ImportedScene.
	//
	// Parameters:
	//   - r: the reader providing model data
	//   - baseDir: directory used to resolve relative buffer and image URIs
	//
	// Returns:
	//   - *common.ImportedScene: primitives, materials, and decoded images
	//   - error: *common.IOError or *common.FormatError
	LoadReader(r io.Reader, baseDir string) (*common.ImportedScene, error)

	// Supports reports whether the file extension belongs to this loader's backend.
	//
	// Parameters:
	//   - path: the file path to check
	//
	// Returns:
	//   - bool: true for .glb and .gltf files
	Supports(path string) bool
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		logger:        slog.Default(),
		decodeWorkers: runtime.NumCPU(),
	}

	for _, option := range options {
		option(l)
	}

	if l.decodeWorkers > 1 {
		l.pool = worker.NewDynamicWorkerPool(l.decodeWorkers, 64, 1*time.Second)
	}

	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFImporter(l.logger, l.pool)
	}

	return l
}

func (l *loader) Load(path string) (*common.ImportedScene, error) {
	scene, err := l.backend.Import(path)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("decoded scene", "path", path, "primitives", len(scene.Primitives),
		"materials", len(scene.Materials), "images", len(scene.Images))
	return scene, nil
}

func (l *loader) LoadReader(r io.Reader, baseDir string) (*common.ImportedScene, error) {
	return l.backend.ImportReader(r, baseDir)
}

func (l *loader) Supports(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".glb", ".gltf":
		return true
	}
	return false
}
