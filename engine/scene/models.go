package scene

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// ScanModels lists the .glb and .gltf files directly inside dir, sorted by name.
//
// Parameters:
//   - dir: the directory to scan; a leading ~ is expanded
//
// Returns:
//   - []string: the model paths, joined with dir and normalized
//   - error: an error if the directory cannot be read
func ScanModels(dir string) ([]string, error) {
	dir, err := homedir.Expand(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to expand models path: %w", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan models directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".glb", ".gltf":
			paths = append(paths, NormalizePath(filepath.Join(dir, e.Name())))
		}
	}
	slices.Sort(paths)
	return paths, nil
}

// AddModels appends a default scene for every path not already used by a catalog scene.
//
// Parameters:
//   - c: the catalog to extend
//   - paths: model file paths, typically from ScanModels
//
// Returns:
//   - int: the number of scenes added
func AddModels(c Catalog, paths []string) int {
	existing := c.Scenes()
	added := 0
	for _, p := range paths {
		if slices.ContainsFunc(existing, func(s Scene) bool { return SameMesh(s.MeshPath, p) }) {
			continue
		}
		name := NameFromPath(p)
		if err := c.Add(Scene{Name: name, MeshPath: p}); err != nil {
			// Name clash with a scene on another mesh; qualify with the parent directory.
			name = filepath.Base(filepath.Dir(p)) + "/" + name
			if err := c.Add(Scene{Name: name, MeshPath: p}); err != nil {
				continue
			}
		}
		added++
	}
	return added
}
