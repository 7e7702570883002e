package scene

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var (
	errDuplicateScene    = errors.New("scene already exists")
	errSceneNotFound     = errors.New("scene not found")
	errEmptySceneName    = errors.New("scene name is empty")
	errUnsupportedFormat = errors.New("unsupported catalog format")
	errIndexOutOfRange   = errors.New("scene index out of range")
)

// catalogFile is the on-disk shape of a catalog.
type catalogFile struct {
	Scenes []Scene `toml:"scenes" yaml:"scenes"`
}

// catalog is the implementation of the Catalog interface.
type catalog struct {
	mu     *sync.Mutex
	logger *slog.Logger

	scenes   []Scene
	selected int
}

// Catalog is an ordered list of scenes with a current selection.
// The selection is -1 when the catalog is empty or nothing has been selected.
// Safe for concurrent use.
type Catalog interface {
	// Load replaces the catalog with the file at path. A missing file leaves an empty catalog.
	// The format follows the extension: .toml, .yaml or .yml.
	//
	// Parameters:
	//   - path: the catalog file; a leading ~ is expanded
	//
	// Returns:
	//   - error: an error if the file cannot be read or parsed
	Load(path string) error

	// Save writes the catalog to path, creating parent directories.
	//
	// Parameters:
	//   - path: the catalog file; a leading ~ is expanded
	//
	// Returns:
	//   - error: an error if the file cannot be encoded or written
	Save(path string) error

	// Scenes returns a copy of every scene in order.
	Scenes() []Scene

	// Len returns the number of scenes.
	Len() int

	// Add appends s. Names must be unique and non-empty.
	Add(s Scene) error

	// Remove deletes the scene called name. The selection moves to stay on the same scene
	// or, if it was removed, to the previous one.
	Remove(name string) error

	// Update replaces the scene called name with s.
	Update(name string, s Scene) error

	// Select makes scene i current.
	Select(i int) (Scene, error)

	// SelectMesh makes the first scene whose mesh matches path current.
	//
	// Returns:
	//   - Scene: the selected scene
	//   - bool: false if no scene uses that mesh
	SelectMesh(path string) (Scene, bool)

	// Next advances the selection, wrapping around.
	Next() (Scene, bool)

	// Prev moves the selection back, wrapping around.
	Prev() (Scene, bool)

	// Current returns the selected scene.
	Current() (Scene, bool)
}

var _ Catalog = &catalog{}

// NewCatalog creates an empty Catalog.
//
// Parameters:
//   - options: a variadic list of CatalogBuilderOption functions to configure the Catalog
//
// Returns:
//   - Catalog: the catalog
func NewCatalog(options ...CatalogBuilderOption) Catalog {
	c := &catalog{
		mu:       &sync.Mutex{},
		logger:   slog.Default(),
		selected: -1,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

type catalogFormat int

const (
	formatTOML catalogFormat = iota
	formatYAML
)

func formatFor(path string) (catalogFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return formatTOML, nil
	case ".yaml", ".yml":
		return formatYAML, nil
	default:
		return 0, fmt.Errorf("%w: %q", errUnsupportedFormat, filepath.Ext(path))
	}
}

func (c *catalog) Load(path string) error {
	path, err := homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("failed to expand catalog path: %w", err)
	}
	format, err := formatFor(path)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		c.logger.Debug("no scene catalog, starting empty", "path", path)
		c.replace(nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read scene catalog: %w", err)
	}

	var file catalogFile
	switch format {
	case formatTOML:
		err = toml.Unmarshal(data, &file)
	case formatYAML:
		err = yaml.Unmarshal(data, &file)
	}
	if err != nil {
		return fmt.Errorf("failed to parse scene catalog %q: %w", path, err)
	}

	kept := make([]Scene, 0, len(file.Scenes))
	for i, s := range file.Scenes {
		if s.Name == "" {
			s.Name = NameFromPath(s.MeshPath)
		}
		if s.Name == "" || slices.ContainsFunc(kept, func(k Scene) bool { return k.Name == s.Name }) {
			c.logger.Warn("skipping scene catalog entry", "path", path, "index", i, "name", s.Name)
			continue
		}
		kept = append(kept, s)
	}
	c.replace(kept)
	c.logger.Debug("loaded scene catalog", "path", path, "scenes", len(kept))
	return nil
}

func (c *catalog) replace(scenes []Scene) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scenes = scenes
	c.selected = -1
}

func (c *catalog) Save(path string) error {
	path, err := homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("failed to expand catalog path: %w", err)
	}
	format, err := formatFor(path)
	if err != nil {
		return err
	}

	file := catalogFile{Scenes: c.Scenes()}
	var buf bytes.Buffer
	switch format {
	case formatTOML:
		err = toml.NewEncoder(&buf).Encode(file)
	case formatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		err = enc.Encode(file)
		if err == nil {
			err = enc.Close()
		}
	}
	if err != nil {
		return fmt.Errorf("failed to encode scene catalog: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write scene catalog: %w", err)
	}
	return nil
}

func (c *catalog) Scenes() []Scene {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.scenes)
}

func (c *catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.scenes)
}

// indexOf returns the position of the scene called name, or -1. Caller must hold the mutex.
func (c *catalog) indexOf(name string) int {
	return slices.IndexFunc(c.scenes, func(s Scene) bool { return s.Name == name })
}

func (c *catalog) Add(s Scene) error {
	if s.Name == "" {
		return errEmptySceneName
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indexOf(s.Name) >= 0 {
		return fmt.Errorf("%w: %q", errDuplicateScene, s.Name)
	}
	c.scenes = append(c.scenes, s)
	return nil
}

func (c *catalog) Remove(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", errSceneNotFound, name)
	}
	c.scenes = slices.Delete(c.scenes, i, i+1)
	switch {
	case len(c.scenes) == 0:
		c.selected = -1
	case c.selected > i:
		c.selected--
	case c.selected == i:
		c.selected = max(i-1, 0)
	}
	return nil
}

func (c *catalog) Update(name string, s Scene) error {
	if s.Name == "" {
		return errEmptySceneName
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", errSceneNotFound, name)
	}
	if j := c.indexOf(s.Name); j >= 0 && j != i {
		return fmt.Errorf("%w: %q", errDuplicateScene, s.Name)
	}
	c.scenes[i] = s
	return nil
}

func (c *catalog) Select(i int) (Scene, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.scenes) {
		return Scene{}, fmt.Errorf("%w: %d of %d", errIndexOutOfRange, i, len(c.scenes))
	}
	c.selected = i
	return c.scenes[i], nil
}

func (c *catalog) SelectMesh(path string) (Scene, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.IndexFunc(c.scenes, func(s Scene) bool { return SameMesh(s.MeshPath, path) })
	if i < 0 {
		return Scene{}, false
	}
	c.selected = i
	return c.scenes[i], true
}

func (c *catalog) step(delta int) (Scene, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.scenes)
	if n == 0 {
		return Scene{}, false
	}
	if c.selected < 0 {
		if delta > 0 {
			c.selected = 0
		} else {
			c.selected = n - 1
		}
	} else {
		c.selected = ((c.selected+delta)%n + n) % n
	}
	return c.scenes[c.selected], true
}

func (c *catalog) Next() (Scene, bool) {
	return c.step(1)
}

func (c *catalog) Prev() (Scene, bool) {
	return c.step(-1)
}

func (c *catalog) Current() (Scene, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected < 0 || c.selected >= len(c.scenes) {
		return Scene{}, false
	}
	return c.scenes[c.selected], true
}
