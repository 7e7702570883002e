package scene

import (
	"path/filepath"
	"strings"
)

// Scene defaults applied to catalog entries that omit them.
var (
	DefaultLightPos                 = [3]float32{3, 3, 3}
	DefaultAmbientIntensity float32 = 0.5
)

// Scene is one catalog entry: a mesh plus the lighting the viewer draws it with.
type Scene struct {
	Name             string      `toml:"name" yaml:"name"`
	MeshPath         string      `toml:"mesh_path" yaml:"mesh_path"`
	LightPos         *[3]float32 `toml:"light_pos,omitempty" yaml:"light_pos,omitempty"`
	AmbientIntensity *float32    `toml:"ambient_intensity,omitempty" yaml:"ambient_intensity,omitempty"`
}

// Light returns the light position, or DefaultLightPos when unset.
func (s Scene) Light() [3]float32 {
	if s.LightPos == nil {
		return DefaultLightPos
	}
	return *s.LightPos
}

// Ambient returns the ambient intensity, or DefaultAmbientIntensity when unset.
func (s Scene) Ambient() float32 {
	if s.AmbientIntensity == nil {
		return DefaultAmbientIntensity
	}
	return *s.AmbientIntensity
}

// NormalizePath converts path to forward slashes and cleans it so paths written on
// different platforms compare equal.
//
// Parameters:
//   - path: the path to normalize
//
// Returns:
//   - string: the normalized path
func NormalizePath(path string) string {
	if path == "" {
		return ""
	}
	return filepath.ToSlash(filepath.Clean(strings.ReplaceAll(path, `\`, "/")))
}

// SameMesh reports whether two mesh paths refer to the same file after normalization.
func SameMesh(a, b string) bool {
	return NormalizePath(a) == NormalizePath(b)
}

// NameFromPath derives a scene name from a mesh file name.
func NameFromPath(path string) string {
	base := filepath.Base(NormalizePath(path))
	return strings.TrimSuffix(base, filepath.Ext(base))
}
