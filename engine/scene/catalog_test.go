package scene

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func sampleCatalog() Catalog {
	return NewCatalog(WithScenes(
		Scene{Name: "knight", MeshPath: "assets/models/Knight.glb", LightPos: ptr([3]float32{3, 3, 3}), AmbientIntensity: ptr(float32(0.5))},
		Scene{Name: "tomorrow", MeshPath: `assets\models\Tomorrow.glb`, LightPos: ptr([3]float32{2, 2, 2}), AmbientIntensity: ptr(float32(0.6))},
		Scene{Name: "chemist", MeshPath: "assets/models/Chemist.glb"},
	))
}

func TestCatalog_SaveLoadRoundTrip(t *testing.T) {
	for _, ext := range []string{".toml", ".yaml", ".yml"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "scenes"+ext)
			require.NoError(t, sampleCatalog().Save(path))

			loaded := NewCatalog()
			require.NoError(t, loaded.Load(path))
			assert.Equal(t, sampleCatalog().Scenes(), loaded.Scenes())

			_, ok := loaded.Current()
			assert.False(t, ok, "loading resets the selection")
		})
	}
}

func TestCatalog_LoadDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenes.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[scenes]]
mesh_path = "models/Duck.glb"

[[scenes]]
name = "lit"
mesh_path = "models/Lit.glb"
light_pos = [1.0, 2.0, 3.0]
ambient_intensity = 0.25

[[scenes]]
name = "lit"
mesh_path = "models/Duplicate.glb"
`), 0o644))

	c := NewCatalog()
	require.NoError(t, c.Load(path))
	scenes := c.Scenes()
	require.Len(t, scenes, 2)

	assert.Equal(t, "Duck", scenes[0].Name)
	assert.Equal(t, DefaultLightPos, scenes[0].Light())
	assert.Equal(t, DefaultAmbientIntensity, scenes[0].Ambient())

	assert.Equal(t, [3]float32{1, 2, 3}, scenes[1].Light())
	assert.Equal(t, float32(0.25), scenes[1].Ambient())
}

func TestCatalog_LoadMissingAndInvalid(t *testing.T) {
	dir := t.TempDir()
	c := sampleCatalog()
	require.NoError(t, c.Load(filepath.Join(dir, "missing.yaml")))
	assert.Zero(t, c.Len())

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("scenes = ["), 0o644))
	assert.Error(t, c.Load(bad))

	assert.ErrorIs(t, c.Load(filepath.Join(dir, "scenes.json")), errUnsupportedFormat)
	assert.ErrorIs(t, c.Save(filepath.Join(dir, "scenes.ini")), errUnsupportedFormat)
}

func TestCatalog_NextPrevWrap(t *testing.T) {
	c := sampleCatalog()

	s, ok := c.Next()
	require.True(t, ok)
	assert.Equal(t, "knight", s.Name)
	s, _ = c.Next()
	assert.Equal(t, "tomorrow", s.Name)
	s, _ = c.Next()
	s, _ = c.Next()
	assert.Equal(t, "knight", s.Name)
	s, _ = c.Prev()
	assert.Equal(t, "chemist", s.Name)

	fresh := sampleCatalog()
	s, _ = fresh.Prev()
	assert.Equal(t, "chemist", s.Name)

	_, ok = NewCatalog().Next()
	assert.False(t, ok)
}

func TestCatalog_AddRemoveUpdate(t *testing.T) {
	c := sampleCatalog()

	assert.ErrorIs(t, c.Add(Scene{Name: "knight"}), errDuplicateScene)
	assert.ErrorIs(t, c.Add(Scene{}), errEmptySceneName)
	require.NoError(t, c.Add(Scene{Name: "duck", MeshPath: "Duck.glb"}))
	assert.Equal(t, 4, c.Len())

	_, err := c.Select(1)
	require.NoError(t, err)
	require.NoError(t, c.Remove("tomorrow"))
	cur, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "knight", cur.Name, "removing the selection falls back to the previous scene")

	_, err = c.Select(2)
	require.NoError(t, err)
	require.NoError(t, c.Remove("knight"))
	cur, _ = c.Current()
	assert.Equal(t, "duck", cur.Name, "selection follows its scene")

	assert.ErrorIs(t, c.Remove("nobody"), errSceneNotFound)
	assert.ErrorIs(t, c.Update("chemist", Scene{Name: "duck"}), errDuplicateScene)
	require.NoError(t, c.Update("chemist", Scene{Name: "walter", MeshPath: "Walter.glb"}))
	assert.Equal(t, "walter", c.Scenes()[0].Name)

	_, err = c.Select(5)
	assert.ErrorIs(t, err, errIndexOutOfRange)
}

func TestCatalog_SelectMeshNormalizesSeparators(t *testing.T) {
	c := sampleCatalog()
	s, ok := c.SelectMesh("assets/models/Tomorrow.glb")
	require.True(t, ok)
	assert.Equal(t, "tomorrow", s.Name)

	_, ok = c.SelectMesh("assets/models/Unknown.glb")
	assert.False(t, ok)
}

func TestScanModels(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.glb", "a.GLTF", "notes.txt", "c.bin"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.glb"), 0o755))

	paths, err := ScanModels(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		NormalizePath(filepath.Join(dir, "a.GLTF")),
		NormalizePath(filepath.Join(dir, "b.glb")),
	}, paths)

	_, err = ScanModels(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestAddModels(t *testing.T) {
	c := sampleCatalog()
	added := AddModels(c, []string{
		"assets/models/Knight.glb",
		"assets/models/Duck.glb",
		"other/knight.glb",
	})
	assert.Equal(t, 2, added)

	scenes := c.Scenes()
	require.Len(t, scenes, 5)
	assert.Equal(t, "Duck", scenes[3].Name)
	assert.Equal(t, "other/knight", scenes[4].Name)
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "a/b/c.glb", NormalizePath(`a\b\c.glb`))
	assert.Equal(t, "a/c.glb", NormalizePath("a/./b/../c.glb"))
	assert.True(t, SameMesh(`models\x.glb`, "models/x.glb"))
	assert.Equal(t, "Duck", NameFromPath(`models\Duck.glb`))
}
