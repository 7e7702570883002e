package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-viewer/engine/config"
	"github.com/Carmen-Shannon/oxy-viewer/engine/loader/loadertest"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestResolveConfig_FlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("watch = true\nprofile = true\n\n[renderer]\nbackend = \"wgpu\"\n"), 0o644))

	flags := &rootFlags{}
	cmd := &cobra.Command{}
	flags.bind(cmd.PersistentFlags())
	require.NoError(t, cmd.ParseFlags([]string{"--config", cfgPath, "--backend", "gl", "--watch=false", "--models", dir}))

	cfg, err := resolveConfig(cmd, flags)
	require.NoError(t, err)
	assert.Equal(t, config.BackendGL, cfg.Renderer.Backend)
	assert.False(t, cfg.Watch, "an explicit false flag wins over the file")
	assert.True(t, cfg.Profile, "unset flags keep the file value")
	assert.Equal(t, dir, cfg.Scenes.ModelsDir)
}

func TestResolveConfig_InvalidBackend(t *testing.T) {
	flags := &rootFlags{}
	cmd := &cobra.Command{}
	flags.bind(cmd.PersistentFlags())
	require.NoError(t, cmd.ParseFlags([]string{"--config", filepath.Join(t.TempDir(), "none.toml"), "--backend", "vulkan"}))

	_, err := resolveConfig(cmd, flags)
	assert.Error(t, err)
}

func TestInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quad.glb")
	require.NoError(t, loadertest.Quad().WriteGLB(path))

	out, err := execute(t, "inspect", path)
	require.NoError(t, err)
	assert.Contains(t, out, "primitives")
	assert.Contains(t, out, "(4 vertices, 2 triangles)")
	assert.Contains(t, out, "PRIMITIVE")
	assert.NotContains(t, out, "BASE COLOR")

	_, err = execute(t, "inspect", filepath.Join(t.TempDir(), "missing.glb"))
	assert.Error(t, err)
}

func TestScenes_AddListRemove(t *testing.T) {
	dir := t.TempDir()
	catalog := filepath.Join(dir, "scenes.yaml")
	models := filepath.Join(dir, "models")
	require.NoError(t, os.MkdirAll(models, 0o755))
	require.NoError(t, loadertest.Quad().WriteGLB(filepath.Join(models, "scanned.glb")))
	base := []string{"--config", filepath.Join(dir, "config.toml"), "--catalog", catalog}

	_, err := execute(t, append([]string{"scenes", "add", "/assets/fox.glb", "--name", "fox", "--light", "1,2,3", "--ambient", "0.25"}, base...)...)
	require.NoError(t, err)

	out, err := execute(t, append([]string{"scenes"}, base...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "fox")
	assert.Contains(t, out, "/assets/fox.glb")
	assert.Contains(t, out, "1,2,3")
	assert.Contains(t, out, "0.25")

	out, err = execute(t, append([]string{"scenes", "--models", models}, base...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "scanned", "models found by the scan are listed")

	_, err = execute(t, append([]string{"scenes", "add", "/assets/fox.glb", "--name", "fox"}, base...)...)
	assert.Error(t, err, "duplicate names are rejected")

	_, err = execute(t, append([]string{"scenes", "rm", "fox"}, base...)...)
	require.NoError(t, err)
	out, err = execute(t, append([]string{"scenes"}, base...)...)
	require.NoError(t, err)
	assert.NotContains(t, out, "fox")

	_, err = execute(t, append([]string{"scenes", "add", "/a.glb", "--light", "1,2"}, base...)...)
	assert.Error(t, err)
}
