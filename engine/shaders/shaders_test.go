package shaders

import (
	"fmt"
	"regexp"
	"testing"

	"github.com/Carmen-Shannon/oxy-viewer/engine/model"
	"github.com/Carmen-Shannon/oxy-viewer/engine/renderer"
	"github.com/stretchr/testify/assert"
)

func TestBasic_GLDeclaresEveryUniform(t *testing.T) {
	src := Basic(renderer.BackendTypeGL)
	all := src.Vertex + src.Fragment
	for _, name := range []string{
		UniformModel, UniformView, UniformProjection,
		UniformLightPos, UniformViewPos, UniformAmbientIntensity,
		model.UniformHasBaseColor, model.UniformBaseColorTexture,
	} {
		assert.Regexp(t, regexp.MustCompile(fmt.Sprintf(`uniform \w+ %s;`, name)), all)
	}
	assert.Empty(t, src.Globals.Offsets)
}

func TestBasic_WGSLBlocks(t *testing.T) {
	src := Basic(renderer.BackendTypeWGPU)
	assert.Contains(t, src.Vertex, "fn vs_main")
	assert.Contains(t, src.Fragment, "fn fs_main")
	assert.Equal(t, model.UniformBaseColorTexture, src.TextureUniform)
	assert.Contains(t, src.Material.Offsets, model.UniformHasBaseColor)

	// Every globals member fits inside the block.
	sizes := map[string]uint64{
		UniformModel: 64, UniformView: 64, UniformProjection: 64,
		UniformLightPos: 12, UniformViewPos: 12, UniformAmbientIntensity: 4,
	}
	for name, size := range sizes {
		off, ok := src.Globals.Offsets[name]
		if assert.True(t, ok, name) {
			assert.LessOrEqual(t, off+size, src.Globals.Size, name)
			assert.Zero(t, off%4, name)
		}
	}
}
