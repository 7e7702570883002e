package model

import (
	"github.com/Carmen-Shannon/oxy-viewer/engine/renderer"
)

// gpuPrimitive is one uploaded indexed triangle list.
type gpuPrimitive struct {
	name          string
	materialIndex int
	vertexCount   int
	indexCount    int

	vertices    renderer.Buffer
	indices     renderer.Buffer
	vertexArray renderer.VertexArray
}

// gpuTexture is one uploaded base-color image.
type gpuTexture struct {
	texture renderer.Texture
	width   uint32
	height  uint32
	format  renderer.TextureFormat
}

// assetSet is everything one successful load produced. It owns every handle in resources.
type assetSet struct {
	name       string
	path       string
	primitives []gpuPrimitive
	materials  []Material
	textures   []gpuTexture
	resources  renderer.ResourceSet
}

// release frees every GPU handle in the set, newest first.
func (a *assetSet) release() {
	a.resources.ReleaseAll()
	a.primitives = nil
	a.materials = nil
	a.textures = nil
}
