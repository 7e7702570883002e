package model

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/Carmen-Shannon/oxy-viewer/engine/renderer"
)

var (
	errMaterialIndexOutOfRange = errors.New("material index out of range")
	errTextureIndexOutOfRange  = errors.New("texture index out of range")
	errEmptyPrimitive          = errors.New("primitive has no vertices")
	errNoIndices               = errors.New("primitive has no indices")
)

// gpuBuilder uploads an ImportedScene into GPU resources through a Renderer.
type gpuBuilder struct {
	renderer renderer.Renderer
	logger   *slog.Logger
}

// build uploads every image, material, and primitive in scene. Everything created is tracked
// in the returned set; on error the partial set is released before returning.
//
// Parameters:
//   - scene: the decoded scene
//   - path: the source path, kept for logging
//
// Returns:
//   - *assetSet: the uploaded asset
//   - error: *common.FormatError if the scene breaks a table invariant, *common.ResourceError if an upload fails
func (b *gpuBuilder) build(scene *common.ImportedScene, path string) (*assetSet, error) {
	staged := &assetSet{name: scene.Name, path: path}
	ok := false
	defer func() {
		if !ok {
			staged.release()
		}
	}()

	for i := range scene.Images {
		tex, err := b.uploadTexture(&scene.Images[i], i)
		if err != nil {
			return nil, err
		}
		staged.resources.Add(tex.texture)
		staged.textures = append(staged.textures, tex)
	}

	staged.materials = make([]Material, 0, len(scene.Materials))
	for i, mat := range scene.Materials {
		if mat.BaseColorTexture >= len(staged.textures) {
			return nil, common.NewFormatError("build materials", "material %d: %w: %d >= %d",
				i, errTextureIndexOutOfRange, mat.BaseColorTexture, len(staged.textures))
		}
		staged.materials = append(staged.materials, Material{
			Name:             mat.Name,
			BaseColor:        mat.BaseColor,
			BaseColorTexture: max(mat.BaseColorTexture, -1),
		})
	}

	staged.primitives = make([]gpuPrimitive, 0, len(scene.Primitives))
	for i := range scene.Primitives {
		prim := &scene.Primitives[i]
		if prim.MaterialIndex >= len(staged.materials) {
			return nil, common.NewFormatError("build primitives", "primitive %q: %w: %d >= %d",
				prim.Name, errMaterialIndexOutOfRange, prim.MaterialIndex, len(staged.materials))
		}
		gp, err := b.uploadPrimitive(prim, &staged.resources)
		if err != nil {
			return nil, err
		}
		staged.primitives = append(staged.primitives, gp)
	}

	ok = true
	return staged, nil
}

func (b *gpuBuilder) uploadTexture(img *common.ImportedImage, index int) (gpuTexture, error) {
	label := cmp.Or(img.Name, fmt.Sprintf("image%d", index))
	tex, err := b.renderer.CreateTexture(label, img.Staging)
	if err != nil {
		return gpuTexture{}, fmt.Errorf("failed to upload image %d: %w", index, err)
	}
	b.logger.Debug("uploaded texture", "label", label, "size", img.Staging.String())
	return gpuTexture{
		texture: tex,
		width:   tex.Width(),
		height:  tex.Height(),
		format:  tex.Format(),
	}, nil
}

// uploadPrimitive creates the vertex buffer, index buffer, and vertex array for prim.
// Each handle is added to resources as soon as it exists so a later failure releases it.
func (b *gpuBuilder) uploadPrimitive(prim *common.ImportedPrimitive, resources *renderer.ResourceSet) (gpuPrimitive, error) {
	if len(prim.Vertices) == 0 {
		return gpuPrimitive{}, common.NewFormatError("build primitives", "primitive %q: %w", prim.Name, errEmptyPrimitive)
	}
	if len(prim.Indices) == 0 {
		return gpuPrimitive{}, common.NewFormatError("build primitives", "primitive %q: %w", prim.Name, errNoIndices)
	}

	vbo, err := b.renderer.CreateBuffer(renderer.BufferKindVertex, prim.Name+" vertices", common.MarshalVertices(prim.Vertices))
	if err != nil {
		return gpuPrimitive{}, fmt.Errorf("failed to upload primitive %q: %w", prim.Name, err)
	}
	resources.Add(vbo)

	ibo, err := b.renderer.CreateBuffer(renderer.BufferKindIndex, prim.Name+" indices", common.MarshalIndices(prim.Indices))
	if err != nil {
		return gpuPrimitive{}, fmt.Errorf("failed to upload primitive %q: %w", prim.Name, err)
	}
	resources.Add(ibo)

	vao, err := b.renderer.CreateVertexArray(prim.Name, vbo, ibo, len(prim.Indices), common.DefaultVertexLayout())
	if err != nil {
		return gpuPrimitive{}, fmt.Errorf("failed to upload primitive %q: %w", prim.Name, err)
	}
	resources.Add(vao)

	return gpuPrimitive{
		name:          prim.Name,
		materialIndex: prim.MaterialIndex,
		vertexCount:   len(prim.Vertices),
		indexCount:    len(prim.Indices),
		vertices:      vbo,
		indices:       ibo,
		vertexArray:   vao,
	}, nil
}
