package shaders

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/Carmen-Shannon/oxy-viewer/engine/renderer"
)

var errInvalidWGSL = errors.New("invalid WGSL shader")

// Entry points the WebGPU backend compiles.
const (
	VertexEntryPoint   = "vs_main"
	FragmentEntryPoint = "fs_main"
)

var entryPointRegex = regexp.MustCompile(`@(vertex|fragment)\s+fn\s+(\w+)`)

// NewWGSLSource reflects a single-file WGSL program into a ShaderSource for the WebGPU backend.
// The program must declare:
//   - @group(0) @binding(0) a uniform struct (the per-frame globals)
//   - @group(1) @binding(0) a uniform struct (the per-draw material)
//   - @group(1) @binding(1) a texture_2d<f32> and @group(1) @binding(2) a sampler
//   - a vertex input struct whose locations match common.DefaultVertexLayout
//   - the vs_main and fs_main entry points
//
// Struct members whose names start with an underscore are padding and get no offset.
//
// Parameters:
//   - label: the shader label
//   - source: the WGSL text
//
// Returns:
//   - renderer.ShaderSource: the source with Globals, Material and TextureUniform filled in
//   - error: an error wrapping errInvalidWGSL naming the first missing or mismatched declaration
func NewWGSLSource(label, source string) (renderer.ShaderSource, error) {
	clean := stripComments(source)
	structs := parseStructBlocks(clean)
	known := computeStructSizes(structs)

	if err := checkEntryPoints(clean); err != nil {
		return renderer.ShaderSource{}, err
	}
	if err := checkVertexInputs(structs); err != nil {
		return renderer.ShaderSource{}, err
	}

	bindings := make(map[[2]int]parsedBinding)
	for _, b := range parseBindings(clean) {
		bindings[[2]int{b.group, b.binding}] = b
	}

	globals, err := uniformBlock(bindings, structs, known, 0, 0)
	if err != nil {
		return renderer.ShaderSource{}, err
	}
	material, err := uniformBlock(bindings, structs, known, 1, 0)
	if err != nil {
		return renderer.ShaderSource{}, err
	}

	tex, ok := bindings[[2]int{1, 1}]
	if !ok || !strings.HasPrefix(tex.typeName, "texture_2d<") {
		return renderer.ShaderSource{}, fmt.Errorf("%w: want texture_2d<f32> at @group(1) @binding(1)", errInvalidWGSL)
	}
	if s, ok := bindings[[2]int{1, 2}]; !ok || s.typeName != "sampler" {
		return renderer.ShaderSource{}, fmt.Errorf("%w: want sampler at @group(1) @binding(2)", errInvalidWGSL)
	}

	return renderer.ShaderSource{
		Label:          label,
		Vertex:         source,
		Fragment:       source,
		Globals:        globals,
		Material:       material,
		TextureUniform: tex.name,
	}, nil
}

func checkEntryPoints(source string) error {
	found := make(map[string]string)
	for _, m := range entryPointRegex.FindAllStringSubmatch(source, -1) {
		found[m[1]] = m[2]
	}
	if found["vertex"] != VertexEntryPoint {
		return fmt.Errorf("%w: want @vertex fn %s", errInvalidWGSL, VertexEntryPoint)
	}
	if found["fragment"] != FragmentEntryPoint {
		return fmt.Errorf("%w: want @fragment fn %s", errInvalidWGSL, FragmentEntryPoint)
	}
	return nil
}

// checkVertexInputs matches the vertex input struct against the vertex record layout.
func checkVertexInputs(structs []parsedStruct) error {
	want := make(map[int]int)
	for _, attr := range common.DefaultVertexLayout().Attributes {
		want[int(attr.Slot)] = int(attr.Components)
	}

	for _, ps := range structs {
		if !isVertexInputStruct(ps) {
			continue
		}
		for _, f := range ps.fields {
			if f.location < 0 {
				continue
			}
			components, ok := want[f.location]
			if !ok {
				return fmt.Errorf("%w: vertex input %s uses unknown @location(%d)", errInvalidWGSL, f.name, f.location)
			}
			if wgslVertexComponents[f.typeName] != components {
				return fmt.Errorf("%w: vertex input %s at @location(%d) is %s, want %d floats", errInvalidWGSL, f.name, f.location, f.typeName, components)
			}
		}
		return nil
	}
	return fmt.Errorf("%w: no vertex input struct", errInvalidWGSL)
}

func uniformBlock(bindings map[[2]int]parsedBinding, structs []parsedStruct, known map[string]wgslTypeLayout, group, binding int) (renderer.UniformBlock, error) {
	b, ok := bindings[[2]int{group, binding}]
	if !ok || b.addressSpace != "uniform" {
		return renderer.UniformBlock{}, fmt.Errorf("%w: want var<uniform> at @group(%d) @binding(%d)", errInvalidWGSL, group, binding)
	}
	for _, ps := range structs {
		if ps.name != b.typeName {
			continue
		}
		offsets, layout, ok := computeStructLayout(ps, known)
		if !ok {
			return renderer.UniformBlock{}, fmt.Errorf("%w: cannot lay out struct %s", errInvalidWGSL, ps.name)
		}
		for name := range offsets {
			if strings.HasPrefix(name, "_") {
				delete(offsets, name)
			}
		}
		return renderer.UniformBlock{Size: layout.size, Offsets: offsets}, nil
	}
	return renderer.UniformBlock{}, fmt.Errorf("%w: %s is not a struct", errInvalidWGSL, b.typeName)
}
