package renderer

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"
	"math/bits"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/Carmen-Shannon/oxy-viewer/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-viewer/engine/window"
	"github.com/anthonynsimon/bild/transform"
	"github.com/cogentcore/webgpu/wgpu"
)

// WGSL entry points every WebGPU shader must export.
const (
	wgslVertexEntry   = "vs_main"
	wgslFragmentEntry = "fs_main"
)

// Bind group slots shared with the WGSL sources.
const (
	globalsGroup    = 0
	materialGroup   = 1
	uniformBinding  = 0
	textureBinding  = 1
	samplerBinding  = 2
	minUniformBytes = 16
)

type wgpuBuffer struct {
	buf   *wgpu.Buffer
	kind  BufferKind
	size  int
	label string
}

func (b *wgpuBuffer) Label() string    { return b.label }
func (b *wgpuBuffer) Kind() BufferKind { return b.kind }
func (b *wgpuBuffer) Size() int        { return b.size }

func (b *wgpuBuffer) Release() {
	if b.buf == nil {
		return
	}
	b.buf.Release()
	b.buf = nil
}

// wgpuVertexArray pairs buffers for a draw. WebGPU has no vertex array object, so this is plain state.
type wgpuVertexArray struct {
	vertices   *wgpuBuffer
	indices    *wgpuBuffer
	indexCount int
	label      string
}

func (v *wgpuVertexArray) Label() string   { return v.label }
func (v *wgpuVertexArray) IndexCount() int { return v.indexCount }

func (v *wgpuVertexArray) Release() {
	v.vertices = nil
	v.indices = nil
}

type wgpuTexture struct {
	owner *wgpuRendererBackendImpl

	tex           *wgpu.Texture
	view          *wgpu.TextureView
	width, height uint32
	format        TextureFormat
	label         string
}

func (t *wgpuTexture) Label() string         { return t.label }
func (t *wgpuTexture) Width() uint32         { return t.width }
func (t *wgpuTexture) Height() uint32        { return t.height }
func (t *wgpuTexture) Format() TextureFormat { return t.format }

func (t *wgpuTexture) Release() {
	if t.tex == nil {
		return
	}
	if t.owner != nil {
		t.owner.forgetTexture(t)
	}
	t.view.Release()
	t.tex.Release()
	t.view = nil
	t.tex = nil
}

// materialKey identifies one cached material bind group: the texture it samples and the
// bytes of its uniform block.
type materialKey struct {
	texture *wgpuTexture
	block   string
}

type wgpuShader struct {
	owner *wgpuRendererBackendImpl
	src   ShaderSource
	label string

	pipeline       *wgpu.RenderPipeline
	pipelineLayout *wgpu.PipelineLayout
	globalsLayout  *wgpu.BindGroupLayout
	materialLayout *wgpu.BindGroupLayout

	globals  bind_group_provider.BindGroupProvider
	material []byte
	groups   map[materialKey]bind_group_provider.BindGroupProvider
}

func (s *wgpuShader) Label() string { return s.label }

func (s *wgpuShader) Release() {
	if s.pipeline == nil {
		return
	}
	if s.owner != nil {
		s.owner.forgetShader(s)
	}
	for key, group := range s.groups {
		group.Release()
		delete(s.groups, key)
	}
	s.globals.Release()
	s.pipeline.Release()
	s.pipelineLayout.Release()
	s.globalsLayout.Release()
	s.materialLayout.Release()
	s.pipeline = nil
}

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat        *wgpu.TextureFormat
	msaaTexture          *wgpu.Texture
	msaaTextureView      *wgpu.TextureView
	depthTexture         *wgpu.Texture
	depthTextureView     *wgpu.TextureView
	renderPassDescriptor *wgpu.RenderPassDescriptor
	clearColor           [4]float64

	presentMode wgpu.PresentMode // defaults to PresentModeImmediate (Uncapped)
	sampleCount MSAASampleCount  // MSAA sample count for the main render pass

	// sampler is shared by every material bind group; white stands in when no texture is bound.
	sampler *wgpu.Sampler
	white   *wgpuTexture

	shaders map[*wgpuShader]struct{}

	// Draw state
	current  *wgpuShader
	bound    *wgpuVertexArray
	textures map[int]*wgpuTexture

	// Frame state for batched rendering across multiple draw calls
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
	passPipeline *wgpu.RenderPipeline
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(w window.Window, forceFallbackAdapter bool, sampleCount MSAASampleCount, clearColor [4]float64) (RendererBackend, error) {
	runtime.LockOSThread()
	b := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
		sampleCount: sampleCount,
		clearColor:  clearColor,
		shaders:     make(map[*wgpuShader]struct{}),
		textures:    make(map[int]*wgpuTexture),
	}
	b.surface = b.instance.CreateSurface(w.SurfaceDescriptor())

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to request adapter: %w", err)
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to request device: %w", err)
	}
	b.device = d
	b.queue = d.GetQueue()

	b.sampler, err = b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Material Sampler",
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sampler: %w", err)
	}

	white, err := b.CreateTexture("White", TextureFormatRGBA8, common.TextureStagingData{
		Pixels: []byte{0xFF, 0xFF, 0xFF, 0xFF}, Width: 1, Height: 1, Channels: 4,
	})
	if err != nil {
		return nil, err
	}
	b.white = white.(*wgpuTexture)
	b.white.owner = nil

	return b, nil
}

func (b *wgpuRendererBackendImpl) ClipSpace() common.ClipSpace {
	return common.ClipSpaceZeroToOne
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	if len(capabilities.Formats) == 0 || len(capabilities.AlphaModes) == 0 {
		return errNoSurfaceFormat
	}
	format := capabilities.Formats[0]

	att, err := b.createAttachments(format, uint32(width), uint32(height))
	if err != nil {
		return err
	}

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	b.surfaceFormat = &format

	b.releaseAttachments()
	b.msaaTexture, b.msaaTextureView = att.msaaTexture, att.msaaView
	b.depthTexture, b.depthTextureView = att.depthTexture, att.depthView

	storeOp := wgpu.StoreOpStore
	if b.msaaTextureView != nil {
		storeOp = wgpu.StoreOpDiscard // Don't store MSAA data, just resolve
	}
	b.renderPassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    b.msaaTextureView, // nil when MSAA is off; set in BeginFrame
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: storeOp,
				ClearValue: wgpu.Color{
					R: b.clearColor[0], G: b.clearColor[1], B: b.clearColor[2], A: b.clearColor[3],
				},
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depthTextureView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	}
	return nil
}

// attachments are the size-dependent render targets recreated on every resize.
type attachments struct {
	msaaTexture  *wgpu.Texture
	msaaView     *wgpu.TextureView
	depthTexture *wgpu.Texture
	depthView    *wgpu.TextureView
}

func (a *attachments) release() {
	if a.msaaView != nil {
		a.msaaView.Release()
	}
	if a.msaaTexture != nil {
		a.msaaTexture.Release()
	}
	if a.depthView != nil {
		a.depthView.Release()
	}
	if a.depthTexture != nil {
		a.depthTexture.Release()
	}
}

// createAttachments builds the MSAA color target (when multisampling) and the depth target.
// Nothing is kept on failure.
func (b *wgpuRendererBackendImpl) createAttachments(format wgpu.TextureFormat, width, height uint32) (*attachments, error) {
	att := &attachments{}
	count := uint32(b.sampleCount)
	size := wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1}

	var err error
	if count > 1 {
		// The render pass draws into the MSAA texture; the swapchain view is the resolve target.
		att.msaaTexture, err = b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label:         "MSAA Texture",
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   count,
			Dimension:     wgpu.TextureDimension2D,
			Format:        format,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create MSAA texture: %w", err)
		}
		if att.msaaView, err = att.msaaTexture.CreateView(nil); err != nil {
			att.release()
			return nil, fmt.Errorf("failed to create MSAA view: %w", err)
		}
	}

	// Depth texture sample count must match the color attachment.
	att.depthTexture, err = b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Depth Texture",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   count,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		att.release()
		return nil, fmt.Errorf("failed to create depth texture: %w", err)
	}
	if att.depthView, err = att.depthTexture.CreateView(nil); err != nil {
		att.release()
		return nil, fmt.Errorf("failed to create depth view: %w", err)
	}
	return att, nil
}

func (b *wgpuRendererBackendImpl) releaseAttachments() {
	if b.msaaTextureView != nil {
		b.msaaTextureView.Release()
		b.msaaTexture.Release()
		b.msaaTextureView, b.msaaTexture = nil, nil
	}
	if b.depthTextureView != nil {
		b.depthTextureView.Release()
		b.depthTexture.Release()
		b.depthTextureView, b.depthTexture = nil, nil
	}
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuRendererBackendImpl) CreateBuffer(kind BufferKind, label string, data []byte) (Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	usage := wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst
	if kind == BufferKindIndex {
		usage = wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst
	}
	// Zero-sized buffers are invalid; keep one word so empty primitives still get a handle.
	size := uint64(max(len(data), 4))

	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := b.queue.WriteBuffer(buf, 0, data); err != nil {
			buf.Release()
			return nil, err
		}
	}
	return &wgpuBuffer{buf: buf, kind: kind, size: len(data), label: label}, nil
}

func (b *wgpuRendererBackendImpl) CreateVertexArray(label string, vertices, indices Buffer, indexCount int, layout common.VertexLayout) (VertexArray, error) {
	vb, ok := vertices.(*wgpuBuffer)
	if !ok {
		return nil, errForeignResource
	}
	ib, ok := indices.(*wgpuBuffer)
	if !ok {
		return nil, errForeignResource
	}
	// The layout is baked into the pipeline; a mismatching stride would read garbage.
	if layout.Stride != common.VertexSize {
		return nil, fmt.Errorf("unsupported vertex stride %d", layout.Stride)
	}
	return &wgpuVertexArray{vertices: vb, indices: ib, indexCount: indexCount, label: label}, nil
}

// mipChain returns RGBA pixels for every mip level of img, level 0 first.
func mipChain(img *image.RGBA) []*image.RGBA {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	levels := bits.Len(uint(max(w, h)))
	chain := make([]*image.RGBA, 0, levels)
	chain = append(chain, img)
	for level := 1; level < levels; level++ {
		chain = append(chain, transform.Resize(img, max(1, w>>level), max(1, h>>level), transform.Linear))
	}
	return chain
}

func (b *wgpuRendererBackendImpl) CreateTexture(label string, format TextureFormat, staging common.TextureStagingData) (Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// WebGPU has no 3-byte texel format.
	pixels := staging.Pixels
	if format == TextureFormatRGB8 {
		pixels = common.ExpandAlpha(pixels)
	}
	base := &image.RGBA{
		Pix:    pixels,
		Stride: int(staging.Width) * 4,
		Rect:   image.Rect(0, 0, int(staging.Width), int(staging.Height)),
	}
	chain := mipChain(base)

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label,
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              staging.Width,
			Height:             staging.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8Unorm,
		MipLevelCount: uint32(len(chain)),
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}

	for level, img := range chain {
		w, h := uint32(img.Rect.Dx()), uint32(img.Rect.Dy())
		b.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  tex,
				MipLevel: uint32(level),
				Origin:   wgpu.Origin3D{},
				Aspect:   wgpu.TextureAspectAll,
			},
			img.Pix,
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  uint32(img.Stride),
				RowsPerImage: h,
			},
			&wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		)
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	return &wgpuTexture{
		owner:  b,
		tex:    tex,
		view:   view,
		width:  staging.Width,
		height: staging.Height,
		format: format,
		label:  label,
	}, nil
}

func (b *wgpuRendererBackendImpl) CreateShader(src ShaderSource) (Shader, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	vs, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          src.Label + " Vertex",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: src.Vertex},
	})
	if err != nil {
		return nil, fmt.Errorf("vertex stage: %w", err)
	}
	defer vs.Release()
	fs, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          src.Label + " Fragment",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: src.Fragment},
	})
	if err != nil {
		return nil, fmt.Errorf("fragment stage: %w", err)
	}
	defer fs.Release()

	s := &wgpuShader{
		owner:    b,
		src:      src,
		label:    src.Label,
		material: make([]byte, max(src.Material.Size, minUniformBytes)),
		groups:   make(map[materialKey]bind_group_provider.BindGroupProvider),
	}
	ok := false
	defer func() {
		if !ok {
			s.releasePartial()
		}
	}()

	stages := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
	globalsEntry := wgpu.BindGroupLayoutEntry{Binding: uniformBinding, Visibility: stages}
	globalsEntry.Buffer.Type = wgpu.BufferBindingTypeUniform
	s.globalsLayout, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   src.Label + " Globals Layout",
		Entries: []wgpu.BindGroupLayoutEntry{globalsEntry},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bind group layout for group %d: %w", globalsGroup, err)
	}

	uniformEntry := wgpu.BindGroupLayoutEntry{Binding: uniformBinding, Visibility: stages}
	uniformEntry.Buffer.Type = wgpu.BufferBindingTypeUniform
	textureEntry := wgpu.BindGroupLayoutEntry{Binding: textureBinding, Visibility: wgpu.ShaderStageFragment}
	textureEntry.Texture.SampleType = wgpu.TextureSampleTypeFloat
	textureEntry.Texture.ViewDimension = wgpu.TextureViewDimension2D
	samplerEntry := wgpu.BindGroupLayoutEntry{Binding: samplerBinding, Visibility: wgpu.ShaderStageFragment}
	samplerEntry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	s.materialLayout, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   src.Label + " Material Layout",
		Entries: []wgpu.BindGroupLayoutEntry{uniformEntry, textureEntry, samplerEntry},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bind group layout for group %d: %w", materialGroup, err)
	}

	s.pipelineLayout, err = b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            src.Label,
		BindGroupLayouts: []*wgpu.BindGroupLayout{s.globalsLayout, s.materialLayout},
	})
	if err != nil {
		return nil, err
	}

	layout := src.vertexLayout()
	attrs := make([]wgpu.VertexAttribute, 0, len(layout.Attributes))
	for _, attr := range layout.Attributes {
		format := wgpu.VertexFormatFloat32x3
		if attr.Components == 2 {
			format = wgpu.VertexFormatFloat32x2
		}
		attrs = append(attrs, wgpu.VertexAttribute{
			Format:         format,
			Offset:         uint64(attr.Offset),
			ShaderLocation: attr.Slot,
		})
	}

	s.pipeline, err = b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  src.Label + " Render Pipeline",
		Layout: s.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: wgslVertexEntry,
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: uint64(layout.Stride),
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes:  attrs,
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: wgslFragmentEntry,
			Targets: []wgpu.ColorTargetState{{
				Format:    *b.surfaceFormat,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(b.sampleCount),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		},
	})
	if err != nil {
		return nil, err
	}

	globalsSize := max(src.Globals.Size, minUniformBytes)
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: src.Label + " Globals",
		Size:  globalsSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	s.globals = bind_group_provider.NewBindGroupProvider(src.Label+" Globals",
		bind_group_provider.WithBuffer(uniformBinding, buf, globalsSize))
	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  src.Label + " Globals Bind Group",
		Layout: s.globalsLayout,
		Entries: []wgpu.BindGroupEntry{{
			Binding: uniformBinding,
			Buffer:  buf,
			Size:    wgpu.WholeSize,
		}},
	})
	if err != nil {
		return nil, err
	}
	s.globals.SetBindGroup(bg)

	ok = true
	b.shaders[s] = struct{}{}
	return s, nil
}

// releasePartial frees whatever a failed CreateShader managed to allocate.
func (s *wgpuShader) releasePartial() {
	if s.globals != nil {
		s.globals.Release()
	}
	if s.pipeline != nil {
		s.pipeline.Release()
	}
	if s.pipelineLayout != nil {
		s.pipelineLayout.Release()
	}
	if s.materialLayout != nil {
		s.materialLayout.Release()
	}
	if s.globalsLayout != nil {
		s.globalsLayout.Release()
	}
	s.pipeline = nil
}

func (b *wgpuRendererBackendImpl) forgetShader(s *wgpuShader) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.shaders, s)
	if b.current == s {
		b.current = nil
	}
}

// forgetTexture drops every material bind group that samples t.
func (b *wgpuRendererBackendImpl) forgetTexture(t *wgpuTexture) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.shaders {
		for key, group := range s.groups {
			if key.texture == t {
				group.Release()
				delete(s.groups, key)
			}
		}
	}
	for unit, bound := range b.textures {
		if bound == t {
			delete(b.textures, unit)
		}
	}
}

// encodeUniform converts a uniform value to its std140-compatible byte layout.
func encodeUniform(value any) ([]byte, error) {
	switch v := value.(type) {
	case bool:
		var u uint32
		if v {
			u = 1
		}
		return binary.LittleEndian.AppendUint32(nil, u), nil
	case int32:
		return binary.LittleEndian.AppendUint32(nil, uint32(v)), nil
	case float32:
		return binary.LittleEndian.AppendUint32(nil, math.Float32bits(v)), nil
	case [3]float32:
		return append([]byte(nil), common.SliceToBytes(v[:])...), nil
	case [16]float32:
		return append([]byte(nil), common.SliceToBytes(v[:])...), nil
	default:
		return nil, fmt.Errorf("unsupported uniform type %T", value)
	}
}

func (b *wgpuRendererBackendImpl) UseShader(shader Shader) error {
	s, ok := shader.(*wgpuShader)
	if !ok {
		return errForeignResource
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = s
	return nil
}

func (b *wgpuRendererBackendImpl) SetUniform(shader Shader, name string, value any) error {
	s, ok := shader.(*wgpuShader)
	if !ok {
		return errForeignResource
	}
	if name == s.src.TextureUniform {
		// Sampling always reads texture unit 0 through the material group.
		return nil
	}
	data, err := encodeUniform(value)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if offset, ok := s.src.Globals.Offsets[name]; ok {
		if !s.globals.Stage(uniformBinding, offset, data) {
			return fmt.Errorf("uniform %q does not fit the globals block", name)
		}
		return nil
	}
	if offset, ok := s.src.Material.Offsets[name]; ok {
		if offset+uint64(len(data)) > uint64(len(s.material)) {
			return fmt.Errorf("uniform %q does not fit the material block", name)
		}
		copy(s.material[offset:], data)
	}
	return nil
}

func (b *wgpuRendererBackendImpl) BindTexture(unit int, tex Texture) error {
	t, ok := tex.(*wgpuTexture)
	if !ok {
		return errForeignResource
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.textures[unit] = t
	return nil
}

func (b *wgpuRendererBackendImpl) BindVertexArray(va VertexArray) error {
	v, ok := va.(*wgpuVertexArray)
	if !ok {
		return errForeignResource
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bound = v
	return nil
}

// materialBindGroup returns the cached group for the shader's pending material block and
// the texture on unit 0, creating it on first use.
func (b *wgpuRendererBackendImpl) materialBindGroup(s *wgpuShader) (bind_group_provider.BindGroupProvider, error) {
	tex := b.textures[0]
	if tex == nil || tex.tex == nil {
		tex = b.white
	}
	key := materialKey{texture: tex, block: string(s.material)}
	if group, ok := s.groups[key]; ok {
		return group, nil
	}

	size := uint64(len(s.material))
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: s.label + " Material",
		Size:  size,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	group := bind_group_provider.NewBindGroupProvider(s.label+" Material "+tex.label,
		bind_group_provider.WithBuffer(uniformBinding, buf, size),
		bind_group_provider.WithTextureView(textureBinding, tex.view),
		bind_group_provider.WithSampler(samplerBinding, b.sampler),
	)
	group.Stage(uniformBinding, 0, s.material)
	if err := b.upload(group.Flush()); err != nil {
		group.Release()
		return nil, err
	}

	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  group.Label(),
		Layout: s.materialLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: uniformBinding, Buffer: buf, Size: wgpu.WholeSize},
			{Binding: textureBinding, TextureView: group.TextureView(textureBinding)},
			{Binding: samplerBinding, Sampler: group.Sampler(samplerBinding)},
		},
	})
	if err != nil {
		group.Release()
		return nil, err
	}
	group.SetBindGroup(bg)
	s.groups[key] = group
	return group, nil
}

func (b *wgpuRendererBackendImpl) upload(pending []bind_group_provider.PendingUpload) error {
	for _, u := range pending {
		if u.Buffer == nil {
			continue
		}
		if err := b.queue.WriteBuffer(u.Buffer, 0, u.Data); err != nil {
			return fmt.Errorf("write uniform binding %d: %w", u.Binding, err)
		}
	}
	return nil
}

func (b *wgpuRendererBackendImpl) DrawIndexed(indexCount int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return errFrameNotStarted
	}
	if b.current == nil {
		return errNoShaderInUse
	}
	if b.bound == nil || b.bound.vertices == nil {
		return errNoVertexArray
	}
	if indexCount > b.bound.indexCount {
		return fmt.Errorf("%w: %d > %d", errIndexCountTooHigh, indexCount, b.bound.indexCount)
	}

	s := b.current
	material, err := b.materialBindGroup(s)
	if err != nil {
		return common.NewResourceError("create material bind group", err)
	}
	if err := b.upload(s.globals.Flush()); err != nil {
		return common.NewResourceError("upload globals", err)
	}

	if b.passPipeline != s.pipeline {
		b.framePass.SetPipeline(s.pipeline)
		b.passPipeline = s.pipeline
	}
	b.framePass.SetBindGroup(globalsGroup, s.globals.BindGroup(), nil)
	b.framePass.SetBindGroup(materialGroup, material.BindGroup(), nil)
	b.framePass.SetVertexBuffer(0, b.bound.vertices.buf, 0, wgpu.WholeSize)
	b.framePass.SetIndexBuffer(b.bound.indices.buf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	b.framePass.DrawIndexed(uint32(indexCount), 1, 0, 0, 0)
	return nil
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface != nil {
		return fmt.Errorf("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	if b.sampleCount > 1 {
		b.renderPassDescriptor.ColorAttachments[0].ResolveTarget = view
	} else {
		b.renderPassDescriptor.ColorAttachments[0].View = view
	}

	b.frameEncoder = encoder
	b.framePass = encoder.BeginRenderPass(b.renderPassDescriptor)
	b.frameSurface = surfaceTexture
	b.frameView = view
	b.passPipeline = nil

	return nil
}

func (b *wgpuRendererBackendImpl) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return errFrameNotStarted
	}
	b.framePass.End()
	b.framePass.Release()
	b.framePass = nil

	commandBuffer, err := b.frameEncoder.Finish(nil)
	b.frameEncoder.Release()
	b.frameEncoder = nil
	if err != nil {
		b.releaseFrame()
		return err
	}

	b.queue.Submit(commandBuffer)
	commandBuffer.Release()

	b.surface.Present()
	b.releaseFrame()
	return nil
}

func (b *wgpuRendererBackendImpl) releaseFrame() {
	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
}

func (b *wgpuRendererBackendImpl) Release() {
	for s := range b.shaders {
		s.owner = nil
		s.Release()
	}
	b.shaders = make(map[*wgpuShader]struct{})
	b.current = nil
	b.bound = nil
	b.textures = make(map[int]*wgpuTexture)

	b.white.Release()
	b.sampler.Release()
	b.releaseAttachments()
	b.surface.Release()
	b.queue.Release()
	b.device.Release()
	b.adapter.Release()
	b.instance.Release()
}
