package bind_group_provider

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string

	// bindGroup is the GPU bind group created for this provider, or nil until the backend builds it.
	bindGroup *wgpu.BindGroup

	// buffers holds the uniform buffers owned by this provider, keyed by binding index.
	buffers map[int]*wgpu.Buffer
	// shadows holds a CPU copy of each uniform buffer, written by Stage and uploaded by Flush.
	shadows map[int][]byte
	// dirty marks bindings whose shadow changed since the last Flush.
	dirty map[int]bool

	// textureViews and samplers are borrowed from their textures and are not released here.
	textureViews map[int]*wgpu.TextureView
	samplers     map[int]*wgpu.Sampler
}

// BindGroupProvider holds one WebGPU bind group together with the uniform buffers it owns
// and the texture views and samplers it references.
//
// Usage pattern:
//  1. The backend creates a provider and attaches buffers, texture views and samplers
//  2. The backend creates the bind group and stores it with SetBindGroup
//  3. Uniform setters call Stage to update the CPU shadow of a buffer
//  4. Before a draw, the backend uploads Flush() through the queue
//  5. The draw sets BindGroup() on the render pass
type BindGroupProvider interface {
	// Release releases the bind group and every buffer owned by this provider.
	// Texture views and samplers are borrowed and stay alive.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// BindGroup returns the created bind group, or nil if it has not been built yet.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup() *wgpu.BindGroup

	// SetBindGroup stores the created bind group. The provider takes ownership.
	//
	// Parameters:
	//   - bg: the created bind group
	SetBindGroup(bg *wgpu.BindGroup)

	// Buffer returns the uniform buffer at a binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// SetBuffer stores a uniform buffer of the given size. The provider takes ownership
	// and allocates a zeroed CPU shadow of the same size.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the created buffer
	//   - size: the buffer size in bytes
	SetBuffer(binding int, buf *wgpu.Buffer, size uint64)

	// TextureView returns the texture view at a binding, or nil if not set.
	TextureView(binding int) *wgpu.TextureView

	// SetTextureView stores a borrowed texture view for a binding.
	SetTextureView(binding int, tv *wgpu.TextureView)

	// Sampler returns the sampler at a binding, or nil if not set.
	Sampler(binding int) *wgpu.Sampler

	// SetSampler stores a borrowed sampler for a binding.
	SetSampler(binding int, s *wgpu.Sampler)

	// Stage copies data into the CPU shadow of the buffer at binding, starting at offset.
	// Writes that would run past the end of the buffer are dropped.
	//
	// Parameters:
	//   - binding: the binding index
	//   - offset: byte offset into the buffer
	//   - data: the bytes to write
	//
	// Returns:
	//   - bool: false if the binding has no buffer or the write does not fit
	Stage(binding int, offset uint64, data []byte) bool

	// Flush returns one whole-buffer write per binding staged since the last Flush, and
	// clears the dirty marks.
	//
	// Returns:
	//   - []PendingUpload: the pending uploads
	Flush() []PendingUpload
}

// PendingUpload is a snapshot of one uniform buffer's shadow, ready for queue.WriteBuffer.
type PendingUpload struct {
	Binding int
	Buffer  *wgpu.Buffer
	Data    []byte
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided options.
//
// Parameters:
//   - label: debug label used for GPU object names
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:        label,
		buffers:      make(map[int]*wgpu.Buffer),
		shadows:      make(map[int][]byte),
		dirty:        make(map[int]bool),
		textureViews: make(map[int]*wgpu.TextureView),
		samplers:     make(map[int]*wgpu.Sampler),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	p.bindGroup = bg
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer, size uint64) {
	p.buffers[binding] = buf
	p.shadows[binding] = make([]byte, size)
	p.dirty[binding] = false
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	return p.textureViews[binding]
}

func (p *bindGroupProvider) SetTextureView(binding int, tv *wgpu.TextureView) {
	p.textureViews[binding] = tv
}

func (p *bindGroupProvider) Sampler(binding int) *wgpu.Sampler {
	return p.samplers[binding]
}

func (p *bindGroupProvider) SetSampler(binding int, s *wgpu.Sampler) {
	p.samplers[binding] = s
}

func (p *bindGroupProvider) Stage(binding int, offset uint64, data []byte) bool {
	shadow, ok := p.shadows[binding]
	if !ok || offset+uint64(len(data)) > uint64(len(shadow)) {
		return false
	}
	copy(shadow[offset:], data)
	p.dirty[binding] = true
	return true
}

func (p *bindGroupProvider) Flush() []PendingUpload {
	var uploads []PendingUpload
	for binding, dirty := range p.dirty {
		if !dirty {
			continue
		}
		uploads = append(uploads, PendingUpload{
			Binding: binding,
			Buffer:  p.buffers[binding],
			Data:    append([]byte(nil), p.shadows[binding]...),
		})
		p.dirty[binding] = false
	}
	return uploads
}

func (p *bindGroupProvider) Release() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	for i, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, i)
		delete(p.shadows, i)
		delete(p.dirty, i)
	}
	for i := range p.textureViews {
		delete(p.textureViews, i)
	}
	for i := range p.samplers {
		delete(p.samplers, i)
	}
}
