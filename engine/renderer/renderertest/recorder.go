// Package renderertest provides a recording renderer backend for tests that need a
// Renderer without a GPU.
package renderertest

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/Carmen-Shannon/oxy-viewer/engine/renderer"
)

// Operation names recorded by the Recorder.
const (
	OpConfigureSurface  = "ConfigureSurface"
	OpCreateBuffer      = "CreateBuffer"
	OpCreateVertexArray = "CreateVertexArray"
	OpCreateTexture     = "CreateTexture"
	OpCreateShader      = "CreateShader"
	OpUseShader         = "UseShader"
	OpSetUniform        = "SetUniform"
	OpBindTexture       = "BindTexture"
	OpBindVertexArray   = "BindVertexArray"
	OpDrawIndexed       = "DrawIndexed"
	OpBeginFrame        = "BeginFrame"
	OpEndFrame          = "EndFrame"
	OpRelease           = "Release"
)

// ErrInjected is returned by an operation armed with FailOn.
var ErrInjected = errors.New("injected failure")

// Call is one recorded backend call. Only the fields relevant to Op are set.
type Call struct {
	Op    string
	Label string
	Unit  int
	Name  string
	Value any
	Count int
}

func (c Call) String() string {
	switch c.Op {
	case OpSetUniform:
		return fmt.Sprintf("%s(%s=%v)", c.Op, c.Name, c.Value)
	case OpBindTexture:
		return fmt.Sprintf("%s(%d, %s)", c.Op, c.Unit, c.Label)
	case OpDrawIndexed:
		return fmt.Sprintf("%s(%d)", c.Op, c.Count)
	default:
		return fmt.Sprintf("%s(%s)", c.Op, c.Label)
	}
}

// Handle is the resource type the Recorder hands out. It satisfies every renderer
// resource interface.
type Handle struct {
	rec *Recorder

	label      string
	kind       renderer.BufferKind
	size       int
	indexCount int
	width      uint32
	height     uint32
	format     renderer.TextureFormat

	// Releases counts Release calls, including repeated ones.
	Releases int
}

var (
	_ renderer.Buffer      = &Handle{}
	_ renderer.VertexArray = &Handle{}
	_ renderer.Texture     = &Handle{}
	_ renderer.Shader      = &Handle{}
)

func (h *Handle) Label() string                  { return h.label }
func (h *Handle) Kind() renderer.BufferKind      { return h.kind }
func (h *Handle) Size() int                      { return h.size }
func (h *Handle) IndexCount() int                { return h.indexCount }
func (h *Handle) Width() uint32                  { return h.width }
func (h *Handle) Height() uint32                 { return h.height }
func (h *Handle) Format() renderer.TextureFormat { return h.format }

// Release records the call and drops the handle from the live set.
func (h *Handle) Release() {
	h.rec.mu.Lock()
	defer h.rec.mu.Unlock()
	h.Releases++
	delete(h.rec.live, h)
	h.rec.calls = append(h.rec.calls, Call{Op: OpRelease, Label: h.label})
}

// Recorder is a renderer.RendererBackend that records every call and allocates
// nothing. Wrap it with renderer.NewRendererWithBackend.
type Recorder struct {
	mu *sync.Mutex

	calls   []Call
	live    map[*Handle]struct{}
	handles []*Handle
	counts  map[string]int
	failOn  map[string]int
	clip    common.ClipSpace

	width, height int
}

var _ renderer.RendererBackend = &Recorder{}

// NewRecorder returns an empty Recorder reporting a GL clip space.
func NewRecorder() *Recorder {
	return &Recorder{
		mu:     &sync.Mutex{},
		live:   make(map[*Handle]struct{}),
		counts: make(map[string]int),
		failOn: make(map[string]int),
		clip:   common.ClipSpaceGL,
	}
}

// FailOn arms op to return ErrInjected on its nth call (1-based), counted from now.
//
// Parameters:
//   - op: one of the Op constants
//   - nth: which upcoming call fails
func (r *Recorder) FailOn(op string, nth int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failOn[op] = r.counts[op] + nth
}

// Calls returns a copy of every recorded call in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// Filter returns the recorded calls whose Op is one of ops.
func (r *Recorder) Filter(ops ...string) []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Call
	for _, c := range r.calls {
		if slices.Contains(ops, c.Op) {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets recorded calls but keeps live handles.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// Live returns the number of handles created and not yet released.
func (r *Recorder) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// Handles returns every handle ever created, in creation order.
func (r *Recorder) Handles() []*Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.handles)
}

// Size returns the last surface size ConfigureSurface accepted.
func (r *Recorder) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

// record appends c and reports whether the call was armed to fail. Callers hold r.mu.
func (r *Recorder) record(c Call) error {
	r.calls = append(r.calls, c)
	r.counts[c.Op]++
	if n, ok := r.failOn[c.Op]; ok && n == r.counts[c.Op] {
		delete(r.failOn, c.Op)
		return fmt.Errorf("%s %q: %w", c.Op, c.Label, ErrInjected)
	}
	return nil
}

func (r *Recorder) newHandle(h *Handle) *Handle {
	h.rec = r
	r.live[h] = struct{}{}
	r.handles = append(r.handles, h)
	return h
}

func (r *Recorder) ConfigureSurface(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(Call{Op: OpConfigureSurface, Count: width * height}); err != nil {
		return err
	}
	r.width, r.height = width, height
	return nil
}

func (r *Recorder) SetPresentMode(renderer.PresentMode) {}

func (r *Recorder) ClipSpace() common.ClipSpace {
	return r.clip
}

func (r *Recorder) CreateBuffer(kind renderer.BufferKind, label string, data []byte) (renderer.Buffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(Call{Op: OpCreateBuffer, Label: label, Count: len(data)}); err != nil {
		return nil, err
	}
	return r.newHandle(&Handle{label: label, kind: kind, size: len(data)}), nil
}

func (r *Recorder) CreateVertexArray(label string, vertices, indices renderer.Buffer, indexCount int, layout common.VertexLayout) (renderer.VertexArray, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(Call{Op: OpCreateVertexArray, Label: label, Count: indexCount, Value: layout}); err != nil {
		return nil, err
	}
	return r.newHandle(&Handle{label: label, indexCount: indexCount}), nil
}

func (r *Recorder) CreateTexture(label string, format renderer.TextureFormat, staging common.TextureStagingData) (renderer.Texture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(Call{Op: OpCreateTexture, Label: label, Value: format}); err != nil {
		return nil, err
	}
	return r.newHandle(&Handle{label: label, width: staging.Width, height: staging.Height, format: format}), nil
}

func (r *Recorder) CreateShader(src renderer.ShaderSource) (renderer.Shader, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(Call{Op: OpCreateShader, Label: src.Label}); err != nil {
		return nil, err
	}
	return r.newHandle(&Handle{label: src.Label}), nil
}

func (r *Recorder) UseShader(shader renderer.Shader) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.record(Call{Op: OpUseShader, Label: shader.Label()})
}

func (r *Recorder) SetUniform(shader renderer.Shader, name string, value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.record(Call{Op: OpSetUniform, Label: shader.Label(), Name: name, Value: value})
}

func (r *Recorder) BindTexture(unit int, tex renderer.Texture) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.record(Call{Op: OpBindTexture, Label: tex.Label(), Unit: unit})
}

func (r *Recorder) BindVertexArray(va renderer.VertexArray) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.record(Call{Op: OpBindVertexArray, Label: va.Label()})
}

func (r *Recorder) DrawIndexed(indexCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.record(Call{Op: OpDrawIndexed, Count: indexCount})
}

func (r *Recorder) BeginFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.record(Call{Op: OpBeginFrame})
}

func (r *Recorder) EndFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.record(Call{Op: OpEndFrame})
}

func (r *Recorder) Release() {}
