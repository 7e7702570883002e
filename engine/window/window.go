package window

import (
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
)

// Events is the set of input and surface notifications a Window delivers. Nil fields are skipped.
type Events struct {
	// Resize receives the new framebuffer size in pixels.
	Resize func(width, height int)

	// Scroll receives the vertical wheel delta. Positive is away from the user.
	Scroll func(delta float32)

	// Key receives a GLFW key code and whether it went down (press or repeat) or up.
	Key func(keyCode uint32, down bool)

	// MiddleButton receives the cursor position when the middle button changes state.
	MiddleButton func(x, y int32, down bool)

	// CursorMove receives every cursor position inside the window.
	CursorMove func(x, y int32)
}

// Window is a native window that owns the presentation surface for one renderer backend.
// Every method must be called from the goroutine that created it.
type Window interface {
	// Listen replaces the event handlers.
	//
	// Parameters:
	//   - events: handlers to install
	Listen(events Events)

	// Run polls events and calls frame once per iteration until the window closes.
	//
	// Parameters:
	//   - frame: per-iteration callback, may be nil
	Run(frame func())

	// Size returns the framebuffer size in pixels, which differs from the window size on high-DPI displays.
	Size() (width, height int)

	// SetTitle replaces the title bar text.
	SetTitle(title string)

	// SurfaceDescriptor returns the platform surface descriptor the WebGPU backend creates its surface from,
	// or nil once the window is closed.
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// MakeContextCurrent binds the OpenGL context to the calling thread. No-op without a GL context.
	MakeContextCurrent()

	// SwapBuffers presents the OpenGL back buffer. No-op without a GL context.
	SwapBuffers()

	// SetSwapInterval sets the number of vertical blanks SwapBuffers waits for. 0 disables vsync.
	SetSwapInterval(interval int)

	IsRunning() bool

	// Close destroys the native window. Closing twice returns an error.
	Close() error
}

// ClientAPI selects the graphics context created alongside the window.
type ClientAPI int

const (
	// ClientAPINone creates no context. Used by the WebGPU backend.
	ClientAPINone ClientAPI = iota

	// ClientAPIGL creates an OpenGL 4.1 core-profile context with a 24-bit depth buffer.
	ClientAPIGL
)

func (a ClientAPI) String() string {
	if a == ClientAPIGL {
		return "opengl"
	}
	return "none"
}

type nativeWindow struct {
	title         string
	width, height int
	api           ClientAPI

	events Events
	handle *glfwHandle
}

var _ Window = &nativeWindow{}

// NewWindow opens a native window. The calling goroutine is locked to its OS thread and must
// drive Run.
//
// Parameters:
//   - options: title, size and client API overrides
//
// Returns:
//   - Window: the open window
//   - error: when the platform layer fails to initialize or create the window
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &nativeWindow{
		title:  "oxy-viewer",
		width:  1280,
		height: 720,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *nativeWindow) Listen(events Events) {
	w.events = events
}

func (w *nativeWindow) Run(frame func()) {
	for w.poll() {
		if frame != nil {
			frame()
		}
		runtime.Gosched()
	}
}

func (w *nativeWindow) Size() (int, int) {
	return w.width, w.height
}

// resized records the framebuffer size and forwards it.
func (w *nativeWindow) resized(width, height int) {
	w.width, w.height = width, height
	if w.events.Resize != nil {
		w.events.Resize(width, height)
	}
}
