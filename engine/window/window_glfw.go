package window

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

var errWindowClosed = errors.New("window already closed")

type glfwHandle struct {
	win *glfw.Window
}

// open initializes GLFW, creates the native window and routes its callbacks into w.events.
//
// Reference: https://www.glfw.org/docs/latest/window_guide.html
func (w *nativeWindow) open() error {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	glfw.DefaultWindowHints()
	if w.api == ClientAPIGL {
		glfw.WindowHint(glfw.ClientAPI, glfw.OpenGLAPI)
		glfw.WindowHint(glfw.ContextVersionMajor, 4)
		glfw.WindowHint(glfw.ContextVersionMinor, 1)
		glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
		glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
		glfw.WindowHint(glfw.DepthBits, 24)
	} else {
		glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	}

	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("failed to create %s window: %w", w.api, err)
	}
	w.handle = &glfwHandle{win: win}

	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if w.events.Key != nil {
			w.events.Key(uint32(key), action != glfw.Release)
		}
	})
	win.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		if w.events.Scroll != nil {
			w.events.Scroll(float32(yoff))
		}
	})
	win.SetMouseButtonCallback(func(gw *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		if button != glfw.MouseButtonMiddle || w.events.MiddleButton == nil {
			return
		}
		x, y := gw.GetCursorPos()
		w.events.MiddleButton(int32(x), int32(y), action == glfw.Press)
	})
	win.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		if w.events.CursorMove != nil {
			w.events.CursorMove(int32(x), int32(y))
		}
	})
	// Framebuffer size, not window size: surfaces are configured in pixels.
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.resized(width, height)
	})

	w.width, w.height = win.GetFramebufferSize()
	return nil
}

// poll processes pending events and reports whether the window is still open.
func (w *nativeWindow) poll() bool {
	if w.handle == nil {
		return false
	}
	glfw.PollEvents()
	return w.IsRunning()
}

func (w *nativeWindow) IsRunning() bool {
	return w.handle != nil && !w.handle.win.ShouldClose()
}

func (w *nativeWindow) SetTitle(title string) {
	w.title = title
	if w.handle != nil {
		w.handle.win.SetTitle(title)
	}
}

// Reference: https://pkg.go.dev/github.com/cogentcore/webgpu/wgpuglfw#GetSurfaceDescriptor
func (w *nativeWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	if w.handle == nil {
		return nil
	}
	return wgpuglfw.GetSurfaceDescriptor(w.handle.win)
}

func (w *nativeWindow) hasGLContext() bool {
	return w.handle != nil && w.api == ClientAPIGL
}

func (w *nativeWindow) MakeContextCurrent() {
	if w.hasGLContext() {
		w.handle.win.MakeContextCurrent()
	}
}

func (w *nativeWindow) SwapBuffers() {
	if w.hasGLContext() {
		w.handle.win.SwapBuffers()
	}
}

// SetSwapInterval applies to whichever context is current on this thread.
func (w *nativeWindow) SetSwapInterval(interval int) {
	if w.hasGLContext() {
		glfw.SwapInterval(interval)
	}
}

func (w *nativeWindow) Close() error {
	if w.handle == nil {
		return errWindowClosed
	}
	w.handle.win.SetShouldClose(true)
	w.handle.win.Destroy()
	w.handle = nil
	glfw.Terminate()
	return nil
}
