package common

// Virtual key codes used by the viewer's key bindings.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyN   = 78  // N key (ASCII): next scene
	KeyP   = 80  // P key (ASCII): previous scene
	KeyR   = 82  // R key (ASCII): reload current mesh
	KeyF   = 70  // F key (ASCII): toggle profiler output
	KeyEsc = 256 // Escape key (GLFW)
)
