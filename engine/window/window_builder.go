package window

// WindowBuilderOption configures a window before it opens.
type WindowBuilderOption func(w *nativeWindow)

// WithTitle sets the initial title bar text.
//
// Parameters:
//   - title: the title
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTitle(title string) WindowBuilderOption {
	return func(w *nativeWindow) {
		w.title = title
	}
}

// WithSize sets the requested window size in screen coordinates. Non-positive values keep the default.
//
// Parameters:
//   - width: requested width
//   - height: requested height
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSize(width, height int) WindowBuilderOption {
	return func(w *nativeWindow) {
		if width > 0 {
			w.width = width
		}
		if height > 0 {
			w.height = height
		}
	}
}

// WithClientAPI picks the context type. ClientAPIGL for the OpenGL backend, ClientAPINone otherwise.
func WithClientAPI(api ClientAPI) WindowBuilderOption {
	return func(w *nativeWindow) {
		w.api = api
	}
}
