package camera

import "github.com/Carmen-Shannon/oxy-viewer/common"

// CameraBuilderOption configures a camera in NewCamera.
type CameraBuilderOption func(*cameraImpl)

// WithFov sets the starting vertical field of view in degrees. NewCamera clamps it to [MinFov, MaxFov].
//
// Parameters:
//   - fov: degrees
//
// Returns:
//   - CameraBuilderOption: option function to apply
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov = fov
	}
}

// WithClipPlanes overrides the default 0.1 / 100 depth range.
func WithClipPlanes(near, far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near, c.far = near, far
	}
}

// WithClipSpace picks the projection depth convention. The engine overrides it with the renderer's.
func WithClipSpace(clip common.ClipSpace) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.clip = clip
	}
}

// WithController replaces the default orbit controller, which looks at the origin from (0, 0, 3).
//
// Parameters:
//   - ctrl: the controller that owns eye position and target
//
// Returns:
//   - CameraBuilderOption: option function to apply
func WithController(ctrl CameraController) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.controller = ctrl
	}
}
