package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-viewer/common"
)

// Field of view bounds in degrees; SetFov and Zoom clamp to them.
const (
	MinFov float32 = 10
	MaxFov float32 = 90
)

type cameraImpl struct {
	mu *sync.Mutex

	up [3]float32

	fov    float32 // degrees
	aspect float32
	near   float32
	far    float32
	clip   common.ClipSpace

	viewMatrix       [16]float32
	projectionMatrix [16]float32

	controller CameraController
}

// Camera defines the interface for the camera system.
// The camera holds perspective settings and computes view/projection matrices
// from its CameraController each frame via Update().
type Camera interface {
	// Position returns the world-space eye position.
	Position() [3]float32

	// Fov returns the vertical field of view in degrees.
	//
	// Returns:
	//   - float32: field of view in degrees
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	Aspect() float32

	// Near returns the near clipping plane distance.
	Near() float32

	// Far returns the far clipping plane distance.
	Far() float32

	// ClipSpace returns the depth range the projection matrix targets.
	ClipSpace() common.ClipSpace

	// ViewMatrix returns the current 4x4 view matrix as 16 floats (column-major).
	//
	// Returns:
	//   - [16]float32: the view matrix
	ViewMatrix() [16]float32

	// ProjectionMatrix returns the current 4x4 projection matrix as 16 floats (column-major).
	//
	// Returns:
	//   - [16]float32: the projection matrix
	ProjectionMatrix() [16]float32

	// Controller returns the orbit controller that owns position and target.
	Controller() CameraController

	// Update reads position and target from the controller and recomputes matrices.
	// Should be called once per frame.
	Update()

	// SetFov sets the field of view in degrees, clamped to [MinFov, MaxFov].
	//
	// Parameters:
	//   - fov: field of view in degrees
	SetFov(fov float32)

	// Zoom narrows (positive delta) or widens the field of view by delta degrees.
	//
	// Parameters:
	//   - delta: the scroll amount in degrees
	Zoom(delta float32)

	// SetAspect sets the aspect ratio (width / height) and recomputes matrices.
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// SetClipSpace selects the depth range for the projection matrix.
	//
	// Parameters:
	//   - clip: common.ClipSpaceGL for OpenGL, common.ClipSpaceZeroToOne for WebGPU
	SetClipSpace(clip common.ClipSpace)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera with default perspective settings: 45° fov, looking at the
// origin from (0, 0, 3).
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:     &sync.Mutex{},
		up:     [3]float32{0, 1, 0},
		fov:    45.0,
		aspect: 1.0,
		near:   0.1,
		far:    100.0,
		clip:   common.ClipSpaceGL,
	}
	for _, option := range options {
		option(c)
	}
	if c.controller == nil {
		c.controller = NewOrbitController([3]float32{0, 0, 3}, [3]float32{0, 0, 0})
	}
	c.fov = common.Clamp(c.fov, MinFov, MaxFov)
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Position() [3]float32 {
	return c.controller.Position()
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) ClipSpace() common.ClipSpace {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clip
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) Controller() CameraController {
	return c.controller
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = common.Clamp(fov, MinFov, MaxFov)
	c.updateMatrices()
}

func (c *cameraImpl) Zoom(delta float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = common.Clamp(c.fov-delta, MinFov, MaxFov)
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	if aspect <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) SetClipSpace(clip common.ClipSpace) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clip = clip
	c.updateMatrices()
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
}

// updateMatrices recalculates the view and projection matrices.
// Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	common.LookAt(c.viewMatrix[:], c.controller.Position(), c.controller.Target(), c.up)
	common.Perspective(c.projectionMatrix[:],
		common.DegToRad(c.fov), c.aspect, c.near, c.far, c.clip,
	)
}
