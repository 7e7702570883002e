package camera

import (
	"sync"

	"github.com/chewxy/math32"
)

// Elevation limits keep the eye off the poles, where the look-at basis degenerates.
var (
	minElevation float32 = -math32.Pi/2 + 0.05
	maxElevation float32 = math32.Pi/2 - 0.05
)

// CameraController owns the eye position and target of a Camera.
// Position is stored as spherical coordinates around the target so dragging orbits.
type CameraController interface {
	// Position returns the world-space eye position.
	Position() [3]float32

	// Target returns the world-space point the eye looks at.
	Target() [3]float32

	// SetPosition moves the eye, keeping the target.
	//
	// Parameters:
	//   - pos: the new eye position
	SetPosition(pos [3]float32)

	// SetTarget moves the target, keeping the eye's offset from it.
	//
	// Parameters:
	//   - target: the new target
	SetTarget(target [3]float32)

	// Orbit rotates the eye around the target.
	//
	// Parameters:
	//   - dAzimuth: radians around the world Y axis
	//   - dElevation: radians toward the pole, clamped short of it
	Orbit(dAzimuth, dElevation float32)

	// Radius returns the eye's distance from the target.
	Radius() float32
}

type orbitController struct {
	mu *sync.Mutex

	target    [3]float32
	radius    float32
	azimuth   float32 // around Y, 0 looks down -Z
	elevation float32 // above the XZ plane
}

var _ CameraController = &orbitController{}

// NewOrbitController creates a controller with the eye at position looking at target.
//
// Parameters:
//   - position: the eye position
//   - target: the look-at point
//
// Returns:
//   - CameraController: the controller
func NewOrbitController(position, target [3]float32) CameraController {
	cc := &orbitController{mu: &sync.Mutex{}, target: target}
	cc.setPosition(position)
	return cc
}

// setPosition converts position to spherical coordinates. Caller must hold the mutex
// or own cc exclusively.
func (cc *orbitController) setPosition(pos [3]float32) {
	dx := pos[0] - cc.target[0]
	dy := pos[1] - cc.target[1]
	dz := pos[2] - cc.target[2]
	cc.radius = math32.Sqrt(dx*dx + dy*dy + dz*dz)
	if cc.radius < 1e-6 {
		cc.radius, cc.azimuth, cc.elevation = 1e-6, 0, 0
		return
	}
	cc.azimuth = math32.Atan2(dx, dz)
	cc.elevation = math32.Asin(dy / cc.radius)
}

// position recomputes the eye from spherical coordinates. Caller must hold the mutex.
func (cc *orbitController) position() [3]float32 {
	cosElev, sinElev := math32.Cos(cc.elevation), math32.Sin(cc.elevation)
	cosAzim, sinAzim := math32.Cos(cc.azimuth), math32.Sin(cc.azimuth)
	return [3]float32{
		cc.target[0] + cc.radius*cosElev*sinAzim,
		cc.target[1] + cc.radius*sinElev,
		cc.target[2] + cc.radius*cosElev*cosAzim,
	}
}

func (cc *orbitController) Position() [3]float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position()
}

func (cc *orbitController) Target() [3]float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target
}

func (cc *orbitController) SetPosition(pos [3]float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.setPosition(pos)
}

func (cc *orbitController) SetTarget(target [3]float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.target = target
}

func (cc *orbitController) Orbit(dAzimuth, dElevation float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuth += dAzimuth
	cc.elevation = math32.Max(minElevation, math32.Min(maxElevation, cc.elevation+dElevation))
}

func (cc *orbitController) Radius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.radius
}
