package camera

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCamera_Defaults(t *testing.T) {
	c := NewCamera()
	assert.Equal(t, float32(45), c.Fov())
	pos := c.Position()
	assert.InDeltaSlice(t, []float32{0, 0, 3}, pos[:], 1e-5)

	// Looking down -Z from +Z: the origin lands 3 units in front of the eye.
	view := c.ViewMatrix()
	assert.InDelta(t, -3, view[14], 1e-5)
}

func TestCamera_FovClamped(t *testing.T) {
	c := NewCamera(WithFov(120))
	assert.Equal(t, MaxFov, c.Fov())

	c.SetFov(1)
	assert.Equal(t, MinFov, c.Fov())

	c.SetFov(45)
	c.Zoom(5)
	assert.Equal(t, float32(40), c.Fov())
	c.Zoom(-100)
	assert.Equal(t, MaxFov, c.Fov())
}

func TestCamera_ClipSpaceChangesDepthTerms(t *testing.T) {
	c := NewCamera(WithClipPlanes(1, 10))
	gl := c.ProjectionMatrix()

	c.SetClipSpace(common.ClipSpaceZeroToOne)
	wgpu := c.ProjectionMatrix()

	assert.Equal(t, gl[0], wgpu[0])
	assert.NotEqual(t, gl[10], wgpu[10])
	assert.InDelta(t, float32(10)/(1-10), wgpu[10], 1e-6)
	assert.InDelta(t, float32(11)/(1-10), gl[10], 1e-6)
}

func TestCamera_AspectIgnoresDegenerate(t *testing.T) {
	c := NewCamera()
	c.SetAspect(2)
	c.SetAspect(0)
	assert.Equal(t, float32(2), c.Aspect())
}

func TestOrbitController_RoundTrip(t *testing.T) {
	cc := NewOrbitController([3]float32{3, 3, 3}, [3]float32{0, 0, 0})
	pos := cc.Position()
	assert.InDeltaSlice(t, []float32{3, 3, 3}, pos[:], 1e-5)
	assert.InDelta(t, 5.196152, cc.Radius(), 1e-5)

	cc.SetTarget([3]float32{1, 0, 0})
	pos = cc.Position()
	assert.InDeltaSlice(t, []float32{4, 3, 3}, pos[:], 1e-5)
}

func TestOrbitController_OrbitKeepsRadius(t *testing.T) {
	cc := NewOrbitController([3]float32{0, 0, 2}, [3]float32{0, 0, 0})
	cc.Orbit(1.2, 10)

	p := cc.Position()
	require.InDelta(t, 2, cc.Radius(), 1e-6)
	assert.InDelta(t, 4, p[0]*p[0]+p[1]*p[1]+p[2]*p[2], 1e-4)
	assert.Less(t, p[1], float32(2), "elevation stops short of the pole")
}
