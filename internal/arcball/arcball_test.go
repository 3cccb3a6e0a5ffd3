package arcball

import (
	"errors"
	gomath "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/latent-explorer/pkg/math"
)

func newSphere(t *testing.T) *Controller {
	t.Helper()
	c, err := New(512, 512, DefaultConfig())
	require.NoError(t, err)
	return c
}

func drag(c *Controller, x0, y0, x1, y1 float32) math.Quat {
	c.BeginDrag(x0, y0)
	c.UpdateDrag(x1, y1)
	return c.ComputeRotation()
}

func TestNewInvalidViewport(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		projection    Projection
	}{
		{"zero width", 0, 512, ProjectionSphere},
		{"zero height", 512, 0, ProjectionSphere},
		{"negative", -10, 10, ProjectionSphere},
		{"zero radius", 1, 1, ProjectionSphere},
		{"hyperbolic single pixel", 1, 100, ProjectionHyperbolic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.width, tt.height, Config{Projection: tt.projection})
			if !errors.Is(err, ErrInvalidViewport) {
				t.Errorf("New(%d, %d) error = %v, want ErrInvalidViewport", tt.width, tt.height, err)
			}
		})
	}
}

func TestRadius(t *testing.T) {
	c, err := New(640, 481, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, float32(240), c.Radius())

	h, err := New(640, 480, Config{Projection: ProjectionHyperbolic})
	require.NoError(t, err)
	assert.Equal(t, float32(HyperbolicRadius), h.Radius())
}

func TestIdenticalDragIsIdentity(t *testing.T) {
	for _, p := range []Projection{ProjectionSphere, ProjectionHyperbolic} {
		c, err := New(512, 512, Config{Projection: p})
		require.NoError(t, err)

		for _, pos := range [][2]float32{{256, 256}, {10, 500}, {0, 0}, {400, 120}} {
			q := drag(c, pos[0], pos[1], pos[0], pos[1])
			assert.Equal(t, math.QuatIdentity(), q, "%s drag at %v", p, pos)
			c.EndDrag()
		}
		assert.True(t, c.CurrentTransform().ApproxEqual(math.Identity(), 1e-6))
	}
}

func TestProjectionNeverNaN(t *testing.T) {
	for _, p := range []Projection{ProjectionSphere, ProjectionHyperbolic} {
		s, err := newSurface(p, 300, 200)
		require.NoError(t, err)

		for y := float32(-20); y <= 220; y += 7 {
			for x := float32(-20); x <= 320; x += 7 {
				v := s.project(x, y)
				if v.IsNaN() {
					t.Fatalf("%s projection of (%v, %v) is NaN", p, x, y)
				}
				assert.InDelta(t, 1, v.Length(), 1e-5)
			}
		}
	}
}

func TestSphereLiftInsideAndOutside(t *testing.T) {
	s, err := newSurface(ProjectionSphere, 512, 512)
	require.NoError(t, err)

	for _, p := range []math.Vec2{{X: 0, Y: 0}, {X: 100, Y: -50}, {X: 0, Y: 256}, {X: 181, Y: 181}} {
		v := s.lift(p)
		assert.LessOrEqual(t, v.Length(), s.radius+1e-3, "inside point %v", p)
		assert.GreaterOrEqual(t, v.Z, float32(0))
	}

	// Outside the circle the vector stays in the equatorial plane.
	for _, p := range []math.Vec2{{X: 300, Y: 0}, {X: 200, Y: 200}, {X: -256, Y: -256}} {
		v := s.lift(p)
		assert.Equal(t, float32(0), v.Z, "outside point %v", p)
		assert.Equal(t, p.X, v.X)
		assert.Equal(t, p.Y, v.Y)
	}
}

func TestHyperbolicLiftContinuousAtBoundary(t *testing.T) {
	s, err := newSurface(ProjectionHyperbolic, 512, 512)
	require.NoError(t, err)

	edge := float32(HyperbolicRadius / gomath.Sqrt2)
	inside := s.lift(math.Vec2{X: edge - 1e-4})
	outside := s.lift(math.Vec2{X: edge + 1e-4})

	assert.InDelta(t, inside.Z, outside.Z, 1e-3)
	assert.InDelta(t, edge, inside.Z, 1e-3)

	far := s.lift(math.Vec2{X: 10})
	assert.InDelta(t, HyperbolicRadius*HyperbolicRadius/2/10, far.Z, 1e-6)
}

func TestDragRightRotatesAboutVertical(t *testing.T) {
	c := newSphere(t)

	q := drag(c, 256, 256, 356, 256)
	axis, angle := q.AxisAngle()

	assert.InDelta(t, 1, gomath.Abs(float64(axis.Y)), 1e-4, "axis %v", axis)
	assert.Greater(t, angle, float32(0))

	// start is (0,0,1); current is (100, 0, sqrt(256²-100²)) / 256
	want := gomath.Acos(gomath.Sqrt(256*256-100*100) / 256)
	assert.InDelta(t, want, angle, 1e-4)
}

func TestDragDownRotatesAboutHorizontal(t *testing.T) {
	c := newSphere(t)
	axis, angle := drag(c, 256, 256, 256, 356).AxisAngle()

	assert.InDelta(t, 1, axis.X, 1e-4, "axis %v", axis)
	assert.Greater(t, angle, float32(0))
}

func TestHyperbolicInvertsY(t *testing.T) {
	c, err := New(512, 512, Config{Projection: ProjectionHyperbolic})
	require.NoError(t, err)

	axis, angle := drag(c, 256, 256, 256, 356).AxisAngle()
	assert.Less(t, axis.X, float32(-0.95), "axis %v", axis)
	assert.Greater(t, angle, float32(0))
}

func TestRotationIsNotCommittedUntilComputed(t *testing.T) {
	c := newSphere(t)
	c.BeginDrag(256, 256)
	c.UpdateDrag(356, 256)

	assert.True(t, c.CurrentTransform().ApproxEqual(math.Identity(), 1e-6))

	c.ComputeRotation()
	assert.False(t, c.CurrentTransform().ApproxEqual(math.Identity(), 1e-3))
}

func TestDragsAccumulate(t *testing.T) {
	single := newSphere(t)
	drag(single, 256, 256, 356, 256)
	single.EndDrag()
	_, one := single.Rotation().AxisAngle()

	double := newSphere(t)
	for i := 0; i < 2; i++ {
		drag(double, 256, 256, 356, 256)
		double.EndDrag()
	}
	axis, two := double.Rotation().AxisAngle()

	assert.InDelta(t, 2*one, two, 1e-4)
	assert.InDelta(t, 1, gomath.Abs(float64(axis.Y)), 1e-4)
	assert.False(t, double.Dragging())
}

func TestEndDragCommitsLatestMotion(t *testing.T) {
	c := newSphere(t)
	c.BeginDrag(256, 256)
	c.UpdateDrag(356, 256)
	c.EndDrag()

	_, angle := c.Rotation().AxisAngle()
	assert.Greater(t, angle, float32(0.3))

	// A new drag starts from the committed base.
	c.BeginDrag(100, 100)
	_, still := c.Rotation().AxisAngle()
	assert.InDelta(t, angle, still, 1e-5)
}

func TestComposeOrderIsDeltaTimesBase(t *testing.T) {
	c := newSphere(t)
	base := drag(c, 256, 256, 356, 256)
	c.EndDrag()

	delta := drag(c, 256, 256, 256, 356)
	want := delta.Mul(base).ToMat4()

	assert.True(t, c.CurrentTransform().ApproxEqual(want, 1e-5))
}

func TestAngleScale(t *testing.T) {
	plain := newSphere(t)
	_, a := drag(plain, 256, 256, 300, 256).AxisAngle()

	scaled, err := New(512, 512, Config{Projection: ProjectionSphere, AngleScale: 2})
	require.NoError(t, err)
	_, b := drag(scaled, 256, 256, 300, 256).AxisAngle()

	assert.InDelta(t, 2*a, b, 1e-4)
}

func TestOperationsWithoutDragAreNoOps(t *testing.T) {
	c := newSphere(t)

	c.UpdateDrag(400, 400)
	assert.Equal(t, math.QuatIdentity(), c.ComputeRotation())
	c.EndDrag()

	assert.False(t, c.Dragging())
	assert.True(t, c.CurrentTransform().ApproxEqual(math.Identity(), 1e-6))
}

func TestSetViewportKeepsRotation(t *testing.T) {
	c := newSphere(t)
	drag(c, 256, 256, 356, 256)
	c.EndDrag()
	before := c.CurrentTransform()

	require.NoError(t, c.SetViewport(1024, 768))
	assert.Equal(t, float32(384), c.Radius())
	assert.Equal(t, before, c.CurrentTransform())

	assert.ErrorIs(t, c.SetViewport(0, 768), ErrInvalidViewport)
	assert.Equal(t, float32(384), c.Radius())
}

func TestReset(t *testing.T) {
	c := newSphere(t)
	drag(c, 256, 256, 356, 256)
	c.EndDrag()
	c.Reset()

	assert.Equal(t, math.Identity(), c.CurrentTransform())
}

func TestParseProjection(t *testing.T) {
	p, err := ParseProjection("hyperbolic")
	require.NoError(t, err)
	assert.Equal(t, ProjectionHyperbolic, p)
	assert.Equal(t, "sphere", ProjectionSphere.String())

	_, err = ParseProjection("torus")
	assert.Error(t, err)
}
