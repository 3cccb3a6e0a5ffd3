// Package camera provides the perspective look-at camera of the viewer.
package camera

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/latent-explorer/pkg/math"
)

// Camera looks from Position at Target. Zooming moves Position along the
// view direction.
type Camera struct {
	Position math.Vec3
	Target   math.Vec3
	Up       math.Vec3

	FovY   float32 // radians
	Aspect float32
	Near   float32
	Far    float32

	MinDistance     float32
	MaxDistance     float32
	ZoomSensitivity float32
}

// New creates a camera at (0, 0, 2) looking at the origin with a 45° field of view.
func New() *Camera {
	return &Camera{
		Position:        math.V3(0, 0, 2),
		Up:              math.V3(0, 1, 0),
		FovY:            45 * math32.Pi / 180,
		Aspect:          1,
		Near:            0.1,
		Far:             100,
		MinDistance:     0.6,
		MaxDistance:     20,
		ZoomSensitivity: 0.1,
	}
}

// ViewMatrix returns the look-at matrix.
func (c *Camera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position, c.Target, c.Up)
}

// ProjectionMatrix returns the perspective matrix.
func (c *Camera) ProjectionMatrix() math.Mat4 {
	return math.Perspective(c.FovY, c.Aspect, c.Near, c.Far)
}

// SetViewport updates the aspect ratio.
func (c *Camera) SetViewport(width, height int) {
	if width > 0 && height > 0 {
		c.Aspect = float32(width) / float32(height)
	}
}

// Distance returns the distance from the camera to its target.
func (c *Camera) Distance() float32 {
	return c.Position.Distance(c.Target)
}

// HandleZoom updates distance based on scroll wheel delta. Positive deltas move closer.
func (c *Camera) HandleZoom(delta float32) {
	offset := c.Position.Sub(c.Target)
	dist := offset.Length()
	if dist == 0 {
		return
	}

	dist -= delta * dist * c.ZoomSensitivity
	if c.MinDistance > 0 && dist < c.MinDistance {
		dist = c.MinDistance
	}
	if c.MaxDistance > 0 && dist > c.MaxDistance {
		dist = c.MaxDistance
	}
	c.Position = c.Target.Add(offset.Normalize().Scale(dist))
}
