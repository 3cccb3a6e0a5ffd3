// Package arcball turns pointer drags on a 2D viewport into 3D rotations.
//
// A drag lifts its start and current pointer positions onto a virtual
// surface (see Projection), and the rotation between the two lifted vectors
// becomes the incremental rotation. Releasing the pointer folds the
// increment into the accumulated base rotation, so successive drags compose.
package arcball

import (
	"errors"

	"github.com/chewxy/math32"

	"github.com/Faultbox/latent-explorer/pkg/math"
)

// ErrInvalidViewport is returned for viewports that would give a degenerate radius.
var ErrInvalidViewport = errors.New("invalid arcball viewport")

// degenerateDelta is the minimum |C - S| that produces a rotation.
const degenerateDelta = 1e-6

// Config selects the projection variant and the angle scaling.
type Config struct {
	Projection Projection

	// AngleScale multiplies every drag angle. 1 maps the angle between the
	// lifted vectors directly onto the object.
	AngleScale float32
}

// DefaultConfig returns the virtual-sphere projection with unscaled angles.
func DefaultConfig() Config {
	return Config{
		Projection: ProjectionSphere,
		AngleScale: 1,
	}
}

// Controller holds the state of one arcball, typically one per viewport.
type Controller struct {
	cfg     Config
	surface surface

	dragging bool
	start    math.Vec3
	current  math.Vec3

	base  math.Quat // committed rotation
	delta math.Quat // rotation of the drag in progress
}

// New creates a controller for a width x height viewport.
func New(width, height int, cfg Config) (*Controller, error) {
	if cfg.AngleScale == 0 {
		cfg.AngleScale = 1
	}
	s, err := newSurface(cfg.Projection, width, height)
	if err != nil {
		return nil, err
	}
	return &Controller{
		cfg:     cfg,
		surface: s,
		base:    math.QuatIdentity(),
		delta:   math.QuatIdentity(),
	}, nil
}

// SetViewport updates the viewport size, keeping the accumulated rotation.
func (c *Controller) SetViewport(width, height int) error {
	s, err := newSurface(c.cfg.Projection, width, height)
	if err != nil {
		return err
	}
	c.surface = s
	return nil
}

// Config returns the controller configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// Radius returns the projection radius (pixels for the sphere variant).
func (c *Controller) Radius() float32 {
	return c.surface.radius
}

// Dragging reports whether a drag is in progress.
func (c *Controller) Dragging() bool {
	return c.dragging
}

// BeginDrag starts a drag at screen position (x, y).
func (c *Controller) BeginDrag(x, y float32) {
	c.start = c.surface.project(x, y)
	c.current = c.start
	c.delta = math.QuatIdentity()
	c.dragging = true
}

// UpdateDrag moves the current drag point. It does not change the rotation
// until ComputeRotation runs.
func (c *Controller) UpdateDrag(x, y float32) {
	if !c.dragging {
		return
	}
	c.current = c.surface.project(x, y)
}

// ComputeRotation recomputes and returns the incremental rotation of the
// drag in progress. It returns the identity when not dragging or when the
// pointer has not moved far enough to define an axis.
func (c *Controller) ComputeRotation() math.Quat {
	if !c.dragging {
		return math.QuatIdentity()
	}
	c.delta = rotationBetween(c.current, c.start, c.cfg.AngleScale)
	return c.delta
}

// EndDrag commits the drag into the base rotation as delta * base.
func (c *Controller) EndDrag() {
	if !c.dragging {
		return
	}
	c.ComputeRotation()
	c.base = c.delta.Mul(c.base).Normalize()
	c.delta = math.QuatIdentity()
	c.dragging = false
}

// Rotation returns the combined rotation delta * base.
func (c *Controller) Rotation() math.Quat {
	return c.delta.Mul(c.base)
}

// CurrentTransform returns Rotation as a 4x4 matrix.
func (c *Controller) CurrentTransform() math.Mat4 {
	return c.Rotation().ToMat4()
}

// Reset drops any drag in progress and the accumulated rotation.
func (c *Controller) Reset() {
	c.dragging = false
	c.base = math.QuatIdentity()
	c.delta = math.QuatIdentity()
}

// rotationBetween returns the rotation about normalize(cross(cur, start)) by
// acos(dot(cur, start)) * scale.
func rotationBetween(cur, start math.Vec3, scale float32) math.Quat {
	if cur.Sub(start).Length() < degenerateDelta {
		return math.QuatIdentity()
	}
	axis := cur.Cross(start)
	if axis.Length() < degenerateDelta {
		// Antipodal vectors have no defined axis.
		return math.QuatIdentity()
	}

	dot := math.Clamp(cur.Dot(start), -1, 1)
	angle := math32.Acos(dot) * scale
	return math.QuatFromAxisAngle(axis.Normalize(), angle)
}
