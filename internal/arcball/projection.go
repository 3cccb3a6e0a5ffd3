package arcball

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/Faultbox/latent-explorer/pkg/math"
)

// Projection selects how a 2D pointer position is lifted onto a 3D surface.
type Projection int

const (
	// ProjectionSphere is the Euclidean virtual sphere. Coordinates are pixels
	// relative to the viewport center and the radius is half the smaller
	// viewport dimension. Points outside the radius land on the z=0 plane.
	ProjectionSphere Projection = iota

	// ProjectionHyperbolic is Shoemake's sphere/hyperbolic-sheet hybrid on
	// coordinates remapped to roughly [-1, 1]. The y axis is inverted.
	ProjectionHyperbolic
)

// HyperbolicRadius is the fixed sphere radius of the hyperbolic variant.
const HyperbolicRadius = 0.8

var projectionNames = map[Projection]string{
	ProjectionSphere:     "sphere",
	ProjectionHyperbolic: "hyperbolic",
}

func (p Projection) String() string {
	if name, ok := projectionNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Projection(%d)", int(p))
}

// ParseProjection maps a config name to a Projection.
func ParseProjection(name string) (Projection, error) {
	for p, n := range projectionNames {
		if n == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown arcball projection %q", name)
}

// surface holds the per-viewport constants of a projection.
type surface struct {
	projection Projection
	width      float32
	height     float32
	radius     float32 // sphere: pixels; hyperbolic: HyperbolicRadius
	res        float32 // hyperbolic remap divisor
}

func newSurface(p Projection, width, height int) (surface, error) {
	if width <= 0 || height <= 0 {
		return surface{}, fmt.Errorf("%w: %dx%d", ErrInvalidViewport, width, height)
	}

	s := surface{
		projection: p,
		width:      float32(width),
		height:     float32(height),
	}
	minDim := min(width, height)

	switch p {
	case ProjectionSphere:
		s.radius = math32.Floor(float32(minDim) / 2)
	case ProjectionHyperbolic:
		s.radius = HyperbolicRadius
		s.res = float32(minDim - 1)
		if s.res <= 0 {
			return surface{}, fmt.Errorf("%w: %dx%d too small for hyperbolic projection", ErrInvalidViewport, width, height)
		}
	default:
		return surface{}, fmt.Errorf("unknown arcball projection %d", int(p))
	}

	if s.radius <= 0 {
		return surface{}, fmt.Errorf("%w: %dx%d gives zero radius", ErrInvalidViewport, width, height)
	}
	return s, nil
}

// remap converts screen pixels into the projection's planar coordinates.
func (s surface) remap(px, py float32) math.Vec2 {
	if s.projection == ProjectionHyperbolic {
		return math.Vec2{
			X: (2*px - s.width - 1) / s.res,
			Y: (2*py - s.height - 1) / s.res,
		}
	}
	return math.Vec2{X: px - s.width/2, Y: py - s.height/2}
}

// lift projects planar coordinates onto the 3D surface without normalizing.
func (s surface) lift(p math.Vec2) math.Vec3 {
	d := p.LengthSq()
	r2 := s.radius * s.radius

	if s.projection == ProjectionHyperbolic {
		var z float32
		if d <= r2/2 {
			z = math32.Sqrt(r2 - d)
		} else {
			z = (r2 / 2) / math32.Sqrt(d)
		}
		return math.Vec3{X: p.X, Y: -p.Y, Z: z}
	}

	if d > r2 {
		return math.Vec3{X: p.X, Y: p.Y, Z: 0}
	}
	return math.Vec3{X: p.X, Y: p.Y, Z: math32.Sqrt(r2 - d)}
}

// project maps a screen position to the unit vector used by the rotation.
func (s surface) project(px, py float32) math.Vec3 {
	return s.lift(s.remap(px, py)).Normalize()
}
