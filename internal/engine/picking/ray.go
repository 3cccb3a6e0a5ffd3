package picking

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/latent-explorer/pkg/math"
)

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    math.Vec3
	Direction math.Vec3 // Normalized direction
}

// ScreenToRay converts screen coordinates to a world-space ray.
// screenX, screenY are pixel coordinates, viewportW/H are viewport dimensions.
// invViewProj is the inverse of the view-projection matrix.
func ScreenToRay(screenX, screenY, viewportW, viewportH float32, invViewProj math.Mat4) Ray {
	// Convert screen coords to normalized device coords (-1 to 1)
	ndcX := 2*screenX/viewportW - 1
	ndcY := 1 - 2*screenY/viewportH // Flip Y

	near := invViewProj.TransformPoint(math.V3(ndcX, ndcY, -1))
	far := invViewProj.TransformPoint(math.V3(ndcX, ndcY, 1))

	return Ray{Origin: near, Direction: far.Sub(near).Normalize()}
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) math.Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}

// IntersectSphere intersects the ray with a sphere and returns the nearest
// hit in front of the origin. A ray starting inside the sphere hits its far side.
func (r Ray) IntersectSphere(center math.Vec3, radius float32) (math.Vec3, bool) {
	// |O + tD - C|² = r², with |D| = 1
	oc := r.Origin.Sub(center)
	b := oc.Dot(r.Direction)
	c := oc.LengthSq() - radius*radius
	disc := b*b - c
	if disc < 0 {
		return math.Vec3{}, false
	}

	sq := math32.Sqrt(disc)
	t := -b - sq
	if t < 0 {
		t = -b + sq
	}
	if t < 0 {
		return math.Vec3{}, false
	}
	return r.At(t), true
}
