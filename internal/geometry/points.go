package geometry

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"

	"github.com/Faultbox/latent-explorer/internal/engine/picking"
	"github.com/Faultbox/latent-explorer/pkg/math"
)

var (
	ErrInvalidComponents = errors.New("picking IDs need 1 to 4 components")
	ErrTooManyVertices   = errors.New("too many vertices for picking ID channels")
)

// NormalizeToUnitSphere scales the whole set by one factor so that the
// longest position vector has length 1. Relative distances are preserved.
// A set of zero-length vectors is left untouched.
func (n *Node) NormalizeToUnitSphere() {
	var maxSq float32
	for i := 0; i < len(n.positions); i += 3 {
		x, y, z := n.positions[i], n.positions[i+1], n.positions[i+2]
		if l := x*x + y*y + z*z; l > maxSq {
			maxSq = l
		}
	}
	if maxSq == 0 {
		return
	}
	maxLen := math32.Sqrt(maxSq)
	if maxLen == 1 {
		return
	}

	s := 1 / maxLen
	for i := range n.positions {
		n.positions[i] *= s
	}
	n.scale *= s
	n.shift = n.shift.Scale(s)
	n.touchPositions()
}

// NormalizeEach rescales every vertex independently to unit length,
// projecting the set onto the unit sphere. Zero vectors stay at the origin.
// Unlike NormalizeToUnitSphere this discards relative distances, so the
// source mapping is lost.
func (n *Node) NormalizeEach() {
	for i := 0; i < len(n.positions); i += 3 {
		v := math.V3(n.positions[i], n.positions[i+1], n.positions[i+2]).Normalize()
		n.positions[i], n.positions[i+1], n.positions[i+2] = v.X, v.Y, v.Z
	}
	n.scale = 0
	n.shift = math.Vec3{}
	n.touchPositions()
}

// Centroid returns the arithmetic mean of all positions. The result is
// cached until the positions change.
func (n *Node) Centroid() math.Vec3 {
	if n.centroidValid {
		return n.centroid
	}
	count := n.VertexCount()
	if count == 0 {
		return math.Vec3{}
	}

	var sx, sy, sz float64
	for i := 0; i < len(n.positions); i += 3 {
		sx += float64(n.positions[i])
		sy += float64(n.positions[i+1])
		sz += float64(n.positions[i+2])
	}
	c := float64(count)
	n.centroid = math.V3(float32(sx/c), float32(sy/c), float32(sz/c))
	n.centroidValid = true
	return n.centroid
}

// CenterOnCentroid subtracts the centroid from every position and returns
// the offset it removed. Calling it again on an unchanged set removes a
// vanishing offset.
func (n *Node) CenterOnCentroid() math.Vec3 {
	c := n.Centroid()
	if c == (math.Vec3{}) {
		return c
	}
	for i := 0; i < len(n.positions); i += 3 {
		n.positions[i] -= c.X
		n.positions[i+1] -= c.Y
		n.positions[i+2] -= c.Z
	}
	n.shift = n.shift.Sub(c)
	n.touchPositions()

	n.centroid = math.Vec3{}
	n.centroidValid = true
	return c
}

// ToSource maps a point in the node's current coordinates back to the
// coordinates the positions were supplied in, undoing every uniform rescale
// and recentering. ok is false after NormalizeEach.
func (n *Node) ToSource(p math.Vec3) (math.Vec3, bool) {
	if n.scale == 0 {
		return math.Vec3{}, false
	}
	return p.Sub(n.shift).Scale(1 / n.scale), true
}

// FromSource maps a point in source coordinates into the node's current ones.
func (n *Node) FromSource(p math.Vec3) math.Vec3 {
	return p.Scale(n.scale).Add(n.shift)
}

// BuildPickingIDs assigns each vertex the encoded color of index+1 spread
// over components channels, each channel holding byte/255.
func (n *Node) BuildPickingIDs(components int) error {
	if components < 1 || components > 4 {
		return fmt.Errorf("%d: %w", components, ErrInvalidComponents)
	}
	count := n.VertexCount()
	if count > picking.ChannelCapacity(components) {
		return fmt.Errorf("%d vertices in %d channels: %w", count, components, ErrTooManyVertices)
	}

	ids := make([]float32, count*components)
	for i := 0; i < count; i++ {
		b := picking.EncodeID(i)
		for c := 0; c < components; c++ {
			ids[i*components+c] = float32(b[c]) / 255
		}
	}

	n.ids = ids
	n.idComps = components
	n.dirty[AttribID] = true
	return nil
}

// IDComponents returns the channel count of the picking IDs, 0 if none were built.
func (n *Node) IDComponents() int { return n.idComps }
