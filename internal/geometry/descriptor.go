package geometry

import (
	"fmt"
	"math/rand/v2"

	"github.com/chewxy/math32"
)

// Mesh is the raw vertex data produced by a Descriptor.
type Mesh struct {
	Positions []float32
	Colors    []float32
	Indices   []uint16
}

// Descriptor is a shape: how to generate its vertices and how they are laid
// out on the GPU. Shapes differ only in data, so there is no per-shape type.
type Descriptor struct {
	Name     string
	Mode     DrawMode
	Layout   Layout
	Generate func() (Mesh, error)
}

// LatentPointsDescriptor builds a pickable point cloud from flat xyz
// positions and per-point class labels.
func LatentPointsDescriptor(positions []float32, labels []int, palette []Color, idComponents int) Descriptor {
	return Descriptor{
		Name:   "latent_points",
		Mode:   ModePoints,
		Layout: PickableLayout(idComponents),
		Generate: func() (Mesh, error) {
			if len(positions)%3 != 0 {
				return Mesh{}, ErrMalformedPositions
			}
			if len(labels) != len(positions)/3 {
				return Mesh{}, fmt.Errorf("%d labels for %d points: %w", len(labels), len(positions)/3, ErrLengthMismatch)
			}
			p := make([]float32, len(positions))
			copy(p, positions)
			return Mesh{Positions: p, Colors: LabelColors(labels, palette)}, nil
		},
	}
}

var cubeCorners = []float32{
	-1, 1, 1,
	1, 1, 1,
	1, -1, 1,
	-1, -1, 1,
	-1, -1, -1,
	-1, 1, -1,
	1, 1, -1,
	1, -1, -1,
}

var cubeEdges = []uint16{
	0, 1, 1, 2, 2, 3, 3, 0,
	0, 5, 1, 6, 2, 7, 3, 4,
	5, 6, 6, 7, 7, 4, 4, 5,
}

// CubeDescriptor is the wireframe of a cube whose corners lie on the unit sphere.
func CubeDescriptor() Descriptor {
	return Descriptor{
		Name:   "cube",
		Mode:   ModeLines,
		Layout: PositionLayout(),
		Generate: func() (Mesh, error) {
			p := make([]float32, len(cubeCorners))
			s := 1 / math32.Sqrt(3)
			for i, v := range cubeCorners {
				p[i] = v * s
			}
			idx := make([]uint16, len(cubeEdges))
			copy(idx, cubeEdges)
			return Mesh{Positions: p, Indices: idx}, nil
		},
	}
}

// PolylineDescriptor is an open line strip through the given points.
func PolylineDescriptor(name string, positions []float32, c Color) Descriptor {
	return Descriptor{
		Name: name,
		Mode: ModeLineStrip,
		Layout: Layout{
			{Attribute: AttribPosition, Components: 3, Location: LocationPosition},
			{Attribute: AttribColor, Components: 3, Location: LocationColor},
		},
		Generate: func() (Mesh, error) {
			if len(positions)%3 != 0 {
				return Mesh{}, ErrMalformedPositions
			}
			p := make([]float32, len(positions))
			copy(p, positions)
			return Mesh{Positions: p, Colors: Fill(len(p)/3, c)}, nil
		},
	}
}

// RandomSphereDescriptor scatters n points on the unit sphere.
func RandomSphereDescriptor(n int, rng *rand.Rand) Descriptor {
	return Descriptor{
		Name:   "random_sphere",
		Mode:   ModePoints,
		Layout: PositionLayout(),
		Generate: func() (Mesh, error) {
			p := make([]float32, 0, n*3)
			for i := 0; i < n; i++ {
				u := rng.Float32() * 2 * math32.Pi
				v := rng.Float32() * 2 * math32.Pi
				su, cu := math32.Sin(u), math32.Cos(u)
				sv, cv := math32.Sin(v), math32.Cos(v)
				p = append(p, su*cv, su*sv, cu)
			}
			return Mesh{Positions: p}, nil
		},
	}
}
