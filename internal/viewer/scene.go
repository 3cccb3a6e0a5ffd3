package viewer

import (
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/Faultbox/latent-explorer/internal/config"
	"github.com/Faultbox/latent-explorer/internal/dataset"
	"github.com/Faultbox/latent-explorer/internal/geometry"
	"github.com/Faultbox/latent-explorer/internal/logger"
	"github.com/Faultbox/latent-explorer/pkg/math"
)

// Scene owns the nodes of the viewer: the latent point cloud, the bounding
// cube and the stroke drawn by the user.
type Scene struct {
	cfg  config.PointsConfig
	rend NodeRenderer

	data   *dataset.Dataset
	points *geometry.Node
	cube   *geometry.Node
	curve  *geometry.Node

	// stroke is kept in the point cloud's local coordinates so it follows
	// the cloud as it spins.
	stroke geometry.Polyline

	oscillate bool
	demoSeed  uint64
	log       *zap.Logger
}

// NodeRenderer is the part of the renderer the scene manages nodes through.
type NodeRenderer interface {
	Add(n *geometry.Node) error
	Remove(n *geometry.Node)
}

// NewScene creates an empty scene.
func NewScene(r NodeRenderer, cfg config.PointsConfig, demoSeed uint64) *Scene {
	return &Scene{
		cfg:       cfg,
		rend:      r,
		oscillate: cfg.Oscillate,
		demoSeed:  demoSeed,
		log:       logger.Named("scene"),
	}
}

// Dataset returns the dataset on display, nil for the random sphere.
func (s *Scene) Dataset() *dataset.Dataset { return s.data }

// Points returns the point cloud node.
func (s *Scene) Points() *geometry.Node { return s.points }

// Stroke returns the current stroke in point cloud coordinates.
func (s *Scene) Stroke() geometry.Polyline { return s.stroke }

// Show replaces the point cloud with ds. A nil dataset shows unlabeled
// points on the unit sphere, which cannot be picked.
func (s *Scene) Show(ds *dataset.Dataset) error {
	var d geometry.Descriptor
	if ds != nil {
		d = geometry.LatentPointsDescriptor(ds.Positions(), ds.Labels, geometry.Palette(max(ds.Classes, 1)), s.cfg.IDComponents)
	} else {
		n := s.cfg.MaxPoints
		if n <= 0 {
			n = 3000
		}
		d = geometry.RandomSphereDescriptor(n, rand.New(rand.NewPCG(s.demoSeed, s.demoSeed+1)))
	}

	node, err := geometry.NewNode(d)
	if err != nil {
		return fmt.Errorf("building points: %w", err)
	}
	node.CenterOnCentroid()
	node.NormalizeToUnitSphere()
	s.applyTransform(node)

	// Only one pickable node may be registered, so the old cloud goes first
	// and comes back if the new one is refused.
	if s.points != nil {
		s.rend.Remove(s.points)
	}
	if err := s.rend.Add(node); err != nil {
		if s.points != nil {
			if rerr := s.rend.Add(s.points); rerr != nil {
				s.log.Error("restoring points", zap.Error(rerr))
				s.points, s.data = nil, nil
			}
		}
		return fmt.Errorf("adding points: %w", err)
	}
	s.points = node
	s.data = ds
	s.ClearStroke()

	if s.cfg.ShowCube && s.cube == nil {
		cube, err := geometry.NewNode(geometry.CubeDescriptor())
		if err != nil {
			return fmt.Errorf("building cube: %w", err)
		}
		if err := s.rend.Add(cube); err != nil {
			return err
		}
		s.cube = cube
	}

	name := "random_sphere"
	if ds != nil {
		name = ds.Name
	}
	s.log.Info("showing points",
		zap.String("dataset", name),
		zap.Int("points", node.VertexCount()),
	)
	return nil
}

func (s *Scene) applyTransform(n *geometry.Node) {
	n.Transform.SetRotation(s.cfg.RotationSpeed, math.Vec3FromArray(s.cfg.RotationAxis))
	n.Transform.SetOscillation(s.cfg.OscillationFrequency, s.cfg.OscillationAmplitude)
	n.Transform.SetOscillate(s.oscillate)
}

// SetOscillate switches the spin between continuous and rocking.
func (s *Scene) SetOscillate(on bool) {
	s.oscillate = on
	if s.points != nil {
		s.points.Transform.SetOscillate(on)
	}
}

// Oscillating reports the spin mode.
func (s *Scene) Oscillating() bool { return s.oscillate }

// Update makes the cube and the stroke follow the point cloud.
func (s *Scene) Update() {
	if s.points == nil {
		return
	}
	for _, n := range []*geometry.Node{s.cube, s.curve} {
		if n != nil {
			n.Transform = s.points.Transform
		}
	}
}

// ToLocal maps a world point into point cloud coordinates, given the arcball
// rotation and the frame time the world point was observed at.
func (s *Scene) ToLocal(world math.Vec3, rotation math.Mat4, timeMs float32) math.Vec3 {
	if s.points == nil {
		return world
	}
	model := rotation.Mul(geometry.ModelMatrix(&s.points.Transform, timeMs))
	return model.Inverse().TransformPoint(world)
}

// BeginStroke discards the current stroke.
func (s *Scene) BeginStroke() {
	s.ClearStroke()
}

// AddStroke appends a point in point cloud coordinates.
func (s *Scene) AddStroke(local math.Vec3) error {
	s.stroke = append(s.stroke, local)
	mesh := geometry.Mesh{
		Positions: s.stroke.Flat(),
		Colors:    geometry.Fill(len(s.stroke), geometry.ColorCurve),
	}
	if s.curve != nil {
		return s.curve.SetMesh(mesh)
	}

	node, err := geometry.NewNode(geometry.PolylineDescriptor("curve", mesh.Positions, geometry.ColorCurve))
	if err != nil {
		return err
	}
	if s.points != nil {
		node.Transform = s.points.Transform
	}
	if err := s.rend.Add(node); err != nil {
		return err
	}
	s.curve = node
	return nil
}

// ClearStroke removes the stroke.
func (s *Scene) ClearStroke() {
	s.stroke = nil
	if s.curve != nil {
		s.rend.Remove(s.curve)
		s.curve = nil
	}
}

// SourcePoint maps a point cloud coordinate back into the latent space of
// the dataset. Dimensions past the third are taken from the nearest sample.
func (s *Scene) SourcePoint(local math.Vec3) ([]float32, bool) {
	if s.data == nil || s.points == nil {
		return nil, false
	}
	src, ok := s.points.ToSource(local)
	if !ok {
		return nil, false
	}

	z := make([]float32, s.data.Dim)
	xyz := [3]float32{src.X, src.Y, src.Z}
	copy(z, xyz[:min(s.data.Dim, 3)])
	if s.data.Dim > 3 {
		if i := s.data.Nearest(z[:3]); i >= 0 {
			copy(z[3:], s.data.Latent(i)[3:])
		}
	}
	return z, true
}

// StrokeLatents resamples the stroke into steps evenly spaced latent points.
func (s *Scene) StrokeLatents(steps int) ([][]float32, error) {
	if len(s.stroke) < 2 {
		return nil, fmt.Errorf("stroke has %d points, need 2", len(s.stroke))
	}
	path := s.stroke.Resample(steps)
	out := make([][]float32, 0, len(path))
	for _, p := range path {
		z, ok := s.SourcePoint(p)
		if !ok {
			return nil, fmt.Errorf("no latent space for stroke")
		}
		out = append(out, z)
	}
	return out, nil
}
