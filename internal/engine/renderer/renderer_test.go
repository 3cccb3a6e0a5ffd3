package renderer

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/latent-explorer/internal/engine/picking"
	"github.com/Faultbox/latent-explorer/internal/engine/uniform"
	"github.com/Faultbox/latent-explorer/internal/geometry"
	"github.com/Faultbox/latent-explorer/pkg/math"
)

var pointsUniforms = []string{
	"u_ProjectionMatrix", "u_ViewMatrix", "u_ModelMatrix",
	"u_UseUid", "u_IdSelected", "u_PointSize", "u_HighlightSize",
	"u_HighlightDarken", "u_Radius",
}

var linesUniforms = []string{
	"u_ProjectionMatrix", "u_ViewMatrix", "u_ModelMatrix", "u_Color", "u_VertexColors",
}

// uploads records the last value per uniform location of the bound program.
type uploads struct {
	names  map[int32]string
	values map[string][]float32
	ints   map[string]int32
}

func (u *uploads) Uniform1f(loc int32, v float32) { u.values[u.names[loc]] = []float32{v} }
func (u *uploads) Uniform2fv(loc int32, v []float32) {
	u.values[u.names[loc]] = append([]float32(nil), v...)
}
func (u *uploads) Uniform3fv(loc int32, v []float32) {
	u.values[u.names[loc]] = append([]float32(nil), v...)
}
func (u *uploads) Uniform4fv(loc int32, v []float32) {
	u.values[u.names[loc]] = append([]float32(nil), v...)
}
func (u *uploads) UniformMatrix4fv(loc int32, m *[16]float32) {
	u.values[u.names[loc]] = append([]float32(nil), m[:]...)
}
func (u *uploads) Uniform1i(loc int32, v int32) { u.ints[u.names[loc]] = v }

func kindOf(name string) uniform.Kind {
	switch name {
	case "u_ProjectionMatrix", "u_ViewMatrix", "u_ModelMatrix":
		return uniform.KindMat4
	case "u_UseUid", "u_VertexColors":
		return uniform.KindBool
	case "u_IdSelected":
		return uniform.KindInt
	case "u_Color":
		return uniform.KindVec3
	}
	return uniform.KindFloat
}

func newUploads(t *testing.T, names []string) (*uploads, *uniform.Table) {
	t.Helper()
	u := &uploads{names: map[int32]string{}, values: map[string][]float32{}, ints: map[string]int32{}}
	infos := make([]uniform.Info, len(names))
	for i, n := range names {
		u.names[int32(i)] = n
		infos[i] = uniform.Info{Name: n, Location: int32(i), Kind: kindOf(n)}
	}
	table, err := uniform.NewTable(infos, u)
	require.NoError(t, err)
	return u, table
}

type draw struct {
	target   Target
	pipeline Pipeline
	call     DrawCall
	selected int32
	useUid   int32
	model    []float32
}

type fakeDevice struct {
	next     uint32
	live     map[geometry.BufferID]bool
	updates  int
	target   Target
	pipeline Pipeline
	binds    []Target
	programs map[Pipeline]*uniform.Table
	uploads  map[Pipeline]*uploads
	draws    []draw
	pixel    [4]byte
	reads    int
}

func newFakeDevice(t *testing.T) *fakeDevice {
	pu, pt := newUploads(t, pointsUniforms)
	lu, lt := newUploads(t, linesUniforms)
	return &fakeDevice{
		live:     map[geometry.BufferID]bool{},
		programs: map[Pipeline]*uniform.Table{PipelinePoints: pt, PipelineLines: lt},
		uploads:  map[Pipeline]*uploads{PipelinePoints: pu, PipelineLines: lu},
	}
}

func (d *fakeDevice) UploadBuffer(geometry.AttributeDesc, []float32) (geometry.BufferID, error) {
	d.next++
	d.live[geometry.BufferID(d.next)] = true
	return geometry.BufferID(d.next), nil
}

func (d *fakeDevice) UpdateBuffer(geometry.BufferID, []float32) error {
	d.updates++
	return nil
}

func (d *fakeDevice) UploadIndices([]uint16) (geometry.BufferID, error) {
	d.next++
	d.live[geometry.BufferID(d.next)] = true
	return geometry.BufferID(d.next), nil
}

func (d *fakeDevice) CreateVertexArray(geometry.Layout, map[geometry.Attribute]geometry.BufferID, geometry.BufferID) (geometry.VertexArrayID, error) {
	d.next++
	return geometry.VertexArrayID(d.next), nil
}

func (d *fakeDevice) DeleteBuffer(id geometry.BufferID)   { delete(d.live, id) }
func (d *fakeDevice) DeleteVertexArray(geometry.VertexArrayID) {}

func (d *fakeDevice) ReadPixel(x, y int) ([4]byte, error) {
	d.reads++
	if d.target != TargetPicking {
		return [4]byte{}, errors.New("read outside picking target")
	}
	return d.pixel, nil
}

func (d *fakeDevice) BindTarget(t Target) {
	d.target = t
	d.binds = append(d.binds, t)
}

func (d *fakeDevice) Clear([4]float32) {}

func (d *fakeDevice) UseProgram(p Pipeline) (*uniform.Table, error) {
	d.pipeline = p
	return d.programs[p], nil
}

func (d *fakeDevice) Draw(c DrawCall) {
	u := d.uploads[d.pipeline]
	d.draws = append(d.draws, draw{
		target:   d.target,
		pipeline: d.pipeline,
		call:     c,
		selected: u.ints["u_IdSelected"],
		useUid:   u.ints["u_UseUid"],
		model:    u.values["u_ModelMatrix"],
	})
}

func latentNode(t *testing.T, n int) *geometry.Node {
	t.Helper()
	rng := rand.New(rand.NewPCG(9, 9))
	pos := make([]float32, n*3)
	for i := range pos {
		pos[i] = rng.Float32()
	}
	node, err := geometry.NewNode(geometry.LatentPointsDescriptor(pos, make([]int, n), geometry.Palette(1), 4))
	require.NoError(t, err)
	return node
}

func frameContext() *FrameContext {
	return &FrameContext{
		Time:          0,
		Pointer:       math.Vec2{X: 10, Y: 10},
		PointerInside: true,
		Viewport:      picking.UniformViewport(64, 64),
		View:          math.Identity(),
		Projection:    math.Identity(),
		Rotation:      math.Identity(),
		Picking:       true,
	}
}

func TestFramePicksAndHighlights(t *testing.T) {
	dev := newFakeDevice(t)
	dev.pixel = picking.EncodeID(5)
	r := New(dev, DefaultConfig())
	node := latentNode(t, 20)
	require.NoError(t, r.Add(node))

	res, err := r.Frame(frameContext())
	require.NoError(t, err)

	assert.True(t, res.Selection.Hit)
	assert.Equal(t, 5, res.Selection.Index)
	assert.Same(t, node, res.Node)
	assert.Equal(t, []Target{TargetPicking, TargetScreen}, dev.binds)

	require.Len(t, dev.draws, 2)
	assert.Equal(t, TargetPicking, dev.draws[0].target)
	assert.Equal(t, int32(1), dev.draws[0].useUid)
	assert.Equal(t, TargetScreen, dev.draws[1].target)
	assert.Equal(t, int32(0), dev.draws[1].useUid)
	assert.Equal(t, int32(5), dev.draws[1].selected)
	assert.Equal(t, 2, res.Draws)
}

func TestFrameBackgroundIsNoHit(t *testing.T) {
	dev := newFakeDevice(t)
	r := New(dev, DefaultConfig())
	require.NoError(t, r.Add(latentNode(t, 20)))

	res, err := r.Frame(frameContext())
	require.NoError(t, err)

	assert.False(t, res.Selection.Hit)
	assert.Equal(t, int32(-1), dev.draws[len(dev.draws)-1].selected)
}

func TestFrameSkipsPickingPass(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*FrameContext)
	}{
		{"picking disabled", func(c *FrameContext) { c.Picking = false }},
		{"pointer left", func(c *FrameContext) { c.PointerInside = false }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := newFakeDevice(t)
			dev.pixel = picking.EncodeID(1)
			r := New(dev, DefaultConfig())
			require.NoError(t, r.Add(latentNode(t, 4)))

			ctx := frameContext()
			tt.mutate(ctx)
			res, err := r.Frame(ctx)
			require.NoError(t, err)

			assert.False(t, res.Selection.Hit)
			assert.Equal(t, []Target{TargetScreen}, dev.binds)
			assert.Zero(t, dev.reads)
		})
	}
}

func TestFramePointerOutsideViewportSkipsRead(t *testing.T) {
	dev := newFakeDevice(t)
	dev.pixel = picking.EncodeID(1)
	r := New(dev, DefaultConfig())
	require.NoError(t, r.Add(latentNode(t, 4)))

	ctx := frameContext()
	ctx.Pointer = math.Vec2{X: 100, Y: 10}
	res, err := r.Frame(ctx)
	require.NoError(t, err)

	assert.False(t, res.Selection.Hit)
	assert.Zero(t, dev.reads)
}

func TestFrameIgnoresStaleIndex(t *testing.T) {
	dev := newFakeDevice(t)
	dev.pixel = picking.EncodeID(500)
	r := New(dev, DefaultConfig())
	require.NoError(t, r.Add(latentNode(t, 4)))

	res, err := r.Frame(frameContext())
	require.NoError(t, err)
	assert.False(t, res.Selection.Hit)
}

func TestFrameModelMatrixIncludesRotation(t *testing.T) {
	dev := newFakeDevice(t)
	r := New(dev, DefaultConfig())
	node := latentNode(t, 4)
	node.Transform.SetTranslation(math.V3(1, 0, 0))
	require.NoError(t, r.Add(node))

	ctx := frameContext()
	ctx.Picking = false
	ctx.Rotation = math.RotateAxis(math.V3(0, 1, 0), 0.5)

	_, err := r.Frame(ctx)
	require.NoError(t, err)

	want := ctx.Rotation.Mul(math.Translate(math.V3(1, 0, 0)))
	got := dev.draws[0].model
	require.Len(t, got, 16)
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-6, "element %d", i)
	}
	assert.False(t, node.Transform.NeedsUpdate())
}

func TestFrameSyncsDirtyNodes(t *testing.T) {
	dev := newFakeDevice(t)
	r := New(dev, DefaultConfig())
	node := latentNode(t, 4)
	require.NoError(t, r.Add(node))

	node.NormalizeToUnitSphere()
	_, err := r.Frame(frameContext())
	require.NoError(t, err)

	assert.Equal(t, 1, dev.updates)
	assert.False(t, node.Dirty())
}

func TestLinesUseLinePipeline(t *testing.T) {
	dev := newFakeDevice(t)
	r := New(dev, DefaultConfig())
	cube, err := geometry.NewNode(geometry.CubeDescriptor())
	require.NoError(t, err)
	require.NoError(t, r.Add(cube))

	_, err = r.Frame(frameContext())
	require.NoError(t, err)

	require.Len(t, dev.draws, 1)
	assert.Equal(t, PipelineLines, dev.draws[0].pipeline)
	assert.True(t, dev.draws[0].call.Indexed)
	assert.Equal(t, 24, dev.draws[0].call.Count)
}

func TestSinglePickableNode(t *testing.T) {
	r := New(newFakeDevice(t), DefaultConfig())
	require.NoError(t, r.Add(latentNode(t, 4)))
	assert.ErrorIs(t, r.Add(latentNode(t, 4)), ErrPickableTaken)
}

func TestRemoveReleases(t *testing.T) {
	dev := newFakeDevice(t)
	r := New(dev, DefaultConfig())
	node := latentNode(t, 4)
	require.NoError(t, r.Add(node))

	r.Remove(node)
	assert.Empty(t, r.Nodes())
	assert.False(t, node.Linked())
	assert.Empty(t, dev.live)

	// The pickable slot is free again.
	require.NoError(t, r.Add(latentNode(t, 4)))
	r.Clear()
	assert.Empty(t, r.Nodes())
}
