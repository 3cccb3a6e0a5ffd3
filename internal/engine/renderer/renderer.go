// Package renderer runs the two-pass frame: an off-screen picking pass that
// draws point IDs, then the on-screen display pass with the picked point
// highlighted.
package renderer

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/latent-explorer/internal/engine/picking"
	"github.com/Faultbox/latent-explorer/internal/engine/uniform"
	"github.com/Faultbox/latent-explorer/internal/geometry"
	"github.com/Faultbox/latent-explorer/internal/logger"
	"github.com/Faultbox/latent-explorer/pkg/math"
)

var (
	ErrPickableTaken = errors.New("another pickable node is already registered")
	ErrNoProgram     = errors.New("no program for draw mode")
)

// Target selects the framebuffer draws go to.
type Target int

const (
	TargetScreen Target = iota
	TargetPicking
)

// Pipeline selects the shader program for a draw.
type Pipeline int

const (
	PipelinePoints Pipeline = iota
	PipelineLines
)

// PipelineFor returns the program family used for a draw mode.
func PipelineFor(m geometry.DrawMode) Pipeline {
	if m == geometry.ModePoints {
		return PipelinePoints
	}
	return PipelineLines
}

// DrawCall is one draw of a linked node.
type DrawCall struct {
	VertexArray geometry.VertexArrayID
	Mode        geometry.DrawMode
	Count       int
	Indexed     bool
}

// Device is the GPU backend.
type Device interface {
	geometry.BufferUploader
	picking.PixelReader

	// BindTarget binds a framebuffer and sets its viewport.
	BindTarget(t Target)
	Clear(color [4]float32)
	// UseProgram binds the program of p and returns its uniform table.
	UseProgram(p Pipeline) (*uniform.Table, error)
	Draw(c DrawCall)
}

// Config holds the display parameters of the frame.
type Config struct {
	Background      [4]float32
	PointSize       float32
	PointRadius     float32 // fraction of the point sprite kept as a disc
	HighlightSize   float32
	HighlightDarken float32
	IDComponents    int
}

// DefaultConfig returns the display parameters used by the viewer.
func DefaultConfig() Config {
	return Config{
		Background:      [4]float32{0.95, 0.95, 0.95, 1},
		PointSize:       8,
		PointRadius:     0.6,
		HighlightSize:   8,
		HighlightDarken: 0.5,
		IDComponents:    4,
	}
}

// FrameContext is the per-frame state, owned by the frame loop and passed
// explicitly to Frame.
type FrameContext struct {
	Time  float32 // milliseconds since start
	Delta float32 // milliseconds since the previous frame

	// Pointer in client coordinates; PointerInside is false when the
	// pointer has left the window.
	Pointer       math.Vec2
	PointerInside bool
	Viewport      picking.Viewport

	View       math.Mat4
	Projection math.Mat4
	// Rotation is the arcball orientation applied to every node.
	Rotation math.Mat4

	Picking bool
}

// FrameResult reports what a frame did.
type FrameResult struct {
	Selection picking.Selection
	// Node is the pickable node the selection indexes into.
	Node  *geometry.Node
	Draws int
}

// Renderer owns the scene nodes and draws them each frame.
type Renderer struct {
	cfg    Config
	device Device
	nodes  []*geometry.Node
	pick   *geometry.Node
	picker *picking.Picker
	log    *zap.Logger
}

// New creates a renderer drawing through d.
func New(d Device, cfg Config) *Renderer {
	return &Renderer{
		cfg:    cfg,
		device: d,
		picker: picking.NewPicker(picking.Viewport{}, cfg.IDComponents),
		log:    logger.Named("renderer"),
	}
}

// Config returns the renderer configuration.
func (r *Renderer) Config() Config { return r.cfg }

// Nodes returns the registered nodes in draw order.
func (r *Renderer) Nodes() []*geometry.Node { return r.nodes }

// Add registers a node and links it. At most one pickable node is allowed,
// since picking IDs are only unique within a node.
func (r *Renderer) Add(n *geometry.Node) error {
	if n.Pickable && r.pick != nil {
		return fmt.Errorf("%s: %w", n.Name, ErrPickableTaken)
	}
	if !n.Linked() {
		if err := n.Link(r.device); err != nil {
			return err
		}
	}
	r.nodes = append(r.nodes, n)
	if n.Pickable {
		r.pick = n
		r.picker.Components = n.IDComponents()
	}
	r.log.Debug("node added",
		zap.String("name", n.Name),
		zap.Stringer("mode", n.Mode()),
		zap.Int("vertices", n.VertexCount()),
		zap.Bool("pickable", n.Pickable),
	)
	return nil
}

// Remove unregisters a node and releases its GPU buffers.
func (r *Renderer) Remove(n *geometry.Node) {
	for i, m := range r.nodes {
		if m != n {
			continue
		}
		r.nodes = append(r.nodes[:i], r.nodes[i+1:]...)
		if r.pick == n {
			r.pick = nil
		}
		n.Release(r.device)
		return
	}
}

// Clear removes every node.
func (r *Renderer) Clear() {
	for len(r.nodes) > 0 {
		r.Remove(r.nodes[len(r.nodes)-1])
	}
}

// Frame syncs modified nodes and draws one frame.
func (r *Renderer) Frame(ctx *FrameContext) (FrameResult, error) {
	res := FrameResult{Selection: picking.None, Node: r.pick}

	for _, n := range r.nodes {
		if n.Dirty() {
			if err := n.Sync(r.device); err != nil {
				return res, fmt.Errorf("syncing %s: %w", n.Name, err)
			}
		}
	}

	models := make([]math.Mat4, len(r.nodes))
	for i, n := range r.nodes {
		models[i] = ctx.Rotation.Mul(geometry.ModelMatrix(&n.Transform, ctx.Time))
	}

	if ctx.Picking && ctx.PointerInside && r.pick != nil {
		sel, draws, err := r.pickingPass(ctx, models)
		if err != nil {
			return res, err
		}
		res.Selection = sel
		res.Draws += draws
	}

	draws, err := r.displayPass(ctx, models, res.Selection)
	if err != nil {
		return res, err
	}
	res.Draws += draws

	for _, n := range r.nodes {
		n.Transform.MarkClean()
	}
	return res, nil
}

func (r *Renderer) pickingPass(ctx *FrameContext, models []math.Mat4) (picking.Selection, int, error) {
	r.device.BindTarget(TargetPicking)
	r.device.Clear([4]float32{})

	table, err := r.device.UseProgram(PipelinePoints)
	if err != nil {
		return picking.None, 0, fmt.Errorf("picking pass: %w", err)
	}

	draws := 0
	for i, n := range r.nodes {
		if n != r.pick {
			continue
		}
		err := table.SetAll(map[string]uniform.Value{
			"u_ProjectionMatrix": uniform.Mat4(ctx.Projection),
			"u_ViewMatrix":       uniform.Mat4(ctx.View),
			"u_ModelMatrix":      uniform.Mat4(models[i]),
			"u_UseUid":           uniform.Bool(true),
			"u_IdSelected":       uniform.Int(-1),
			"u_PointSize":        uniform.Float(r.cfg.PointSize),
			"u_Radius":           uniform.Float(r.cfg.PointRadius),
		})
		if err != nil {
			return picking.None, draws, fmt.Errorf("picking pass %s: %w", n.Name, err)
		}
		r.device.Draw(drawCall(n))
		draws++
	}

	r.picker.Viewport = ctx.Viewport
	sel, err := r.picker.Pick(r.device, ctx.Pointer.X, ctx.Pointer.Y)
	if err != nil {
		return picking.None, draws, err
	}
	if sel.Hit && sel.Index >= r.pick.VertexCount() {
		// Stale pixel from a larger point set.
		sel = picking.None
	}
	return sel, draws, nil
}

func (r *Renderer) displayPass(ctx *FrameContext, models []math.Mat4, sel picking.Selection) (int, error) {
	r.device.BindTarget(TargetScreen)
	r.device.Clear(r.cfg.Background)

	draws := 0
	for i, n := range r.nodes {
		table, err := r.device.UseProgram(PipelineFor(n.Mode()))
		if err != nil {
			return draws, fmt.Errorf("display pass %s: %w", n.Name, err)
		}

		selected := int32(-1)
		if n == r.pick && sel.Hit {
			selected = int32(sel.Index)
		}
		err = table.SetAll(map[string]uniform.Value{
			"u_ProjectionMatrix": uniform.Mat4(ctx.Projection),
			"u_ViewMatrix":       uniform.Mat4(ctx.View),
			"u_ModelMatrix":      uniform.Mat4(models[i]),
			"u_UseUid":           uniform.Bool(false),
			"u_IdSelected":       uniform.Int(selected),
			"u_PointSize":        uniform.Float(r.cfg.PointSize),
			"u_Radius":           uniform.Float(r.cfg.PointRadius),
			"u_HighlightSize":    uniform.Float(r.cfg.HighlightSize),
			"u_HighlightDarken":  uniform.Float(r.cfg.HighlightDarken),
			"u_VertexColors":     uniform.Bool(n.Colors() != nil),
			"u_Color":            uniform.Vec3(math.V3(0.2, 0.2, 0.2)),
		})
		if err != nil {
			return draws, fmt.Errorf("display pass %s: %w", n.Name, err)
		}
		if c := drawCall(n); c.Count > 0 {
			r.device.Draw(c)
			draws++
		}
	}
	return draws, nil
}

func drawCall(n *geometry.Node) DrawCall {
	c := DrawCall{
		VertexArray: n.VertexArray(),
		Mode:        n.Mode(),
		Count:       n.VertexCount(),
	}
	if n.Indexed() {
		c.Indexed = true
		c.Count = n.IndexCount()
	}
	return c
}
