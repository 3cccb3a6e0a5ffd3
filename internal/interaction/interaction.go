// Package interaction turns input events into arcball drags, camera zoom,
// curve strokes and viewer commands.
package interaction

import (
	"github.com/Faultbox/latent-explorer/internal/arcball"
	"github.com/Faultbox/latent-explorer/internal/engine/camera"
	"github.com/Faultbox/latent-explorer/internal/engine/input"
	"github.com/Faultbox/latent-explorer/internal/engine/picking"
	"github.com/Faultbox/latent-explorer/pkg/math"
)

// Action is a command for the viewer.
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionResetView
	ActionTraverse
	ActionClearCurve
	ActionNextDataset
	ActionToggleOscillation
	ActionTogglePause
	ActionTogglePicking
	ActionSavePreview
	ActionResize

	// Curve strokes. Point carries the hit in world space.
	ActionCurveBegin
	ActionCurvePoint
	ActionCurveEnd
)

var actionNames = map[Action]string{
	ActionNone:              "none",
	ActionQuit:              "quit",
	ActionResetView:         "reset_view",
	ActionTraverse:          "traverse",
	ActionClearCurve:        "clear_curve",
	ActionNextDataset:       "next_dataset",
	ActionToggleOscillation: "toggle_oscillation",
	ActionTogglePause:       "toggle_pause",
	ActionTogglePicking:     "toggle_picking",
	ActionSavePreview:       "save_preview",
	ActionResize:            "resize",
	ActionCurveBegin:        "curve_begin",
	ActionCurvePoint:        "curve_point",
	ActionCurveEnd:          "curve_end",
}

func (a Action) String() string {
	if s, ok := actionNames[a]; ok {
		return s
	}
	return "unknown"
}

// Command is one routed action.
type Command struct {
	Action Action
	Point  math.Vec3
	Width  int
	Height int
}

// DefaultBindings maps keys to viewer actions.
func DefaultBindings() map[input.Key]Action {
	return map[input.Key]Action{
		input.KeyEscape:    ActionQuit,
		input.KeyR:         ActionResetView,
		input.KeyEnter:     ActionTraverse,
		input.KeyT:         ActionTraverse,
		input.KeyBackspace: ActionClearCurve,
		input.KeyC:         ActionClearCurve,
		input.KeyTab:       ActionNextDataset,
		input.KeyO:         ActionToggleOscillation,
		input.KeySpace:     ActionTogglePause,
		input.KeyP:         ActionTogglePicking,
		input.KeyS:         ActionSavePreview,
	}
}

// CurveRadius is the radius of the sphere at the origin that curve strokes
// are drawn on.
const CurveRadius = 0.5

type dragMode int

const (
	dragNone dragMode = iota
	dragRotate
	dragCurve
)

// Router owns the pointer state of one viewport.
type Router struct {
	Ball   *arcball.Controller
	Camera *camera.Camera

	Bindings map[input.Key]Action
	// CurveSpacing is the minimum world distance between stroke samples.
	CurveSpacing float32
	// ZoomStep is the wheel delta applied per +/- key press.
	ZoomStep float32

	width, height int
	pointer       math.Vec2
	inside        bool
	mode          dragMode
	last          math.Vec3
	hasLast       bool
}

// New creates a router for a width x height client area.
func New(ball *arcball.Controller, cam *camera.Camera, width, height int) *Router {
	return &Router{
		Ball:         ball,
		Camera:       cam,
		Bindings:     DefaultBindings(),
		CurveSpacing: 0.01,
		ZoomStep:     1,
		width:        width,
		height:       height,
	}
}

// Pointer returns the last pointer position and whether it is over the window.
func (r *Router) Pointer() (math.Vec2, bool) { return r.pointer, r.inside }

// Size returns the client area size.
func (r *Router) Size() (int, int) { return r.width, r.height }

// Drawing reports whether a curve stroke is in progress.
func (r *Router) Drawing() bool { return r.mode == dragCurve }

// Handle routes the events of one frame.
func (r *Router) Handle(events []input.Event) []Command {
	var out []Command
	for _, e := range events {
		out = r.handle(e, out)
	}
	return out
}

func (r *Router) handle(e input.Event, out []Command) []Command {
	switch e.Type {
	case input.EventQuit:
		return append(out, Command{Action: ActionQuit})

	case input.EventWindowResize:
		if e.Width <= 0 || e.Height <= 0 {
			// minimized
			return out
		}
		r.width, r.height = e.Width, e.Height
		if err := r.Ball.SetViewport(e.Width, e.Height); err != nil {
			return out
		}
		r.Camera.SetViewport(e.Width, e.Height)
		return append(out, Command{Action: ActionResize, Width: e.Width, Height: e.Height})

	case input.EventMouseDown:
		r.move(e)
		if e.Button != input.ButtonLeft {
			return out
		}
		if e.Modifiers.Has(input.ModShift) {
			return r.beginCurve(out)
		}
		r.mode = dragRotate
		r.Ball.BeginDrag(e.MouseX, e.MouseY)

	case input.EventMouseMove:
		r.move(e)
		switch r.mode {
		case dragRotate:
			r.Ball.UpdateDrag(e.MouseX, e.MouseY)
			r.Ball.ComputeRotation()
		case dragCurve:
			out = r.sample(out)
		}

	case input.EventMouseUp:
		r.move(e)
		if e.Button == input.ButtonLeft {
			return r.endDrag(out)
		}

	case input.EventMouseLeave:
		r.inside = false
		return r.endDrag(out)

	case input.EventMouseWheel:
		r.Camera.HandleZoom(e.Wheel)

	case input.EventKeyDown:
		switch e.Key {
		case input.KeyPlus:
			r.Camera.HandleZoom(r.ZoomStep)
			return out
		case input.KeyMinus:
			r.Camera.HandleZoom(-r.ZoomStep)
			return out
		}
		a, ok := r.Bindings[e.Key]
		if !ok {
			return out
		}
		if a == ActionResetView {
			r.Ball.Reset()
		}
		return append(out, Command{Action: a})
	}
	return out
}

func (r *Router) move(e input.Event) {
	r.pointer = math.Vec2{X: e.MouseX, Y: e.MouseY}
	r.inside = true
}

func (r *Router) beginCurve(out []Command) []Command {
	r.mode = dragCurve
	r.hasLast = false
	out = append(out, Command{Action: ActionCurveBegin})
	return r.sample(out)
}

// sample emits the pointer hit unless it is closer than CurveSpacing to the
// previous sample.
func (r *Router) sample(out []Command) []Command {
	p, ok := r.hit()
	if !ok || (r.hasLast && p.Distance(r.last) < r.CurveSpacing) {
		return out
	}
	r.last, r.hasLast = p, true
	return append(out, Command{Action: ActionCurvePoint, Point: p})
}

func (r *Router) endDrag(out []Command) []Command {
	switch r.mode {
	case dragRotate:
		r.Ball.EndDrag()
	case dragCurve:
		out = append(out, Command{Action: ActionCurveEnd})
	}
	r.mode = dragNone
	return out
}

// hit casts the pointer into the scene and intersects the curve sphere.
func (r *Router) hit() (math.Vec3, bool) {
	viewProj := r.Camera.ProjectionMatrix().Mul(r.Camera.ViewMatrix())
	ray := picking.ScreenToRay(r.pointer.X, r.pointer.Y, float32(r.width), float32(r.height), viewProj.Inverse())
	return ray.IntersectSphere(math.Vec3{}, CurveRadius)
}
