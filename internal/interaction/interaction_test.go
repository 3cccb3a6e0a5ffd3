package interaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/latent-explorer/internal/arcball"
	"github.com/Faultbox/latent-explorer/internal/engine/camera"
	"github.com/Faultbox/latent-explorer/internal/engine/input"
)

func newRouter(t *testing.T) *Router {
	t.Helper()
	ball, err := arcball.New(200, 200, arcball.DefaultConfig())
	require.NoError(t, err)
	return New(ball, camera.New(), 200, 200)
}

func mouse(typ input.EventType, x, y float32, mods input.Modifier) input.Event {
	return input.Event{Type: typ, MouseX: x, MouseY: y, Button: input.ButtonLeft, Modifiers: mods}
}

func actions(cmds []Command) []Action {
	out := make([]Action, len(cmds))
	for i, c := range cmds {
		out[i] = c.Action
	}
	return out
}

func TestLeftDragRotates(t *testing.T) {
	r := newRouter(t)

	cmds := r.Handle([]input.Event{
		mouse(input.EventMouseDown, 100, 100, 0),
		mouse(input.EventMouseMove, 150, 100, 0),
	})
	assert.Empty(t, cmds)
	assert.True(t, r.Ball.Dragging())
	assert.False(t, r.Ball.Rotation().IsIdentity(1e-6))

	r.Handle([]input.Event{mouse(input.EventMouseUp, 150, 100, 0)})
	assert.False(t, r.Ball.Dragging())
	assert.False(t, r.Ball.Rotation().IsIdentity(1e-6))
}

func TestDragRotationIsLive(t *testing.T) {
	r := newRouter(t)

	r.Handle([]input.Event{
		mouse(input.EventMouseDown, 100, 100, 0),
		mouse(input.EventMouseMove, 150, 100, 0),
	})
	during := r.Ball.CurrentTransform()

	r.Handle([]input.Event{mouse(input.EventMouseMove, 200, 130, 0)})
	moved := r.Ball.CurrentTransform()
	assert.False(t, moved.ApproxEqual(during, 1e-6), "each move should update the rotation")

	r.Handle([]input.Event{mouse(input.EventMouseUp, 200, 130, 0)})
	assert.True(t, r.Ball.CurrentTransform().ApproxEqual(moved, 1e-5),
		"releasing at the last position should not jump")
}

func TestShiftDragDrawsOnSphere(t *testing.T) {
	r := newRouter(t)

	cmds := r.Handle([]input.Event{mouse(input.EventMouseDown, 100, 100, input.ModShift)})
	require.Equal(t, []Action{ActionCurveBegin, ActionCurvePoint}, actions(cmds))
	p := cmds[1].Point
	assert.InDelta(t, 0, p.X, 1e-3)
	assert.InDelta(t, 0, p.Y, 1e-3)
	assert.InDelta(t, CurveRadius, p.Z, 1e-3)
	assert.True(t, r.Drawing())
	assert.False(t, r.Ball.Dragging())

	// One pixel is below the sample spacing.
	cmds = r.Handle([]input.Event{mouse(input.EventMouseMove, 101, 100, input.ModShift)})
	assert.Empty(t, cmds)

	cmds = r.Handle([]input.Event{mouse(input.EventMouseMove, 120, 100, input.ModShift)})
	require.Equal(t, []Action{ActionCurvePoint}, actions(cmds))
	assert.Greater(t, cmds[0].Point.X, float32(0))
	assert.InDelta(t, CurveRadius, cmds[0].Point.Length(), 1e-3)

	cmds = r.Handle([]input.Event{mouse(input.EventMouseUp, 120, 100, input.ModShift)})
	assert.Equal(t, []Action{ActionCurveEnd}, actions(cmds))
	assert.False(t, r.Drawing())
}

func TestCurveMissOutsideSphere(t *testing.T) {
	r := newRouter(t)
	cmds := r.Handle([]input.Event{mouse(input.EventMouseDown, 0, 0, input.ModShift)})
	assert.Equal(t, []Action{ActionCurveBegin}, actions(cmds))
}

func TestLeaveEndsDrag(t *testing.T) {
	r := newRouter(t)
	r.Handle([]input.Event{
		mouse(input.EventMouseDown, 100, 100, 0),
		mouse(input.EventMouseMove, 120, 90, 0),
	})
	_, inside := r.Pointer()
	assert.True(t, inside)

	r.Handle([]input.Event{{Type: input.EventMouseLeave}})
	_, inside = r.Pointer()
	assert.False(t, inside)
	assert.False(t, r.Ball.Dragging())

	// A stroke in progress is closed too.
	r.Handle([]input.Event{mouse(input.EventMouseDown, 100, 100, input.ModShift)})
	cmds := r.Handle([]input.Event{{Type: input.EventMouseLeave}})
	assert.Equal(t, []Action{ActionCurveEnd}, actions(cmds))
}

func TestWheelZooms(t *testing.T) {
	r := newRouter(t)
	r.Handle([]input.Event{{Type: input.EventMouseWheel, Wheel: 1}})
	assert.InDelta(t, 1.8, r.Camera.Distance(), 1e-5)

	r.Handle([]input.Event{{Type: input.EventKeyDown, Key: input.KeyMinus}})
	assert.InDelta(t, 1.98, r.Camera.Distance(), 1e-5)
}

func TestResize(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		want          []Action
		aspect        float32
	}{
		{"landscape", 400, 200, []Action{ActionResize}, 2},
		{"minimized", 0, 0, nil, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(t)
			cmds := r.Handle([]input.Event{{Type: input.EventWindowResize, Width: tt.width, Height: tt.height}})
			if len(tt.want) == 0 {
				assert.Empty(t, cmds)
			} else {
				assert.Equal(t, tt.want, actions(cmds))
			}
			assert.InDelta(t, tt.aspect, r.Camera.Aspect, 1e-6)
		})
	}
}

func TestKeyBindings(t *testing.T) {
	tests := []struct {
		key  input.Key
		want Action
	}{
		{input.KeyEscape, ActionQuit},
		{input.KeyEnter, ActionTraverse},
		{input.KeyT, ActionTraverse},
		{input.KeyC, ActionClearCurve},
		{input.KeyTab, ActionNextDataset},
		{input.KeyO, ActionToggleOscillation},
		{input.KeySpace, ActionTogglePause},
		{input.KeyP, ActionTogglePicking},
		{input.KeyS, ActionSavePreview},
	}

	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			r := newRouter(t)
			cmds := r.Handle([]input.Event{{Type: input.EventKeyDown, Key: tt.key}})
			assert.Equal(t, []Action{tt.want}, actions(cmds))
		})
	}

	r := newRouter(t)
	assert.Empty(t, r.Handle([]input.Event{{Type: input.EventKeyDown, Key: input.KeyUnknown}}))
	assert.Empty(t, r.Handle([]input.Event{{Type: input.EventKeyUp, Key: input.KeyEscape}}))
}

func TestResetViewResetsArcball(t *testing.T) {
	r := newRouter(t)
	r.Handle([]input.Event{
		mouse(input.EventMouseDown, 100, 100, 0),
		mouse(input.EventMouseMove, 150, 120, 0),
		mouse(input.EventMouseUp, 150, 120, 0),
	})
	require.False(t, r.Ball.Rotation().IsIdentity(1e-6))

	cmds := r.Handle([]input.Event{{Type: input.EventKeyDown, Key: input.KeyR}})
	assert.Equal(t, []Action{ActionResetView}, actions(cmds))
	assert.True(t, r.Ball.Rotation().IsIdentity(1e-6))
}

func TestQuitEvent(t *testing.T) {
	r := newRouter(t)
	cmds := r.Handle([]input.Event{{Type: input.EventQuit}})
	assert.Equal(t, []Action{ActionQuit}, actions(cmds))
	assert.Equal(t, "unknown", Action(99).String())
}
