package window

import (
	"github.com/veandco/go-sdl2/sdl"

	"github.com/Faultbox/latent-explorer/internal/engine/input"
)

// PollEvents drains the SDL queue into in.
func (w *Window) PollEvents(in *input.Input) {
	in.Reset()

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			in.Push(input.Event{Type: input.EventQuit})

		case *sdl.WindowEvent:
			switch e.Event {
			case sdl.WINDOWEVENT_RESIZED, sdl.WINDOWEVENT_SIZE_CHANGED:
				in.Push(input.Event{
					Type:   input.EventWindowResize,
					Width:  int(e.Data1),
					Height: int(e.Data2),
				})
			case sdl.WINDOWEVENT_LEAVE:
				in.Push(input.Event{Type: input.EventMouseLeave})
			}

		case *sdl.KeyboardEvent:
			ev := input.Event{
				Type:      input.EventKeyDown,
				Key:       translateKey(e.Keysym.Scancode),
				Modifiers: translateMods(uint32(e.Keysym.Mod)),
			}
			if e.Type == sdl.KEYUP {
				ev.Type = input.EventKeyUp
			}
			in.Push(ev)

		case *sdl.MouseMotionEvent:
			in.Push(input.Event{
				Type:      input.EventMouseMove,
				MouseX:    float32(e.X),
				MouseY:    float32(e.Y),
				Modifiers: translateMods(uint32(sdl.GetModState())),
			})

		case *sdl.MouseButtonEvent:
			ev := input.Event{
				Type:      input.EventMouseDown,
				MouseX:    float32(e.X),
				MouseY:    float32(e.Y),
				Button:    translateButton(e.Button),
				Modifiers: translateMods(uint32(sdl.GetModState())),
			}
			if e.Type == sdl.MOUSEBUTTONUP {
				ev.Type = input.EventMouseUp
			}
			in.Push(ev)

		case *sdl.MouseWheelEvent:
			dy := float32(e.Y)
			if e.Direction == uint32(sdl.MOUSEWHEEL_FLIPPED) {
				dy = -dy
			}
			in.Push(input.Event{Type: input.EventMouseWheel, Wheel: dy})
		}
	}
}

func translateButton(b uint8) input.Button {
	switch b {
	case uint8(sdl.BUTTON_LEFT):
		return input.ButtonLeft
	case uint8(sdl.BUTTON_MIDDLE):
		return input.ButtonMiddle
	case uint8(sdl.BUTTON_RIGHT):
		return input.ButtonRight
	}
	return input.ButtonNone
}

func translateMods(m uint32) input.Modifier {
	var out input.Modifier
	if m&uint32(sdl.KMOD_SHIFT) != 0 {
		out |= input.ModShift
	}
	if m&uint32(sdl.KMOD_CTRL) != 0 {
		out |= input.ModCtrl
	}
	if m&uint32(sdl.KMOD_ALT) != 0 {
		out |= input.ModAlt
	}
	return out
}

var keys = map[sdl.Scancode]input.Key{
	sdl.SCANCODE_ESCAPE:    input.KeyEscape,
	sdl.SCANCODE_SPACE:     input.KeySpace,
	sdl.SCANCODE_RETURN:    input.KeyEnter,
	sdl.SCANCODE_BACKSPACE: input.KeyBackspace,
	sdl.SCANCODE_TAB:       input.KeyTab,
	sdl.SCANCODE_R:         input.KeyR,
	sdl.SCANCODE_O:         input.KeyO,
	sdl.SCANCODE_C:         input.KeyC,
	sdl.SCANCODE_P:         input.KeyP,
	sdl.SCANCODE_S:         input.KeyS,
	sdl.SCANCODE_T:         input.KeyT,
	sdl.SCANCODE_EQUALS:    input.KeyPlus,
	sdl.SCANCODE_KP_PLUS:   input.KeyPlus,
	sdl.SCANCODE_MINUS:     input.KeyMinus,
	sdl.SCANCODE_KP_MINUS:  input.KeyMinus,
}

func translateKey(sc sdl.Scancode) input.Key {
	if k, ok := keys[sc]; ok {
		return k
	}
	return input.KeyUnknown
}
