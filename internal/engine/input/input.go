// Package input defines the pointer and keyboard event vocabulary shared by
// the window layer and the interaction router.
package input

// EventType identifies an input event.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventKeyUp
	EventMouseMove
	EventMouseDown
	EventMouseUp
	EventMouseLeave
	EventMouseWheel
)

func (t EventType) String() string {
	switch t {
	case EventQuit:
		return "quit"
	case EventWindowResize:
		return "resize"
	case EventKeyDown:
		return "key_down"
	case EventKeyUp:
		return "key_up"
	case EventMouseMove:
		return "mouse_move"
	case EventMouseDown:
		return "mouse_down"
	case EventMouseUp:
		return "mouse_up"
	case EventMouseLeave:
		return "mouse_leave"
	case EventMouseWheel:
		return "mouse_wheel"
	default:
		return "none"
	}
}

// Button is a mouse button.
type Button uint8

const (
	ButtonNone Button = iota
	ButtonLeft
	ButtonMiddle
	ButtonRight
)

// Key is a keyboard key, independent of the windowing backend.
type Key int

const (
	KeyUnknown Key = iota
	KeyEscape
	KeySpace
	KeyEnter
	KeyBackspace
	KeyTab
	KeyR
	KeyO
	KeyC
	KeyP
	KeyS
	KeyT
	KeyPlus
	KeyMinus
)

// Modifier is a bit set of held modifier keys.
type Modifier uint8

const (
	ModShift Modifier = 1 << iota
	ModCtrl
	ModAlt
)

// Has reports whether all bits of o are set.
func (m Modifier) Has(o Modifier) bool { return m&o == o }

// Event represents a processed input event. Mouse coordinates are in window
// client units with the origin at the top-left corner.
type Event struct {
	Type      EventType
	Key       Key
	Modifiers Modifier
	Width     int
	Height    int
	MouseX    float32
	MouseY    float32
	Button    Button
	Wheel     float32
}

// Input collects the events of one frame.
type Input struct {
	events []Event
	quit   bool
}

// New creates a new input handler.
func New() *Input {
	return &Input{
		events: make([]Event, 0, 16),
	}
}

// Reset drops the events of the previous frame.
func (i *Input) Reset() {
	i.events = i.events[:0]
}

// Push records an event.
func (i *Input) Push(e Event) {
	if e.Type == EventQuit {
		i.quit = true
	}
	i.events = append(i.events, e)
}

// Events returns the events recorded since the last Reset.
func (i *Input) Events() []Event {
	return i.events
}

// Quit reports whether a quit event has been seen.
func (i *Input) Quit() bool {
	return i.quit
}

// IsKeyPressed checks if a specific key was pressed this frame.
func (i *Input) IsKeyPressed(k Key) bool {
	for _, e := range i.events {
		if e.Type == EventKeyDown && e.Key == k {
			return true
		}
	}
	return false
}
