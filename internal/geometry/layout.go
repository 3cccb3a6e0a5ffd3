package geometry

import "fmt"

// Attribute identifies a per-vertex buffer.
type Attribute int

const (
	AttribPosition Attribute = iota
	AttribColor
	AttribID
)

// Shader attribute locations shared by every program.
const (
	LocationPosition uint32 = 0
	LocationColor    uint32 = 1
	LocationID       uint32 = 2
)

func (a Attribute) String() string {
	switch a {
	case AttribPosition:
		return "position"
	case AttribColor:
		return "color"
	case AttribID:
		return "id"
	default:
		return fmt.Sprintf("Attribute(%d)", int(a))
	}
}

// AttributeDesc describes one float attribute stored in its own tightly packed buffer.
type AttributeDesc struct {
	Attribute  Attribute
	Components int
	Location   uint32
}

// Layout lists the attributes a shape provides.
type Layout []AttributeDesc

// Find returns the descriptor for a, if present.
func (l Layout) Find(a Attribute) (AttributeDesc, bool) {
	for _, d := range l {
		if d.Attribute == a {
			return d, true
		}
	}
	return AttributeDesc{}, false
}

// Has reports whether a is part of the layout.
func (l Layout) Has(a Attribute) bool {
	_, ok := l.Find(a)
	return ok
}

// PositionLayout is a bare xyz layout.
func PositionLayout() Layout {
	return Layout{{Attribute: AttribPosition, Components: 3, Location: LocationPosition}}
}

// PickableLayout is xyz + rgb + an ID with idComponents channels.
func PickableLayout(idComponents int) Layout {
	return Layout{
		{Attribute: AttribPosition, Components: 3, Location: LocationPosition},
		{Attribute: AttribColor, Components: 3, Location: LocationColor},
		{Attribute: AttribID, Components: idComponents, Location: LocationID},
	}
}

// DrawMode is the primitive type used to draw a node.
type DrawMode int

const (
	ModePoints DrawMode = iota
	ModeLines
	ModeLineStrip
)

func (m DrawMode) String() string {
	switch m {
	case ModePoints:
		return "points"
	case ModeLines:
		return "lines"
	case ModeLineStrip:
		return "line_strip"
	default:
		return fmt.Sprintf("DrawMode(%d)", int(m))
	}
}
