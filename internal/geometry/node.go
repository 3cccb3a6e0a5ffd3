// Package geometry holds renderable point and line sets, their per-object
// transforms, and the buffer data handed to the GPU backend.
package geometry

import (
	"errors"
	"fmt"

	"github.com/Faultbox/latent-explorer/pkg/math"
)

var (
	ErrMalformedPositions = errors.New("positions length is not a multiple of 3")
	ErrLengthMismatch     = errors.New("attribute length does not match vertex count")
	ErrNotLinked          = errors.New("node is not linked")
	ErrAlreadyLinked      = errors.New("node is already linked")
	ErrLayoutChanged      = errors.New("attribute added after linking")
	ErrMissingAttribute   = errors.New("layout attribute has no data")
)

// BufferID and VertexArrayID are opaque handles issued by a BufferUploader.
type (
	BufferID      uint32
	VertexArrayID uint32
)

// BufferUploader is the GPU side of buffer management.
type BufferUploader interface {
	UploadBuffer(attr AttributeDesc, data []float32) (BufferID, error)
	UpdateBuffer(id BufferID, data []float32) error
	UploadIndices(data []uint16) (BufferID, error)
	CreateVertexArray(layout Layout, buffers map[Attribute]BufferID, indices BufferID) (VertexArrayID, error)
	DeleteBuffer(id BufferID)
	DeleteVertexArray(id VertexArrayID)
}

// Node is one renderable shape: vertex data, transform, and link state.
type Node struct {
	Name      string
	Transform Transform
	Pickable  bool

	mode   DrawMode
	layout Layout

	positions []float32
	colors    []float32
	ids       []float32
	idComps   int
	indices   []uint16

	// positions = source * scale + shift
	scale float32
	shift math.Vec3

	centroid      math.Vec3
	centroidValid bool

	linked  bool
	buffers map[Attribute]BufferID
	indexID BufferID
	vao     VertexArrayID
	dirty   map[Attribute]bool
}

// NewNode builds a node from a shape descriptor.
func NewNode(d Descriptor) (*Node, error) {
	mesh, err := d.Generate()
	if err != nil {
		return nil, fmt.Errorf("generating %s: %w", d.Name, err)
	}
	if len(mesh.Positions)%3 != 0 {
		return nil, fmt.Errorf("%s: %w", d.Name, ErrMalformedPositions)
	}

	n := &Node{
		Name:      d.Name,
		Transform: NewTransform(),
		Pickable:  d.Layout.Has(AttribID),
		mode:      d.Mode,
		layout:    d.Layout,
		positions: mesh.Positions,
		colors:    mesh.Colors,
		indices:   mesh.Indices,
		scale:     1,
		dirty:     make(map[Attribute]bool),
	}

	if desc, ok := d.Layout.Find(AttribColor); ok && len(n.colors) != n.VertexCount()*desc.Components {
		return nil, fmt.Errorf("%s colors: %w", d.Name, ErrLengthMismatch)
	}
	if desc, ok := d.Layout.Find(AttribID); ok {
		if err := n.BuildPickingIDs(desc.Components); err != nil {
			return nil, fmt.Errorf("%s: %w", d.Name, err)
		}
	}
	return n, nil
}

// Mode returns the primitive type.
func (n *Node) Mode() DrawMode { return n.mode }

// Layout returns the attribute layout.
func (n *Node) Layout() Layout { return n.layout }

// VertexCount returns the number of vertices.
func (n *Node) VertexCount() int { return len(n.positions) / 3 }

// IndexCount returns the number of indices, zero for non-indexed shapes.
func (n *Node) IndexCount() int { return len(n.indices) }

// Indexed reports whether the node draws through an index buffer.
func (n *Node) Indexed() bool { return len(n.indices) > 0 }

// Positions returns the flat xyz slice. Callers must not modify it.
func (n *Node) Positions() []float32 { return n.positions }

// Colors returns the flat rgb slice, nil if the node has no colors.
func (n *Node) Colors() []float32 { return n.colors }

// IDs returns the flat picking-ID slice, nil until BuildPickingIDs runs.
func (n *Node) IDs() []float32 { return n.ids }

// Indices returns the index slice.
func (n *Node) Indices() []uint16 { return n.indices }

// Position returns vertex i.
func (n *Node) Position(i int) math.Vec3 {
	return math.Vec3{X: n.positions[3*i], Y: n.positions[3*i+1], Z: n.positions[3*i+2]}
}

// Linked reports whether buffers exist on the GPU.
func (n *Node) Linked() bool { return n.linked }

// VertexArray returns the vertex array handle of a linked node.
func (n *Node) VertexArray() VertexArrayID { return n.vao }

// SetPositions replaces the vertex positions. The shape keeps its colors only
// if the vertex count is unchanged; picking IDs are rebuilt when it changes.
func (n *Node) SetPositions(p []float32) error {
	if len(p)%3 != 0 {
		return ErrMalformedPositions
	}
	countChanged := len(p) != len(n.positions)
	if countChanged && n.colors != nil {
		return fmt.Errorf("%s: %d positions with %d colors: %w", n.Name, len(p)/3, len(n.colors)/3, ErrLengthMismatch)
	}

	n.positions = p
	n.scale = 1
	n.shift = math.Vec3{}
	n.touchPositions()

	if countChanged && n.ids != nil {
		return n.BuildPickingIDs(n.idComps)
	}
	return nil
}

// SetColors replaces the per-vertex colors.
func (n *Node) SetColors(c []float32) error {
	if len(c) != len(n.positions) {
		return fmt.Errorf("%s colors: %w", n.Name, ErrLengthMismatch)
	}
	n.colors = c
	n.dirty[AttribColor] = true
	return nil
}

// SetMesh replaces positions and colors together, allowing the vertex count
// to change. Picking IDs are rebuilt when present.
func (n *Node) SetMesh(m Mesh) error {
	if len(m.Positions)%3 != 0 {
		return ErrMalformedPositions
	}
	if n.layout.Has(AttribColor) && len(m.Colors) != len(m.Positions) {
		return fmt.Errorf("%s colors: %w", n.Name, ErrLengthMismatch)
	}
	if n.Indexed() && len(m.Indices) == 0 {
		return fmt.Errorf("%s: indexed shape needs indices: %w", n.Name, ErrMissingAttribute)
	}
	if n.linked && m.Indices != nil {
		return fmt.Errorf("%s: indices of a linked node are fixed: %w", n.Name, ErrLayoutChanged)
	}

	n.positions = m.Positions
	n.scale = 1
	n.shift = math.Vec3{}
	n.touchPositions()
	if m.Colors != nil {
		n.colors = m.Colors
		n.dirty[AttribColor] = true
	}
	if m.Indices != nil {
		n.indices = m.Indices
	}
	if n.ids != nil {
		return n.BuildPickingIDs(n.idComps)
	}
	return nil
}

func (n *Node) touchPositions() {
	n.centroidValid = false
	n.dirty[AttribPosition] = true
}

func (n *Node) data(a Attribute) []float32 {
	switch a {
	case AttribPosition:
		return n.positions
	case AttribColor:
		return n.colors
	case AttribID:
		return n.ids
	}
	return nil
}

// Link uploads every layout attribute and creates the vertex array.
func (n *Node) Link(up BufferUploader) error {
	if n.linked {
		return ErrAlreadyLinked
	}

	buffers := make(map[Attribute]BufferID, len(n.layout))
	cleanup := func() {
		for _, id := range buffers {
			up.DeleteBuffer(id)
		}
	}

	for _, desc := range n.layout {
		data := n.data(desc.Attribute)
		if data == nil {
			cleanup()
			return fmt.Errorf("%s %s: %w", n.Name, desc.Attribute, ErrMissingAttribute)
		}
		id, err := up.UploadBuffer(desc, data)
		if err != nil {
			cleanup()
			return fmt.Errorf("uploading %s %s: %w", n.Name, desc.Attribute, err)
		}
		buffers[desc.Attribute] = id
	}

	var indexID BufferID
	if n.Indexed() {
		id, err := up.UploadIndices(n.indices)
		if err != nil {
			cleanup()
			return fmt.Errorf("uploading %s indices: %w", n.Name, err)
		}
		indexID = id
	}

	vao, err := up.CreateVertexArray(n.layout, buffers, indexID)
	if err != nil {
		cleanup()
		if indexID != 0 {
			up.DeleteBuffer(indexID)
		}
		return fmt.Errorf("creating %s vertex array: %w", n.Name, err)
	}

	n.buffers = buffers
	n.indexID = indexID
	n.vao = vao
	n.linked = true
	clear(n.dirty)
	return nil
}

// Dirty reports whether any attribute changed since the last Link or Sync.
func (n *Node) Dirty() bool {
	for _, d := range n.dirty {
		if d {
			return true
		}
	}
	return false
}

// Sync re-uploads only the attributes that changed since linking.
func (n *Node) Sync(up BufferUploader) error {
	if !n.linked {
		return ErrNotLinked
	}
	for attr, d := range n.dirty {
		if !d {
			continue
		}
		id, ok := n.buffers[attr]
		if !ok {
			if n.data(attr) == nil {
				delete(n.dirty, attr)
				continue
			}
			return fmt.Errorf("%s %s: %w", n.Name, attr, ErrLayoutChanged)
		}
		if err := up.UpdateBuffer(id, n.data(attr)); err != nil {
			return fmt.Errorf("updating %s %s: %w", n.Name, attr, err)
		}
		delete(n.dirty, attr)
	}
	return nil
}

// Release deletes the GPU resources and returns the node to the unlinked state.
func (n *Node) Release(up BufferUploader) {
	if !n.linked {
		return
	}
	up.DeleteVertexArray(n.vao)
	for _, id := range n.buffers {
		up.DeleteBuffer(id)
	}
	if n.indexID != 0 {
		up.DeleteBuffer(n.indexID)
	}
	n.buffers = nil
	n.indexID = 0
	n.vao = 0
	n.linked = false
}
