package picking

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Viewport maps pointer coordinates (client units, origin top-left) onto
// framebuffer pixels (origin bottom-left). The two sizes differ on high-DPI
// displays.
type Viewport struct {
	ClientWidth, ClientHeight           int
	FramebufferWidth, FramebufferHeight int
}

// UniformViewport is a viewport whose client and framebuffer sizes match.
func UniformViewport(width, height int) Viewport {
	return Viewport{width, height, width, height}
}

// Scale returns framebuffer pixels per client unit.
func (v Viewport) Scale() float32 {
	if v.ClientWidth <= 0 {
		return 1
	}
	return float32(v.FramebufferWidth) / float32(v.ClientWidth)
}

// Contains reports whether the client point lies on the canvas.
func (v Viewport) Contains(x, y float32) bool {
	return x >= 0 && y >= 0 && x < float32(v.ClientWidth) && y < float32(v.ClientHeight)
}

// ScreenToPixel maps a client position to the framebuffer pixel under it.
// ok is false when the pixel falls outside the framebuffer.
func (v Viewport) ScreenToPixel(x, y float32) (px, py int, ok bool) {
	if !v.Contains(x, y) {
		return 0, 0, false
	}
	scale := v.Scale()
	px = int(math32.Floor(x * scale))
	py = v.FramebufferHeight - int(math32.Floor(y*scale)) - 1
	if px < 0 || px >= v.FramebufferWidth || py < 0 || py >= v.FramebufferHeight {
		return 0, 0, false
	}
	return px, py, true
}

// PixelReader reads one RGBA pixel from the bound picking target.
type PixelReader interface {
	ReadPixel(x, y int) ([4]byte, error)
}

// Selection is the result of a pick.
type Selection struct {
	Index int
	Hit   bool
}

// None is the empty selection.
var None = Selection{Index: -1}

// Picker decodes the picking target under the pointer.
type Picker struct {
	Viewport Viewport

	// Components is the number of ID channels written per vertex. Channels
	// beyond it are forced to their clear value by the rasterizer (alpha
	// becomes 1.0 for a 3-component attribute) and are masked off.
	Components int
}

// NewPicker returns a picker for idComponents-channel IDs.
func NewPicker(vp Viewport, idComponents int) *Picker {
	return &Picker{Viewport: vp, Components: idComponents}
}

// Pick reads the pixel under (x, y). Pointers outside the canvas skip the read.
func (p *Picker) Pick(r PixelReader, x, y float32) (Selection, error) {
	px, py, ok := p.Viewport.ScreenToPixel(x, y)
	if !ok {
		return None, nil
	}
	b, err := r.ReadPixel(px, py)
	if err != nil {
		return None, fmt.Errorf("reading pick pixel (%d, %d): %w", px, py, err)
	}
	return p.decode(b), nil
}

func (p *Picker) decode(b [4]byte) Selection {
	if p.Components > 0 {
		for i := p.Components; i < 4; i++ {
			b[i] = 0
		}
	}
	index, hit := Resolve(b)
	if !hit {
		return None
	}
	return Selection{Index: index, Hit: true}
}
