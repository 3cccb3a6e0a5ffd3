package gldevice

import (
	"fmt"
	"image"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/latent-explorer/internal/engine/overlay"
	"github.com/Faultbox/latent-explorer/internal/engine/shader"
	"github.com/Faultbox/latent-explorer/internal/engine/uniform"
)

// Overlay draws one image as a screen-space quad on top of the scene.
type Overlay struct {
	Corner overlay.Corner
	Size   int // edge length in framebuffer pixels, 0 hides the overlay
	Margin int

	program *shader.Program
	vao     uint32
	vbo     uint32
	texture uint32
	source  image.Image
}

// NewOverlay links the image program and creates the quad buffers.
func NewOverlay(corner overlay.Corner, size, margin int) (*Overlay, error) {
	prog, err := shader.Link("image", shader.ImageVertexShader, shader.ImageFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("create image shader: %w", err)
	}
	o := &Overlay{Corner: corner, Size: size, Margin: margin, program: prog}

	gl.GenVertexArrays(1, &o.vao)
	gl.BindVertexArray(o.vao)
	gl.GenBuffers(1, &o.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, o.vbo)

	// Vertex format: pos(2) + texcoord(2) = 4 floats, 16 bytes
	stride := int32(4 * 4)
	gl.VertexAttribPointerWithOffset(0, 2, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 2, gl.FLOAT, false, stride, 2*4)
	gl.EnableVertexAttribArray(1)

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return o, nil
}

// Show uploads img unless it is already on display.
func (o *Overlay) Show(img image.Image) {
	if img == nil || img == o.source {
		return
	}
	rgba := overlay.ToRGBA(img)
	if len(rgba.Pix) == 0 {
		return
	}

	if o.texture == 0 {
		gl.GenTextures(1, &o.texture)
	}
	gl.BindTexture(gl.TEXTURE_2D, o.texture)
	// Nearest filtering keeps small digits crisp when scaled up.
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	b := rgba.Bounds()
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(b.Dx()), int32(b.Dy()), 0,
		gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&rgba.Pix[0]))
	gl.BindTexture(gl.TEXTURE_2D, 0)

	o.source = img
}

// Hide stops drawing until the next Show.
func (o *Overlay) Hide() {
	o.source = nil
}

// Draw renders the image into the bound window framebuffer of the given size.
func (o *Overlay) Draw(screenW, screenH int) error {
	if o.source == nil || o.texture == 0 || o.Size <= 0 {
		return nil
	}
	r := overlay.Place(screenW, screenH, o.Corner, o.Size, o.Margin)
	if r.Empty() {
		return nil
	}

	// Save state
	var prevDepth int32
	gl.GetIntegerv(gl.DEPTH_TEST, &prevDepth)
	gl.Disable(gl.DEPTH_TEST)

	o.program.Use()
	err := o.program.Uniforms.SetAll(map[string]uniform.Value{
		"u_Projection": uniform.Mat4(overlay.Ortho(screenW, screenH)),
		"u_Texture":    uniform.Int(0),
	})
	if err != nil {
		return fmt.Errorf("overlay uniforms: %w", err)
	}

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, o.texture)

	vertices := overlay.Quad(r)
	gl.BindVertexArray(o.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, o.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, unsafe.Pointer(&vertices[0]), gl.STREAM_DRAW)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)

	// Restore state
	gl.BindVertexArray(0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.UseProgram(0)
	if prevDepth == gl.TRUE {
		gl.Enable(gl.DEPTH_TEST)
	}
	return nil
}

// Destroy releases the texture, buffers and program.
func (o *Overlay) Destroy() {
	if o.texture != 0 {
		gl.DeleteTextures(1, &o.texture)
		o.texture = 0
	}
	if o.vao != 0 {
		gl.DeleteVertexArrays(1, &o.vao)
	}
	if o.vbo != 0 {
		gl.DeleteBuffers(1, &o.vbo)
	}
	o.program.Delete()
}
