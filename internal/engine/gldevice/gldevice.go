// Package gldevice is the OpenGL 4.1 backend of the renderer.
package gldevice

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/latent-explorer/internal/engine/framebuffer"
	"github.com/Faultbox/latent-explorer/internal/engine/renderer"
	"github.com/Faultbox/latent-explorer/internal/engine/shader"
	"github.com/Faultbox/latent-explorer/internal/engine/uniform"
	"github.com/Faultbox/latent-explorer/internal/geometry"
	"github.com/Faultbox/latent-explorer/internal/logger"
)

// Device implements renderer.Device on the current GL context.
type Device struct {
	programs map[renderer.Pipeline]*shader.Program
	picking  *framebuffer.Framebuffer

	// vertex counts per buffer; glBufferSubData cannot grow a buffer
	sizes map[geometry.BufferID]int

	width, height int32
	log           *zap.Logger
}

var _ renderer.Device = (*Device)(nil)

// New initializes GL, compiles the point and line programs and creates the
// picking framebuffer at the drawable size.
func New(width, height int) (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("initializing OpenGL: %w", err)
	}

	d := &Device{
		programs: make(map[renderer.Pipeline]*shader.Program),
		sizes:    make(map[geometry.BufferID]int),
		width:    int32(width),
		height:   int32(height),
		log:      logger.Named("gldevice"),
	}
	d.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	points, err := shader.Link("points", shader.PointsVertexShader, shader.PointsFragmentShader)
	if err != nil {
		return nil, err
	}
	lines, err := shader.Link("lines", shader.LinesVertexShader, shader.LinesFragmentShader)
	if err != nil {
		points.Delete()
		return nil, err
	}
	d.programs[renderer.PipelinePoints] = points
	d.programs[renderer.PipelineLines] = lines

	d.picking, err = framebuffer.New(d.width, d.height)
	if err != nil {
		d.Destroy()
		return nil, err
	}

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LEQUAL)
	gl.Enable(gl.PROGRAM_POINT_SIZE)

	for p, prog := range d.programs {
		d.log.Debug("program linked",
			zap.Int("pipeline", int(p)),
			zap.String("name", prog.Name),
			zap.Strings("uniforms", prog.Uniforms.Names()),
		)
	}
	return d, nil
}

// Resize follows the drawable size of the window.
func (d *Device) Resize(width, height int) {
	d.width, d.height = int32(max(width, 1)), int32(max(height, 1))
	d.picking.Resize(d.width, d.height)
}

// Size returns the drawable size in pixels.
func (d *Device) Size() (int, int) { return int(d.width), int(d.height) }

// Destroy releases the programs and the picking framebuffer.
func (d *Device) Destroy() {
	for _, p := range d.programs {
		p.Delete()
	}
	if d.picking != nil {
		d.picking.Destroy()
	}
}

func ptr(data []float32) unsafe.Pointer {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Pointer(&data[0])
}

// UploadBuffer creates a vertex buffer holding data.
func (d *Device) UploadBuffer(attr geometry.AttributeDesc, data []float32) (geometry.BufferID, error) {
	var vbo uint32
	gl.GenBuffers(1, &vbo)
	if vbo == 0 {
		return 0, fmt.Errorf("glGenBuffers failed for %s", attr.Attribute)
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, ptr(data), gl.DYNAMIC_DRAW)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	id := geometry.BufferID(vbo)
	d.sizes[id] = len(data)
	return id, nil
}

// UpdateBuffer replaces the contents of a vertex buffer, reallocating it when
// the length changed.
func (d *Device) UpdateBuffer(id geometry.BufferID, data []float32) error {
	size, ok := d.sizes[id]
	if !ok {
		return fmt.Errorf("unknown buffer %d", id)
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, uint32(id))
	if size == len(data) {
		if len(data) > 0 {
			gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(data)*4, ptr(data))
		}
	} else {
		gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, ptr(data), gl.DYNAMIC_DRAW)
		d.sizes[id] = len(data)
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return nil
}

// UploadIndices creates an element buffer.
func (d *Device) UploadIndices(data []uint16) (geometry.BufferID, error) {
	var ebo uint32
	gl.GenBuffers(1, &ebo)
	if ebo == 0 {
		return 0, fmt.Errorf("glGenBuffers failed for indices")
	}
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(data)*2, unsafe.Pointer(&data[0]), gl.STATIC_DRAW)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, 0)
	return geometry.BufferID(ebo), nil
}

// CreateVertexArray binds every layout attribute to its buffer and location.
func (d *Device) CreateVertexArray(layout geometry.Layout, buffers map[geometry.Attribute]geometry.BufferID, indices geometry.BufferID) (geometry.VertexArrayID, error) {
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)

	for _, desc := range layout {
		vbo, ok := buffers[desc.Attribute]
		if !ok {
			gl.BindVertexArray(0)
			gl.DeleteVertexArrays(1, &vao)
			return 0, fmt.Errorf("%s: %w", desc.Attribute, geometry.ErrMissingAttribute)
		}
		gl.BindBuffer(gl.ARRAY_BUFFER, uint32(vbo))
		gl.VertexAttribPointerWithOffset(desc.Location, int32(desc.Components), gl.FLOAT, false, int32(desc.Components*4), 0)
		gl.EnableVertexAttribArray(desc.Location)
	}
	if indices != 0 {
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, uint32(indices))
	}

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return geometry.VertexArrayID(vao), nil
}

// DeleteBuffer releases a vertex or element buffer.
func (d *Device) DeleteBuffer(id geometry.BufferID) {
	b := uint32(id)
	gl.DeleteBuffers(1, &b)
	delete(d.sizes, id)
}

// DeleteVertexArray releases a vertex array.
func (d *Device) DeleteVertexArray(id geometry.VertexArrayID) {
	v := uint32(id)
	gl.DeleteVertexArrays(1, &v)
}

// ReadPixel reads from the picking framebuffer.
func (d *Device) ReadPixel(x, y int) ([4]byte, error) {
	return d.picking.ReadPixel(x, y)
}

// ReadScreen reads the whole window as RGBA rows, origin bottom-left.
func (d *Device) ReadScreen() ([]byte, int, int, error) {
	w, h := d.width, d.height
	pixels := make([]byte, int(w)*int(h)*4)
	if len(pixels) == 0 {
		return nil, 0, 0, fmt.Errorf("empty %dx%d screen", w, h)
	}

	d.picking.Unbind()
	gl.ReadBuffer(gl.BACK)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, w, h, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(&pixels[0]))
	if e := gl.GetError(); e != gl.NO_ERROR {
		return nil, 0, 0, fmt.Errorf("glReadPixels: 0x%x", e)
	}
	return pixels, int(w), int(h), nil
}

// BindTarget binds the picking framebuffer or the window.
func (d *Device) BindTarget(t renderer.Target) {
	if t == renderer.TargetPicking {
		d.picking.Bind()
		gl.Disable(gl.BLEND)
		return
	}
	d.picking.Unbind()
	gl.Viewport(0, 0, d.width, d.height)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
}

// Clear clears color and depth of the bound target.
func (d *Device) Clear(c [4]float32) {
	gl.ClearColor(c[0], c[1], c[2], c[3])
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// UseProgram binds the program of p.
func (d *Device) UseProgram(p renderer.Pipeline) (*uniform.Table, error) {
	prog, ok := d.programs[p]
	if !ok {
		return nil, fmt.Errorf("pipeline %d: %w", p, renderer.ErrNoProgram)
	}
	prog.Use()
	return prog.Uniforms, nil
}

// Draw issues one draw call.
func (d *Device) Draw(c renderer.DrawCall) {
	mode := drawMode(c.Mode)
	gl.BindVertexArray(uint32(c.VertexArray))
	if c.Indexed {
		gl.DrawElements(mode, int32(c.Count), gl.UNSIGNED_SHORT, nil)
	} else {
		gl.DrawArrays(mode, 0, int32(c.Count))
	}
	gl.BindVertexArray(0)
}

func drawMode(m geometry.DrawMode) uint32 {
	switch m {
	case geometry.ModeLines:
		return gl.LINES
	case geometry.ModeLineStrip:
		return gl.LINE_STRIP
	}
	return gl.POINTS
}
