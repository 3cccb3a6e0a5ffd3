// Package shader compiles GLSL programs and builds their uniform dispatch
// tables at link time.
package shader

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/latent-explorer/internal/engine/uniform"
)

// Program is a linked GL program with its uniform table.
type Program struct {
	Name     string
	ID       uint32
	Uniforms *uniform.Table
}

// Link compiles and links a program, then resolves every active uniform.
func Link(name, vertexSrc, fragmentSrc string) (*Program, error) {
	id, err := CompileProgram(vertexSrc, fragmentSrc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	infos, err := activeUniforms(id)
	if err != nil {
		gl.DeleteProgram(id)
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	table, err := uniform.NewTable(infos, glSetter{})
	if err != nil {
		gl.DeleteProgram(id)
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	return &Program{Name: name, ID: id, Uniforms: table}, nil
}

// Use binds the program.
func (p *Program) Use() {
	gl.UseProgram(p.ID)
}

// Delete releases the program.
func (p *Program) Delete() {
	if p.ID != 0 {
		gl.DeleteProgram(p.ID)
		p.ID = 0
	}
}

// CompileProgram compiles vertex and fragment shaders and links them into a program.
// Returns the program ID or an error if compilation/linking fails.
func CompileProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	vertShader, err := compileShader(vertexSrc, gl.VERTEX_SHADER, "vertex")
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vertShader)

	fragShader, err := compileShader(fragmentSrc, gl.FRAGMENT_SHADER, "fragment")
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(fragShader)

	program := gl.CreateProgram()
	gl.AttachShader(program, vertShader)
	gl.AttachShader(program, fragShader)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, logLen+1)
		gl.GetProgramInfoLog(program, logLen, nil, &log[0])
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link: %s", gl.GoStr(&log[0]))
	}

	return program, nil
}

func compileShader(source string, shaderType uint32, name string) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, logLen+1)
		gl.GetShaderInfoLog(shader, logLen, nil, &log[0])
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%s shader: %s", name, gl.GoStr(&log[0]))
	}

	return shader, nil
}

// activeUniforms lists the uniforms the linker kept, with their kinds.
func activeUniforms(program uint32) ([]uniform.Info, error) {
	var count, maxLen int32
	gl.GetProgramiv(program, gl.ACTIVE_UNIFORMS, &count)
	gl.GetProgramiv(program, gl.ACTIVE_UNIFORM_MAX_LENGTH, &maxLen)

	buf := make([]byte, maxLen+1)
	infos := make([]uniform.Info, 0, count)
	for i := int32(0); i < count; i++ {
		var length, size int32
		var glType uint32
		gl.GetActiveUniform(program, uint32(i), maxLen+1, &length, &size, &glType, &buf[0])
		name := string(buf[:length])

		kind, ok := kindOf(glType)
		if !ok {
			return nil, fmt.Errorf("uniform %s has GL type 0x%x: %w", name, glType, uniform.ErrUnsupported)
		}
		infos = append(infos, uniform.Info{
			Name:     name,
			Location: gl.GetUniformLocation(program, gl.Str(name+"\x00")),
			Kind:     kind,
		})
	}
	return infos, nil
}

func kindOf(glType uint32) (uniform.Kind, bool) {
	switch glType {
	case gl.FLOAT:
		return uniform.KindFloat, true
	case gl.FLOAT_VEC2:
		return uniform.KindVec2, true
	case gl.FLOAT_VEC3:
		return uniform.KindVec3, true
	case gl.FLOAT_VEC4:
		return uniform.KindVec4, true
	case gl.FLOAT_MAT4:
		return uniform.KindMat4, true
	case gl.INT, gl.SAMPLER_2D:
		return uniform.KindInt, true
	case gl.BOOL:
		return uniform.KindBool, true
	}
	return uniform.KindInvalid, false
}

// glSetter uploads to whichever program is bound.
type glSetter struct{}

func (glSetter) Uniform1f(loc int32, v float32)    { gl.Uniform1f(loc, v) }
func (glSetter) Uniform2fv(loc int32, v []float32) { gl.Uniform2fv(loc, 1, &v[0]) }
func (glSetter) Uniform3fv(loc int32, v []float32) { gl.Uniform3fv(loc, 1, &v[0]) }
func (glSetter) Uniform4fv(loc int32, v []float32) { gl.Uniform4fv(loc, 1, &v[0]) }
func (glSetter) Uniform1i(loc int32, v int32)      { gl.Uniform1i(loc, v) }

func (glSetter) UniformMatrix4fv(loc int32, m *[16]float32) {
	gl.UniformMatrix4fv(loc, 1, false, &m[0])
}
