// Package uniform holds shader uniform values as a tagged variant and
// dispatches them through a table resolved once when a program is linked.
package uniform

import (
	"errors"
	"fmt"

	"github.com/Faultbox/latent-explorer/pkg/math"
)

var (
	ErrUnknownUniform = errors.New("unknown uniform")
	ErrKindMismatch   = errors.New("uniform kind mismatch")
	ErrUnsupported    = errors.New("unsupported uniform type")
)

// Kind is the type tag of a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindFloat
	KindVec2
	KindVec3
	KindVec4
	KindMat4
	KindInt
	KindBool
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindFloat:   "float",
	KindVec2:    "vec2",
	KindVec3:    "vec3",
	KindVec4:    "vec4",
	KindMat4:    "mat4",
	KindInt:     "int",
	KindBool:    "bool",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Value is one uniform value. Only the fields matching Kind are meaningful.
type Value struct {
	Kind Kind
	f    [16]float32
	i    int32
}

// Float returns a scalar value.
func Float(v float32) Value {
	val := Value{Kind: KindFloat}
	val.f[0] = v
	return val
}

// Vec2 returns a two-component value.
func Vec2(x, y float32) Value {
	val := Value{Kind: KindVec2}
	val.f[0], val.f[1] = x, y
	return val
}

// Vec3 returns a three-component value.
func Vec3(v math.Vec3) Value {
	val := Value{Kind: KindVec3}
	val.f[0], val.f[1], val.f[2] = v.X, v.Y, v.Z
	return val
}

// Vec4 returns a four-component value.
func Vec4(v math.Vec4) Value {
	val := Value{Kind: KindVec4}
	copy(val.f[:4], v[:])
	return val
}

// Mat4 returns a column-major matrix value.
func Mat4(m math.Mat4) Value {
	return Value{Kind: KindMat4, f: m}
}

// Int returns an integer value.
func Int(v int32) Value {
	return Value{Kind: KindInt, i: v}
}

// Bool returns a boolean value, uploaded as an int.
func Bool(v bool) Value {
	val := Value{Kind: KindBool}
	if v {
		val.i = 1
	}
	return val
}

// Floats returns the float payload for float kinds.
func (v Value) Floats() []float32 {
	switch v.Kind {
	case KindFloat:
		return v.f[:1]
	case KindVec2:
		return v.f[:2]
	case KindVec3:
		return v.f[:3]
	case KindVec4:
		return v.f[:4]
	case KindMat4:
		return v.f[:]
	}
	return nil
}

// Matrix returns the payload of a KindMat4 value.
func (v Value) Matrix() math.Mat4 { return v.f }

// IntValue returns the payload of KindInt and KindBool values.
func (v Value) IntValue() int32 { return v.i }

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return fmt.Sprintf("int(%d)", v.i)
	case KindBool:
		return fmt.Sprintf("bool(%t)", v.i != 0)
	case KindInvalid:
		return "invalid"
	}
	return fmt.Sprintf("%s%v", v.Kind, v.Floats())
}
