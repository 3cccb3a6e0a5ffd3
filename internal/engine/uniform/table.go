package uniform

import (
	"fmt"
	"sort"
)

// Info describes one active uniform of a linked program.
type Info struct {
	Name     string
	Location int32
	Kind     Kind
}

// Setter uploads values to the currently bound program.
type Setter interface {
	Uniform1f(loc int32, v float32)
	Uniform2fv(loc int32, v []float32)
	Uniform3fv(loc int32, v []float32)
	Uniform4fv(loc int32, v []float32)
	UniformMatrix4fv(loc int32, m *[16]float32)
	Uniform1i(loc int32, v int32)
}

type entry struct {
	info Info
	set  func(Value)
}

// Table maps uniform names to setters chosen once from their declared kind.
type Table struct {
	entries map[string]entry
}

// NewTable resolves a setter per uniform. Uniforms of kinds the table does
// not support are rejected.
func NewTable(infos []Info, s Setter) (*Table, error) {
	t := &Table{entries: make(map[string]entry, len(infos))}
	for _, info := range infos {
		set, err := bind(info, s)
		if err != nil {
			return nil, err
		}
		t.entries[info.Name] = entry{info: info, set: set}
	}
	return t, nil
}

func bind(info Info, s Setter) (func(Value), error) {
	loc := info.Location
	switch info.Kind {
	case KindFloat:
		return func(v Value) { s.Uniform1f(loc, v.f[0]) }, nil
	case KindVec2:
		return func(v Value) { s.Uniform2fv(loc, v.f[:2]) }, nil
	case KindVec3:
		return func(v Value) { s.Uniform3fv(loc, v.f[:3]) }, nil
	case KindVec4:
		return func(v Value) { s.Uniform4fv(loc, v.f[:4]) }, nil
	case KindMat4:
		return func(v Value) { s.UniformMatrix4fv(loc, &v.f) }, nil
	case KindInt, KindBool:
		return func(v Value) { s.Uniform1i(loc, v.i) }, nil
	}
	return nil, fmt.Errorf("%s (%s): %w", info.Name, info.Kind, ErrUnsupported)
}

// Has reports whether the program declares an active uniform called name.
func (t *Table) Has(name string) bool {
	_, ok := t.entries[name]
	return ok
}

// Info returns the declaration of name.
func (t *Table) Info(name string) (Info, bool) {
	e, ok := t.entries[name]
	return e.info, ok
}

// Names returns the uniform names in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.entries))
	for n := range t.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Set uploads v to name. The value kind must match the declaration; an int
// and a bool are interchangeable because GLSL bools are set as ints.
func (t *Table) Set(name string, v Value) error {
	e, ok := t.entries[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrUnknownUniform)
	}
	if !compatible(e.info.Kind, v.Kind) {
		return fmt.Errorf("%s is %s, got %s: %w", name, e.info.Kind, v.Kind, ErrKindMismatch)
	}
	e.set(v)
	return nil
}

// SetAll uploads every value, skipping names the program does not declare.
// It stops at the first kind mismatch.
func (t *Table) SetAll(values map[string]Value) error {
	for name, v := range values {
		if !t.Has(name) {
			continue
		}
		if err := t.Set(name, v); err != nil {
			return err
		}
	}
	return nil
}

func compatible(declared, got Kind) bool {
	if declared == got {
		return true
	}
	isInt := func(k Kind) bool { return k == KindInt || k == KindBool }
	return isInt(declared) && isInt(got)
}
