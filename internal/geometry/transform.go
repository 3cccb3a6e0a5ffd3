package geometry

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/latent-explorer/pkg/math"
)

// Oscillation defaults: angle = sin(time * DefaultOscillationFrequency) * DefaultOscillationAmplitude,
// with time in milliseconds.
const (
	DefaultOscillationFrequency = 0.001
	DefaultOscillationAmplitude = 90
)

// RotationSpec is a spin around Axis at Speed radians per time unit.
type RotationSpec struct {
	Speed float32
	Axis  math.Vec3
}

// Transform holds the per-object transform parameters. The model matrix is
// rebuilt from these fields every frame; nothing derived is cached.
type Transform struct {
	translation math.Vec3
	rotation    RotationSpec
	oscillate   bool
	frequency   float32
	amplitude   float32

	needsUpdate bool
}

// NewTransform returns a transform at the origin with no spin.
func NewTransform() Transform {
	return Transform{
		frequency:   DefaultOscillationFrequency,
		amplitude:   DefaultOscillationAmplitude,
		needsUpdate: true,
	}
}

// SetTranslation moves the object.
func (t *Transform) SetTranslation(v math.Vec3) {
	t.translation = v
	t.needsUpdate = true
}

// SetRotation sets the spin speed and axis.
func (t *Transform) SetRotation(speed float32, axis math.Vec3) {
	t.rotation = RotationSpec{Speed: speed, Axis: axis}
	t.needsUpdate = true
}

// SetOscillate switches between continuous spin and sinusoidal rocking.
func (t *Transform) SetOscillate(on bool) {
	t.oscillate = on
	t.needsUpdate = true
}

// SetOscillation overrides the oscillation frequency and amplitude.
func (t *Transform) SetOscillation(frequency, amplitude float32) {
	t.frequency = frequency
	t.amplitude = amplitude
	t.needsUpdate = true
}

// Translation returns the translation vector.
func (t *Transform) Translation() math.Vec3 { return t.translation }

// Rotation returns the spin parameters.
func (t *Transform) Rotation() RotationSpec { return t.rotation }

// Oscillating reports whether oscillation mode is on.
func (t *Transform) Oscillating() bool { return t.oscillate }

// NeedsUpdate reports whether a setter ran since the last MarkClean.
func (t *Transform) NeedsUpdate() bool { return t.needsUpdate }

// MarkClean clears the dirty flag once the renderer has pushed the matrix.
func (t *Transform) MarkClean() { t.needsUpdate = false }

// Angle returns the rotation angle at the given time.
func (t *Transform) Angle(timeMs float32) float32 {
	phase := timeMs
	if t.oscillate {
		phase = math32.Sin(timeMs*t.frequency) * t.amplitude
	}
	return phase * t.rotation.Speed
}

// ModelMatrix builds identity, then translate, then rotate, from t's fields.
func ModelMatrix(t *Transform, timeMs float32) math.Mat4 {
	return math.Identity().
		Translated(t.translation).
		Rotated(t.Angle(timeMs), t.rotation.Axis)
}
