package geometry

import "github.com/Faultbox/latent-explorer/pkg/math"

// Polyline is an ordered list of points, typically drawn by the user on the
// picking sphere.
type Polyline []math.Vec3

// Length returns the summed segment lengths.
func (p Polyline) Length() float32 {
	var total float32
	for i := 1; i < len(p); i++ {
		total += p[i].Distance(p[i-1])
	}
	return total
}

// Flat returns the points as a flat xyz slice.
func (p Polyline) Flat() []float32 {
	out := make([]float32, 0, len(p)*3)
	for _, v := range p {
		out = append(out, v.X, v.Y, v.Z)
	}
	return out
}

// Resample returns n points spaced evenly by arc length from the first to
// the last point. A curve with no length yields n copies of its first point.
func (p Polyline) Resample(n int) Polyline {
	if n <= 0 || len(p) == 0 {
		return nil
	}
	total := p.Length()
	if n == 1 || len(p) == 1 || total == 0 {
		out := make(Polyline, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, p[0])
		}
		return out
	}

	out := make(Polyline, 0, n)
	step := total / float32(n-1)
	seg := 1
	var walked float32 // arc length at p[seg-1]

	for i := 0; i < n; i++ {
		target := step * float32(i)
		if i == n-1 {
			out = append(out, p[len(p)-1])
			break
		}
		for seg < len(p)-1 && walked+p[seg].Distance(p[seg-1]) < target {
			walked += p[seg].Distance(p[seg-1])
			seg++
		}
		a, b := p[seg-1], p[seg]
		l := b.Distance(a)
		t := float32(0)
		if l > 0 {
			t = math.Clamp((target-walked)/l, 0, 1)
		}
		out = append(out, a.Lerp(b, t))
	}
	return out
}
