package geometry

import "github.com/chewxy/math32"

// Color is an RGB color with components in [0, 1].
type Color struct {
	R, G, B float32
}

// Predefined colors.
var (
	ColorWhite = Color{1, 1, 1}
	ColorGray  = Color{0.5, 0.5, 0.5}
	ColorCurve = Color{1, 0.85, 0.2}
)

// Darken returns a darker version of the color.
func (c Color) Darken(factor float32) Color {
	return Color{
		R: c.R * (1 - factor),
		G: c.G * (1 - factor),
		B: c.B * (1 - factor),
	}
}

// HSVToRGB converts hue, saturation and value in [0, 1] to RGB.
func HSVToRGB(h, s, v float32) Color {
	i := int(math32.Floor(h * 6))
	f := h*6 - float32(i)
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)

	switch ((i % 6) + 6) % 6 {
	case 0:
		return Color{v, t, p}
	case 1:
		return Color{q, v, p}
	case 2:
		return Color{p, v, t}
	case 3:
		return Color{p, q, v}
	case 4:
		return Color{t, p, v}
	default:
		return Color{v, p, q}
	}
}

// Palette returns n fully saturated colors with evenly spaced hues.
func Palette(n int) []Color {
	colors := make([]Color, n)
	for i := range colors {
		colors[i] = HSVToRGB(float32(i)/float32(n), 1, 1)
	}
	return colors
}

// LabelColors returns a flat rgb slice coloring each point by its class label.
// Labels outside the palette are drawn gray.
func LabelColors(labels []int, palette []Color) []float32 {
	out := make([]float32, 0, len(labels)*3)
	for _, l := range labels {
		c := ColorGray
		if l >= 0 && l < len(palette) {
			c = palette[l]
		}
		out = append(out, c.R, c.G, c.B)
	}
	return out
}

// Fill returns a flat rgb slice of n copies of c.
func Fill(n int, c Color) []float32 {
	out := make([]float32, 0, n*3)
	for i := 0; i < n; i++ {
		out = append(out, c.R, c.G, c.B)
	}
	return out
}
