// Package overlay lays out the screen-space image drawn on top of the scene.
package overlay

import (
	"fmt"
	"image"
	"strings"

	"golang.org/x/image/draw"

	"github.com/Faultbox/latent-explorer/pkg/math"
)

// Corner is the window corner the image is anchored to.
type Corner int

const (
	TopRight Corner = iota
	TopLeft
	BottomRight
	BottomLeft
)

var cornerNames = map[string]Corner{
	"top_right":    TopRight,
	"top_left":     TopLeft,
	"bottom_right": BottomRight,
	"bottom_left":  BottomLeft,
}

// ParseCorner parses a corner name such as "top_right".
func ParseCorner(name string) (Corner, error) {
	if c, ok := cornerNames[strings.ToLower(name)]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("unknown overlay corner %q", name)
}

// Place returns the rectangle, in framebuffer pixels with the origin at the
// bottom-left, of a size x size square anchored to corner with margin pixels
// of padding. The square shrinks to fit small screens.
func Place(screenW, screenH int, corner Corner, size, margin int) image.Rectangle {
	size = min(size, screenW-2*margin, screenH-2*margin)
	if size <= 0 {
		return image.Rectangle{}
	}

	x, y := margin, margin
	switch corner {
	case TopRight:
		x, y = screenW-margin-size, screenH-margin-size
	case TopLeft:
		y = screenH - margin - size
	case BottomRight:
		x = screenW - margin - size
	}
	return image.Rect(x, y, x+size, y+size)
}

// Ortho maps framebuffer pixels (origin bottom-left) to clip space.
func Ortho(screenW, screenH int) math.Mat4 {
	w, h := float32(screenW), float32(screenH)
	m := math.Identity()
	m[0] = 2 / w
	m[5] = 2 / h
	m[10] = -1
	m[12] = -1
	m[13] = -1
	return m
}

// Quad returns two triangles covering r as x, y, u, v per vertex. Texture
// rows are stored top-down, so v runs from 1 at the bottom edge to 0 at the top.
func Quad(r image.Rectangle) []float32 {
	x0, y0 := float32(r.Min.X), float32(r.Min.Y)
	x1, y1 := float32(r.Max.X), float32(r.Max.Y)
	return []float32{
		x0, y0, 0, 1,
		x1, y0, 1, 1,
		x1, y1, 1, 0,

		x0, y0, 0, 1,
		x1, y1, 1, 0,
		x0, y1, 0, 0,
	}
}

// ToRGBA converts any image to tightly packed RGBA with its origin at (0, 0).
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) && rgba.Stride == b.Dx()*4 {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
