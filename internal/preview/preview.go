// Package preview writes decoded images, traversal frames and window
// captures to disk.
package preview

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/draw"
)

// ErrUnknownFormat is returned for an unsupported output format name.
var ErrUnknownFormat = errors.New("unknown preview format")

// Format is an output encoding.
type Format string

const (
	FormatWebP Format = "webp"
	FormatPNG  Format = "png"
)

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case FormatWebP, FormatPNG:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Encode writes img to w in format f.
func Encode(w io.Writer, img image.Image, f Format) error {
	switch f {
	case FormatWebP:
		return nativewebp.Encode(w, toNRGBA(img), nil)
	case FormatPNG:
		return png.Encode(w, img)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Upscale enlarges img by an integer factor without smoothing, which keeps
// 28x28 digits legible.
func Upscale(img image.Image, scale int) image.Image {
	if scale <= 1 {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// ContactSheet tiles frames left to right, top to bottom, cols per row,
// separated by a one pixel gap.
func ContactSheet(frames []image.Image, cols int) image.Image {
	if len(frames) == 0 {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}
	cols = max(1, min(cols, len(frames)))
	rows := (len(frames) + cols - 1) / cols

	cell := frames[0].Bounds()
	w, h := cell.Dx()+1, cell.Dy()+1
	sheet := image.NewRGBA(image.Rect(0, 0, cols*w-1, rows*h-1))
	draw.Draw(sheet, sheet.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	for i, f := range frames {
		at := image.Pt((i%cols)*w, (i/cols)*h)
		draw.Draw(sheet, f.Bounds().Sub(f.Bounds().Min).Add(at), f, f.Bounds().Min, draw.Src)
	}
	return sheet
}

// Writer handles preview output.
type Writer struct {
	outputDir string
	prefix    string
	format    Format
	scale     int

	now func() time.Time
	mu  sync.Mutex
	seq int
}

// NewWriter creates a writer. Images are upscaled by scale before encoding.
func NewWriter(outputDir, prefix string, format Format, scale int) *Writer {
	return &Writer{
		outputDir: outputDir,
		prefix:    prefix,
		format:    format,
		scale:     max(scale, 1),
		now:       time.Now,
	}
}

// SetOutputDir sets the output directory.
func (w *Writer) SetOutputDir(dir string) {
	w.outputDir = dir
}

// Format returns the output encoding.
func (w *Writer) Format() Format { return w.format }

// GenerateFilename generates a unique name for tag without saving.
func (w *Writer) GenerateFilename(tag string) string {
	w.mu.Lock()
	w.seq++
	seq := w.seq
	w.mu.Unlock()

	timestamp := w.now().Format("2006-01-02_15-04-05")
	name := fmt.Sprintf("%s_%s_%s_%03d.%s", w.prefix, tag, timestamp, seq, w.format)
	if w.outputDir != "" {
		name = filepath.Join(w.outputDir, name)
	}
	return name
}

func (w *Writer) save(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	if err := Encode(file, img, w.format); err != nil {
		file.Close()
		return fmt.Errorf("encoding %s: %w", w.format, err)
	}
	return file.Close()
}

// Write upscales and saves one decoded image.
func (w *Writer) Write(tag string, img image.Image) (string, error) {
	path := w.GenerateFilename(tag)
	if err := w.save(path, Upscale(img, w.scale)); err != nil {
		return "", err
	}
	return path, nil
}

// WriteFrames saves a traversal as numbered frames in their own directory,
// plus a contact sheet of all frames. It returns the directory.
func (w *Writer) WriteFrames(tag string, frames []image.Image) (string, error) {
	if len(frames) == 0 {
		return "", errors.New("no frames to write")
	}
	dir := strings.TrimSuffix(w.GenerateFilename(tag), "."+string(w.format))

	for i, f := range frames {
		path := filepath.Join(dir, fmt.Sprintf("frame_%03d.%s", i, w.format))
		if err := w.save(path, Upscale(f, w.scale)); err != nil {
			return "", fmt.Errorf("frame %d: %w", i, err)
		}
	}

	cols := 1
	for cols*cols < len(frames) {
		cols++
	}
	sheet := Upscale(ContactSheet(frames, cols), w.scale)
	if err := w.save(filepath.Join(dir, "sheet."+string(w.format)), sheet); err != nil {
		return "", fmt.Errorf("contact sheet: %w", err)
	}
	return dir, nil
}

// CaptureFromPixels saves a window capture from raw pixel data.
// pixels should be in RGBA format with width*height*4 bytes.
// The image is flipped vertically since OpenGL has origin at bottom-left.
func (w *Writer) CaptureFromPixels(pixels []byte, width, height int) (string, error) {
	if len(pixels) != width*height*4 {
		return "", fmt.Errorf("pixel data size mismatch: expected %d, got %d", width*height*4, len(pixels))
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	rowSize := width * 4
	for y := 0; y < height; y++ {
		srcOffset := (height - 1 - y) * rowSize
		dstOffset := y * img.Stride
		copy(img.Pix[dstOffset:dstOffset+rowSize], pixels[srcOffset:srcOffset+rowSize])
	}

	path := w.GenerateFilename("screen")
	if err := w.save(path, img); err != nil {
		return "", err
	}
	return path, nil
}
