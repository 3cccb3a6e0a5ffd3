// Package inference turns latent vectors into images through an external
// decoder model.
package inference

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math/rand/v2"

	"github.com/chewxy/math32"
)

var (
	ErrNoDecoder   = errors.New("no decoder loaded")
	ErrClosed      = errors.New("decoder is closed")
	ErrOutputShape = errors.New("decoder output does not match image shape")
	ErrLatentDim   = errors.New("latent dimension does not match decoder")
)

// Decoder maps a latent vector to raw image logits.
type Decoder interface {
	Decode(ctx context.Context, z []float32) ([]float32, error)
	Close() error
}

// Factory constructs a decoder.
type Factory func(ctx context.Context) (Decoder, error)

// LogVarSource supplies a log-variance for an arbitrary latent mean, such as
// a point on a traversal curve.
type LogVarSource interface {
	LogVarFor(mean []float32) []float32
}

// ZeroLogVar is a LogVarSource that always answers zeros.
type ZeroLogVar struct{}

func (ZeroLogVar) LogVarFor(mean []float32) []float32 { return make([]float32, len(mean)) }

// Shape describes the decoder input and output.
type Shape struct {
	LatentDim int
	Width     int
	Height    int
	Channels  int
}

// Pixels returns the number of values one decoded image holds.
func (s Shape) Pixels() int { return s.Width * s.Height * s.Channels }

// Reparameterize combines a mean and log-variance into a latent sample:
// mean + eps * exp(logVar/2). With nil eps the noise term is one for every
// dimension.
func Reparameterize(mean, logVar, eps []float32) []float32 {
	z := make([]float32, len(mean))
	for i, m := range mean {
		var lv float32
		if i < len(logVar) {
			lv = logVar[i]
		}
		e := float32(1)
		if eps != nil {
			e = eps[i]
		}
		z[i] = m + e*math32.Exp(0.5*lv)
	}
	return z
}

// Noise draws n standard normal values.
func Noise(rng *rand.Rand, n int) []float32 {
	eps := make([]float32, n)
	for i := range eps {
		eps[i] = float32(rng.NormFloat64())
	}
	return eps
}

// Sigmoid applies the logistic function in place.
func Sigmoid(v []float32) {
	for i, x := range v {
		v[i] = 1 / (1 + math32.Exp(-x))
	}
}

// ToImage converts activations in [0,1], row-major HWC, into a Gray image
// for one channel or an RGBA image for three or four.
func ToImage(values []float32, s Shape) (image.Image, error) {
	if len(values) != s.Pixels() || s.Pixels() == 0 {
		return nil, fmt.Errorf("%w: got %d values for %dx%dx%d", ErrOutputShape, len(values), s.Width, s.Height, s.Channels)
	}

	toByte := func(v float32) uint8 {
		return uint8(math32.Round(min(max(v, 0), 1) * 255))
	}

	rect := image.Rect(0, 0, s.Width, s.Height)
	switch s.Channels {
	case 1:
		img := image.NewGray(rect)
		for i, v := range values {
			img.Pix[i] = toByte(v)
		}
		return img, nil
	case 3, 4:
		img := image.NewRGBA(rect)
		for p := 0; p < s.Width*s.Height; p++ {
			src := values[p*s.Channels:]
			c := color.RGBA{R: toByte(src[0]), G: toByte(src[1]), B: toByte(src[2]), A: 255}
			if s.Channels == 4 {
				c.A = toByte(src[3])
			}
			img.SetRGBA(p%s.Width, p/s.Width, c)
		}
		return img, nil
	}
	return nil, fmt.Errorf("%w: %d channels", ErrOutputShape, s.Channels)
}
