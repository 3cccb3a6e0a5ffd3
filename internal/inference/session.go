package inference

import (
	"context"
	"fmt"
	"image"
	"math/rand/v2"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/latent-explorer/internal/logger"
)

// Session owns at most one decoder. Switching disposes the old decoder
// before the next one is constructed.
type Session struct {
	mu    sync.RWMutex
	name  string
	dec   Decoder
	shape Shape

	// Noise draws eps ~ N(0,1) per decode instead of the deterministic
	// mean + exp(logVar/2).
	Noise bool
	// Parallel bounds the number of concurrent decodes of a traversal.
	Parallel int

	rngMu sync.Mutex
	rng   *rand.Rand
	log   *zap.Logger
}

// NewSession creates an empty session.
func NewSession(noise bool, seed uint64) *Session {
	return &Session{
		Noise:    noise,
		Parallel: 4,
		rng:      rand.New(rand.NewPCG(seed, seed+1)),
		log:      logger.Named("inference"),
	}
}

// Name returns the name of the loaded decoder, or "".
func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// Shape returns the shape of the loaded decoder.
func (s *Session) Shape() Shape {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shape
}

// Switch closes the current decoder, constructs the next one and warms it up
// on a zero vector. On failure the session is left without a decoder.
func (s *Session) Switch(ctx context.Context, name string, f Factory, shape Shape) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dec != nil {
		if err := s.dec.Close(); err != nil {
			s.log.Warn("closing decoder", zap.String("name", s.name), zap.Error(err))
		}
		s.log.Info("decoder disposed", zap.String("name", s.name))
		s.dec, s.name = nil, ""
	}

	dec, err := f(ctx)
	if err != nil {
		return fmt.Errorf("constructing decoder %s: %w", name, err)
	}

	out, err := dec.Decode(ctx, make([]float32, shape.LatentDim))
	if err == nil && len(out) != shape.Pixels() {
		err = fmt.Errorf("%w: warm-up returned %d values, want %d", ErrOutputShape, len(out), shape.Pixels())
	}
	if err != nil {
		dec.Close()
		return fmt.Errorf("warming up decoder %s: %w", name, err)
	}

	s.dec, s.name, s.shape = dec, name, shape
	s.log.Info("decoder ready",
		zap.String("name", name),
		zap.Int("latent_dim", shape.LatentDim),
		zap.Int("width", shape.Width),
		zap.Int("height", shape.Height),
	)
	return nil
}

func (s *Session) eps(n int) []float32 {
	if !s.Noise {
		return nil
	}
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return Noise(s.rng, n)
}

// Decode reparameterizes mean and logVar, decodes, and applies the sigmoid.
func (s *Session) Decode(ctx context.Context, mean, logVar []float32) (image.Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.decode(ctx, mean, logVar)
}

func (s *Session) decode(ctx context.Context, mean, logVar []float32) (image.Image, error) {
	if s.dec == nil {
		return nil, ErrNoDecoder
	}
	if len(mean) != s.shape.LatentDim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrLatentDim, len(mean), s.shape.LatentDim)
	}
	z := Reparameterize(mean, logVar, s.eps(len(mean)))
	out, err := s.dec.Decode(ctx, z)
	if err != nil {
		return nil, err
	}
	Sigmoid(out)
	return ToImage(out, s.shape)
}

// Traverse decodes every point in order. Log-variances come from src; a nil
// src decodes with zero log-variance.
func (s *Session) Traverse(ctx context.Context, points [][]float32, src LogVarSource) ([]image.Image, error) {
	if src == nil {
		src = ZeroLogVar{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	frames := make([]image.Image, len(points))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.Parallel, 1))
	for i, p := range points {
		g.Go(func() error {
			img, err := s.decode(gctx, p, src.LogVarFor(p))
			if err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}
			frames[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.log.Debug("traversal decoded", zap.Int("frames", len(frames)))
	return frames, nil
}

// Close disposes the decoder.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dec == nil {
		return nil
	}
	err := s.dec.Close()
	s.dec, s.name = nil, ""
	return err
}
