// Package dataset loads encoded latent distributions: per-sample means,
// log-variances and class labels.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/chewxy/math32"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/latent-explorer/internal/logger"
	"github.com/Faultbox/latent-explorer/pkg/formats"
)

var (
	ErrShapeMismatch = errors.New("dataset arrays disagree in shape")
	ErrEmpty         = errors.New("dataset has no samples")
)

// Reader fetches one array by name.
type Reader interface {
	Read(ctx context.Context, name string) (*formats.NPY, error)
}

// Source names the files of one dataset. LogVars and Labels are optional.
type Source struct {
	Name    string
	Means   string
	LogVars string
	Labels  string
}

// Dataset holds n samples of a dim-dimensional latent space, row-major.
type Dataset struct {
	Name    string
	Dim     int
	Means   []float32
	LogVars []float32
	Labels  []int
	Classes int
}

// Len returns the number of samples.
func (d *Dataset) Len() int { return len(d.Labels) }

// Latent returns the mean of sample i.
func (d *Dataset) Latent(i int) []float32 {
	return d.Means[i*d.Dim : (i+1)*d.Dim]
}

// LogVar returns the log-variance of sample i.
func (d *Dataset) LogVar(i int) []float32 {
	return d.LogVars[i*d.Dim : (i+1)*d.Dim]
}

// Positions returns xyz per sample: the first three latent dimensions, zero
// padded when the space has fewer.
func (d *Dataset) Positions() []float32 {
	n := d.Len()
	out := make([]float32, n*3)
	for i := 0; i < n; i++ {
		copy(out[i*3:i*3+3], d.Latent(i)[:min(d.Dim, 3)])
	}
	return out
}

// Nearest returns the index of the sample whose mean is closest to z.
func (d *Dataset) Nearest(z []float32) int {
	best, bestDist := -1, math32.Inf(1)
	m := min(len(z), d.Dim)
	for i := 0; i < d.Len(); i++ {
		row := d.Latent(i)
		var dist float32
		for k := 0; k < m; k++ {
			diff := row[k] - z[k]
			dist += diff * diff
		}
		if dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}

// LogVarFor returns the log-variance of the sample nearest to mean, or zeros
// when the dataset is empty.
func (d *Dataset) LogVarFor(mean []float32) []float32 {
	out := make([]float32, d.Dim)
	if i := d.Nearest(mean); i >= 0 {
		copy(out, d.LogVar(i))
	}
	return out
}

// Truncate keeps the first limit samples. Non-positive limits keep all.
func (d *Dataset) Truncate(limit int) {
	if limit <= 0 || limit >= d.Len() {
		return
	}
	d.Means = d.Means[:limit*d.Dim]
	d.LogVars = d.LogVars[:limit*d.Dim]
	d.Labels = d.Labels[:limit]
}

// Load reads the arrays of src concurrently and waits for all of them. The
// first failure cancels the remaining reads and is returned.
func Load(ctx context.Context, r Reader, src Source, limit int) (*Dataset, error) {
	log := logger.Named("dataset")

	var means, logVars, labels *formats.NPY
	g, gctx := errgroup.WithContext(ctx)
	read := func(name string, dst **formats.NPY) {
		if name == "" {
			return
		}
		g.Go(func() error {
			arr, err := r.Read(gctx, name)
			if err != nil {
				return fmt.Errorf("%s: reading %s: %w", src.Name, name, err)
			}
			*dst = arr
			return nil
		})
	}
	if src.Means == "" {
		return nil, fmt.Errorf("%s: no means file", src.Name)
	}
	read(src.Means, &means)
	read(src.LogVars, &logVars)
	read(src.Labels, &labels)
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d, err := assemble(src.Name, means, logVars, labels)
	if err != nil {
		return nil, err
	}
	d.Truncate(limit)

	log.Info("dataset loaded",
		zap.String("name", d.Name),
		zap.Int("samples", d.Len()),
		zap.Int("dim", d.Dim),
		zap.Int("classes", d.Classes),
	)
	return d, nil
}

func assemble(name string, means, logVars, labels *formats.NPY) (*Dataset, error) {
	n, dim := means.Rows(), means.Cols()
	if n == 0 || len(means.Shape) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmpty)
	}

	d := &Dataset{
		Name:  name,
		Dim:   dim,
		Means: means.Data,
	}

	if logVars != nil {
		if logVars.Len() != means.Len() {
			return nil, fmt.Errorf("%s: %d means, %d log-variances: %w", name, means.Len(), logVars.Len(), ErrShapeMismatch)
		}
		d.LogVars = logVars.Data
	} else {
		d.LogVars = make([]float32, len(means.Data))
	}

	d.Labels = make([]int, n)
	if labels != nil {
		if labels.Len() != n {
			return nil, fmt.Errorf("%s: %d samples, %d labels: %w", name, n, labels.Len(), ErrShapeMismatch)
		}
		for i, v := range labels.Data {
			d.Labels[i] = int(v)
		}
	}
	for _, l := range d.Labels {
		d.Classes = max(d.Classes, l+1)
	}
	return d, nil
}

// Synthetic generates n samples in classes Gaussian clusters whose centers
// sit on a sphere of radius 2. Log-variances are drawn around -2.
func Synthetic(name string, n, dim, classes int, seed uint64) *Dataset {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	classes = max(classes, 1)

	centers := make([][]float32, classes)
	for c := range centers {
		v := make([]float32, dim)
		var norm float32
		for k := range v {
			v[k] = float32(rng.NormFloat64())
			norm += v[k] * v[k]
		}
		norm = math32.Sqrt(norm)
		for k := range v {
			if norm > 0 {
				v[k] = v[k] / norm * 2
			}
		}
		centers[c] = v
	}

	d := &Dataset{
		Name:    name,
		Dim:     dim,
		Means:   make([]float32, n*dim),
		LogVars: make([]float32, n*dim),
		Labels:  make([]int, n),
		Classes: classes,
	}
	for i := 0; i < n; i++ {
		c := i % classes
		d.Labels[i] = c
		for k := 0; k < dim; k++ {
			d.Means[i*dim+k] = centers[c][k] + float32(rng.NormFloat64())*0.4
			d.LogVars[i*dim+k] = -2 + float32(rng.NormFloat64())*0.2
		}
	}
	return d
}
