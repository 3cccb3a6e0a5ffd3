// Package config handles explorer configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Faultbox/latent-explorer/internal/arcball"
	"github.com/Faultbox/latent-explorer/internal/engine/overlay"
	"github.com/Faultbox/latent-explorer/internal/preview"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds all explorer settings.
type Config struct {
	Window    WindowConfig    `yaml:"window"`
	Camera    CameraConfig    `yaml:"camera"`
	Arcball   ArcballConfig   `yaml:"arcball"`
	Points    PointsConfig    `yaml:"points"`
	Picking   PickingConfig   `yaml:"picking"`
	Data      DataConfig      `yaml:"data"`
	Datasets  []DatasetConfig `yaml:"datasets"`
	Demo      DemoConfig      `yaml:"demo"`
	Inference InferenceConfig `yaml:"inference"`
	Preview   PreviewConfig   `yaml:"preview"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// WindowConfig holds display settings.
type WindowConfig struct {
	Title      string `yaml:"title"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Fullscreen bool   `yaml:"fullscreen"`
	VSync      bool   `yaml:"vsync"`
}

// CameraConfig holds the perspective camera.
type CameraConfig struct {
	FovDegrees      float32    `yaml:"fov_degrees"`
	Near            float32    `yaml:"near"`
	Far             float32    `yaml:"far"`
	Position        [3]float32 `yaml:"position"`
	Target          [3]float32 `yaml:"target"`
	Up              [3]float32 `yaml:"up"`
	MinDistance     float32    `yaml:"min_distance"`
	MaxDistance     float32    `yaml:"max_distance"`
	ZoomSensitivity float32    `yaml:"zoom_sensitivity"`
}

// ArcballConfig selects the rotation controller variant.
type ArcballConfig struct {
	Projection string  `yaml:"projection"` // sphere | hyperbolic
	AngleScale float32 `yaml:"angle_scale"`
}

// PointsConfig holds the latent point cloud display.
type PointsConfig struct {
	RotationSpeed        float32    `yaml:"rotation_speed"`
	RotationAxis         [3]float32 `yaml:"rotation_axis"`
	Oscillate            bool       `yaml:"oscillate"`
	OscillationFrequency float32    `yaml:"oscillation_frequency"`
	OscillationAmplitude float32    `yaml:"oscillation_amplitude"`
	PointSize            float32    `yaml:"point_size"`
	HighlightSize        float32    `yaml:"highlight_size"`
	HighlightDarken      float32    `yaml:"highlight_darken"`
	MaxPoints            int        `yaml:"max_points"`
	IDComponents         int        `yaml:"id_components"`
	ShowCube             bool       `yaml:"show_cube"`
}

// PickingConfig holds hover picking.
type PickingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DataConfig holds dataset file lookup.
type DataConfig struct {
	Roots []string `yaml:"roots"` // Searched last to first
	Start string   `yaml:"start"` // Dataset shown first
}

// DatasetConfig describes one encoded dataset and its decoder.
type DatasetConfig struct {
	Name      string `yaml:"name"`
	Means     string `yaml:"means"`
	LogVars   string `yaml:"log_vars"`
	Labels    string `yaml:"labels"`
	Decoder   string `yaml:"decoder"` // Model name on the inference server
	LatentDim int    `yaml:"latent_dim"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	Channels  int    `yaml:"channels"`
}

// DemoConfig holds the synthetic fallback used when a dataset cannot be read.
type DemoConfig struct {
	Points  int    `yaml:"points"`
	Classes int    `yaml:"classes"`
	Seed    uint64 `yaml:"seed"`
}

// InferenceConfig holds the decoder service.
type InferenceConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
	Noise    bool          `yaml:"noise"`
	Seed     uint64        `yaml:"seed"`
	Parallel int           `yaml:"parallel"`
}

// PreviewConfig holds decoded image output.
type PreviewConfig struct {
	OutputDir      string `yaml:"output_dir"`
	Format         string `yaml:"format"` // webp | png
	Scale          int    `yaml:"scale"`
	TraversalSteps int    `yaml:"traversal_steps"`
	OverlaySize    int    `yaml:"overlay_size"` // on-screen edge of the decoded image, 0 hides it
	OverlayCorner  string `yaml:"overlay_corner"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:      "Latent Explorer",
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
		},
		Camera: CameraConfig{
			FovDegrees:      45,
			Near:            0.1,
			Far:             100,
			Position:        [3]float32{0, 0, 2},
			Up:              [3]float32{0, 1, 0},
			MinDistance:     0.6,
			MaxDistance:     20,
			ZoomSensitivity: 0.1,
		},
		Arcball: ArcballConfig{
			Projection: "sphere",
			AngleScale: 1,
		},
		Points: PointsConfig{
			RotationSpeed:        0.01,
			RotationAxis:         [3]float32{1, 1, 0},
			Oscillate:            true,
			OscillationFrequency: 0.001,
			OscillationAmplitude: 90,
			PointSize:            8,
			HighlightSize:        8,
			HighlightDarken:      0.5,
			MaxPoints:            3000,
			IDComponents:         4,
			ShowCube:             true,
		},
		Picking: PickingConfig{
			Enabled: true,
		},
		Data: DataConfig{
			Roots: []string{"assets"},
			Start: "mnist",
		},
		Datasets: []DatasetConfig{
			{
				Name: "mnist", Means: "all_z_mean.npy", LogVars: "all_log_var.npy",
				Labels: "all_train_labels.npy", Decoder: "vae_decoder",
				LatentDim: 3, Width: 28, Height: 28, Channels: 1,
			},
			{
				Name: "fashion_mnist", Means: "all_z_mean_fashion.npy", LogVars: "all_log_var_fashion.npy",
				Labels: "all_train_labels_fashion.npy", Decoder: "vae_decoder_fashion",
				LatentDim: 3, Width: 28, Height: 28, Channels: 1,
			},
		},
		Demo: DemoConfig{
			Points:  3000,
			Classes: 10,
			Seed:    1,
		},
		Inference: InferenceConfig{
			Endpoint: "http://127.0.0.1:8501",
			Timeout:  10 * time.Second,
			Noise:    false,
			Seed:     1,
			Parallel: 4,
		},
		Preview: PreviewConfig{
			OutputDir:      "previews",
			Format:         "webp",
			Scale:          8,
			TraversalSteps: 16,
			OverlaySize:    168,
			OverlayCorner:  "top_right",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Dataset returns the dataset named name.
func (c *Config) Dataset(name string) (DatasetConfig, bool) {
	for _, d := range c.Datasets {
		if d.Name == name {
			return d, true
		}
	}
	return DatasetConfig{}, false
}

// Validate rejects settings the viewer cannot run with.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		fail("window size %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Camera.FovDegrees <= 0 || c.Camera.FovDegrees >= 180 {
		fail("camera fov %v", c.Camera.FovDegrees)
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		fail("camera clip range [%v, %v]", c.Camera.Near, c.Camera.Far)
	}
	if _, err := arcball.ParseProjection(c.Arcball.Projection); err != nil {
		fail("arcball projection: %v", err)
	}
	if c.Points.IDComponents < 1 || c.Points.IDComponents > 4 {
		fail("id_components %d outside 1..4", c.Points.IDComponents)
	}
	if c.Points.MaxPoints < 0 {
		fail("max_points %d", c.Points.MaxPoints)
	}
	if _, err := preview.ParseFormat(c.Preview.Format); err != nil {
		fail("preview format: %v", err)
	}
	if _, err := overlay.ParseCorner(c.Preview.OverlayCorner); err != nil {
		fail("%v", err)
	}
	if c.Preview.OverlaySize < 0 {
		fail("overlay_size %d", c.Preview.OverlaySize)
	}
	if c.Preview.TraversalSteps < 2 {
		fail("traversal_steps %d below 2", c.Preview.TraversalSteps)
	}

	seen := make(map[string]bool, len(c.Datasets))
	for _, d := range c.Datasets {
		switch {
		case d.Name == "":
			fail("dataset without name")
		case seen[d.Name]:
			fail("duplicate dataset %q", d.Name)
		case d.Means == "":
			fail("dataset %q has no means file", d.Name)
		case d.LatentDim <= 0 || d.Width <= 0 || d.Height <= 0:
			fail("dataset %q shape %d -> %dx%d", d.Name, d.LatentDim, d.Width, d.Height)
		case d.Channels != 1 && d.Channels != 3 && d.Channels != 4:
			fail("dataset %q has %d channels", d.Name, d.Channels)
		}
		seen[d.Name] = true
	}
	if c.Data.Start != "" && len(c.Datasets) > 0 && !seen[c.Data.Start] {
		fail("start dataset %q is not configured", c.Data.Start)
	}

	return errors.Join(errs...)
}
