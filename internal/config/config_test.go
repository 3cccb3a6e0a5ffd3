package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Test window defaults
	if cfg.Window.Width != 1280 {
		t.Errorf("expected width 1280, got %d", cfg.Window.Width)
	}
	if cfg.Window.Height != 720 {
		t.Errorf("expected height 720, got %d", cfg.Window.Height)
	}
	if cfg.Window.Fullscreen {
		t.Error("expected fullscreen to be false by default")
	}

	// Test camera defaults
	if cfg.Camera.FovDegrees != 45 {
		t.Errorf("expected fov 45, got %v", cfg.Camera.FovDegrees)
	}
	if cfg.Camera.Position != [3]float32{0, 0, 2} {
		t.Errorf("expected camera at (0,0,2), got %v", cfg.Camera.Position)
	}

	// Test point defaults
	if cfg.Points.RotationSpeed != 0.01 {
		t.Errorf("expected rotation speed 0.01, got %v", cfg.Points.RotationSpeed)
	}
	if !cfg.Points.Oscillate {
		t.Error("expected oscillation to be on by default")
	}
	if cfg.Points.MaxPoints != 3000 {
		t.Errorf("expected max points 3000, got %d", cfg.Points.MaxPoints)
	}

	// Test arcball defaults
	if cfg.Arcball.Projection != "sphere" || cfg.Arcball.AngleScale != 1 {
		t.Errorf("expected sphere projection with scale 1, got %s %v", cfg.Arcball.Projection, cfg.Arcball.AngleScale)
	}

	// Test dataset defaults
	if len(cfg.Datasets) != 2 {
		t.Fatalf("expected 2 datasets, got %d", len(cfg.Datasets))
	}
	mnist, ok := cfg.Dataset("mnist")
	if !ok {
		t.Fatal("expected mnist dataset")
	}
	if mnist.Width != 28 || mnist.Height != 28 || mnist.LatentDim != 3 {
		t.Errorf("unexpected mnist shape %+v", mnist)
	}
	if _, ok := cfg.Dataset("cifar"); ok {
		t.Error("unexpected cifar dataset")
	}

	// Test inference defaults
	if cfg.Inference.Timeout != 10*time.Second {
		t.Errorf("expected timeout 10s, got %v", cfg.Inference.Timeout)
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
window:
  width: 1920
  height: 1080
  fullscreen: true
  vsync: false

arcball:
  projection: hyperbolic
  angle_scale: 2

points:
  oscillate: false
  rotation_axis: [0, 1, 0]

datasets:
  - name: cifar10
    means: cifar_mean.npy
    decoder: vae_cifar
    latent_dim: 8
    width: 32
    height: 32
    channels: 3

inference:
  endpoint: "http://models:8501"
  timeout: 5s

preview:
  format: png

logging:
  level: "debug"
  log_file: "explorer.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Load config
	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Verify values were loaded
	if cfg.Window.Width != 1920 {
		t.Errorf("expected width 1920, got %d", cfg.Window.Width)
	}
	if !cfg.Window.Fullscreen {
		t.Error("expected fullscreen to be true")
	}
	if cfg.Window.Title != "Latent Explorer" {
		t.Errorf("expected default title to survive, got %q", cfg.Window.Title)
	}
	if cfg.Arcball.Projection != "hyperbolic" || cfg.Arcball.AngleScale != 2 {
		t.Errorf("unexpected arcball %+v", cfg.Arcball)
	}
	if cfg.Points.Oscillate {
		t.Error("expected oscillation off")
	}
	if cfg.Points.RotationAxis != [3]float32{0, 1, 0} {
		t.Errorf("expected axis (0,1,0), got %v", cfg.Points.RotationAxis)
	}
	if len(cfg.Datasets) != 1 || cfg.Datasets[0].Channels != 3 {
		t.Errorf("expected the dataset list to be replaced, got %+v", cfg.Datasets)
	}
	if cfg.Inference.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", cfg.Inference.Timeout)
	}
	if cfg.Preview.Format != "png" {
		t.Errorf("expected png, got %s", cfg.Preview.Format)
	}
	if cfg.Logging.LogFile != "explorer.log" {
		t.Errorf("expected log file 'explorer.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	// Create temporary config file with invalid YAML
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
window:
  width: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Try to load - should error
	cfg := Default()
	err := loadFromFile(cfg, configPath)
	if err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.Window.Width = 0 }},
		{"fov", func(c *Config) { c.Camera.FovDegrees = 180 }},
		{"clip range", func(c *Config) { c.Camera.Far = c.Camera.Near }},
		{"projection", func(c *Config) { c.Arcball.Projection = "cube" }},
		{"id components", func(c *Config) { c.Points.IDComponents = 5 }},
		{"max points", func(c *Config) { c.Points.MaxPoints = -1 }},
		{"preview format", func(c *Config) { c.Preview.Format = "gif" }},
		{"traversal steps", func(c *Config) { c.Preview.TraversalSteps = 1 }},
		{"overlay corner", func(c *Config) { c.Preview.OverlayCorner = "center" }},
		{"overlay size", func(c *Config) { c.Preview.OverlaySize = -1 }},
		{"duplicate dataset", func(c *Config) { c.Datasets[1].Name = "mnist" }},
		{"unnamed dataset", func(c *Config) { c.Datasets[0].Name = "" }},
		{"no means", func(c *Config) { c.Datasets[0].Means = "" }},
		{"channels", func(c *Config) { c.Datasets[0].Channels = 2 }},
		{"image size", func(c *Config) { c.Datasets[0].Width = 0 }},
		{"start", func(c *Config) { c.Data.Start = "cifar10" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}

	// No datasets at all runs the random sphere demo.
	cfg := Default()
	cfg.Datasets = nil
	if err := cfg.Validate(); err != nil {
		t.Errorf("config without datasets should be valid: %v", err)
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	// Just verify it returns a non-empty path
	// Actual path depends on OS
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}

	// Verify path is absolute
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	// Save current directory
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	// Create temp directory and change to it
	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	t.Setenv("HOME", tmpDir)

	// No config file exists - should return empty
	path := findConfigFile()
	if path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	// Create config.yaml in current directory
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("window:\n  width: 800\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	// Should find it now
	path = findConfigFile()
	if path == "" {
		t.Error("expected to find config.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name:  "fullscreen flag",
			setup: func() { *flagFullscreen = true },
			verify: func(cfg *Config) {
				if !cfg.Window.Fullscreen {
					t.Error("expected fullscreen to be true with fullscreen flag")
				}
			},
			teardown: func() { *flagFullscreen = false },
		},
		{
			name: "width and height flags",
			setup: func() {
				*flagWidth = 2560
				*flagHeight = 1440
			},
			verify: func(cfg *Config) {
				if cfg.Window.Width != 2560 || cfg.Window.Height != 1440 {
					t.Errorf("expected 2560x1440, got %dx%d", cfg.Window.Width, cfg.Window.Height)
				}
			},
			teardown: func() {
				*flagWidth = 0
				*flagHeight = 0
			},
		},
		{
			name: "dataset flags",
			setup: func() {
				*flagDataset = "fashion_mnist"
				*flagData = "/srv/latents"
			},
			verify: func(cfg *Config) {
				if cfg.Data.Start != "fashion_mnist" {
					t.Errorf("expected start fashion_mnist, got %s", cfg.Data.Start)
				}
				if last := cfg.Data.Roots[len(cfg.Data.Roots)-1]; last != "/srv/latents" {
					t.Errorf("expected /srv/latents as highest priority root, got %s", last)
				}
			},
			teardown: func() {
				*flagDataset = ""
				*flagData = ""
			},
		},
		{
			name: "inference flags",
			setup: func() {
				*flagEndpoint = "http://gpu:8501"
				*flagNoise = true
			},
			verify: func(cfg *Config) {
				if cfg.Inference.Endpoint != "http://gpu:8501" || !cfg.Inference.Noise {
					t.Errorf("unexpected inference %+v", cfg.Inference)
				}
			},
			teardown: func() {
				*flagEndpoint = ""
				*flagNoise = false
			},
		},
		{
			name:  "max points zero keeps all",
			setup: func() { *flagMaxPoints = 0 },
			verify: func(cfg *Config) {
				if cfg.Points.MaxPoints != 0 {
					t.Errorf("expected max points 0, got %d", cfg.Points.MaxPoints)
				}
			},
			teardown: func() { *flagMaxPoints = -1 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			tt.setup()
			defer tt.teardown()

			// Apply flags to default config
			cfg := Default()
			applyFlags(cfg)

			// Verify
			tt.verify(cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
window:
  width: 1600
  height: 900
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Set flag to override config file
	*flagConfig = configPath
	*flagWidth = 1920
	defer func() {
		*flagConfig = ""
		*flagWidth = 0
	}()

	// Load config
	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Width should be from flag (1920), not file (1600)
	if cfg.Window.Width != 1920 {
		t.Errorf("expected width 1920 from flag, got %d", cfg.Window.Width)
	}

	// Height should be from file (900) since no flag override
	if cfg.Window.Height != 900 {
		t.Errorf("expected height 900 from file, got %d", cfg.Window.Height)
	}
}

func TestLoadResolvesRoots(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	yamlContent := `
data:
  roots: ["latents", "/srv/shared"]
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatal(err)
	}

	*flagConfig = configPath
	defer func() { *flagConfig = "" }()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if got := cfg.Data.Roots[0]; got != filepath.Join(tmpDir, "latents") {
		t.Errorf("expected relative root next to the config file, got %s", got)
	}
	if got := cfg.Data.Roots[1]; got != "/srv/shared" {
		t.Errorf("expected absolute root unchanged, got %s", got)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("preview:\n  format: bmp\n"), 0644); err != nil {
		t.Fatal(err)
	}

	*flagConfig = configPath
	defer func() { *flagConfig = "" }()

	if _, err := Load(); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Arcball.Projection = "hyperbolic"

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("reloading: %v", err)
	}
	if loaded.Arcball.Projection != "hyperbolic" {
		t.Errorf("expected hyperbolic after reload, got %s", loaded.Arcball.Projection)
	}
	if len(loaded.Datasets) != 2 {
		t.Errorf("expected 2 datasets after reload, got %d", len(loaded.Datasets))
	}
}
