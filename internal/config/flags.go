package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagWindowed   = flag.Bool("windowed", false, "Run in windowed mode")
	flagFullscreen = flag.Bool("fullscreen", false, "Run in fullscreen mode")
	flagWidth      = flag.Int("width", 0, "Window width")
	flagHeight     = flag.Int("height", 0, "Window height")
	flagDataset    = flag.String("dataset", "", "Dataset shown first")
	flagData       = flag.String("data", "", "Additional dataset search directory")
	flagEndpoint   = flag.String("endpoint", "", "Decoder service URL")
	flagOutput     = flag.String("output", "", "Preview output directory")
	flagProjection = flag.String("projection", "", "Arcball projection: sphere or hyperbolic")
	flagMaxPoints  = flag.Int("max-points", -1, "Maximum points per dataset, 0 for all")
	flagNoise      = flag.Bool("noise", false, "Sample decoder input with random noise")
	flagWrite      = flag.String("write-config", "", "Write the effective config to this path and exit")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// WriteConfigPath returns the --write-config target, if any.
func WriteConfigPath() string {
	return *flagWrite
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagWindowed {
		cfg.Window.Fullscreen = false
	}
	if *flagFullscreen {
		cfg.Window.Fullscreen = true
	}
	if *flagWidth > 0 {
		cfg.Window.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Window.Height = *flagHeight
	}
	if *flagDataset != "" {
		cfg.Data.Start = *flagDataset
	}
	if *flagData != "" {
		cfg.Data.Roots = append(cfg.Data.Roots, *flagData)
	}
	if *flagEndpoint != "" {
		cfg.Inference.Endpoint = *flagEndpoint
	}
	if *flagOutput != "" {
		cfg.Preview.OutputDir = *flagOutput
	}
	if *flagProjection != "" {
		cfg.Arcball.Projection = *flagProjection
	}
	if *flagMaxPoints >= 0 {
		cfg.Points.MaxPoints = *flagMaxPoints
	}
	if *flagNoise {
		cfg.Inference.Noise = true
	}
}
