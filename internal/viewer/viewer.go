// Package viewer implements the explorer main loop and its state.
package viewer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/latent-explorer/internal/assets"
	"github.com/Faultbox/latent-explorer/internal/config"
	"github.com/Faultbox/latent-explorer/internal/engine/gldevice"
	"github.com/Faultbox/latent-explorer/internal/engine/input"
	"github.com/Faultbox/latent-explorer/internal/engine/overlay"
	"github.com/Faultbox/latent-explorer/internal/engine/picking"
	"github.com/Faultbox/latent-explorer/internal/engine/renderer"
	"github.com/Faultbox/latent-explorer/internal/engine/window"
	"github.com/Faultbox/latent-explorer/internal/inference"
	"github.com/Faultbox/latent-explorer/internal/interaction"
	"github.com/Faultbox/latent-explorer/internal/logger"
)

// Viewer is the explorer instance.
type Viewer struct {
	cfg      *config.Config
	running  bool
	window   *window.Window
	device   *gldevice.Device
	renderer *renderer.Renderer
	input    *input.Input
	assets   *assets.Manager
	overlay  *gldevice.Overlay
	app      *App

	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.Logger
}

// New creates the window and GL state and loads the start dataset.
func New(cfg *config.Config) (*Viewer, error) {
	v := &Viewer{
		cfg:   cfg,
		input: input.New(),
		log:   logger.Named("viewer"),
	}
	v.ctx, v.cancel = context.WithCancel(context.Background())

	v.log.Info("initializing viewer",
		zap.String("title", cfg.Window.Title),
		zap.Int("width", cfg.Window.Width),
		zap.Int("height", cfg.Window.Height),
	)

	// Create window (this also creates OpenGL context)
	var err error
	v.window, err = window.New(window.Config{
		Title:      cfg.Window.Title,
		Width:      cfg.Window.Width,
		Height:     cfg.Window.Height,
		Fullscreen: cfg.Window.Fullscreen,
		VSync:      cfg.Window.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// Create device (AFTER window, since OpenGL context must exist)
	fbW, fbH := v.window.DrawableSize()
	v.device, err = gldevice.New(fbW, fbH)
	if err != nil {
		v.Close()
		return nil, fmt.Errorf("failed to create device: %w", err)
	}

	corner, err := overlay.ParseCorner(cfg.Preview.OverlayCorner)
	if err != nil {
		v.Close()
		return nil, err
	}
	v.overlay, err = gldevice.NewOverlay(corner, cfg.Preview.OverlaySize, 12)
	if err != nil {
		v.Close()
		return nil, fmt.Errorf("failed to create overlay: %w", err)
	}

	rc := renderer.DefaultConfig()
	rc.PointSize = cfg.Points.PointSize
	rc.HighlightSize = cfg.Points.HighlightSize
	rc.HighlightDarken = cfg.Points.HighlightDarken
	rc.IDComponents = cfg.Points.IDComponents
	v.renderer = renderer.New(v.device, rc)

	v.assets = assets.NewManager()
	for _, root := range cfg.Data.Roots {
		if err := v.assets.AddRoot(root); err != nil {
			v.log.Warn("skipping data root", zap.String("root", root), zap.Error(err))
		}
	}

	factory := func(d config.DatasetConfig) inference.Factory {
		return inference.HTTPFactory(cfg.Inference.Endpoint, d.Decoder, cfg.Inference.Timeout)
	}
	w, h := v.window.GetSize()
	v.app, err = NewApp(v.ctx, cfg, v.renderer, v.assets, factory, w, h)
	if err != nil {
		v.Close()
		return nil, err
	}
	v.window.SetTitle(v.app.Title())

	v.log.Info("viewer initialized successfully")
	return v, nil
}

func (v *Viewer) viewport() picking.Viewport {
	w, h := v.app.Router.Size()
	fbW, fbH := v.device.Size()
	return picking.Viewport{
		ClientWidth:       w,
		ClientHeight:      h,
		FramebufferWidth:  fbW,
		FramebufferHeight: fbH,
	}
}

// Run starts the main loop.
func (v *Viewer) Run() error {
	v.running = true

	// Timing
	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()
	title := v.app.Title()

	v.log.Info("starting main loop")

	for v.running {
		// Calculate delta time
		now := time.Now()
		dt := float32(now.Sub(lastTime).Seconds() * 1000)
		lastTime = now
		v.app.Advance(dt)

		// 1. Process input
		v.window.PollEvents(v.input)
		for _, cmd := range v.app.Router.Handle(v.input.Events()) {
			if cmd.Action == interaction.ActionResize {
				v.device.Resize(v.window.DrawableSize())
			}
			v.app.Apply(v.ctx, cmd)
		}
		if v.app.Quit() {
			v.running = false
			break
		}

		// 2. Update and draw
		v.app.Scene.Update()
		fc := v.app.FrameContext(dt, v.viewport())
		res, err := v.renderer.Frame(&fc)
		if err != nil {
			return fmt.Errorf("render error: %w", err)
		}
		v.app.Observe(res.Selection)
		v.app.Collect()
		if img, _ := v.app.Decoded(); img != nil {
			v.overlay.Show(img)
		} else {
			v.overlay.Hide()
		}
		fbW, fbH := v.device.Size()
		if err := v.overlay.Draw(fbW, fbH); err != nil {
			return fmt.Errorf("overlay error: %w", err)
		}

		if v.app.TakeCapture() {
			v.capture()
		}

		// 3. Present (swap buffers)
		v.window.SwapBuffers()

		if t := v.app.Title(); t != title {
			v.window.SetTitle(t)
			title = t
		}

		// FPS counter
		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			v.log.Debug("fps",
				zap.Int("count", frameCount),
				zap.String("dt", fmt.Sprintf("%.2fms", dt)),
				zap.Int("draws", res.Draws),
			)
			frameCount = 0
			fpsTimer = time.Now()
		}
	}

	return nil
}

func (v *Viewer) capture() {
	pixels, w, h, err := v.device.ReadScreen()
	if err != nil {
		v.log.Error("reading screen", zap.Error(err))
		return
	}
	path, err := v.app.Writer.CaptureFromPixels(pixels, w, h)
	if err != nil {
		v.log.Error("saving capture", zap.Error(err))
		return
	}
	v.log.Info("capture saved", zap.String("path", path))
}

// Close cleans up viewer resources.
func (v *Viewer) Close() {
	v.log.Info("closing viewer")

	v.cancel()
	if v.app != nil {
		v.app.Close()
	}
	if v.renderer != nil {
		v.renderer.Clear()
	}
	if v.assets != nil {
		hits, misses := v.assets.Stats()
		v.log.Debug("asset cache", zap.Int("hits", hits), zap.Int("misses", misses))
		v.assets.Close()
	}
	if v.overlay != nil {
		v.overlay.Destroy()
	}
	if v.device != nil {
		v.device.Destroy()
	}
	if v.window != nil {
		v.window.Close()
	}
}
