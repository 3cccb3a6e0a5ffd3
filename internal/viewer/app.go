package viewer

import (
	"context"
	"fmt"
	"image"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/Faultbox/latent-explorer/internal/arcball"
	"github.com/Faultbox/latent-explorer/internal/config"
	"github.com/Faultbox/latent-explorer/internal/dataset"
	"github.com/Faultbox/latent-explorer/internal/engine/camera"
	"github.com/Faultbox/latent-explorer/internal/engine/picking"
	"github.com/Faultbox/latent-explorer/internal/engine/renderer"
	"github.com/Faultbox/latent-explorer/internal/inference"
	"github.com/Faultbox/latent-explorer/internal/interaction"
	"github.com/Faultbox/latent-explorer/internal/logger"
	"github.com/Faultbox/latent-explorer/internal/preview"
	"github.com/Faultbox/latent-explorer/pkg/math"
)

// FactoryFunc builds the decoder factory of a dataset.
type FactoryFunc func(d config.DatasetConfig) inference.Factory

// App is the explorer state driven by the frame loop: the scene, the
// controllers, the decoder session and the background jobs. It holds no
// window or GL state.
type App struct {
	cfg *config.Config

	Scene   *Scene
	Camera  *camera.Camera
	Ball    *arcball.Controller
	Router  *interaction.Router
	Session *inference.Session
	Writer  *preview.Writer

	reader  dataset.Reader
	factory FactoryFunc

	hover     *Worker[image.Image]
	traversal *Worker[string]

	current   int // index into cfg.Datasets, -1 for the random sphere
	selection picking.Selection
	decoded   image.Image
	decodedAt string

	clock   float32
	paused  bool
	picking bool
	quit    bool
	capture bool
	title   string

	log *zap.Logger
}

// NewApp wires the controllers for a width x height client area.
func NewApp(ctx context.Context, cfg *config.Config, r NodeRenderer, reader dataset.Reader, factory FactoryFunc, width, height int) (*App, error) {
	proj, err := arcball.ParseProjection(cfg.Arcball.Projection)
	if err != nil {
		return nil, err
	}
	ball, err := arcball.New(width, height, arcball.Config{
		Projection: proj,
		AngleScale: cfg.Arcball.AngleScale,
	})
	if err != nil {
		return nil, fmt.Errorf("creating arcball: %w", err)
	}

	format, err := preview.ParseFormat(cfg.Preview.Format)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:       cfg,
		Scene:     NewScene(r, cfg.Points, cfg.Demo.Seed),
		Camera:    camera.New(),
		Ball:      ball,
		Session:   inference.NewSession(cfg.Inference.Noise, cfg.Inference.Seed),
		Writer:    preview.NewWriter(cfg.Preview.OutputDir, "latent", format, cfg.Preview.Scale),
		reader:    reader,
		factory:   factory,
		hover:     NewWorker[image.Image](ctx),
		traversal: NewWorker[string](ctx),
		current:   -1,
		selection: picking.None,
		picking:   cfg.Picking.Enabled,
		log:       logger.Named("viewer"),
	}
	if cfg.Inference.Parallel > 0 {
		a.Session.Parallel = cfg.Inference.Parallel
	}
	a.resetCamera()
	a.Camera.SetViewport(width, height)
	a.Router = interaction.New(ball, a.Camera, width, height)

	if err := a.showStart(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) resetCamera() {
	c := a.cfg.Camera
	a.Camera.Position = math.Vec3FromArray(c.Position)
	a.Camera.Target = math.Vec3FromArray(c.Target)
	a.Camera.Up = math.Vec3FromArray(c.Up)
	a.Camera.FovY = c.FovDegrees * math32.Pi / 180
	a.Camera.Near = c.Near
	a.Camera.Far = c.Far
	a.Camera.MinDistance = c.MinDistance
	a.Camera.MaxDistance = c.MaxDistance
	a.Camera.ZoomSensitivity = c.ZoomSensitivity
}

func (a *App) showStart(ctx context.Context) error {
	if len(a.cfg.Datasets) == 0 {
		return a.Scene.Show(nil)
	}
	start := 0
	for i, d := range a.cfg.Datasets {
		if d.Name == a.cfg.Data.Start {
			start = i
		}
	}
	return a.LoadDataset(ctx, start)
}

// LoadDataset shows the i-th configured dataset and switches the decoder to
// it. A dataset whose files cannot be read is replaced by synthetic clusters;
// a decoder that cannot be reached leaves decoding off.
func (a *App) LoadDataset(ctx context.Context, i int) error {
	dc := a.cfg.Datasets[i]
	src := dataset.Source{Name: dc.Name, Means: dc.Means, LogVars: dc.LogVars, Labels: dc.Labels}

	ds, err := dataset.Load(ctx, a.reader, src, a.cfg.Points.MaxPoints)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		a.log.Warn("dataset unavailable, using synthetic clusters",
			zap.String("dataset", dc.Name),
			zap.Error(err),
		)
		ds = dataset.Synthetic(dc.Name, a.cfg.Demo.Points, dc.LatentDim, a.cfg.Demo.Classes, a.cfg.Demo.Seed)
		ds.Truncate(a.cfg.Points.MaxPoints)
	}
	if ds.Dim != dc.LatentDim {
		a.log.Warn("latent dimension differs from config",
			zap.String("dataset", dc.Name),
			zap.Int("file", ds.Dim),
			zap.Int("config", dc.LatentDim),
		)
	}

	if err := a.Scene.Show(ds); err != nil {
		return err
	}
	a.current = i
	a.selection = picking.None
	a.decoded, a.decodedAt = nil, ""
	// Jobs queued for the previous dataset must not reach the next decoder.
	a.hover.Cancel()
	a.traversal.Cancel()

	shape := inference.Shape{LatentDim: ds.Dim, Width: dc.Width, Height: dc.Height, Channels: dc.Channels}
	if err := a.Session.Switch(ctx, dc.Name, a.factory(dc), shape); err != nil {
		a.log.Warn("decoder unavailable, decoding disabled",
			zap.String("dataset", dc.Name),
			zap.String("decoder", dc.Decoder),
			zap.Error(err),
		)
	}
	a.title = a.baseTitle()
	return nil
}

// Current returns the index of the dataset on display, -1 for the random sphere.
func (a *App) Current() int { return a.current }

// Apply runs one routed command.
func (a *App) Apply(ctx context.Context, cmd interaction.Command) {
	switch cmd.Action {
	case interaction.ActionQuit:
		a.quit = true

	case interaction.ActionResetView:
		a.Ball.Reset()
		a.resetCamera()

	case interaction.ActionToggleOscillation:
		a.Scene.SetOscillate(!a.Scene.Oscillating())

	case interaction.ActionTogglePause:
		a.paused = !a.paused

	case interaction.ActionTogglePicking:
		a.picking = !a.picking
		if !a.picking {
			a.selection = picking.None
			a.title = a.baseTitle()
		}

	case interaction.ActionNextDataset:
		if len(a.cfg.Datasets) < 2 {
			return
		}
		next := (a.current + 1) % len(a.cfg.Datasets)
		if err := a.LoadDataset(ctx, next); err != nil {
			a.log.Error("switching dataset", zap.Error(err))
		}

	case interaction.ActionCurveBegin:
		a.Scene.BeginStroke()

	case interaction.ActionCurvePoint:
		local := a.Scene.ToLocal(cmd.Point, a.Ball.CurrentTransform(), a.clock)
		if err := a.Scene.AddStroke(local); err != nil {
			a.log.Error("extending stroke", zap.Error(err))
		}

	case interaction.ActionCurveEnd:
		a.log.Debug("stroke finished",
			zap.Int("points", len(a.Scene.Stroke())),
			zap.Float32("length", a.Scene.Stroke().Length()),
		)

	case interaction.ActionClearCurve:
		a.Scene.ClearStroke()

	case interaction.ActionTraverse:
		a.Traverse()

	case interaction.ActionSavePreview:
		a.SavePreview()
	}
}

// Traverse decodes the stroke in the background and writes the frames.
func (a *App) Traverse() {
	if a.Session.Name() == "" {
		a.log.Warn("traversal needs a decoder")
		return
	}
	latents, err := a.Scene.StrokeLatents(a.cfg.Preview.TraversalSteps)
	if err != nil {
		a.log.Warn("nothing to traverse", zap.Error(err))
		return
	}

	ds := a.Scene.Dataset()
	session, writer := a.Session, a.Writer
	tag := ds.Name + "_traversal"
	a.traversal.Submit(tag, func(ctx context.Context) (string, error) {
		frames, err := session.Traverse(ctx, latents, ds)
		if err != nil {
			return "", err
		}
		return writer.WriteFrames(tag, frames)
	})
	a.log.Info("traversal started", zap.Int("steps", len(latents)))
}

// SavePreview writes the last decoded image and requests a window capture.
func (a *App) SavePreview() {
	a.capture = true
	if a.decoded == nil {
		return
	}
	path, err := a.Writer.Write(a.decodedAt, a.decoded)
	if err != nil {
		a.log.Error("saving preview", zap.Error(err))
		return
	}
	a.log.Info("preview saved", zap.String("path", path))
}

// TakeCapture reports and clears a pending window capture request.
func (a *App) TakeCapture() bool {
	c := a.capture
	a.capture = false
	return c
}

// Advance moves the animation clock by deltaMs unless paused.
func (a *App) Advance(deltaMs float32) {
	if !a.paused {
		a.clock += deltaMs
	}
}

// Clock returns the animation time in milliseconds.
func (a *App) Clock() float32 { return a.clock }

// Quit reports whether the user asked to exit.
func (a *App) Quit() bool { return a.quit }

// Title returns the window title for the current state.
func (a *App) Title() string { return a.title }

// FrameContext assembles the per-frame state for the renderer.
func (a *App) FrameContext(deltaMs float32, vp picking.Viewport) renderer.FrameContext {
	ptr, inside := a.Router.Pointer()
	return renderer.FrameContext{
		Time:          a.clock,
		Delta:         deltaMs,
		Pointer:       ptr,
		PointerInside: inside,
		Viewport:      vp,
		View:          a.Camera.ViewMatrix(),
		Projection:    a.Camera.ProjectionMatrix(),
		Rotation:      a.Ball.CurrentTransform(),
		Picking:       a.picking && !a.Router.Drawing(),
	}
}

// Observe takes the selection of a frame. A newly hovered point is decoded in
// the background; the previous request is dropped if it has not started.
func (a *App) Observe(sel picking.Selection) {
	if !a.picking {
		return
	}
	if sel == a.selection {
		return
	}
	a.selection = sel
	ds := a.Scene.Dataset()
	if !sel.Hit || ds == nil || sel.Index >= ds.Len() {
		a.title = a.baseTitle()
		return
	}

	mean, logVar := ds.Latent(sel.Index), ds.LogVar(sel.Index)
	a.title = fmt.Sprintf("%s | point %d, class %d at %s", a.baseTitle(), sel.Index, ds.Labels[sel.Index], formatLatent(mean))

	if a.Session.Name() == "" {
		return
	}
	session := a.Session
	a.hover.Submit(fmt.Sprintf("%s_point_%d", ds.Name, sel.Index), func(ctx context.Context) (image.Image, error) {
		return session.Decode(ctx, mean, logVar)
	})
}

// Selection returns the hovered point.
func (a *App) Selection() picking.Selection { return a.selection }

// Decoded returns the last decoded image and its tag.
func (a *App) Decoded() (image.Image, string) { return a.decoded, a.decodedAt }

// Collect picks up finished background jobs.
func (a *App) Collect() {
	if r, ok := a.hover.Poll(); ok {
		if r.Err != nil {
			a.log.Warn("decoding point", zap.String("tag", r.Tag), zap.Error(r.Err))
		} else {
			a.decoded, a.decodedAt = r.Value, r.Tag
			a.log.Debug("point decoded", zap.String("tag", r.Tag))
		}
	}
	if r, ok := a.traversal.Poll(); ok {
		if r.Err != nil {
			a.log.Error("traversal failed", zap.Error(r.Err))
		} else {
			a.log.Info("traversal written", zap.String("dir", r.Value))
		}
	}
}

// Busy reports whether background jobs are still running.
func (a *App) Busy() bool {
	return a.hover.Busy() || a.traversal.Busy()
}

func (a *App) baseTitle() string {
	name := "random sphere"
	if ds := a.Scene.Dataset(); ds != nil {
		name = ds.Name
	}
	return a.cfg.Window.Title + " | " + name
}

func formatLatent(z []float32) string {
	s := "("
	for i, v := range z {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%.2f", v)
	}
	return s + ")"
}

// Close stops the background jobs and the decoder.
func (a *App) Close() {
	a.hover.Close()
	a.traversal.Close()
	if err := a.Session.Close(); err != nil {
		a.log.Warn("closing decoder", zap.Error(err))
	}
}
