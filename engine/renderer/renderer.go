package renderer

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/snapshot"
)

/**
 * @brief The render goroutine: once per frame it runs the upload stage,
 * loads the latest snapshot pair and draws it interpolated.
 */
type Renderer struct {
	device  Device
	manager *RenderAssetManager
	handoff *snapshot.SnapshotHandoff
	tick    time.Duration
	frame   time.Duration
	metrics *core.Metrics
	frames  uint64
	last    time.Time
	now     func() time.Time
	logger  *log.Logger
}

/**
 * @brief Creates the renderer.
 * @param tick The simulation tick; used to compute the interpolation factor.
 * @param frame The target frame interval of Run.
 */
func NewRenderer(device Device, manager *RenderAssetManager, handoff *snapshot.SnapshotHandoff, tick, frame time.Duration) *Renderer {
	return &Renderer{
		device:  device,
		manager: manager,
		handoff: handoff,
		tick:    tick,
		frame:   frame,
		metrics: core.NewMetrics(),
		now:     time.Now,
		logger:  core.Logger("component", "render"),
	}
}

func (r *Renderer) Metrics() *core.Metrics {
	return r.metrics
}

func (r *Renderer) Frames() uint64 {
	return r.frames
}

func (r *Renderer) BeginFrame(deltaTime float64) error {
	return r.device.BeginFrame(deltaTime)
}

func (r *Renderer) EndFrame(deltaTime float64) error {
	return r.device.EndFrame(deltaTime)
}

func (r *Renderer) DrawFrame(packet *FramePacket) error {
	if err := r.BeginFrame(packet.DeltaTime); err != nil {
		r.logger.Error("BeginFrame failed", "err", err)
		return err
	}
	for _, cmd := range packet.Draws {
		r.device.Draw(cmd)
	}
	if err := r.EndFrame(packet.DeltaTime); err != nil {
		r.logger.Error("EndFrame failed", "err", err)
		return err
	}
	return nil
}

// Frame runs the upload stage and draws one frame.
func (r *Renderer) Frame() error {
	start := r.now()
	dt := 0.0
	if !r.last.IsZero() {
		dt = start.Sub(r.last).Seconds()
	}
	r.last = start

	r.manager.Process()

	pair := r.handoff.Load()
	packet := BuildFramePacket(pair, pair.Alpha(start, r.tick), r.manager.Store())
	packet.DeltaTime = dt
	if packet.Skipped > 0 {
		r.logger.Debug("skipped batches with missing GPU objects", "count", packet.Skipped, "generation", pair.Generation)
	}
	if err := r.DrawFrame(packet); err != nil {
		return err
	}

	r.frames++
	r.metrics.Update(r.now().Sub(start))
	return nil
}

// Run draws frames until ctx is cancelled.
func (r *Renderer) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.frame)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			rate, avg := r.metrics.Frame()
			r.logger.Info("render loop stopped", "frames", r.frames, "fps", rate, "avg", avg)
			return nil
		case <-ticker.C:
			if err := r.Frame(); err != nil {
				return err
			}
		}
	}
}

// Shutdown frees every GPU object owned by the upload stage.
func (r *Renderer) Shutdown() {
	r.manager.Store().Destroy(r.device)
}
