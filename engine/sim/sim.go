package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/anima-assets/engine/containers"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/resources"
	"github.com/spaghettifunk/anima-assets/engine/scene"
	"github.com/spaghettifunk/anima-assets/engine/snapshot"
	"github.com/spaghettifunk/anima-assets/engine/store"
)

// SetupFunc builds the scene once the registry exists. Handles requested
// here start loading on the first tick.
type SetupFunc func(reg *resources.Registry) (*scene.Scene, error)

type Options struct {
	Tick            time.Duration
	Spin            time.Duration
	StaleAfterTicks uint32

	RegistryRequests *containers.Mailbox[resources.ResourceRequest]
	RegistryResults  *containers.Mailbox[resources.ResourceResult]
	GameRequests     *containers.Mailbox[store.CreateGameResourceRequest]
	GameResponses    *containers.Mailbox[store.CreateGameResourceResponse]

	Handoff *snapshot.SnapshotHandoff
	// Events may be nil.
	Events *core.EventBus
}

/**
 * @brief The simulation goroutine. Owns the registry, the game asset store
 * and the scene; nothing else touches them. Every tick it applies load
 * results, resolves staged composites, updates the scene and publishes a
 * snapshot for the renderer.
 */
type Simulation struct {
	Registry *resources.Registry
	Store    *store.GameAssetStore
	Scene    *scene.Scene

	handoff *snapshot.SnapshotHandoff
	events  *core.EventBus
	inbox   *containers.Mailbox[simEvent]
	clock   *core.TickClock
	update  scene.UpdateFunc
	metrics *core.Metrics
	frame   uint32
	logger  *log.Logger
}

type simEvent struct {
	code core.SystemEventCode
	ctx  core.EventContext
}

func New(opts Options, setup SetupFunc, update scene.UpdateFunc) (*Simulation, error) {
	if opts.Tick <= 0 {
		return nil, fmt.Errorf("%w: tick must be positive, got %s", core.ErrInvalidConfig, opts.Tick)
	}
	reg := resources.NewRegistry(opts.RegistryRequests, opts.RegistryResults)
	s := &Simulation{
		Registry: reg,
		Store:    store.NewGameAssetStore(opts.GameRequests, opts.GameResponses, reg, opts.StaleAfterTicks),
		handoff:  opts.Handoff,
		events:   opts.Events,
		inbox:    containers.NewMailbox[simEvent](16),
		clock:    core.NewTickClock(opts.Tick, opts.Spin),
		update:   update,
		metrics:  core.NewMetrics(),
		logger:   core.Logger("component", "sim"),
	}

	sc, err := setup(reg)
	if err != nil {
		s.Store.Close()
		return nil, err
	}
	s.Scene = sc

	reg.SetReadyHook(s.onReady)
	if s.events != nil {
		s.events.Register(core.EVENT_CODE_CAMERA_MOVED, s, s.onEvent)
	}
	return s, nil
}

func (s *Simulation) onReady(idx containers.Index, e resources.Entry) {
	s.logger.Debug("resource ready", "kind", e.Kind, "path", e.Path)
	if s.events == nil {
		return
	}
	var ctx core.EventContext
	ctx.Data.C = e.Path
	ctx.Data.U32[0] = uint32(e.Kind)
	s.events.Fire(core.EVENT_CODE_RESOURCE_READY, s, ctx)
}

// onEvent may run on any goroutine; the event is applied on the next tick.
func (s *Simulation) onEvent(code core.SystemEventCode, _ interface{}, _ interface{}, ctx core.EventContext) bool {
	if err := s.inbox.Send(simEvent{code: code, ctx: ctx}); err != nil {
		s.logger.Warn("dropping event", "code", code, "err", err)
	}
	return false
}

func (s *Simulation) applyEvents() {
	s.inbox.Drain(func(ev simEvent) {
		switch ev.code {
		case core.EVENT_CODE_CAMERA_MOVED:
			if s.Scene.Camera == nil {
				return
			}
			d := ev.ctx.Data.F32
			s.Scene.Camera.SetPosition(s.Scene.Camera.Position.Add(mgl32.Vec3{d[0], d[1], d[2]}))
		}
	})
}

// syncAnimators copies clip durations into animators once the clip header
// has been loaded.
func (s *Simulation) syncAnimators() {
	s.Scene.Nodes.Each(func(_ containers.Index, n *scene.Node) {
		if n.Animated == nil || n.Animated.Animator.Clip == nil || n.Animated.Animator.Duration > 0 {
			return
		}
		gid, ok := resources.GameReady(s.Registry, n.Animated.Animator.Clip.ID())
		if !ok {
			return
		}
		if clip, ok := s.Store.AnimationClip(resources.AnimationClipGameID{Index: gid}); ok {
			n.Animated.Animator.Duration = clip.Manifest.Duration
		}
	})
}

func (s *Simulation) FrameIndex() uint32 {
	return s.frame
}

func (s *Simulation) Metrics() *core.Metrics {
	return s.metrics
}

/**
 * @brief Runs one simulation step of dt seconds and publishes its snapshot.
 */
func (s *Simulation) Tick(dt float32) {
	start := time.Now()
	s.frame++

	s.Registry.ProcessResponses()
	s.Store.ProcessRequests(s.Registry)
	s.applyEvents()
	s.syncAnimators()
	s.Scene.FrameIndex = s.frame
	s.Scene.Update(dt, s.update)

	snap := snapshot.Build(s.Scene, s.Registry, s.Store, s.frame)
	s.handoff.Publish(snap)

	s.metrics.Update(time.Since(start))
}

// Run ticks at the configured rate until ctx is cancelled, then releases
// everything the simulation owns.
func (s *Simulation) Run(ctx context.Context) error {
	defer s.Shutdown()

	dt := float32(s.clock.Tick().Seconds())
	s.clock.Start()
	for {
		if ctx.Err() != nil {
			rate, avg := s.metrics.Frame()
			s.logger.Info("simulation stopped",
				"ticks", s.clock.Ticks(), "resyncs", s.clock.Resyncs(), "tps", rate, "avg", avg)
			return nil
		}
		s.Tick(dt)
		s.clock.Wait()
	}
}

// Shutdown drops every handle held by the scene and the store and detaches
// the registry.
func (s *Simulation) Shutdown() {
	if s.Registry.Closed() {
		return
	}
	if s.events != nil {
		s.events.Unregister(core.EVENT_CODE_CAMERA_MOVED, s)
	}
	s.inbox.Close()
	s.Scene.Release()
	s.Store.Close()
	s.Registry.Close()
}
