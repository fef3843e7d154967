package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/spaghettifunk/anima-assets/engine/assets"
	"github.com/spaghettifunk/anima-assets/engine/containers"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/renderer"
	"github.com/spaghettifunk/anima-assets/engine/resources"
	"github.com/spaghettifunk/anima-assets/engine/scene"
	"github.com/spaghettifunk/anima-assets/engine/sim"
	"github.com/spaghettifunk/anima-assets/engine/snapshot"
	"github.com/spaghettifunk/anima-assets/engine/store"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine released everything it owned
	EngineStageStopped
)

var ErrWrongStage = errors.New("engine is not in the required stage")

/**
 * @brief Wires the asset pipeline together: the I/O pool, the simulation
 * goroutine (registry, store, scene) and the render goroutine (upload
 * stage, renderer), connected by mailboxes and the snapshot handoff.
 */
type Engine struct {
	currentStage Stage
	gameInstance *Game
	config       *core.Config
	sessionID    string

	events   *core.EventBus
	catalog  *assets.Catalog
	pool     *assets.IoWorkerPool
	channels renderer.Channels
	handoff  *snapshot.SnapshotHandoff
	device   renderer.Device
	sim      *sim.Simulation
	renderer *renderer.Renderer

	quit     chan struct{}
	quitOnce sync.Once
	logger   *log.Logger
}

func New(cfg *core.Config, g *Game) (*Engine, error) {
	if cfg == nil {
		cfg = core.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if g == nil || g.ApplicationConfig == nil || g.FnSetup == nil {
		return nil, fmt.Errorf("game needs an application config and a setup function")
	}
	if err := core.SetLogLevel(cfg.Log.Level); err != nil {
		return nil, fmt.Errorf("%w: log.level: %v", core.ErrInvalidConfig, err)
	}

	id := uuid.NewString()
	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       cfg,
		sessionID:    id,
		events:       core.NewEventBus(),
		quit:         make(chan struct{}),
		logger:       core.Logger("component", "engine", "session", id),
	}, nil
}

func (e *Engine) SessionID() string {
	return e.sessionID
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

// Events is the engine-wide event bus. Listeners for
// EVENT_CODE_RESOURCE_READY run on the simulation goroutine.
func (e *Engine) Events() *core.EventBus {
	return e.events
}

// Device is the GPU the engine draws with.
func (e *Engine) Device() renderer.Device {
	return e.device
}

func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageUninitialized {
		return fmt.Errorf("%w: initialize from stage %d", ErrWrongStage, e.currentStage)
	}
	e.currentStage = EngineStageInitializing
	cfg := e.config
	app := e.gameInstance.ApplicationConfig
	e.logger.Info("initializing", "name", app.Name, "assets", cfg.Assets.Root)

	catalog, err := assets.NewCatalog(cfg.Assets.Root)
	if err != nil {
		return err
	}
	if err := catalog.Initialize(cfg.Assets.Watch); err != nil {
		return err
	}
	e.catalog = catalog
	e.logger.Info("asset catalog ready", "files", catalog.Len())

	pool, err := assets.NewIoWorkerPool(cfg.Io.Workers, cfg.Io.QueueSize, cfg.Assets.Root, nil)
	if err != nil {
		return err
	}
	e.pool = pool

	e.channels = renderer.Channels{
		RegistryRequests: containers.NewMailbox[resources.ResourceRequest](cfg.Io.QueueSize),
		RegistryResults:  containers.NewMailbox[resources.ResourceResult](cfg.Io.QueueSize),
		GameRequests:     containers.NewMailbox[store.CreateGameResourceRequest](cfg.Io.QueueSize),
		GameResponses:    containers.NewMailbox[store.CreateGameResourceResponse](cfg.Io.QueueSize),
	}
	e.handoff = snapshot.NewSnapshotHandoff(snapshot.Empty())

	setup := func(reg *resources.Registry) (*scene.Scene, error) {
		return e.gameInstance.FnSetup(reg, e.catalog, app.Aspect())
	}
	e.sim, err = sim.New(sim.Options{
		Tick:             cfg.TickDuration(),
		Spin:             cfg.SpinDuration(),
		StaleAfterTicks:  uint32(cfg.Staging.StaleAfterTicks),
		RegistryRequests: e.channels.RegistryRequests,
		RegistryResults:  e.channels.RegistryResults,
		GameRequests:     e.channels.GameRequests,
		GameResponses:    e.channels.GameResponses,
		Handoff:          e.handoff,
		Events:           e.events,
	}, setup, scene.UpdateFunc(e.gameInstance.FnUpdate))
	if err != nil {
		return err
	}

	e.device = app.Device
	if e.device == nil {
		e.device = renderer.NewHeadlessDevice()
	}
	manager := renderer.NewRenderAssetManager(e.pool, e.channels, e.device, renderer.NewRenderAssetStore(), cfg.Render.UploadBudget)
	e.renderer = renderer.NewRenderer(e.device, manager, e.handoff, cfg.TickDuration(), cfg.FrameDuration())

	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	switch code {
	case core.EVENT_CODE_APPLICATION_QUIT:
		e.logger.Info("EVENT_CODE_APPLICATION_QUIT received, shutting down")
		e.Quit()
		return true
	}
	return false
}

// Quit stops Run. Safe to call from any goroutine, any number of times.
func (e *Engine) Quit() {
	e.quitOnce.Do(func() { close(e.quit) })
}

/**
 * @brief Runs the simulation and render goroutines until ctx is cancelled,
 * Quit is called or either loop fails.
 */
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("%w: run from stage %d", ErrWrongStage, e.currentStage)
	}
	e.currentStage = EngineStageRunning

	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	g.Go(func() error {
		select {
		case <-e.quit:
			cancel()
		case <-runCtx.Done():
		}
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return e.sim.Run(runCtx)
	})
	g.Go(func() error {
		defer cancel()
		return e.renderer.Run(runCtx)
	})

	err := g.Wait()
	if err != nil {
		e.logger.Error("engine stopped with an error", "err", err)
	}
	return err
}

/**
 * @brief Releases everything. Mailboxes close in pipeline order so nothing
 * is sent into a stage that already stopped: registry requests, the I/O
 * pool, store traffic, then registry results.
 */
func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageStopped {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.Quit()

	var errs []error
	if e.sim != nil {
		e.sim.Shutdown()
	}
	if e.channels.RegistryRequests != nil {
		e.channels.RegistryRequests.Close()
	}
	if e.pool != nil {
		if err := e.pool.Shutdown(); err != nil {
			errs = append(errs, err)
		}
		loaded, failed := e.pool.Stats()
		e.logger.Info("io pool stopped", "loaded", loaded, "failed", failed)
	}
	if e.channels.GameRequests != nil {
		e.channels.GameRequests.Close()
		e.channels.GameResponses.Close()
		e.channels.RegistryResults.Close()
	}
	if e.renderer != nil {
		e.renderer.Shutdown()
	}
	if e.catalog != nil {
		if err := e.catalog.Close(); err != nil && !errors.Is(err, assets.ErrCatalogClosed) {
			errs = append(errs, err)
		}
	}
	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			errs = append(errs, err)
		}
	}
	e.events.Shutdown()

	e.currentStage = EngineStageStopped
	return errors.Join(errs...)
}
