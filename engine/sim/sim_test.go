package sim

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/anima-assets/engine/assets"
	"github.com/spaghettifunk/anima-assets/engine/assets/formats"
	"github.com/spaghettifunk/anima-assets/engine/containers"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/renderer"
	"github.com/spaghettifunk/anima-assets/engine/resources"
	"github.com/spaghettifunk/anima-assets/engine/scene"
	"github.com/spaghettifunk/anima-assets/engine/snapshot"
	"github.com/spaghettifunk/anima-assets/engine/store"
)

const cubeModel = `{
	"buffer": "cube.bin",
	"material_paths": ["red.mat.json"],
	"submeshes": [{
		"instances": [[[1,0,0,0],[0,1,0,0],[0,0,1,0],[0,0,0,1]]],
		"index_byte_offset": 0,
		"index_byte_length": 24,
		"base_vertex": 0,
		"material": 0
	}],
	"deformation": "None",
	"aabb": {"min": [-1,-1,-1], "max": [1,1,1]}
}`

const redMaterial = `{
	"base_color_factor": [1, 0, 0, 1],
	"alpha_mode": "Opaque",
	"base_color_texture": {
		"source": "red.png",
		"sampler": {
			"mag_filter": "Linear",
			"min_filter": "Linear",
			"mipmap_filter": "Nearest",
			"wrap_u": "Repeat",
			"wrap_v": "Repeat",
			"wrap_w": "Repeat"
		}
	}
}`

func writeFile(t *testing.T, root, name string, data []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(root, name), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeCube(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "cube.model.json", []byte(cubeModel))
	writeFile(t, root, "cube.bin", make([]byte, 64))
	writeFile(t, root, "red.mat.json", []byte(redMaterial))

	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < 16; i++ {
		img.Set(i%4, i/4, color.NRGBA{R: 255, A: 255})
	}
	f, err := os.Create(filepath.Join(root, "red.png"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return root
}

type pipeline struct {
	ch      renderer.Channels
	sim     *Simulation
	manager *renderer.RenderAssetManager
	handoff *snapshot.SnapshotHandoff
	events  *core.EventBus
	model   *resources.ModelHandle
}

func newPipeline(t *testing.T, root string) *pipeline {
	t.Helper()
	pool, err := assets.NewIoWorkerPool(2, 16, root, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = pool.Shutdown() })

	ch := renderer.Channels{
		RegistryRequests: containers.NewMailbox[resources.ResourceRequest](16),
		RegistryResults:  containers.NewMailbox[resources.ResourceResult](16),
		GameRequests:     containers.NewMailbox[store.CreateGameResourceRequest](16),
		GameResponses:    containers.NewMailbox[store.CreateGameResourceResponse](16),
	}
	p := &pipeline{
		ch:      ch,
		handoff: snapshot.NewSnapshotHandoff(snapshot.Empty()),
		events:  core.NewEventBus(),
	}
	setup := func(reg *resources.Registry) (*scene.Scene, error) {
		camera := scene.NewCamera(1)
		camera.SetPosition(mgl32.Vec3{0, 0, 10})
		sc := scene.New(camera, nil)
		p.model = reg.RequestModel("cube.model.json")
		_, err := sc.AddNode(sc.Root, scene.Node{
			Transform: mgl32.Ident4(),
			Static:    &scene.StaticModel{Handle: p.model.Clone()},
		})
		return sc, err
	}
	p.sim, err = New(Options{
		Tick:             10 * time.Millisecond,
		StaleAfterTicks:  1000,
		RegistryRequests: ch.RegistryRequests,
		RegistryResults:  ch.RegistryResults,
		GameRequests:     ch.GameRequests,
		GameResponses:    ch.GameResponses,
		Handoff:          p.handoff,
		Events:           p.events,
	}, setup, nil)
	if err != nil {
		t.Fatal(err)
	}
	p.manager = renderer.NewRenderAssetManager(pool, ch, renderer.NewHeadlessDevice(), renderer.NewRenderAssetStore(), 0)
	return p
}

func (p *pipeline) runUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		p.sim.Tick(0.01)
		p.manager.Process()
		time.Sleep(time.Millisecond)
	}
}

func TestModelReachesTheRenderer(t *testing.T) {
	p := newPipeline(t, writeCube(t))

	var ready []string
	p.events.Register(core.EVENT_CODE_RESOURCE_READY, "test", func(_ core.SystemEventCode, _ interface{}, _ interface{}, ctx core.EventContext) bool {
		ready = append(ready, ctx.Data.C)
		return false
	})

	p.runUntil(t, "model batch", func() bool {
		return len(p.handoff.Load().Curr.Draws.SubmeshBatches) == 1
	})

	for _, path := range []string{"cube.model.json", "cube.bin", "red.mat.json", "red.png"} {
		if !slices.Contains(ready, path) {
			t.Errorf("no ready event for %s (got %v)", path, ready)
		}
	}

	entry := resources.Get(p.sim.Registry, p.model)
	if entry.RefCount != 2 {
		t.Errorf("model refcount = %d, want 2", entry.RefCount)
	}

	packet := renderer.BuildFramePacket(p.handoff.Load(), 1, p.manager.Store())
	if packet.Skipped != 0 || len(packet.Draws) != 1 {
		t.Fatalf("packet: %d draws, %d skipped", len(packet.Draws), packet.Skipped)
	}
	if d := packet.Draws[0]; d.IndexCount != 6 || len(d.Instances) != 1 {
		t.Errorf("draw = %+v", d)
	}

	pair := p.handoff.Load()
	if pair.Curr.FrameIndex != p.sim.FrameIndex() || uint64(pair.Curr.FrameIndex) != pair.Generation {
		t.Errorf("frame %d published as generation %d", pair.Curr.FrameIndex, pair.Generation)
	}

	p.sim.Shutdown()
	if !p.sim.Registry.Closed() {
		t.Error("registry must be closed after shutdown")
	}
}

func TestCameraMovedEventAppliesOnTick(t *testing.T) {
	p := newPipeline(t, t.TempDir())
	defer p.sim.Shutdown()

	var ctx core.EventContext
	ctx.Data.F32 = [4]float32{1, 2, 3, 0}
	p.events.Fire(core.EVENT_CODE_CAMERA_MOVED, nil, ctx)

	if got := p.sim.Scene.Camera.Position; got != (mgl32.Vec3{0, 0, 10}) {
		t.Fatalf("camera moved before the tick: %v", got)
	}
	p.sim.Tick(0.01)
	if got := p.sim.Scene.Camera.Position; got != (mgl32.Vec3{1, 2, 13}) {
		t.Errorf("camera = %v", got)
	}
	if got := p.handoff.Load().Curr.Camera.Position; got != (mgl32.Vec3{1, 2, 13}) {
		t.Errorf("published camera = %v", got)
	}
}

func TestAnimatorPicksUpClipDuration(t *testing.T) {
	p := newPipeline(t, t.TempDir())
	defer p.sim.Shutdown()

	reg := p.sim.Registry
	clip := reg.RequestAnimationClip("walk.clip.json")
	id, err := p.sim.Scene.AddNode(p.sim.Scene.Root, scene.Node{
		Transform: mgl32.Ident4(),
		Animated: &scene.AnimatedModel{
			Model:    reg.RequestModel("hero.model.json"),
			Animator: scene.NewAnimator(clip),
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	p.sim.Tick(0.5)
	n, _ := p.sim.Scene.Node(id)
	if n.Animated.Animator.Duration != 0 {
		t.Fatal("duration set before the clip loaded")
	}

	gid := p.sim.Store.AnimationClips.Insert(store.AnimationClipGameData{
		Manifest: &formats.AnimationClipManifest{Duration: 2, BinaryPath: "walk.anim"},
	})
	if err := p.ch.RegistryResults.Send(resources.AnimationClipResult{
		ID:     clip.ID(),
		GameID: resources.AnimationClipGameID{Index: gid},
	}); err != nil {
		t.Fatal(err)
	}

	p.sim.Tick(2)
	n, _ = p.sim.Scene.Node(id)
	if n.Animated.Animator.Duration != 2 {
		t.Fatalf("duration = %v", n.Animated.Animator.Duration)
	}
	// 0.5 + 2 wraps around a 2 s loop
	if got := n.Animated.Animator.TimeSec; got < 0.499 || got > 0.501 {
		t.Errorf("time = %v, want 0.5", got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	p := newPipeline(t, t.TempDir())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := p.sim.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if p.sim.FrameIndex() == 0 {
		t.Error("no ticks ran")
	}
	if !p.sim.Registry.Closed() {
		t.Error("Run must shut the simulation down")
	}
}

func TestNewRejectsZeroTick(t *testing.T) {
	_, err := New(Options{}, nil, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
}
