package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/anima-assets/engine/assets"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/renderer"
	"github.com/spaghettifunk/anima-assets/engine/resources"
	"github.com/spaghettifunk/anima-assets/engine/scene"
)

const boxModel = `{
	"buffer": "box.bin",
	"submeshes": [{
		"instances": [[[1,0,0,0],[0,1,0,0],[0,0,1,0],[0,0,0,1]]],
		"index_byte_offset": 0,
		"index_byte_length": 12,
		"base_vertex": 0
	}],
	"deformation": "None",
	"aabb": {"min": [-1,-1,-1], "max": [1,1,1]}
}`

func testConfig(t *testing.T) *core.Config {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "box.model.json"), []byte(boxModel), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "box.bin"), make([]byte, 48), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := core.DefaultConfig()
	cfg.Assets.Root = root
	cfg.Assets.Watch = false
	cfg.Sim.TickMS = 5
	cfg.Render.FrameMS = 2
	return cfg
}

func testGame(device renderer.Device) *Game {
	return &Game{
		ApplicationConfig: &ApplicationConfig{Name: "engine test", StartWidth: 640, StartHeight: 480, Device: device},
		FnSetup: func(reg *resources.Registry, catalog *assets.Catalog, aspect float32) (*scene.Scene, error) {
			camera := scene.NewCamera(aspect)
			camera.SetPosition(mgl32.Vec3{0, 0, 10})
			sc := scene.New(camera, nil)
			for _, path := range catalog.Paths(resources.KindModel) {
				if _, err := sc.AddNode(sc.Root, scene.Node{
					Transform: mgl32.Ident4(),
					Static:    &scene.StaticModel{Handle: reg.RequestModel(path)},
				}); err != nil {
					return nil, err
				}
			}
			return sc, nil
		},
	}
}

func TestNewValidates(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Io.Workers = 0
	if _, err := New(cfg, testGame(nil)); !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("err = %v", err)
	}
	if _, err := New(nil, &Game{}); err == nil {
		t.Error("game without setup must be rejected")
	}
}

func TestEngineDrawsLoadedModel(t *testing.T) {
	device := renderer.NewHeadlessDevice()
	e, err := New(testConfig(t), testGame(device))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}

	ready := make(chan string, 16)
	e.Events().Register(core.EVENT_CODE_RESOURCE_READY, "test", func(_ core.SystemEventCode, _ interface{}, _ interface{}, ctx core.EventContext) bool {
		select {
		case ready <- ctx.Data.C:
		default:
		}
		return false
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	timeout := time.After(5 * time.Second)
wait:
	for {
		select {
		case path := <-ready:
			if path == "box.model.json" {
				break wait
			}
		case <-timeout:
			t.Fatal("model never became ready")
		}
	}

	var draws []renderer.DrawCommand
	deadline := time.Now().Add(5 * time.Second)
	for len(draws) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
		draws = device.Draws()
	}
	if len(draws) != 1 || draws[0].IndexCount != 3 {
		t.Errorf("draws = %+v", draws)
	}

	e.Events().Fire(core.EVENT_CODE_APPLICATION_QUIT, nil, core.EventContext{})
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if err := e.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if e.Stage() != EngineStageStopped {
		t.Errorf("stage = %d", e.Stage())
	}
	if buffers, _, _ := device.Live(); buffers != 0 {
		t.Errorf("%d buffers left after shutdown", buffers)
	}
}

func TestRunRequiresInitialize(t *testing.T) {
	e, err := New(testConfig(t), testGame(nil))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Run(context.Background()); !errors.Is(err, ErrWrongStage) {
		t.Errorf("err = %v", err)
	}
	if err := e.Shutdown(); err != nil {
		t.Fatal(err)
	}
}
