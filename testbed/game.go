package testbed

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/anima-assets/engine"
	"github.com/spaghettifunk/anima-assets/engine/assets"
	"github.com/spaghettifunk/anima-assets/engine/core"
	anmath "github.com/spaghettifunk/anima-assets/engine/math"
	"github.com/spaghettifunk/anima-assets/engine/resources"
	"github.com/spaghettifunk/anima-assets/engine/scene"
)

const (
	GRID_SPACING    float32 = 4
	SPIN_RAD_PER_S  float32 = 0.5
	ENV_PREFILTERED         = "environment/prefiltered.dds"
	ENV_IRRADIANCE          = "environment/irradiance.dds"
	ENV_BRDF_LUT            = "environment/brdf_lut.png"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	spinning map[scene.NodeID]*anmath.Transform
}

func NewTestGame() *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: &engine.ApplicationConfig{
				StartWidth:  1280,
				StartHeight: 720,
				Name:        "Anima Asset Testbed",
			},
			State: &gameState{spinning: make(map[scene.NodeID]*anmath.Transform)},
		},
	}

	tg.FnSetup = tg.Setup
	tg.FnUpdate = tg.Update
	tg.FnShutdown = tg.Shutdown

	return tg
}

// Setup places every model manifest found under the asset root on a grid
// and lights the scene with the environment maps when they are present.
func (g *TestGame) Setup(reg *resources.Registry, catalog *assets.Catalog, aspect float32) (*scene.Scene, error) {
	state := g.State.(*gameState)

	camera := scene.NewCamera(aspect)
	camera.SetPosition(mgl32.Vec3{0, 2, 15})

	var env *scene.Environment
	if hasAll(catalog, ENV_PREFILTERED, ENV_IRRADIANCE, ENV_BRDF_LUT) {
		env = scene.NewEnvironment(reg, scene.EnvironmentPaths{
			Prefiltered: ENV_PREFILTERED,
			Irradiance:  ENV_IRRADIANCE,
			BrdfLut:     ENV_BRDF_LUT,
		})
	} else {
		core.LogWarn("no environment maps under %s, drawing with the sun only", catalog.Root())
	}
	sc := scene.New(camera, env)

	models := catalog.Paths(resources.KindModel)
	side := int(math.Ceil(math.Sqrt(float64(len(models)))))
	for i, path := range models {
		x := (float32(i%side) - float32(side-1)/2) * GRID_SPACING
		z := -float32(i/side) * GRID_SPACING
		tr := anmath.TransformFromPosition(mgl32.Vec3{x, 0, z})
		id, err := sc.AddNode(sc.Root, scene.Node{
			Transform: tr.GetLocal(),
			Static:    &scene.StaticModel{Handle: reg.RequestModel(path)},
		})
		if err != nil {
			return nil, err
		}
		state.spinning[id] = tr
		core.LogDebug("placed %s at (%.1f, 0, %.1f)", path, x, z)
	}
	core.LogInfo("testbed scene: %d models", len(models))
	return sc, nil
}

func hasAll(catalog *assets.Catalog, paths ...string) bool {
	for _, p := range paths {
		if _, ok := catalog.Lookup(p); !ok {
			return false
		}
	}
	return true
}

// Update spins every model around its own vertical axis.
func (g *TestGame) Update(s *scene.Scene, id scene.NodeID, deltaTime float32) {
	state := g.State.(*gameState)
	tr, ok := state.spinning[id]
	if !ok {
		return
	}
	n, ok := s.Node(id)
	if !ok {
		return
	}
	tr.Rotate(mgl32.QuatRotate(SPIN_RAD_PER_S*deltaTime, mgl32.Vec3{0, 1, 0}))
	n.SetTransform(tr.GetLocal(), s.FrameIndex)
}

func (g *TestGame) Shutdown() error {
	core.LogInfo("testbed shutting down")
	return nil
}
