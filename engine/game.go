package engine

import (
	"github.com/spaghettifunk/anima-assets/engine/assets"
	"github.com/spaghettifunk/anima-assets/engine/resources"
	"github.com/spaghettifunk/anima-assets/engine/scene"
)

type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	FnSetup           Setup
	FnUpdate          Update
	FnShutdown        Shutdown
}

// Setup builds the initial scene on the simulation goroutine. The catalog
// lists what is on disk under the asset root.
type Setup func(reg *resources.Registry, catalog *assets.Catalog, aspect float32) (*scene.Scene, error)

// Update is called for every scene node on every tick, parents first.
type Update func(s *scene.Scene, id scene.NodeID, deltaTime float32)

type Shutdown func() error
