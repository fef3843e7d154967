package engine

import (
	"github.com/spaghettifunk/anima-assets/engine/renderer"
)

type ApplicationConfig struct {
	// The application name used in logs.
	Name string
	// Viewport size the camera aspect ratio is derived from.
	StartWidth  uint32
	StartHeight uint32
	// GPU the upload stage and renderer talk to. Nil uses a HeadlessDevice.
	Device renderer.Device
}

func (c *ApplicationConfig) Aspect() float32 {
	if c.StartHeight == 0 {
		return 1
	}
	return float32(c.StartWidth) / float32(c.StartHeight)
}
