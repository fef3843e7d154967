//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Runs the testbed against an asset directory until interrupted.
func (Run) Testbed(assets string) error {
	mg.Deps(Build.Testbed)
	fmt.Println("Run testbed...")
	if _, err := executeCmd("bin/anima-assets", withArgs("-assets", assets), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the testbed for a fixed duration with debug logging, e.g. mage run:smoke assets 5s.
func (Run) Smoke(assets, duration string) error {
	mg.Deps(Build.Testbed)
	_, err := executeCmd("bin/anima-assets", withArgs("-assets", assets, "-duration", duration, "-log", "debug"), withStream())
	return err
}
