package loaders

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spaghettifunk/anima-assets/engine/core"
)

// loadJSON decodes the manifest at path into a new T.
func loadJSON[T any](path string) (*T, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, 0, err
	}

	out := new(T)
	if err := json.NewDecoder(bufio.NewReader(f)).Decode(out); err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %v", core.ErrMalformedAsset, path, err)
	}
	return out, info.Size(), nil
}
