package loaders

import (
	"fmt"

	"github.com/spaghettifunk/anima-assets/engine/assets/formats"
	"github.com/spaghettifunk/anima-assets/engine/core"
)

type MaterialLoader struct{}

func (ml *MaterialLoader) Load(path string, params Params) (*Resource, error) {
	mat, size, err := loadJSON[formats.Material](path)
	if err != nil {
		return nil, err
	}
	if mat.AlphaMode == "" {
		mat.AlphaMode = formats.AlphaOpaque
	}
	for slot, tex := range mat.Textures() {
		if tex != nil && tex.Source == "" {
			return nil, fmt.Errorf("%w: %s: %s texture has no source", core.ErrMalformedAsset, path, formats.TextureSlot(slot))
		}
	}
	return &Resource{
		FullPath: path,
		DataSize: uint64(size),
		Data:     mat,
	}, nil
}
