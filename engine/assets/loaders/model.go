package loaders

import (
	"fmt"

	"github.com/spaghettifunk/anima-assets/engine/assets/formats"
	"github.com/spaghettifunk/anima-assets/engine/core"
)

type ModelLoader struct{}

func (ml *ModelLoader) Load(path string, params Params) (*Resource, error) {
	model, size, err := loadJSON[formats.Model](path)
	if err != nil {
		return nil, err
	}
	if model.Buffer == "" {
		return nil, fmt.Errorf("%w: %s: model has no buffer", core.ErrMalformedAsset, path)
	}
	for i, sm := range model.Submeshes {
		if sm.IndexByteOffset%4 != 0 || sm.IndexByteLength%4 != 0 {
			return nil, fmt.Errorf("%w: %s: submesh %d index range is not 4-byte aligned", core.ErrMalformedAsset, path, i)
		}
	}
	return &Resource{
		FullPath: path,
		DataSize: uint64(size),
		Data:     model,
	}, nil
}
