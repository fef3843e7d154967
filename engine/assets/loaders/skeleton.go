package loaders

import (
	"fmt"

	"github.com/spaghettifunk/anima-assets/engine/assets/formats"
	"github.com/spaghettifunk/anima-assets/engine/core"
)

type SkeletonLoader struct{}

func (sl *SkeletonLoader) Load(path string, params Params) (*Resource, error) {
	skel, size, err := loadJSON[formats.Skeleton](path)
	if err != nil {
		return nil, err
	}
	n := uint32(len(skel.Joints))
	for i, j := range skel.Joints {
		for _, c := range j.Children {
			if c >= n {
				return nil, fmt.Errorf("%w: %s: joint %d has child %d out of %d joints", core.ErrMalformedAsset, path, i, c, n)
			}
		}
	}
	return &Resource{
		FullPath: path,
		DataSize: uint64(size),
		Data:     skel,
	}, nil
}

type AnimationClipLoader struct{}

func (al *AnimationClipLoader) Load(path string, params Params) (*Resource, error) {
	clip, size, err := loadJSON[formats.AnimationClipManifest](path)
	if err != nil {
		return nil, err
	}
	if clip.BinaryPath == "" {
		return nil, fmt.Errorf("%w: %s: clip has no binary path", core.ErrMalformedAsset, path)
	}
	return &Resource{
		FullPath: path,
		DataSize: uint64(size),
		Data:     clip,
	}, nil
}
