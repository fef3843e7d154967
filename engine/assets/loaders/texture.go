package loaders

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spaghettifunk/anima-assets/engine/assets/formats"
	"github.com/spaghettifunk/anima-assets/engine/core"
)

var (
	ddsMagic = []byte("DDS ")
	pngMagic = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
)

// TextureLoader decodes DDS containers as-is and every other supported image
// format into RGBA8.
type TextureLoader struct{}

func (tl *TextureLoader) Load(path string, params Params) (*Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	tex, err := DecodeTexture(data, params.SRGB)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &Resource{
		FullPath: path,
		DataSize: uint64(len(tex.Data)),
		Data:     tex,
	}, nil
}

// DecodeTexture sniffs the container by magic bytes.
func DecodeTexture(data []byte, srgb bool) (*formats.TextureData, error) {
	switch {
	case bytes.HasPrefix(data, ddsMagic):
		return decodeDDS(data)
	case bytes.HasPrefix(data, pngMagic):
		return decodeImage(data, srgb)
	}
	tex, err := decodeImage(data, srgb)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUnsupportedTexture, err)
	}
	return tex, nil
}
