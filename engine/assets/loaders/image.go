package loaders

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/spaghettifunk/anima-assets/engine/assets/formats"
)

// decodeImage decodes any registered image format into a single-mip RGBA8
// texture. The color space is taken from srgb since image files carry no
// reliable tag for it.
func decodeImage(data []byte, srgb bool) (*formats.TextureData, error) {
	img, name, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("empty %s image", name)
	}

	rgba, ok := img.(*image.NRGBA)
	if !ok || rgba.Stride != 4*b.Dx() || b.Min != (image.Point{}) {
		rgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}

	format := formats.FormatRgba8Unorm
	if srgb {
		format = formats.FormatRgba8UnormSrgb
	}
	return &formats.TextureData{
		Data:   rgba.Pix,
		Width:  uint32(b.Dx()),
		Height: uint32(b.Dy()),
		Mips:   1,
		Layers: 1,
		Format: format,
	}, nil
}
