package formats

import "fmt"

type TextureFormat int

const (
	FormatUnknown TextureFormat = iota
	FormatR8Unorm
	FormatRgba8Unorm
	FormatRgba8UnormSrgb
	FormatBgra8Unorm
	FormatBgra8UnormSrgb
	FormatRgba16Float
	FormatRgba32Float
	FormatBc1RgbaUnorm
	FormatBc1RgbaUnormSrgb
	FormatBc2RgbaUnorm
	FormatBc2RgbaUnormSrgb
	FormatBc3RgbaUnorm
	FormatBc3RgbaUnormSrgb
	FormatBc4RUnorm
	FormatBc4RSnorm
	FormatBc5RgUnorm
	FormatBc5RgSnorm
	FormatBc6hRgbUfloat
	FormatBc6hRgbFloat
	FormatBc7RgbaUnorm
	FormatBc7RgbaUnormSrgb
)

var textureFormatNames = map[TextureFormat]string{
	FormatUnknown:          "unknown",
	FormatR8Unorm:          "r8unorm",
	FormatRgba8Unorm:       "rgba8unorm",
	FormatRgba8UnormSrgb:   "rgba8unorm-srgb",
	FormatBgra8Unorm:       "bgra8unorm",
	FormatBgra8UnormSrgb:   "bgra8unorm-srgb",
	FormatRgba16Float:      "rgba16float",
	FormatRgba32Float:      "rgba32float",
	FormatBc1RgbaUnorm:     "bc1-rgba-unorm",
	FormatBc1RgbaUnormSrgb: "bc1-rgba-unorm-srgb",
	FormatBc2RgbaUnorm:     "bc2-rgba-unorm",
	FormatBc2RgbaUnormSrgb: "bc2-rgba-unorm-srgb",
	FormatBc3RgbaUnorm:     "bc3-rgba-unorm",
	FormatBc3RgbaUnormSrgb: "bc3-rgba-unorm-srgb",
	FormatBc4RUnorm:        "bc4-r-unorm",
	FormatBc4RSnorm:        "bc4-r-snorm",
	FormatBc5RgUnorm:       "bc5-rg-unorm",
	FormatBc5RgSnorm:       "bc5-rg-snorm",
	FormatBc6hRgbUfloat:    "bc6h-rgb-ufloat",
	FormatBc6hRgbFloat:     "bc6h-rgb-float",
	FormatBc7RgbaUnorm:     "bc7-rgba-unorm",
	FormatBc7RgbaUnormSrgb: "bc7-rgba-unorm-srgb",
}

func (f TextureFormat) String() string {
	if n, ok := textureFormatNames[f]; ok {
		return n
	}
	return fmt.Sprintf("TextureFormat(%d)", int(f))
}

// BlockInfo describes the smallest addressable unit of a format. Uncompressed
// formats have 1x1 blocks.
type BlockInfo struct {
	Width  uint32
	Height uint32
	Bytes  uint32
}

func (f TextureFormat) BlockInfo() (BlockInfo, bool) {
	switch f {
	case FormatR8Unorm:
		return BlockInfo{1, 1, 1}, true
	case FormatRgba8Unorm, FormatRgba8UnormSrgb, FormatBgra8Unorm, FormatBgra8UnormSrgb:
		return BlockInfo{1, 1, 4}, true
	case FormatRgba16Float:
		return BlockInfo{1, 1, 8}, true
	case FormatRgba32Float:
		return BlockInfo{1, 1, 16}, true
	case FormatBc1RgbaUnorm, FormatBc1RgbaUnormSrgb, FormatBc4RUnorm, FormatBc4RSnorm:
		return BlockInfo{4, 4, 8}, true
	case FormatBc2RgbaUnorm, FormatBc2RgbaUnormSrgb, FormatBc3RgbaUnorm, FormatBc3RgbaUnormSrgb,
		FormatBc5RgUnorm, FormatBc5RgSnorm, FormatBc6hRgbUfloat, FormatBc6hRgbFloat,
		FormatBc7RgbaUnorm, FormatBc7RgbaUnormSrgb:
		return BlockInfo{4, 4, 16}, true
	}
	return BlockInfo{}, false
}

func (f TextureFormat) IsCompressed() bool {
	b, ok := f.BlockInfo()
	return ok && b.Width > 1
}

// TextureData is a decoded texture ready for upload. Data is laid out
// layer-major: layer0 mip0, layer0 mip1, ..., layer1 mip0, ...
type TextureData struct {
	Data   []byte
	Width  uint32
	Height uint32
	Mips   uint32
	Layers uint32
	Format TextureFormat
}

func (t *TextureData) IsCube() bool {
	return t.Layers == 6
}

// MipExtent returns the size in texels of mip level mip.
func (t *TextureData) MipExtent(mip uint32) (uint32, uint32) {
	w := t.Width >> mip
	h := t.Height >> mip
	if w == 0 {
		w = 1
	}
	if h == 0 {
		h = 1
	}
	return w, h
}

// MipLayout returns the tightly packed row size in bytes and the number of
// block rows for a mip level.
func (t *TextureData) MipLayout(mip uint32) (rowBytes, rows uint32, err error) {
	b, ok := t.Format.BlockInfo()
	if !ok {
		return 0, 0, fmt.Errorf("no block layout for format %s", t.Format)
	}
	w, h := t.MipExtent(mip)
	blocksWide := (w + b.Width - 1) / b.Width
	blocksHigh := (h + b.Height - 1) / b.Height
	return blocksWide * b.Bytes, blocksHigh, nil
}

// ExpectedSize is the byte length Data must have for the declared layout.
func (t *TextureData) ExpectedSize() (int, error) {
	total := 0
	for mip := uint32(0); mip < t.Mips; mip++ {
		row, rows, err := t.MipLayout(mip)
		if err != nil {
			return 0, err
		}
		total += int(row * rows)
	}
	return total * int(t.Layers), nil
}
