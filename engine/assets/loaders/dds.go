package loaders

import (
	"encoding/binary"
	"fmt"

	"github.com/spaghettifunk/anima-assets/engine/assets/formats"
	"github.com/spaghettifunk/anima-assets/engine/core"
)

const (
	ddsHeaderSize  = 128 // magic + DDS_HEADER
	dx10HeaderSize = 20

	ddpfFourCC = 0x4
	ddpfRGB    = 0x40

	caps2Cubemap    = 0x200
	dx10MiscCubemap = 0x4
)

var dxgiFormats = map[uint32]formats.TextureFormat{
	2:  formats.FormatRgba32Float,
	10: formats.FormatRgba16Float,
	28: formats.FormatRgba8Unorm,
	29: formats.FormatRgba8UnormSrgb,
	61: formats.FormatR8Unorm,
	70: formats.FormatBc1RgbaUnorm,
	71: formats.FormatBc1RgbaUnorm,
	72: formats.FormatBc1RgbaUnormSrgb,
	73: formats.FormatBc2RgbaUnorm,
	74: formats.FormatBc2RgbaUnorm,
	75: formats.FormatBc2RgbaUnormSrgb,
	76: formats.FormatBc3RgbaUnorm,
	77: formats.FormatBc3RgbaUnorm,
	78: formats.FormatBc3RgbaUnormSrgb,
	79: formats.FormatBc4RUnorm,
	80: formats.FormatBc4RUnorm,
	81: formats.FormatBc4RSnorm,
	82: formats.FormatBc5RgUnorm,
	83: formats.FormatBc5RgUnorm,
	84: formats.FormatBc5RgSnorm,
	87: formats.FormatBgra8Unorm,
	91: formats.FormatBgra8UnormSrgb,
	94: formats.FormatBc6hRgbUfloat,
	95: formats.FormatBc6hRgbUfloat,
	96: formats.FormatBc6hRgbFloat,
	97: formats.FormatBc7RgbaUnorm,
	98: formats.FormatBc7RgbaUnorm,
	99: formats.FormatBc7RgbaUnormSrgb,
}

var fourCCFormats = map[string]formats.TextureFormat{
	"DXT1": formats.FormatBc1RgbaUnorm,
	"DXT3": formats.FormatBc2RgbaUnorm,
	"DXT5": formats.FormatBc3RgbaUnorm,
	"ATI1": formats.FormatBc4RUnorm,
	"BC4U": formats.FormatBc4RUnorm,
	"BC4S": formats.FormatBc4RSnorm,
	"ATI2": formats.FormatBc5RgUnorm,
	"BC5U": formats.FormatBc5RgUnorm,
	"BC5S": formats.FormatBc5RgSnorm,
	// D3DFMT_A16B16G16R16F and D3DFMT_A32B32G32R32F stored as numbers.
	"q\x00\x00\x00": formats.FormatRgba16Float,
	"t\x00\x00\x00": formats.FormatRgba32Float,
}

// decodeDDS reads the header of a DDS container and returns its payload
// unchanged, laid out layer-major as the format stores it.
func decodeDDS(data []byte) (*formats.TextureData, error) {
	if len(data) < ddsHeaderSize {
		return nil, fmt.Errorf("%w: dds header truncated", core.ErrMalformedAsset)
	}
	le := binary.LittleEndian
	if le.Uint32(data[4:]) != 124 {
		return nil, fmt.Errorf("%w: bad dds header size %d", core.ErrMalformedAsset, le.Uint32(data[4:]))
	}

	height := le.Uint32(data[12:])
	width := le.Uint32(data[16:])
	mips := le.Uint32(data[28:])
	if mips == 0 {
		mips = 1
	}
	pfFlags := le.Uint32(data[80:])
	fourCC := string(data[84:88])
	caps2 := le.Uint32(data[112:])

	layers := uint32(1)
	cube := caps2&caps2Cubemap != 0
	offset := ddsHeaderSize
	format := formats.FormatUnknown

	switch {
	case pfFlags&ddpfFourCC != 0 && fourCC == "DX10":
		if len(data) < ddsHeaderSize+dx10HeaderSize {
			return nil, fmt.Errorf("%w: dx10 header truncated", core.ErrMalformedAsset)
		}
		dxgi := le.Uint32(data[128:])
		f, ok := dxgiFormats[dxgi]
		if !ok {
			return nil, fmt.Errorf("%w: dxgi format %d", core.ErrUnsupportedTexture, dxgi)
		}
		format = f
		if le.Uint32(data[136:])&dx10MiscCubemap != 0 {
			cube = true
		}
		if n := le.Uint32(data[140:]); n > 1 {
			layers = n
		}
		offset += dx10HeaderSize
	case pfFlags&ddpfFourCC != 0:
		f, ok := fourCCFormats[fourCC]
		if !ok {
			return nil, fmt.Errorf("%w: fourcc %q", core.ErrUnsupportedTexture, fourCC)
		}
		format = f
	case pfFlags&ddpfRGB != 0 && le.Uint32(data[88:]) == 32:
		switch le.Uint32(data[92:]) {
		case 0x000000ff:
			format = formats.FormatRgba8Unorm
		case 0x00ff0000:
			format = formats.FormatBgra8Unorm
		default:
			return nil, fmt.Errorf("%w: unsupported rgb channel masks", core.ErrUnsupportedTexture)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported dds pixel format", core.ErrUnsupportedTexture)
	}
	if cube {
		layers *= 6
	}

	tex := &formats.TextureData{
		Width:  width,
		Height: height,
		Mips:   mips,
		Layers: layers,
		Format: format,
	}
	want, err := tex.ExpectedSize()
	if err != nil {
		return nil, err
	}
	payload := data[offset:]
	if len(payload) < want {
		return nil, fmt.Errorf("%w: dds payload has %d bytes, layout needs %d", core.ErrMalformedAsset, len(payload), want)
	}
	tex.Data = payload[:want]
	return tex, nil
}

// EncodeDDS writes a DX10 DDS container. It is the inverse of decodeDDS and
// exists for tooling and tests.
func EncodeDDS(tex *formats.TextureData) ([]byte, error) {
	var dxgi uint32
	for code, f := range dxgiFormats {
		if f == tex.Format && (dxgi == 0 || code > dxgi) {
			dxgi = code
		}
	}
	if dxgi == 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedTexture, tex.Format)
	}

	out := make([]byte, ddsHeaderSize+dx10HeaderSize, ddsHeaderSize+dx10HeaderSize+len(tex.Data))
	le := binary.LittleEndian
	copy(out, "DDS ")
	le.PutUint32(out[4:], 124)
	le.PutUint32(out[8:], 0x1|0x2|0x4|0x1000|0x20000)
	le.PutUint32(out[12:], tex.Height)
	le.PutUint32(out[16:], tex.Width)
	le.PutUint32(out[28:], tex.Mips)
	le.PutUint32(out[76:], 32)
	le.PutUint32(out[80:], ddpfFourCC)
	copy(out[84:], "DX10")
	le.PutUint32(out[108:], 0x1000)

	arraySize := tex.Layers
	if tex.IsCube() {
		le.PutUint32(out[112:], caps2Cubemap|0xFC00)
		le.PutUint32(out[136:], dx10MiscCubemap)
		arraySize = 1
	}
	le.PutUint32(out[128:], dxgi)
	le.PutUint32(out[132:], 3) // TEXTURE2D
	le.PutUint32(out[140:], arraySize)

	return append(out, tex.Data...), nil
}
