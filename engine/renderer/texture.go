package renderer

import (
	"fmt"

	"github.com/spaghettifunk/anima-assets/engine/assets/formats"
)

/** @brief Row pitch alignment required for buffer-to-texture copies. */
const COPY_BYTES_PER_ROW_ALIGNMENT uint32 = 256

// AlignRow rounds n up to COPY_BYTES_PER_ROW_ALIGNMENT.
func AlignRow(n uint32) uint32 {
	a := COPY_BYTES_PER_ROW_ALIGNMENT
	return (n + a - 1) &^ (a - 1)
}

// PaddedRows copies rows of rowBytes each from src into a buffer whose rows
// are padded to the copy alignment. It returns the padded data and its pitch.
func PaddedRows(src []byte, rowBytes, rows uint32) ([]byte, uint32) {
	pitch := AlignRow(rowBytes)
	if pitch == rowBytes {
		return src[:rowBytes*rows], pitch
	}
	out := make([]byte, int(pitch)*int(rows))
	for r := uint32(0); r < rows; r++ {
		copy(out[r*pitch:r*pitch+rowBytes], src[r*rowBytes:(r+1)*rowBytes])
	}
	return out, pitch
}

type TextureGpuData struct {
	Texture GPUTexture
	View    GPUTextureView
	Format  formats.TextureFormat
	Cube    bool
	Bytes   int
}

/**
 * @brief Creates a texture on dev and writes every mip of every layer. The
 * source is tightly packed, layer-major then mip. A six-layer texture gets
 * a cube view.
 */
func UploadTexture(dev Device, tex *formats.TextureData, label string) (TextureGpuData, error) {
	want, err := tex.ExpectedSize()
	if err != nil {
		return TextureGpuData{}, fmt.Errorf("texture %q: %w", label, err)
	}
	if len(tex.Data) < want {
		return TextureGpuData{}, fmt.Errorf("texture %q: %d bytes of pixel data, need %d", label, len(tex.Data), want)
	}

	gpu, err := dev.CreateTexture(TextureDescriptor{
		Label:  label,
		Width:  tex.Width,
		Height: tex.Height,
		Layers: tex.Layers,
		Mips:   tex.Mips,
		Format: tex.Format,
	})
	if err != nil {
		return TextureGpuData{}, fmt.Errorf("texture %q: %w", label, err)
	}

	offset := uint32(0)
	for layer := uint32(0); layer < tex.Layers; layer++ {
		for mip := uint32(0); mip < tex.Mips; mip++ {
			rowBytes, rows, err := tex.MipLayout(mip)
			if err != nil {
				dev.DestroyTexture(gpu)
				return TextureGpuData{}, fmt.Errorf("texture %q: %w", label, err)
			}
			size := rowBytes * rows
			data, pitch := PaddedRows(tex.Data[offset:offset+size], rowBytes, rows)
			w, h := tex.MipExtent(mip)
			region := TextureRegion{Mip: mip, Layer: layer, Width: w, Height: h}
			if err := dev.WriteTexture(gpu, region, data, TextureDataLayout{BytesPerRow: pitch, RowsPerImage: rows}); err != nil {
				dev.DestroyTexture(gpu)
				return TextureGpuData{}, fmt.Errorf("texture %q mip %d layer %d: %w", label, mip, layer, err)
			}
			offset += size
		}
	}

	dim := VIEW_DIMENSION_2D
	if tex.IsCube() {
		dim = VIEW_DIMENSION_CUBE
	}
	view, err := dev.CreateTextureView(gpu, dim)
	if err != nil {
		dev.DestroyTexture(gpu)
		return TextureGpuData{}, fmt.Errorf("texture %q view: %w", label, err)
	}
	return TextureGpuData{
		Texture: gpu,
		View:    view,
		Format:  tex.Format,
		Cube:    dim == VIEW_DIMENSION_CUBE,
		Bytes:   want,
	}, nil
}
