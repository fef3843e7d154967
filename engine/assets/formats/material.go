package formats

import (
	"encoding/json"
	"fmt"
)

type FilterMode string

const (
	FilterNearest FilterMode = "Nearest"
	FilterLinear  FilterMode = "Linear"
)

type MipmapFilterMode string

const (
	MipmapNearest MipmapFilterMode = "Nearest"
	MipmapLinear  MipmapFilterMode = "Linear"
	MipmapNone    MipmapFilterMode = "None"
)

type WrapMode string

const (
	WrapRepeat         WrapMode = "Repeat"
	WrapClampToEdge    WrapMode = "ClampToEdge"
	WrapMirroredRepeat WrapMode = "MirroredRepeat"
)

type Sampler struct {
	MagFilter    FilterMode       `json:"mag_filter"`
	MinFilter    FilterMode       `json:"min_filter"`
	MipmapFilter MipmapFilterMode `json:"mipmap_filter"`
	WrapU        WrapMode         `json:"wrap_u"`
	WrapV        WrapMode         `json:"wrap_v"`
	WrapW        WrapMode         `json:"wrap_w"`
}

func DefaultSampler() Sampler {
	return Sampler{
		MagFilter:    FilterLinear,
		MinFilter:    FilterLinear,
		MipmapFilter: MipmapNearest,
		WrapU:        WrapClampToEdge,
		WrapV:        WrapClampToEdge,
		WrapW:        WrapClampToEdge,
	}
}

type SampledTexture struct {
	Source  string  `json:"source"`
	Sampler Sampler `json:"sampler"`
}

type AlphaMode string

const (
	AlphaOpaque AlphaMode = "Opaque"
	AlphaMask   AlphaMode = "Mask"
	AlphaBlend  AlphaMode = "Blend"
)

func (a *AlphaMode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch AlphaMode(s) {
	case AlphaOpaque, AlphaMask, AlphaBlend:
		*a = AlphaMode(s)
		return nil
	}
	return fmt.Errorf("unknown alpha mode %q", s)
}

type Material struct {
	BaseColorFactor    [4]float32 `json:"base_color_factor"`
	MetallicFactor     float32    `json:"metallic_factor"`
	RoughnessFactor    float32    `json:"roughness_factor"`
	EmissiveFactor     [3]float32 `json:"emissive_factor"`
	NormalTextureScale float32    `json:"normal_texture_scale"`
	OcclusionStrength  float32    `json:"occlusion_strength"`
	AlphaMode          AlphaMode  `json:"alpha_mode"`
	AlphaCutoff        float32    `json:"alpha_cutoff"`
	DoubleSided        bool       `json:"double_sided"`

	NormalTexture            *SampledTexture `json:"normal_texture"`
	OcclusionTexture         *SampledTexture `json:"occlusion_texture"`
	EmissiveTexture          *SampledTexture `json:"emissive_texture"`
	BaseColorTexture         *SampledTexture `json:"base_color_texture"`
	MetallicRoughnessTexture *SampledTexture `json:"metallic_roughness_texture"`
}

// DefaultMaterial is the manifest behind the anonymous placeholder material.
func DefaultMaterial() Material {
	return Material{
		BaseColorFactor:    [4]float32{1, 1, 1, 1},
		MetallicFactor:     1,
		RoughnessFactor:    1,
		EmissiveFactor:     [3]float32{1, 1, 1},
		NormalTextureScale: 1,
		OcclusionStrength:  1,
		AlphaMode:          AlphaOpaque,
		AlphaCutoff:        1,
		DoubleSided:        false,
	}
}

// TextureSlot names one of the five optional material textures.
type TextureSlot int

const (
	SlotNormal TextureSlot = iota
	SlotOcclusion
	SlotEmissive
	SlotBaseColor
	SlotMetallicRoughness
	TextureSlotCount
)

func (s TextureSlot) String() string {
	switch s {
	case SlotNormal:
		return "normal"
	case SlotOcclusion:
		return "occlusion"
	case SlotEmissive:
		return "emissive"
	case SlotBaseColor:
		return "base_color"
	case SlotMetallicRoughness:
		return "metallic_roughness"
	}
	return "unknown"
}

// SRGB reports whether textures bound to the slot hold color data.
func (s TextureSlot) SRGB() bool {
	return s == SlotEmissive || s == SlotBaseColor
}

// Textures returns the five slots in TextureSlot order.
func (m *Material) Textures() [TextureSlotCount]*SampledTexture {
	return [TextureSlotCount]*SampledTexture{
		m.NormalTexture,
		m.OcclusionTexture,
		m.EmissiveTexture,
		m.BaseColorTexture,
		m.MetallicRoughnessTexture,
	}
}
