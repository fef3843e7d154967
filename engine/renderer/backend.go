package renderer

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/anima-assets/engine/assets/formats"
	"github.com/spaghettifunk/anima-assets/engine/snapshot"
)

// Opaque GPU object ids handed out by a Device. Zero is never a valid id.
type (
	GPUBuffer      uint64
	GPUTexture     uint64
	GPUTextureView uint64
	GPUBindGroup   uint64
)

type BufferUsage uint32

const (
	BUFFER_USAGE_VERTEX BufferUsage = 0x1
	BUFFER_USAGE_INDEX  BufferUsage = 0x2
	BUFFER_USAGE_COPY   BufferUsage = 0x4
)

type BufferDescriptor struct {
	Label    string
	Usage    BufferUsage
	Contents []byte
}

type TextureDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	/** @brief Array layers; 6 for a cube map. */
	Layers uint32
	Mips   uint32
	Format formats.TextureFormat
}

/** @brief Destination of a single texture write: one mip of one layer. */
type TextureRegion struct {
	Mip    uint32
	Layer  uint32
	Width  uint32
	Height uint32
}

/** @brief Memory layout of the bytes passed to WriteTexture. */
type TextureDataLayout struct {
	BytesPerRow  uint32
	RowsPerImage uint32
}

type ViewDimension uint8

const (
	VIEW_DIMENSION_2D ViewDimension = iota
	VIEW_DIMENSION_CUBE
)

// MaterialBindingDescriptor binds a material's factors and texture views
// into one bind group. A zero view means the slot is unused.
type MaterialBindingDescriptor struct {
	Label    string
	Material formats.Material
	Views    [formats.TextureSlotCount]GPUTextureView
	Samplers [formats.TextureSlotCount]formats.Sampler
}

/**
 * @brief One indexed draw of a submesh. Instances are world transforms
 * already interpolated for the frame.
 */
type DrawCommand struct {
	Pipeline   snapshot.Pipeline
	Buffer     GPUBuffer
	Material   GPUBindGroup
	IndexStart uint32
	IndexCount uint32
	BaseVertex uint32
	Instances  []mgl32.Mat4
}

/**
 * @brief The GPU as seen by the upload stage and the frame loop. Writes are
 * queued; Submit flushes them and returns a submission index that is
 * complete once CompletedSubmission reaches it.
 */
type Device interface {
	CreateBuffer(desc BufferDescriptor) (GPUBuffer, error)
	DestroyBuffer(buffer GPUBuffer)
	CreateTexture(desc TextureDescriptor) (GPUTexture, error)
	WriteTexture(texture GPUTexture, region TextureRegion, data []byte, layout TextureDataLayout) error
	CreateTextureView(texture GPUTexture, dimension ViewDimension) (GPUTextureView, error)
	DestroyTexture(texture GPUTexture)
	CreateMaterialBinding(desc MaterialBindingDescriptor) (GPUBindGroup, error)
	DestroyBindGroup(group GPUBindGroup)

	Submit() uint64
	CompletedSubmission() uint64

	BeginFrame(deltaTime float64) error
	Draw(cmd DrawCommand)
	EndFrame(deltaTime float64) error
}
