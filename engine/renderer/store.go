package renderer

import (
	"github.com/spaghettifunk/anima-assets/engine/containers"
	"github.com/spaghettifunk/anima-assets/engine/resources"
	"github.com/spaghettifunk/anima-assets/engine/store"
)

type ModelRenderData struct {
	VertexBufferStartOffset uint32
	Mesh                    resources.MeshRenderID
	Submeshes               []store.SubMesh
}

type MeshGpuData struct {
	Buffer GPUBuffer
	Size   int
}

type MaterialGpuData struct {
	Binding GPUBindGroup
}

/**
 * @brief GPU-side arenas. Indices into these are the render ids the
 * registry hands out. Owned by the render goroutine.
 */
type RenderAssetStore struct {
	Models    *containers.Arena[ModelRenderData]
	Meshes    *containers.Arena[MeshGpuData]
	Materials *containers.Arena[MaterialGpuData]
	Textures  *containers.Arena[TextureGpuData]
}

func NewRenderAssetStore() *RenderAssetStore {
	return &RenderAssetStore{
		Models:    containers.NewArena[ModelRenderData](64),
		Meshes:    containers.NewArena[MeshGpuData](64),
		Materials: containers.NewArena[MaterialGpuData](64),
		Textures:  containers.NewArena[TextureGpuData](64),
	}
}

func (s *RenderAssetStore) Model(id resources.ModelRenderID) (*ModelRenderData, bool) {
	return s.Models.Get(id.Index)
}

func (s *RenderAssetStore) Mesh(id resources.MeshRenderID) (*MeshGpuData, bool) {
	return s.Meshes.Get(id.Index)
}

func (s *RenderAssetStore) Material(id resources.MaterialRenderID) (*MaterialGpuData, bool) {
	return s.Materials.Get(id.Index)
}

func (s *RenderAssetStore) Texture(id resources.TextureRenderID) (*TextureGpuData, bool) {
	return s.Textures.Get(id.Index)
}

// Destroy frees every GPU object still held by the store.
func (s *RenderAssetStore) Destroy(dev Device) {
	s.Meshes.Each(func(_ containers.Index, m *MeshGpuData) { dev.DestroyBuffer(m.Buffer) })
	s.Textures.Each(func(_ containers.Index, t *TextureGpuData) { dev.DestroyTexture(t.Texture) })
	s.Materials.Each(func(_ containers.Index, m *MaterialGpuData) { dev.DestroyBindGroup(m.Binding) })
	s.Models = containers.NewArena[ModelRenderData](0)
	s.Meshes = containers.NewArena[MeshGpuData](0)
	s.Materials = containers.NewArena[MaterialGpuData](0)
	s.Textures = containers.NewArena[TextureGpuData](0)
}
