package store

import (
	"strings"

	"github.com/spaghettifunk/anima-assets/engine/assets/formats"
	"github.com/spaghettifunk/anima-assets/engine/resources"
)

type stagedItem interface {
	// finalize returns false without side effects while a dependency is
	// not render-ready.
	finalize(s *GameAssetStore, reg *resources.Registry) (CreateGameResourceResponse, bool)
	pending(s *GameAssetStore, reg *resources.Registry) string
	label(reg *resources.Registry) string
	tick()
	age() uint32
	release()
}

type stagedModel struct {
	id    resources.ModelID
	data  ModelGameData
	ticks uint32
}

type stagedMaterial struct {
	id    resources.MaterialID
	data  MaterialGameData
	ticks uint32
}

func renderReady[T resources.Tag](reg *resources.Registry, h *resources.Handle[T]) (resources.RenderState, bool) {
	st := resources.Get(reg, h).Render
	return st, st.Status == resources.RenderStatusReady
}

// materialFor resolves the material of submesh i, falling back to the
// placeholder when it has none or its index is out of range.
func (m *stagedModel) materialFor(s *GameAssetStore, reg *resources.Registry, i int) *resources.MaterialHandle {
	sm := m.data.Manifest.Submeshes[i]
	if sm.Material == nil {
		return s.Placeholders.Material
	}
	if int(*sm.Material) >= len(m.data.Materials) {
		return nil
	}
	return m.data.Materials[*sm.Material]
}

func (m *stagedModel) finalize(s *GameAssetStore, reg *resources.Registry) (CreateGameResourceResponse, bool) {
	mesh, ok := renderReady(reg, m.data.Mesh)
	if !ok {
		return nil, false
	}
	for _, h := range m.data.Materials {
		if _, ok := renderReady(reg, h); !ok {
			return nil, false
		}
	}

	manifest := m.data.Manifest
	submeshes := make([]SubMesh, 0, len(manifest.Submeshes))
	for i, sm := range manifest.Submeshes {
		h := m.materialFor(s, reg, i)
		if h == nil {
			s.logger.Warn("submesh material index out of range, using placeholder",
				"model", reg.Label(m.id.Index), "submesh", i, "material", *sm.Material, "materials", len(m.data.Materials))
			h = s.Placeholders.Material
		}
		mat, ok := renderReady(reg, h)
		if !ok {
			return nil, false
		}
		first, end := sm.IndexRange()
		submeshes = append(submeshes, SubMesh{
			IndexStart: first,
			IndexEnd:   end,
			BaseVertex: sm.BaseVertex,
			Material:   resources.MaterialRenderID{Index: mat.Index},
		})
	}

	gid := s.Models.Insert(m.data)
	return ModelCreated{
		ID:                      m.id,
		GameID:                  resources.ModelGameID{Index: gid},
		Mesh:                    resources.MeshRenderID{Index: mesh.Index},
		Submeshes:               submeshes,
		VertexBufferStartOffset: manifest.VertexBufferStartOffset,
	}, true
}

func (m *stagedModel) pending(s *GameAssetStore, reg *resources.Registry) string {
	var out []string
	if _, ok := renderReady(reg, m.data.Mesh); !ok {
		out = append(out, "mesh "+reg.Label(m.data.Mesh.ID().Index))
	}
	for _, h := range m.data.Materials {
		if _, ok := renderReady(reg, h); !ok {
			out = append(out, "material "+reg.Label(h.ID().Index))
		}
	}
	for i := range m.data.Manifest.Submeshes {
		if h := m.materialFor(s, reg, i); h == nil || h == s.Placeholders.Material {
			if _, ok := renderReady(reg, s.Placeholders.Material); !ok {
				out = append(out, "placeholder material")
			}
			break
		}
	}
	return strings.Join(out, ", ")
}

func (m *stagedModel) label(reg *resources.Registry) string { return "model " + reg.Label(m.id.Index) }
func (m *stagedModel) tick()                                { m.ticks++ }
func (m *stagedModel) age() uint32                          { return m.ticks }
func (m *stagedModel) release()                             { m.data.release() }

func (m *stagedMaterial) finalize(s *GameAssetStore, reg *resources.Registry) (CreateGameResourceResponse, bool) {
	var textures [formats.TextureSlotCount]*resources.TextureRenderID
	for slot, h := range m.data.Textures {
		if h == nil {
			continue
		}
		st, ok := renderReady(reg, h)
		if !ok {
			return nil, false
		}
		textures[slot] = &resources.TextureRenderID{Index: st.Index}
	}

	manifest := *m.data.Manifest
	gid := s.Materials.Insert(m.data)
	return MaterialCreated{
		ID:       m.id,
		GameID:   resources.MaterialGameID{Index: gid},
		Manifest: manifest,
		Textures: textures,
	}, true
}

func (m *stagedMaterial) pending(s *GameAssetStore, reg *resources.Registry) string {
	var out []string
	for slot, h := range m.data.Textures {
		if h == nil {
			continue
		}
		if _, ok := renderReady(reg, h); !ok {
			out = append(out, formats.TextureSlot(slot).String()+" texture "+reg.Label(h.ID().Index))
		}
	}
	return strings.Join(out, ", ")
}

func (m *stagedMaterial) label(reg *resources.Registry) string {
	return "material " + reg.Label(m.id.Index)
}
func (m *stagedMaterial) tick()       { m.ticks++ }
func (m *stagedMaterial) age() uint32 { return m.ticks }
func (m *stagedMaterial) release()    { m.data.release() }
