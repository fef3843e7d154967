package store

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/anima-assets/engine/assets/formats"
	"github.com/spaghettifunk/anima-assets/engine/containers"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/resources"
)

// Deformation holds the skinning dependencies of a model. A nil Skeleton
// means the model is rigid.
type Deformation struct {
	Skeleton       *resources.SkeletonHandle
	AnimationClips []*resources.AnimationClipHandle
}

func (d *Deformation) Skinned() bool {
	return d.Skeleton != nil
}

type ModelGameData struct {
	Manifest         *formats.Model
	Mesh             *resources.MeshHandle
	SubmeshInstances [][]mgl32.Mat4
	Deformation      Deformation
	Materials        []*resources.MaterialHandle
	Aabb             formats.Aabb
}

type MaterialGameData struct {
	Manifest *formats.Material
	Textures [formats.TextureSlotCount]*resources.TextureHandle
}

type AnimationClipGameData struct {
	Manifest  *formats.AnimationClipManifest
	Animation *resources.AnimationHandle
}

type Placeholders struct {
	Material *resources.MaterialHandle
}

/**
 * @brief The game resource resolver. Turns parsed manifests into linked game
 * data, requesting dependencies through the registry, and holds composites
 * in staging until everything they draw with is uploaded.
 *
 * Owned by the simulation goroutine, like the registry it works with.
 */
type GameAssetStore struct {
	Placeholders   Placeholders
	Models         *containers.Arena[ModelGameData]
	Materials      *containers.Arena[MaterialGameData]
	AnimationClips *containers.Arena[AnimationClipGameData]
	Animations     *containers.Arena[*formats.AnimationClip]
	Skeletons      *containers.Arena[*formats.Skeleton]

	staging    []stagedItem
	requests   *containers.Mailbox[CreateGameResourceRequest]
	responses  *containers.Mailbox[CreateGameResourceResponse]
	staleAfter uint32
	closed     bool
	logger     *log.Logger
}

/**
 * @brief Creates the store and requests its placeholder material.
 * @param staleAfterTicks Staged items still waiting after this many ticks (and
 * every multiple of it) are logged. Zero disables the warning.
 */
func NewGameAssetStore(
	requests *containers.Mailbox[CreateGameResourceRequest],
	responses *containers.Mailbox[CreateGameResourceResponse],
	registry *resources.Registry,
	staleAfterTicks uint32,
) *GameAssetStore {
	return &GameAssetStore{
		Placeholders:   Placeholders{Material: registry.RequestPlaceholderMaterial()},
		Models:         containers.NewArena[ModelGameData](64),
		Materials:      containers.NewArena[MaterialGameData](64),
		AnimationClips: containers.NewArena[AnimationClipGameData](16),
		Animations:     containers.NewArena[*formats.AnimationClip](16),
		Skeletons:      containers.NewArena[*formats.Skeleton](16),
		requests:       requests,
		responses:      responses,
		staleAfter:     staleAfterTicks,
		logger:         core.Logger("component", "store"),
	}
}

/**
 * @brief Handles every pending create request, then makes one pass over
 * staging. Items whose dependencies are all render-ready are finalized in
 * insertion order; the rest keep their order for the next call.
 * @return The number of resources finalized by this call.
 */
func (s *GameAssetStore) ProcessRequests(reg *resources.Registry) int {
	finalized := 0
	s.requests.Drain(func(req CreateGameResourceRequest) {
		if s.accept(reg, req) {
			finalized++
		}
	})

	next := s.staging[:0]
	for _, item := range s.staging {
		resp, ok := item.finalize(s, reg)
		if !ok {
			item.tick()
			if s.staleAfter > 0 && item.age()%s.staleAfter == 0 {
				s.logger.Warn("staged resource still waiting",
					"resource", item.label(reg), "ticks", item.age(), "pending", item.pending(s, reg))
			}
			next = append(next, item)
			continue
		}
		s.send(resp)
		finalized++
	}
	clear(s.staging[len(next):])
	s.staging = next
	return finalized
}

// accept reports whether req was finalized immediately.
func (s *GameAssetStore) accept(reg *resources.Registry, req CreateGameResourceRequest) bool {
	switch req := req.(type) {
	case CreateModel:
		s.staging = append(s.staging, &stagedModel{id: req.ID, data: s.linkModel(reg, req.Manifest)})
	case CreateMaterial:
		s.staging = append(s.staging, &stagedMaterial{id: req.ID, data: linkMaterial(reg, req.Manifest)})
	case CreateAnimationClip:
		data := AnimationClipGameData{
			Manifest:  req.Manifest,
			Animation: reg.RequestAnimation(req.Manifest.BinaryPath, req.Manifest),
		}
		gid := s.AnimationClips.Insert(data)
		s.send(AnimationClipCreated{ID: req.ID, GameID: resources.AnimationClipGameID{Index: gid}})
		return true
	case CreateSkeleton:
		gid := s.Skeletons.Insert(req.Manifest)
		s.send(SkeletonCreated{ID: req.ID, GameID: resources.SkeletonGameID{Index: gid}})
		return true
	case CreateAnimation:
		gid := s.Animations.Insert(req.Clip)
		s.send(AnimationCreated{ID: req.ID, GameID: resources.AnimationGameID{Index: gid}})
		return true
	default:
		s.logger.Warn("unhandled game request", "request", fmt.Sprintf("%T", req))
	}
	return false
}

func (s *GameAssetStore) linkModel(reg *resources.Registry, m *formats.Model) ModelGameData {
	data := ModelGameData{
		Manifest:         m,
		Mesh:             reg.RequestMesh(m.Buffer),
		Aabb:             m.Aabb,
		SubmeshInstances: make([][]mgl32.Mat4, len(m.Submeshes)),
		Materials:        make([]*resources.MaterialHandle, len(m.MaterialPaths)),
	}
	if sk := m.Deformation.Skinned; sk != nil {
		data.Deformation.Skeleton = reg.RequestSkeleton(sk.Skeleton)
		for _, clip := range sk.Animations {
			data.Deformation.AnimationClips = append(data.Deformation.AnimationClips, reg.RequestAnimationClip(clip))
		}
	}
	for i, path := range m.MaterialPaths {
		data.Materials[i] = reg.RequestMaterial(path)
	}
	for i := range m.Submeshes {
		data.SubmeshInstances[i] = m.Submeshes[i].InstanceMatrices()
	}
	return data
}

func linkMaterial(reg *resources.Registry, m *formats.Material) MaterialGameData {
	data := MaterialGameData{Manifest: m}
	for slot, tex := range m.Textures() {
		if tex != nil {
			data.Textures[slot] = reg.RequestTexture(tex.Source, formats.TextureSlot(slot).SRGB())
		}
	}
	return data
}

func (s *GameAssetStore) send(resp CreateGameResourceResponse) {
	if err := s.responses.Send(resp); err != nil {
		s.logger.Warn("dropping game response", "response", fmt.Sprintf("%T", resp), "err", err)
	}
}

// SubmeshMaterial returns the material submesh i of a finalized model draws
// with. Submeshes without a valid material index use the placeholder.
func (s *GameAssetStore) SubmeshMaterial(m *ModelGameData, i int) *resources.MaterialHandle {
	sm := m.Manifest.Submeshes[i]
	if sm.Material == nil || int(*sm.Material) >= len(m.Materials) {
		return s.Placeholders.Material
	}
	return m.Materials[*sm.Material]
}

// StagingLen is the number of composites waiting on dependencies.
func (s *GameAssetStore) StagingLen() int {
	return len(s.staging)
}

func (s *GameAssetStore) Model(id resources.ModelGameID) (*ModelGameData, bool) {
	return s.Models.Get(id.Index)
}

func (s *GameAssetStore) Material(id resources.MaterialGameID) (*MaterialGameData, bool) {
	return s.Materials.Get(id.Index)
}

func (s *GameAssetStore) Skeleton(id resources.SkeletonGameID) (*formats.Skeleton, bool) {
	sk, ok := s.Skeletons.Get(id.Index)
	if !ok {
		return nil, false
	}
	return *sk, true
}

func (s *GameAssetStore) AnimationClip(id resources.AnimationClipGameID) (*AnimationClipGameData, bool) {
	return s.AnimationClips.Get(id.Index)
}

func (s *GameAssetStore) Animation(id resources.AnimationGameID) (*formats.AnimationClip, bool) {
	a, ok := s.Animations.Get(id.Index)
	if !ok {
		return nil, false
	}
	return *a, true
}

// Close releases every handle the store holds, staged or finalized. The
// store must not be used afterwards.
func (s *GameAssetStore) Close() {
	if s.closed {
		return
	}
	s.closed = true
	for _, item := range s.staging {
		item.release()
	}
	s.staging = nil
	s.Models.Each(func(_ containers.Index, m *ModelGameData) { m.release() })
	s.Materials.Each(func(_ containers.Index, m *MaterialGameData) { m.release() })
	s.AnimationClips.Each(func(_ containers.Index, c *AnimationClipGameData) { resources.ReleaseAll(c.Animation) })
	s.Placeholders.Material.Release()
}

func (m *ModelGameData) release() {
	m.Mesh.Release()
	resources.ReleaseAll(m.Materials...)
	if m.Deformation.Skeleton != nil {
		m.Deformation.Skeleton.Release()
	}
	resources.ReleaseAll(m.Deformation.AnimationClips...)
}

func (m *MaterialGameData) release() {
	resources.ReleaseAll(m.Textures[:]...)
}
