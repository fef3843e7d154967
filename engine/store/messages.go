package store

import (
	"github.com/spaghettifunk/anima-assets/engine/assets/formats"
	"github.com/spaghettifunk/anima-assets/engine/resources"
)

// CreateGameResourceRequest carries a parsed manifest from the upload stage
// to the store.
type CreateGameResourceRequest interface {
	isGameRequest()
}

type CreateModel struct {
	ID       resources.ModelID
	Manifest *formats.Model
}

type CreateMaterial struct {
	ID       resources.MaterialID
	Manifest *formats.Material
}

type CreateAnimationClip struct {
	ID       resources.AnimationClipID
	Manifest *formats.AnimationClipManifest
}

type CreateSkeleton struct {
	ID       resources.SkeletonID
	Manifest *formats.Skeleton
}

type CreateAnimation struct {
	ID   resources.AnimationID
	Clip *formats.AnimationClip
}

func (CreateModel) isGameRequest()         {}
func (CreateMaterial) isGameRequest()      {}
func (CreateAnimationClip) isGameRequest() {}
func (CreateSkeleton) isGameRequest()      {}
func (CreateAnimation) isGameRequest()     {}

// SubMesh is a finalized draw range with its material already resolved to a
// GPU slot.
type SubMesh struct {
	IndexStart uint32
	IndexEnd   uint32
	BaseVertex uint32
	Material   resources.MaterialRenderID
}

func (s SubMesh) IndexCount() uint32 {
	return s.IndexEnd - s.IndexStart
}

// CreateGameResourceResponse goes back to the upload stage once a resource
// is finalized.
type CreateGameResourceResponse interface {
	isGameResponse()
}

type ModelCreated struct {
	ID                      resources.ModelID
	GameID                  resources.ModelGameID
	Mesh                    resources.MeshRenderID
	Submeshes               []SubMesh
	VertexBufferStartOffset uint32
}

// MaterialCreated lists the GPU slot of every texture the material uses, in
// formats.TextureSlot order. Nil means the slot is unused.
type MaterialCreated struct {
	ID       resources.MaterialID
	GameID   resources.MaterialGameID
	Manifest formats.Material
	Textures [formats.TextureSlotCount]*resources.TextureRenderID
}

type AnimationClipCreated struct {
	ID     resources.AnimationClipID
	GameID resources.AnimationClipGameID
}

type SkeletonCreated struct {
	ID     resources.SkeletonID
	GameID resources.SkeletonGameID
}

type AnimationCreated struct {
	ID     resources.AnimationID
	GameID resources.AnimationGameID
}

func (ModelCreated) isGameResponse()         {}
func (MaterialCreated) isGameResponse()      {}
func (AnimationClipCreated) isGameResponse() {}
func (SkeletonCreated) isGameResponse()      {}
func (AnimationCreated) isGameResponse()     {}
