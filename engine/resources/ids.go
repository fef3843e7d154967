package resources

import (
	"fmt"

	"github.com/spaghettifunk/anima-assets/engine/containers"
)

// Tag is the closed set of phantom types distinguishing handle kinds.
type Tag interface {
	kind() ResourceKind
}

type (
	ModelTag         struct{}
	MeshTag          struct{}
	MaterialTag      struct{}
	SkeletonTag      struct{}
	AnimationClipTag struct{}
	AnimationTag     struct{}
	TextureTag       struct{}
)

func (ModelTag) kind() ResourceKind         { return KindModel }
func (MeshTag) kind() ResourceKind          { return KindMesh }
func (MaterialTag) kind() ResourceKind      { return KindMaterial }
func (SkeletonTag) kind() ResourceKind      { return KindSkeleton }
func (AnimationClipTag) kind() ResourceKind { return KindAnimationClip }
func (AnimationTag) kind() ResourceKind     { return KindAnimation }
func (TextureTag) kind() ResourceKind       { return KindTexture }

// KindOf returns the resource kind carried by tag T.
func KindOf[T Tag]() ResourceKind {
	var t T
	return t.kind()
}

// HandleID is a non-owning, comparable reference to a registry entry of
// kind T. Two ids are equal when slot and generation match.
type HandleID[T Tag] struct {
	Index containers.Index
}

func (id HandleID[T]) Kind() ResourceKind {
	return KindOf[T]()
}

func (id HandleID[T]) String() string {
	return fmt.Sprintf("%s#%s", KindOf[T](), id.Index)
}

type (
	ModelID         = HandleID[ModelTag]
	MeshID          = HandleID[MeshTag]
	MaterialID      = HandleID[MaterialTag]
	SkeletonID      = HandleID[SkeletonTag]
	AnimationClipID = HandleID[AnimationClipTag]
	AnimationID     = HandleID[AnimationTag]
	TextureID       = HandleID[TextureTag]
)

// Slots in the logical arenas owned by the resolver.
type (
	ModelGameID         struct{ containers.Index }
	MaterialGameID      struct{ containers.Index }
	SkeletonGameID      struct{ containers.Index }
	AnimationClipGameID struct{ containers.Index }
	AnimationGameID     struct{ containers.Index }
)

// Slots in the GPU arenas owned by the upload stage.
type (
	ModelRenderID    struct{ containers.Index }
	MeshRenderID     struct{ containers.Index }
	MaterialRenderID struct{ containers.Index }
	TextureRenderID  struct{ containers.Index }
)
