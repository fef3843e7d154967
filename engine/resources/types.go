package resources

import (
	"github.com/spaghettifunk/anima-assets/engine/containers"
)

type ResourceKind int

/** @brief Resource kinds tracked by the registry. */
const (
	/** @brief Model manifest: mesh, materials and optional skinning. */
	KindModel ResourceKind = iota
	/** @brief Raw vertex/index buffer. */
	KindMesh
	/** @brief Material manifest with up to five textures. */
	KindMaterial
	/** @brief Skeleton manifest. */
	KindSkeleton
	/** @brief Animation clip header. */
	KindAnimationClip
	/** @brief Decoded animation samples of a clip. */
	KindAnimation
	/** @brief Texture image. */
	KindTexture
)

func (k ResourceKind) String() string {
	switch k {
	case KindModel:
		return "model"
	case KindMesh:
		return "mesh"
	case KindMaterial:
		return "material"
	case KindSkeleton:
		return "skeleton"
	case KindAnimationClip:
		return "animation_clip"
	case KindAnimation:
		return "animation"
	case KindTexture:
		return "texture"
	}
	return "unknown"
}

// GPUOnly kinds have no logical game data; their game state mirrors the
// render state.
func (k ResourceKind) GPUOnly() bool {
	return k == KindMesh || k == KindTexture
}

type GameStatus uint8

const (
	GameAbsent GameStatus = iota
	GameLoading
	GameStatusReady
)

func (s GameStatus) String() string {
	return [...]string{"absent", "loading", "ready"}[s]
}

// GameState is the readiness of the logical data. Index is only meaningful
// when Status is GameStatusReady.
type GameState struct {
	Status GameStatus
	Index  containers.Index
}

func (g GameState) Ready() (containers.Index, bool) {
	return g.Index, g.Status == GameStatusReady
}

type RenderStatus uint8

const (
	RenderAbsent RenderStatus = iota
	RenderQueued
	RenderUploading
	RenderStatusReady
)

func (s RenderStatus) String() string {
	return [...]string{"absent", "queued", "uploading", "ready"}[s]
}

// RenderState is the readiness of the GPU data. Index is the GPU arena slot
// for Uploading and Ready.
type RenderState struct {
	Status RenderStatus
	Index  containers.Index
}

func (r RenderState) Ready() (containers.Index, bool) {
	return r.Index, r.Status == RenderStatusReady
}

/**
 * @brief A registry record. Kind never changes after creation and both states
 * only move forward.
 */
type Entry struct {
	Kind     ResourceKind
	RefCount uint32
	Game     GameState
	Render   RenderState
	// Source path, or a generated label for anonymous resources.
	Path      string
	Anonymous bool
}
