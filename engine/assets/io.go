package assets

import (
	"github.com/spaghettifunk/anima-assets/engine/assets/formats"
	"github.com/spaghettifunk/anima-assets/engine/containers"
	"github.com/spaghettifunk/anima-assets/engine/resources"
)

/**
 * @brief A unit of work for the I/O pool. ID is the registry entry the result
 * belongs to and is echoed back untouched.
 */
type IoRequest struct {
	ID   containers.Index
	Kind resources.ResourceKind
	Path string
	/** @brief Textures only. */
	SRGB bool
	/** @brief Animations only: the clip header the samples belong to. */
	Header *formats.AnimationClipManifest
}

// RequestFor converts a registry load request into an I/O request. Anonymous
// materials have no file and report false.
func RequestFor(req resources.ResourceRequest) (IoRequest, bool) {
	switch r := req.(type) {
	case resources.LoadModel:
		return IoRequest{ID: r.ID.Index, Kind: resources.KindModel, Path: r.Path}, true
	case resources.LoadMesh:
		return IoRequest{ID: r.ID.Index, Kind: resources.KindMesh, Path: r.Path}, true
	case resources.LoadMaterial:
		if r.Anonymous {
			return IoRequest{}, false
		}
		return IoRequest{ID: r.ID.Index, Kind: resources.KindMaterial, Path: r.Path}, true
	case resources.LoadSkeleton:
		return IoRequest{ID: r.ID.Index, Kind: resources.KindSkeleton, Path: r.Path}, true
	case resources.LoadAnimationClip:
		return IoRequest{ID: r.ID.Index, Kind: resources.KindAnimationClip, Path: r.Path}, true
	case resources.LoadAnimation:
		return IoRequest{ID: r.ID.Index, Kind: resources.KindAnimation, Path: r.Path, Header: r.Header}, true
	case resources.LoadTexture:
		return IoRequest{ID: r.ID.Index, Kind: resources.KindTexture, Path: r.Path, SRGB: r.SRGB}, true
	}
	return IoRequest{}, false
}

// IoResponse is one of the *Loaded types or IoError.
type IoResponse interface {
	isIoResponse()
}

type ModelLoaded struct {
	ID    resources.ModelID
	Model *formats.Model
}

type MeshLoaded struct {
	ID   resources.MeshID
	Data []byte
}

type MaterialLoaded struct {
	ID       resources.MaterialID
	Material *formats.Material
}

type SkeletonLoaded struct {
	ID       resources.SkeletonID
	Skeleton *formats.Skeleton
}

type AnimationClipLoaded struct {
	ID   resources.AnimationClipID
	Clip *formats.AnimationClipManifest
}

type AnimationLoaded struct {
	ID   resources.AnimationID
	Clip *formats.AnimationClip
}

type TextureLoaded struct {
	ID      resources.TextureID
	Texture *formats.TextureData
}

// IoError replaces the response of a failed load. The entry it was meant
// for stays in Loading.
type IoError struct {
	ID      containers.Index
	Kind    resources.ResourceKind
	Path    string
	Message string
}

func (ModelLoaded) isIoResponse()         {}
func (MeshLoaded) isIoResponse()          {}
func (MaterialLoaded) isIoResponse()      {}
func (SkeletonLoaded) isIoResponse()      {}
func (AnimationClipLoaded) isIoResponse() {}
func (AnimationLoaded) isIoResponse()     {}
func (TextureLoaded) isIoResponse()       {}
func (IoError) isIoResponse()             {}
