package resources

import (
	"github.com/spaghettifunk/anima-assets/engine/assets/formats"
	"github.com/spaghettifunk/anima-assets/engine/containers"
)

// ResourceRequest is sent by the registry to whichever stage performs loads.
type ResourceRequest interface {
	isResourceRequest()
}

type LoadModel struct {
	ID   ModelID
	Path string
}

type LoadMesh struct {
	ID   MeshID
	Path string
}

// LoadMaterial with Anonymous set has no file behind it and resolves to the
// default material manifest.
type LoadMaterial struct {
	ID        MaterialID
	Path      string
	Anonymous bool
}

type LoadSkeleton struct {
	ID   SkeletonID
	Path string
}

type LoadAnimationClip struct {
	ID   AnimationClipID
	Path string
}

// LoadAnimation decodes the samples of a clip whose header is already known.
type LoadAnimation struct {
	ID     AnimationID
	Path   string
	Header *formats.AnimationClipManifest
}

type LoadTexture struct {
	ID   TextureID
	Path string
	SRGB bool
}

func (LoadModel) isResourceRequest()         {}
func (LoadMesh) isResourceRequest()          {}
func (LoadMaterial) isResourceRequest()      {}
func (LoadSkeleton) isResourceRequest()      {}
func (LoadAnimationClip) isResourceRequest() {}
func (LoadAnimation) isResourceRequest()     {}
func (LoadTexture) isResourceRequest()       {}

// ResourceResult drives registry state transitions.
type ResourceResult interface {
	isResourceResult()
	entry() containers.Index
}

// UploadQueued moves the render state to Queued.
type UploadQueued struct {
	Entry containers.Index
}

// UploadStarted moves the render state to Uploading with the GPU slot that
// will become ready.
type UploadStarted struct {
	Entry       containers.Index
	RenderIndex containers.Index
}

type ModelResult struct {
	ID       ModelID
	GameID   ModelGameID
	RenderID ModelRenderID
}

type MeshResult struct {
	ID       MeshID
	RenderID MeshRenderID
}

type SkeletonResult struct {
	ID     SkeletonID
	GameID SkeletonGameID
}

type AnimationResult struct {
	ID     AnimationID
	GameID AnimationGameID
}

type AnimationClipResult struct {
	ID     AnimationClipID
	GameID AnimationClipGameID
}

type TextureResult struct {
	ID       TextureID
	RenderID TextureRenderID
}

type MaterialResult struct {
	ID       MaterialID
	GameID   MaterialGameID
	RenderID MaterialRenderID
}

func (UploadQueued) isResourceResult()        {}
func (UploadStarted) isResourceResult()       {}
func (ModelResult) isResourceResult()         {}
func (MeshResult) isResourceResult()          {}
func (SkeletonResult) isResourceResult()      {}
func (AnimationResult) isResourceResult()     {}
func (AnimationClipResult) isResourceResult() {}
func (TextureResult) isResourceResult()       {}
func (MaterialResult) isResourceResult()      {}

func (r UploadQueued) entry() containers.Index        { return r.Entry }
func (r UploadStarted) entry() containers.Index       { return r.Entry }
func (r ModelResult) entry() containers.Index         { return r.ID.Index }
func (r MeshResult) entry() containers.Index          { return r.ID.Index }
func (r SkeletonResult) entry() containers.Index      { return r.ID.Index }
func (r AnimationResult) entry() containers.Index     { return r.ID.Index }
func (r AnimationClipResult) entry() containers.Index { return r.ID.Index }
func (r TextureResult) entry() containers.Index       { return r.ID.Index }
func (r MaterialResult) entry() containers.Index      { return r.ID.Index }
