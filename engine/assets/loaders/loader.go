package loaders

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/anima-assets/engine/assets/formats"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/resources"
)

/** @brief Extra inputs some loaders need. */
type Params struct {
	/** @brief Decode color data as sRGB. Textures only. */
	SRGB bool
	/** @brief Previously loaded clip header. Animations only. */
	Header *formats.AnimationClipManifest
}

/**
 * @brief The result of a load. Data holds the kind-specific payload, e.g.
 * *formats.Model for models or []byte for meshes.
 */
type Resource struct {
	Kind     resources.ResourceKind
	FullPath string
	DataSize uint64
	Data     interface{}
}

/** @brief Every registered loader implements this. Loaders must be safe for concurrent use. */
type Loader interface {
	Load(path string, params Params) (*Resource, error)
}

// Registry maps each resource kind to its loader.
type Registry struct {
	mu      sync.RWMutex
	loaders map[resources.ResourceKind]Loader
}

func NewRegistry() *Registry {
	return &Registry{
		loaders: make(map[resources.ResourceKind]Loader),
	}
}

// NewDefaultRegistry registers the engine's loaders for every kind.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(resources.KindModel, &ModelLoader{})
	r.Register(resources.KindMesh, &BlobLoader{})
	r.Register(resources.KindMaterial, &MaterialLoader{})
	r.Register(resources.KindSkeleton, &SkeletonLoader{})
	r.Register(resources.KindAnimationClip, &AnimationClipLoader{})
	r.Register(resources.KindAnimation, &AnimationLoader{})
	r.Register(resources.KindTexture, &TextureLoader{})
	return r
}

// Register replaces any loader already bound to kind.
func (r *Registry) Register(kind resources.ResourceKind, loader Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.loaders[kind]; ok {
		core.LogDebug("replacing %s loader", kind)
	}
	r.loaders[kind] = loader
}

func (r *Registry) Lookup(kind resources.ResourceKind) (Loader, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.loaders[kind]
	return l, ok
}

// Load dispatches to the loader registered for kind.
func (r *Registry) Load(kind resources.ResourceKind, path string, params Params) (*Resource, error) {
	l, ok := r.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("%w: no loader registered for %s", core.ErrUnknownAssetKind, kind)
	}
	res, err := l.Load(path, params)
	if err != nil {
		return nil, err
	}
	res.Kind = kind
	return res, nil
}
