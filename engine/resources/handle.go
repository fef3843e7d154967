package resources

import (
	"fmt"
	"weak"
)

// Handle is an owning reference to a registry entry. Every handle returned by
// the registry or by Clone holds one reference and must be released exactly
// once.
type Handle[T Tag] struct {
	id       HandleID[T]
	registry weak.Pointer[Registry]
	released bool
}

func newHandle[T Tag](r *Registry, id HandleID[T]) *Handle[T] {
	return &Handle[T]{id: id, registry: r.self}
}

func (h *Handle[T]) ID() HandleID[T] {
	return h.id
}

// Clone returns a second handle to the same entry, incrementing its
// reference count.
func (h *Handle[T]) Clone() *Handle[T] {
	if h.released {
		panic(fmt.Sprintf("clone of released handle %s", h.id))
	}
	r := h.registry.Value()
	if r != nil && !r.closed {
		r.incRef(h.id.Index)
	}
	return &Handle[T]{id: h.id, registry: h.registry}
}

// Release drops this handle's reference. If the registry has been closed or
// collected the call only marks the handle released.
func (h *Handle[T]) Release() {
	if h.released {
		panic(fmt.Sprintf("handle %s released twice", h.id))
	}
	h.released = true
	if r := h.registry.Value(); r != nil && !r.closed {
		r.decRef(h.id.Index)
	}
}

func (h *Handle[T]) Released() bool {
	return h.released
}

func (h *Handle[T]) String() string {
	return h.id.String()
}

type (
	ModelHandle         = Handle[ModelTag]
	MeshHandle          = Handle[MeshTag]
	MaterialHandle      = Handle[MaterialTag]
	SkeletonHandle      = Handle[SkeletonTag]
	AnimationClipHandle = Handle[AnimationClipTag]
	AnimationHandle     = Handle[AnimationTag]
	TextureHandle       = Handle[TextureTag]
)

// ReleaseAll releases every non-nil handle.
func ReleaseAll[T Tag](handles ...*Handle[T]) {
	for _, h := range handles {
		if h != nil {
			h.Release()
		}
	}
}
