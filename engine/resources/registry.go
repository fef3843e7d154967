package resources

import (
	"fmt"
	"weak"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/spaghettifunk/anima-assets/engine/assets/formats"
	"github.com/spaghettifunk/anima-assets/engine/containers"
	"github.com/spaghettifunk/anima-assets/engine/core"
)

type pathKey struct {
	kind ResourceKind
	path string
}

// ReadyHook is called once per entry when it becomes fully usable.
type ReadyHook func(idx containers.Index, entry Entry)

// Registry tracks identity, reference counts and readiness of every requested
// resource. It has a single owning goroutine; other stages talk to it only
// through the request and result mailboxes.
type Registry struct {
	entries  *containers.Arena[Entry]
	byPath   map[pathKey]containers.Index
	requests *containers.Mailbox[ResourceRequest]
	results  *containers.Mailbox[ResourceResult]
	self     weak.Pointer[Registry]
	closed   bool
	onReady  ReadyHook
	logger   *log.Logger
}

func NewRegistry(requests *containers.Mailbox[ResourceRequest], results *containers.Mailbox[ResourceResult]) *Registry {
	r := &Registry{
		entries:  containers.NewArena[Entry](64),
		byPath:   make(map[pathKey]containers.Index),
		requests: requests,
		results:  results,
		logger:   core.Logger("component", "registry"),
	}
	r.self = weak.Make(r)
	return r
}

func (r *Registry) SetReadyHook(hook ReadyHook) {
	r.onReady = hook
}

func request[T Tag](r *Registry, path string, anonymous bool, mk func(HandleID[T]) ResourceRequest) *Handle[T] {
	kind := KindOf[T]()
	key := pathKey{kind: kind, path: path}
	if !anonymous {
		if idx, ok := r.byPath[key]; ok {
			r.incRef(idx)
			return newHandle(r, HandleID[T]{Index: idx})
		}
	}

	label := path
	if anonymous {
		label = "placeholder:" + uuid.NewString()
	}
	idx := r.entries.Insert(Entry{
		Kind:      kind,
		RefCount:  1,
		Game:      GameState{Status: GameLoading},
		Render:    RenderState{Status: RenderAbsent},
		Path:      label,
		Anonymous: anonymous,
	})
	if !anonymous {
		r.byPath[key] = idx
	}

	id := HandleID[T]{Index: idx}
	r.send(mk(id))
	return newHandle(r, id)
}

func (r *Registry) send(req ResourceRequest) {
	if err := r.requests.Send(req); err != nil {
		r.logger.Warn("dropping resource request", "request", fmt.Sprintf("%T", req), "err", err)
	}
}

func (r *Registry) RequestModel(path string) *ModelHandle {
	return request(r, path, false, func(id ModelID) ResourceRequest {
		return LoadModel{ID: id, Path: path}
	})
}

func (r *Registry) RequestMesh(path string) *MeshHandle {
	return request(r, path, false, func(id MeshID) ResourceRequest {
		return LoadMesh{ID: id, Path: path}
	})
}

func (r *Registry) RequestMaterial(path string) *MaterialHandle {
	return request(r, path, false, func(id MaterialID) ResourceRequest {
		return LoadMaterial{ID: id, Path: path}
	})
}

// RequestPlaceholderMaterial creates a fresh anonymous material backed by the
// default manifest. It is never de-duplicated.
func (r *Registry) RequestPlaceholderMaterial() *MaterialHandle {
	return request(r, "", true, func(id MaterialID) ResourceRequest {
		return LoadMaterial{ID: id, Anonymous: true}
	})
}

func (r *Registry) RequestSkeleton(path string) *SkeletonHandle {
	return request(r, path, false, func(id SkeletonID) ResourceRequest {
		return LoadSkeleton{ID: id, Path: path}
	})
}

func (r *Registry) RequestAnimationClip(path string) *AnimationClipHandle {
	return request(r, path, false, func(id AnimationClipID) ResourceRequest {
		return LoadAnimationClip{ID: id, Path: path}
	})
}

// RequestAnimation loads the binary samples at path described by header.
func (r *Registry) RequestAnimation(path string, header *formats.AnimationClipManifest) *AnimationHandle {
	return request(r, path, false, func(id AnimationID) ResourceRequest {
		return LoadAnimation{ID: id, Path: path, Header: header}
	})
}

// RequestTexture de-duplicates by path only: the color space of the first
// request wins.
func (r *Registry) RequestTexture(path string, srgb bool) *TextureHandle {
	return request(r, path, false, func(id TextureID) ResourceRequest {
		return LoadTexture{ID: id, Path: path, SRGB: srgb}
	})
}

// Get returns the entry behind a live handle. Handles keep their entries
// alive, so a miss is an invariant violation.
func Get[T Tag](r *Registry, h *Handle[T]) *Entry {
	e, ok := r.entries.Get(h.id.Index)
	if !ok {
		panic(fmt.Sprintf("registry: no entry for live handle %s", h.id))
	}
	return e
}

// GetID is the fallible lookup for weak references that may outlive their
// entry.
func GetID[T Tag](r *Registry, id HandleID[T]) (*Entry, bool) {
	e, ok := r.entries.Get(id.Index)
	if !ok || e.Kind != KindOf[T]() {
		return nil, false
	}
	return e, true
}

// Entry looks up an entry by raw index.
func (r *Registry) Entry(idx containers.Index) (*Entry, bool) {
	return r.entries.Get(idx)
}

// RenderReady reports whether the entry is safe to draw and returns its GPU slot.
func RenderReady[T Tag](r *Registry, id HandleID[T]) (containers.Index, bool) {
	e, ok := GetID(r, id)
	if !ok {
		return containers.Index{}, false
	}
	return e.Render.Ready()
}

// GameReady reports whether the logical data is available.
func GameReady[T Tag](r *Registry, id HandleID[T]) (containers.Index, bool) {
	e, ok := GetID(r, id)
	if !ok {
		return containers.Index{}, false
	}
	return e.Game.Ready()
}

// Label returns the path (or generated label) of an entry.
func (r *Registry) Label(idx containers.Index) string {
	if e, ok := r.entries.Get(idx); ok {
		return e.Path
	}
	return "<stale " + idx.String() + ">"
}

func (r *Registry) Len() int {
	return r.entries.Len()
}

// Each visits every entry in slot order.
func (r *Registry) Each(fn func(containers.Index, *Entry)) {
	r.entries.Each(fn)
}

// incRef on an unknown index is a logic error: the handle being copied should
// have kept its entry alive.
func (r *Registry) incRef(idx containers.Index) {
	e, ok := r.entries.Get(idx)
	if !ok {
		panic(fmt.Sprintf("registry: inc_ref on stale index %s", idx))
	}
	e.RefCount++
}

// decRef on an unknown index is ignored; the entry may already be gone.
func (r *Registry) decRef(idx containers.Index) {
	e, ok := r.entries.Get(idx)
	if !ok {
		return
	}
	if e.RefCount == 0 {
		panic(fmt.Sprintf("registry: refcount underflow on %s (%s)", idx, e.Path))
	}
	e.RefCount--
	// TODO: queue zero-refcount entries for eviction once a GC sweep exists.
}

// ProcessResponses drains the result mailbox and applies every transition.
// It returns the number of results handled.
func (r *Registry) ProcessResponses() int {
	return r.results.Drain(r.apply)
}

func (r *Registry) apply(res ResourceResult) {
	idx := res.entry()
	e, ok := r.entries.Get(idx)
	if !ok {
		r.logger.Warn("result for unknown entry", "entry", idx, "result", fmt.Sprintf("%T", res))
		return
	}
	wasReady := r.fullyReady(e)

	switch res := res.(type) {
	case UploadQueued:
		r.advanceRender(e, RenderState{Status: RenderQueued})
	case UploadStarted:
		r.advanceRender(e, RenderState{Status: RenderUploading, Index: res.RenderIndex})
	case ModelResult:
		r.expectKind(e, KindModel, res)
		r.advanceGame(e, res.GameID.Index)
		r.advanceRender(e, RenderState{Status: RenderStatusReady, Index: res.RenderID.Index})
	case MeshResult:
		r.expectKind(e, KindMesh, res)
		r.advanceGame(e, res.RenderID.Index)
		r.advanceRender(e, RenderState{Status: RenderStatusReady, Index: res.RenderID.Index})
	case TextureResult:
		r.expectKind(e, KindTexture, res)
		r.advanceGame(e, res.RenderID.Index)
		r.advanceRender(e, RenderState{Status: RenderStatusReady, Index: res.RenderID.Index})
	case MaterialResult:
		r.expectKind(e, KindMaterial, res)
		r.advanceGame(e, res.GameID.Index)
		r.advanceRender(e, RenderState{Status: RenderStatusReady, Index: res.RenderID.Index})
	case SkeletonResult:
		r.expectKind(e, KindSkeleton, res)
		r.advanceGame(e, res.GameID.Index)
	case AnimationResult:
		r.expectKind(e, KindAnimation, res)
		r.advanceGame(e, res.GameID.Index)
	case AnimationClipResult:
		r.expectKind(e, KindAnimationClip, res)
		r.advanceGame(e, res.GameID.Index)
	default:
		r.logger.Warn("unhandled resource result", "result", fmt.Sprintf("%T", res))
		return
	}

	if !wasReady && r.fullyReady(e) && r.onReady != nil {
		r.onReady(idx, *e)
	}
}

func (r *Registry) expectKind(e *Entry, kind ResourceKind, res ResourceResult) {
	if e.Kind != kind {
		panic(fmt.Sprintf("registry: %T delivered to %s entry %q", res, e.Kind, e.Path))
	}
}

// fullyReady is render readiness for drawable kinds and game readiness for
// CPU-only kinds.
func (r *Registry) fullyReady(e *Entry) bool {
	switch e.Kind {
	case KindSkeleton, KindAnimation, KindAnimationClip:
		return e.Game.Status == GameStatusReady
	}
	return e.Render.Status == RenderStatusReady
}

func (r *Registry) advanceGame(e *Entry, idx containers.Index) {
	if e.Game.Status == GameStatusReady {
		if e.Game.Index != idx {
			r.logger.Warn("ignoring second game result", "path", e.Path, "have", e.Game.Index, "got", idx)
		}
		return
	}
	e.Game = GameState{Status: GameStatusReady, Index: idx}
}

// advanceRender applies next only if it moves the state forward. Re-applying
// Ready with the same index is a no-op.
func (r *Registry) advanceRender(e *Entry, next RenderState) {
	cur := e.Render
	if next.Status < cur.Status {
		r.logger.Warn("ignoring backward render transition", "path", e.Path, "from", cur.Status, "to", next.Status)
		return
	}
	if next.Status == cur.Status {
		if cur.Status == RenderStatusReady && cur.Index != next.Index {
			r.logger.Warn("ignoring second render result", "path", e.Path, "have", cur.Index, "got", next.Index)
		}
		return
	}
	e.Render = next
}

// Close detaches the registry. Outstanding handles release as no-ops.
func (r *Registry) Close() {
	r.closed = true
}

func (r *Registry) Closed() bool {
	return r.closed
}
