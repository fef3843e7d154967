package renderer

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/spaghettifunk/anima-assets/engine/assets"
	"github.com/spaghettifunk/anima-assets/engine/assets/formats"
	"github.com/spaghettifunk/anima-assets/engine/containers"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/resources"
	"github.com/spaghettifunk/anima-assets/engine/store"
)

// IoSink is the part of the I/O worker pool the upload stage talks to.
type IoSink interface {
	Submit(req assets.IoRequest) error
	Responses() *containers.Mailbox[assets.IoResponse]
}

// Channels are the mailboxes connecting the upload stage to the registry and
// to the game asset store.
type Channels struct {
	RegistryRequests *containers.Mailbox[resources.ResourceRequest]
	RegistryResults  *containers.Mailbox[resources.ResourceResult]
	GameRequests     *containers.Mailbox[store.CreateGameResourceRequest]
	GameResponses    *containers.Mailbox[store.CreateGameResourceResponse]
}

type pendingUpload struct {
	entry   containers.Index
	mesh    *assets.MeshLoaded
	texture *assets.TextureLoaded
}

func (p pendingUpload) size() int {
	if p.mesh != nil {
		return len(p.mesh.Data)
	}
	return len(p.texture.Texture.Data)
}

type inflightUpload struct {
	submission uint64
	result     resources.ResourceResult
}

/**
 * @brief The upload stage. Routes registry load requests to the I/O pool,
 * forwards parsed manifests to the game asset store, turns mesh and texture
 * bytes into GPU objects and reports render ids back to the registry.
 *
 * Owned by the render goroutine together with its RenderAssetStore.
 */
type RenderAssetManager struct {
	io     IoSink
	ch     Channels
	device Device
	assets *RenderAssetStore

	labels   map[containers.Index]string
	queued   []pendingUpload
	inflight []inflightUpload
	budget   int
	logger   *log.Logger
}

/**
 * @brief Creates the upload stage.
 * @param uploadBudget Bytes of mesh and texture data started per call to
 * ProcessUploads. At least one upload is always started. Zero means no limit.
 */
func NewRenderAssetManager(io IoSink, ch Channels, device Device, gpu *RenderAssetStore, uploadBudget int) *RenderAssetManager {
	return &RenderAssetManager{
		io:     io,
		ch:     ch,
		device: device,
		assets: gpu,
		labels: make(map[containers.Index]string),
		budget: uploadBudget,
		logger: core.Logger("component", "upload"),
	}
}

func (m *RenderAssetManager) Store() *RenderAssetStore {
	return m.assets
}

// Pending is the number of uploads queued or waiting on the device.
func (m *RenderAssetManager) Pending() int {
	return len(m.queued) + len(m.inflight)
}

// Process runs every stage once, in pipeline order.
func (m *RenderAssetManager) Process() {
	m.ProcessRegistryRequests()
	m.ProcessIoResponses()
	m.ProcessGameResponses()
	m.ProcessUploads()
}

func (m *RenderAssetManager) sendResult(res resources.ResourceResult) {
	if err := m.ch.RegistryResults.Send(res); err != nil {
		m.logger.Warn("dropping registry result", "result", fmt.Sprintf("%T", res), "err", err)
	}
}

func (m *RenderAssetManager) sendGame(req store.CreateGameResourceRequest) {
	if err := m.ch.GameRequests.Send(req); err != nil {
		m.logger.Warn("dropping store request", "request", fmt.Sprintf("%T", req), "err", err)
	}
}

// ProcessRegistryRequests routes every pending load to the I/O pool. An
// anonymous material has no file and goes straight to the store with the
// default manifest.
func (m *RenderAssetManager) ProcessRegistryRequests() int {
	return m.ch.RegistryRequests.Drain(func(req resources.ResourceRequest) {
		if lm, ok := req.(resources.LoadMaterial); ok && lm.Anonymous {
			def := formats.DefaultMaterial()
			m.sendGame(store.CreateMaterial{ID: lm.ID, Manifest: &def})
			return
		}
		io, ok := assets.RequestFor(req)
		if !ok {
			m.logger.Warn("unroutable resource request", "request", fmt.Sprintf("%T", req))
			return
		}
		m.labels[io.ID] = io.Path
		if err := m.io.Submit(io); err != nil {
			m.logger.Warn("dropping io request", "path", io.Path, "err", err)
		}
	})
}

// ProcessIoResponses queues GPU uploads for meshes and textures and forwards
// every other manifest to the store. Failed loads are logged and their
// entries stay loading.
func (m *RenderAssetManager) ProcessIoResponses() int {
	return m.io.Responses().Drain(func(res assets.IoResponse) {
		switch r := res.(type) {
		case assets.ModelLoaded:
			delete(m.labels, r.ID.Index)
			m.sendGame(store.CreateModel{ID: r.ID, Manifest: r.Model})
		case assets.MaterialLoaded:
			delete(m.labels, r.ID.Index)
			m.sendGame(store.CreateMaterial{ID: r.ID, Manifest: r.Material})
		case assets.SkeletonLoaded:
			delete(m.labels, r.ID.Index)
			m.sendGame(store.CreateSkeleton{ID: r.ID, Manifest: r.Skeleton})
		case assets.AnimationClipLoaded:
			delete(m.labels, r.ID.Index)
			m.sendGame(store.CreateAnimationClip{ID: r.ID, Manifest: r.Clip})
		case assets.AnimationLoaded:
			delete(m.labels, r.ID.Index)
			m.sendGame(store.CreateAnimation{ID: r.ID, Clip: r.Clip})
		case assets.MeshLoaded:
			m.queued = append(m.queued, pendingUpload{entry: r.ID.Index, mesh: &r})
			m.sendResult(resources.UploadQueued{Entry: r.ID.Index})
		case assets.TextureLoaded:
			m.queued = append(m.queued, pendingUpload{entry: r.ID.Index, texture: &r})
			m.sendResult(resources.UploadQueued{Entry: r.ID.Index})
		case assets.IoError:
			m.logger.Error("load failed", "kind", r.Kind, "path", r.Path, "err", r.Message)
			delete(m.labels, r.ID)
		default:
			m.logger.Warn("unhandled io response", "response", fmt.Sprintf("%T", res))
		}
	})
}

func (m *RenderAssetManager) label(idx containers.Index) string {
	if l, ok := m.labels[idx]; ok {
		return l
	}
	return idx.String()
}

/**
 * @brief Starts queued uploads within the byte budget, submits them, and
 * reports every upload whose submission the device has completed.
 * @return The number of resources that became ready.
 */
func (m *RenderAssetManager) ProcessUploads() int {
	spent, started := 0, 0
	for len(m.queued) > 0 {
		next := m.queued[0]
		if m.budget > 0 && started > 0 && spent+next.size() > m.budget {
			break
		}
		m.queued = m.queued[1:]
		spent += next.size()
		if m.start(next) {
			started++
		}
	}
	if started > 0 {
		sub := m.device.Submit()
		for i := range m.inflight {
			if m.inflight[i].submission == 0 {
				m.inflight[i].submission = sub
			}
		}
	}

	done := m.device.CompletedSubmission()
	ready := 0
	keep := m.inflight[:0]
	for _, u := range m.inflight {
		if u.submission <= done {
			m.sendResult(u.result)
			ready++
			continue
		}
		keep = append(keep, u)
	}
	m.inflight = keep
	return ready
}

// start creates the GPU object for one upload. A failure is logged and the
// entry is left queued.
func (m *RenderAssetManager) start(u pendingUpload) bool {
	label := m.label(u.entry)
	delete(m.labels, u.entry)

	var gpuIdx containers.Index
	var result resources.ResourceResult
	switch {
	case u.mesh != nil:
		buf, err := m.device.CreateBuffer(BufferDescriptor{
			Label:    label,
			Usage:    BUFFER_USAGE_VERTEX | BUFFER_USAGE_INDEX,
			Contents: u.mesh.Data,
		})
		if err != nil {
			m.logger.Error("mesh upload failed", "path", label, "err", err)
			return false
		}
		gpuIdx = m.assets.Meshes.Insert(MeshGpuData{Buffer: buf, Size: len(u.mesh.Data)})
		result = resources.MeshResult{ID: u.mesh.ID, RenderID: resources.MeshRenderID{Index: gpuIdx}}
	default:
		tex, err := UploadTexture(m.device, u.texture.Texture, label)
		if err != nil {
			m.logger.Error("texture upload failed", "path", label, "err", err)
			return false
		}
		gpuIdx = m.assets.Textures.Insert(tex)
		result = resources.TextureResult{ID: u.texture.ID, RenderID: resources.TextureRenderID{Index: gpuIdx}}
	}

	m.sendResult(resources.UploadStarted{Entry: u.entry, RenderIndex: gpuIdx})
	m.inflight = append(m.inflight, inflightUpload{result: result})
	return true
}

// ProcessGameResponses creates the render side of finalized models and
// materials and reports every finalized resource to the registry.
func (m *RenderAssetManager) ProcessGameResponses() int {
	return m.ch.GameResponses.Drain(func(res store.CreateGameResourceResponse) {
		switch r := res.(type) {
		case store.ModelCreated:
			idx := m.assets.Models.Insert(ModelRenderData{
				VertexBufferStartOffset: r.VertexBufferStartOffset,
				Mesh:                    r.Mesh,
				Submeshes:               r.Submeshes,
			})
			m.sendResult(resources.ModelResult{ID: r.ID, GameID: r.GameID, RenderID: resources.ModelRenderID{Index: idx}})
		case store.MaterialCreated:
			binding, err := m.bindMaterial(r)
			if err != nil {
				m.logger.Error("material upload failed", "id", r.ID, "err", err)
				return
			}
			idx := m.assets.Materials.Insert(MaterialGpuData{Binding: binding})
			m.sendResult(resources.MaterialResult{ID: r.ID, GameID: r.GameID, RenderID: resources.MaterialRenderID{Index: idx}})
		case store.SkeletonCreated:
			m.sendResult(resources.SkeletonResult{ID: r.ID, GameID: r.GameID})
		case store.AnimationClipCreated:
			m.sendResult(resources.AnimationClipResult{ID: r.ID, GameID: r.GameID})
		case store.AnimationCreated:
			m.sendResult(resources.AnimationResult{ID: r.ID, GameID: r.GameID})
		default:
			m.logger.Warn("unhandled store response", "response", fmt.Sprintf("%T", res))
		}
	})
}

func (m *RenderAssetManager) bindMaterial(r store.MaterialCreated) (GPUBindGroup, error) {
	desc := MaterialBindingDescriptor{
		Label:    r.ID.String(),
		Material: r.Manifest,
	}
	sampled := r.Manifest.Textures()
	for slot, id := range r.Textures {
		if id == nil {
			continue
		}
		tex, ok := m.assets.Texture(*id)
		if !ok {
			return 0, fmt.Errorf("%s texture %s is not resident", formats.TextureSlot(slot), id.Index)
		}
		desc.Views[slot] = tex.View
		if sampled[slot] != nil {
			desc.Samplers[slot] = sampled[slot].Sampler
		} else {
			desc.Samplers[slot] = formats.DefaultSampler()
		}
	}
	return m.device.CreateMaterialBinding(desc)
}
