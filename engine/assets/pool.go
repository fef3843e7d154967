package assets

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/spaghettifunk/anima-assets/engine/assets/formats"
	"github.com/spaghettifunk/anima-assets/engine/assets/loaders"
	"github.com/spaghettifunk/anima-assets/engine/containers"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/resources"
)

// IoWorkerPool runs blocking loads on a fixed set of goroutines sharing one
// request queue and one response queue. Responses come back in completion
// order, not submission order.
type IoWorkerPool struct {
	numWorkers int
	root       string
	loaders    *loaders.Registry
	requests   *containers.Mailbox[IoRequest]
	responses  *containers.Mailbox[IoResponse]
	wg         sync.WaitGroup
	logger     *log.Logger

	loaded atomic.Uint64
	failed atomic.Uint64
}

/**
 * @brief Starts numWorkers goroutines.
 * @param root Directory relative request paths are resolved against. May be empty.
 * @param reg Loader table; nil uses loaders.NewDefaultRegistry.
 */
func NewIoWorkerPool(numWorkers int, queueSize int, root string, reg *loaders.Registry) (*IoWorkerPool, error) {
	if numWorkers <= 0 {
		return nil, core.ErrNoWorkers
	}
	if queueSize < 0 {
		return nil, core.ErrNegativeChannelSize
	}
	if reg == nil {
		reg = loaders.NewDefaultRegistry()
	}

	p := &IoWorkerPool{
		numWorkers: numWorkers,
		root:       root,
		loaders:    reg,
		requests:   containers.NewMailbox[IoRequest](queueSize),
		responses:  containers.NewMailbox[IoResponse](queueSize),
		logger:     core.Logger("component", "io"),
	}
	p.start()
	return p, nil
}

func (p *IoWorkerPool) start() {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				req, ok := p.requests.Recv()
				if !ok {
					return
				}
				res := p.run(req)
				if err := p.responses.Send(res); err != nil {
					p.logger.Warn("dropping io response", "path", req.Path, "err", err)
				}
			}
		}()
	}
}

// run never lets a panic escape: a crashing decoder becomes an IoError and
// the worker moves on.
func (p *IoWorkerPool) run(req IoRequest) (res IoResponse) {
	defer func() {
		if r := recover(); r != nil {
			res = p.fail(req, fmt.Errorf("loader panic: %v", r))
		}
	}()

	path := req.Path
	if p.root != "" && !filepath.IsAbs(path) {
		path = filepath.Join(p.root, path)
	}

	loaded, err := p.loaders.Load(req.Kind, path, loaders.Params{SRGB: req.SRGB, Header: req.Header})
	if err != nil {
		return p.fail(req, err)
	}
	res, err = wrap(req, loaded)
	if err != nil {
		return p.fail(req, err)
	}
	p.loaded.Add(1)
	p.logger.Debug("loaded", "kind", req.Kind, "path", req.Path, "bytes", loaded.DataSize)
	return res
}

func (p *IoWorkerPool) fail(req IoRequest, err error) IoResponse {
	p.failed.Add(1)
	return IoError{ID: req.ID, Kind: req.Kind, Path: req.Path, Message: err.Error()}
}

func wrap(req IoRequest, r *loaders.Resource) (IoResponse, error) {
	var res IoResponse
	ok := false
	switch req.Kind {
	case resources.KindModel:
		var v *formats.Model
		v, ok = r.Data.(*formats.Model)
		res = ModelLoaded{ID: resources.ModelID{Index: req.ID}, Model: v}
	case resources.KindMesh:
		var v []byte
		v, ok = r.Data.([]byte)
		res = MeshLoaded{ID: resources.MeshID{Index: req.ID}, Data: v}
	case resources.KindMaterial:
		var v *formats.Material
		v, ok = r.Data.(*formats.Material)
		res = MaterialLoaded{ID: resources.MaterialID{Index: req.ID}, Material: v}
	case resources.KindSkeleton:
		var v *formats.Skeleton
		v, ok = r.Data.(*formats.Skeleton)
		res = SkeletonLoaded{ID: resources.SkeletonID{Index: req.ID}, Skeleton: v}
	case resources.KindAnimationClip:
		var v *formats.AnimationClipManifest
		v, ok = r.Data.(*formats.AnimationClipManifest)
		res = AnimationClipLoaded{ID: resources.AnimationClipID{Index: req.ID}, Clip: v}
	case resources.KindAnimation:
		var v *formats.AnimationClip
		v, ok = r.Data.(*formats.AnimationClip)
		res = AnimationLoaded{ID: resources.AnimationID{Index: req.ID}, Clip: v}
	case resources.KindTexture:
		var v *formats.TextureData
		v, ok = r.Data.(*formats.TextureData)
		res = TextureLoaded{ID: resources.TextureID{Index: req.ID}, Texture: v}
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s loader returned %T", core.ErrUnknownAssetKind, req.Kind, r.Data)
	}
	return res, nil
}

/**
 * @brief Queues a load. Never blocks.
 * @return core.ErrMailboxClosed after Shutdown.
 */
func (p *IoWorkerPool) Submit(req IoRequest) error {
	return p.requests.Send(req)
}

// Responses is drained by the upload stage.
func (p *IoWorkerPool) Responses() *containers.Mailbox[IoResponse] {
	return p.responses
}

// Pending is the number of requests not yet picked up by a worker.
func (p *IoWorkerPool) Pending() int {
	return p.requests.Len()
}

// Stats returns the number of successful and failed loads so far.
func (p *IoWorkerPool) Stats() (loaded, failed uint64) {
	return p.loaded.Load(), p.failed.Load()
}

/**
 * @brief Stops accepting requests, lets the workers finish what is queued and
 * waits for them. Responses stay readable afterwards.
 */
func (p *IoWorkerPool) Shutdown() error {
	p.requests.Close()
	p.wg.Wait()
	p.responses.Close()
	return nil
}
