package assets

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/resources"
)

var ErrCatalogClosed = errors.New("asset catalog already closed")

type AssetInfo struct {
	Path    string
	Kind    resources.ResourceKind
	Indexed time.Time
}

// Catalog indexes the files under the asset root by resource kind and keeps
// the index current with fsnotify. It does not reload anything: resources
// already requested keep the data they were loaded with.
type Catalog struct {
	root   string
	assets map[string]AssetInfo
	mutex  sync.RWMutex

	fsnotify *fsnotify.Watcher
	done     chan struct{}
	stopped  chan struct{}
	isClosed bool
	logger   *log.Logger
}

func NewCatalog(root string) (*Catalog, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "catalog", Path: root, Err: errors.New("not a directory")}
	}
	return &Catalog{
		root:   root,
		assets: make(map[string]AssetInfo),
		logger: core.Logger("component", "catalog"),
	}, nil
}

/**
 * @brief Indexes the asset root. With watch set, directories are watched
 * recursively and the index follows creates, writes and removals until Close.
 */
func (c *Catalog) Initialize(watch bool) error {
	if !watch {
		return c.walk(c.root, nil)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	c.fsnotify = w
	c.done = make(chan struct{})
	c.stopped = make(chan struct{})

	if err := c.walk(c.root, w); err != nil {
		w.Close()
		return err
	}
	go c.start()
	return nil
}

// walk indexes every file below dir and, with a watcher, adds every directory.
func (c *Catalog) walk(dir string, w *fsnotify.Watcher) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if w != nil {
				return w.Add(path)
			}
			return nil
		}
		c.handleFileEvent(path)
		return nil
	})
}

func (c *Catalog) start() {
	defer close(c.stopped)
	for {
		select {
		case e, ok := <-c.fsnotify.Events:
			if !ok {
				return
			}
			if e.Has(fsnotify.Create) {
				if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
					if err := c.walk(e.Name, c.fsnotify); err != nil {
						c.logger.Warn("cannot watch new directory", "dir", e.Name, "err", err)
					}
					continue
				}
			}
			if e.Has(fsnotify.Create) || e.Has(fsnotify.Write) {
				c.handleFileEvent(e.Name)
			}
			// A removed directory cannot be stat'ed; drop everything under it.
			if e.Has(fsnotify.Remove) || e.Has(fsnotify.Rename) {
				c.removeAsset(e.Name)
			}

		case err, ok := <-c.fsnotify.Errors:
			if !ok {
				return
			}
			c.logger.Error("watch error", "err", err)

		case <-c.done:
			return
		}
	}
}

func (c *Catalog) rel(path string) (string, bool) {
	rel, err := filepath.Rel(c.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (c *Catalog) handleFileEvent(path string) {
	kind, ok := determineAssetKind(path)
	if !ok {
		return
	}
	rel, ok := c.rel(path)
	if !ok {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if _, seen := c.assets[rel]; !seen {
		c.logger.Debug("indexed", "path", rel, "kind", kind)
	}
	c.assets[rel] = AssetInfo{
		Path:    rel,
		Kind:    kind,
		Indexed: time.Now(),
	}
}

func (c *Catalog) removeAsset(path string) {
	rel, ok := c.rel(path)
	if !ok {
		return
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	prefix := rel + "/"
	for p := range c.assets {
		if p == rel || strings.HasPrefix(p, prefix) {
			delete(c.assets, p)
		}
	}
}

// Lookup takes a path relative to the root, slash separated.
func (c *Catalog) Lookup(path string) (AssetInfo, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	a, ok := c.assets[path]
	return a, ok
}

// Paths lists the indexed paths of one kind in lexical order.
func (c *Catalog) Paths(kind resources.ResourceKind) []string {
	c.mutex.RLock()
	out := make([]string, 0)
	for p, a := range c.assets {
		if a.Kind == kind {
			out = append(out, p)
		}
	}
	c.mutex.RUnlock()
	sort.Strings(out)
	return out
}

func (c *Catalog) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.assets)
}

func (c *Catalog) Root() string {
	return c.root
}

// Close stops watching. Calling it twice returns ErrCatalogClosed.
func (c *Catalog) Close() error {
	if c.isClosed {
		return ErrCatalogClosed
	}
	c.isClosed = true
	if c.fsnotify == nil {
		return nil
	}
	close(c.done)
	<-c.stopped
	return c.fsnotify.Close()
}

var textureExts = map[string]bool{
	".dds": true, ".png": true, ".jpg": true, ".jpeg": true,
	".gif": true, ".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// determineAssetKind classifies by extension. JSON manifests may carry the
// kind as a second extension (lantern.model.json); otherwise the top-level
// keys decide.
func determineAssetKind(path string) (resources.ResourceKind, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case textureExts[ext]:
		return resources.KindTexture, true
	case ext == ".bin" || ext == ".lz4":
		return resources.KindMesh, true
	case ext == ".anim":
		return resources.KindAnimation, true
	case ext != ".json":
		return 0, false
	}

	switch strings.ToLower(filepath.Ext(strings.TrimSuffix(path, filepath.Ext(path)))) {
	case ".model":
		return resources.KindModel, true
	case ".material", ".mat":
		return resources.KindMaterial, true
	case ".skeleton", ".skel":
		return resources.KindSkeleton, true
	case ".clip":
		return resources.KindAnimationClip, true
	}
	return sniffManifest(path)
}

func sniffManifest(path string) (resources.ResourceKind, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return 0, false
	}
	switch {
	case keys["submeshes"] != nil:
		return resources.KindModel, true
	case keys["joints"] != nil:
		return resources.KindSkeleton, true
	case keys["tracks"] != nil:
		return resources.KindAnimationClip, true
	case keys["base_color_factor"] != nil, keys["alpha_mode"] != nil:
		return resources.KindMaterial, true
	}
	return 0, false
}
