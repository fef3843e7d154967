package assets

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spaghettifunk/anima-assets/engine/resources"
)

func TestDetermineAssetKind(t *testing.T) {
	root := t.TempDir()
	writeAsset(t, root, "lantern.json", `{"submeshes": [], "buffer": "l.bin"}`)
	writeAsset(t, root, "rig.json", `{"joints": []}`)
	writeAsset(t, root, "walk.json", `{"duration": 1, "tracks": []}`)
	writeAsset(t, root, "paint.json", `{"base_color_factor": [1,1,1,1]}`)
	writeAsset(t, root, "unknown.json", `{"hello": 1}`)

	tests := []struct {
		path string
		kind resources.ResourceKind
		ok   bool
	}{
		{"sky.dds", resources.KindTexture, true},
		{"albedo.PNG", resources.KindTexture, true},
		{"mesh.bin", resources.KindMesh, true},
		{"mesh.bin.lz4", resources.KindMesh, true},
		{"walk.anim", resources.KindAnimation, true},
		{"x.model.json", resources.KindModel, true},
		{"x.material.json", resources.KindMaterial, true},
		{"x.clip.json", resources.KindAnimationClip, true},
		{filepath.Join(root, "lantern.json"), resources.KindModel, true},
		{filepath.Join(root, "rig.json"), resources.KindSkeleton, true},
		{filepath.Join(root, "walk.json"), resources.KindAnimationClip, true},
		{filepath.Join(root, "paint.json"), resources.KindMaterial, true},
		{filepath.Join(root, "unknown.json"), 0, false},
		{"shader.wgsl", 0, false},
	}
	for _, tt := range tests {
		kind, ok := determineAssetKind(tt.path)
		if ok != tt.ok || (ok && kind != tt.kind) {
			t.Errorf("determineAssetKind(%q) = %s, %v", filepath.Base(tt.path), kind, ok)
		}
	}
}

func TestCatalogIndex(t *testing.T) {
	root := t.TempDir()
	writeAsset(t, root, "b/box.model.json", `{}`)
	writeAsset(t, root, "a/lantern.model.json", `{}`)
	writeAsset(t, root, "a/lantern.bin", "")
	writeAsset(t, root, "readme.txt", "")

	c, err := NewCatalog(root)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Initialize(false); err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if got, want := c.Paths(resources.KindModel), []string{"a/lantern.model.json", "b/box.model.json"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Paths(model) = %v, want %v", got, want)
	}
	if a, ok := c.Lookup("a/lantern.bin"); !ok || a.Kind != resources.KindMesh {
		t.Errorf("Lookup(mesh) = %+v, %v", a, ok)
	}
	if _, ok := c.Lookup("readme.txt"); ok {
		t.Error("unknown extensions must not be indexed")
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d", c.Len())
	}
}

func TestCatalogRejectsFile(t *testing.T) {
	root := t.TempDir()
	writeAsset(t, root, "f.bin", "")
	if _, err := NewCatalog(filepath.Join(root, "f.bin")); err == nil {
		t.Error("expected error for a file root")
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCatalogWatch(t *testing.T) {
	root := t.TempDir()
	c, err := NewCatalog(root)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Initialize(true); err != nil {
		t.Fatal(err)
	}

	writeAsset(t, root, "tex.png", "")
	waitFor(t, "tex.png indexed", func() bool { _, ok := c.Lookup("tex.png"); return ok })

	if err := os.Mkdir(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	// give the watcher time to pick up the new directory
	waitFor(t, "sub watched", func() bool {
		writeAsset(t, root, "sub/mesh.bin", "")
		_, ok := c.Lookup("sub/mesh.bin")
		return ok
	})

	if err := os.Remove(filepath.Join(root, "tex.png")); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "tex.png removed", func() bool { _, ok := c.Lookup("tex.png"); return !ok })

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); !errors.Is(err, ErrCatalogClosed) {
		t.Errorf("second Close() = %v", err)
	}
}
