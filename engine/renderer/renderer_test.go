package renderer

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/anima-assets/engine/assets"
	"github.com/spaghettifunk/anima-assets/engine/assets/formats"
	"github.com/spaghettifunk/anima-assets/engine/assets/loaders"
	"github.com/spaghettifunk/anima-assets/engine/containers"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/resources"
	"github.com/spaghettifunk/anima-assets/engine/scene"
	"github.com/spaghettifunk/anima-assets/engine/snapshot"
	"github.com/spaghettifunk/anima-assets/engine/store"
)

type fakeIo struct {
	submitted []assets.IoRequest
	responses *containers.Mailbox[assets.IoResponse]
}

func newFakeIo() *fakeIo {
	return &fakeIo{responses: containers.NewMailbox[assets.IoResponse](8)}
}

func (f *fakeIo) Submit(req assets.IoRequest) error {
	f.submitted = append(f.submitted, req)
	return nil
}

func (f *fakeIo) Responses() *containers.Mailbox[assets.IoResponse] {
	return f.responses
}

type rig struct {
	io      *fakeIo
	ch      Channels
	device  *HeadlessDevice
	manager *RenderAssetManager
}

func newRig(budget int) *rig {
	r := &rig{
		io: newFakeIo(),
		ch: Channels{
			RegistryRequests: containers.NewMailbox[resources.ResourceRequest](8),
			RegistryResults:  containers.NewMailbox[resources.ResourceResult](8),
			GameRequests:     containers.NewMailbox[store.CreateGameResourceRequest](8),
			GameResponses:    containers.NewMailbox[store.CreateGameResourceResponse](8),
		},
		device: NewHeadlessDevice(),
	}
	r.manager = NewRenderAssetManager(r.io, r.ch, r.device, NewRenderAssetStore(), budget)
	return r
}

func (r *rig) results() []resources.ResourceResult {
	var out []resources.ResourceResult
	r.ch.RegistryResults.Drain(func(res resources.ResourceResult) { out = append(out, res) })
	return out
}

func meshID(slot uint32) resources.MeshID {
	return resources.MeshID{Index: containers.Index{Slot: slot, Generation: 1}}
}

func rgbaTexture(w, h, layers uint32) *formats.TextureData {
	tex := &formats.TextureData{Width: w, Height: h, Mips: 1, Layers: layers, Format: formats.FormatRgba8Unorm}
	size, _ := tex.ExpectedSize()
	tex.Data = make([]byte, size)
	return tex
}

func TestAlignRow(t *testing.T) {
	tests := []struct{ in, want uint32 }{
		{0, 0}, {1, 256}, {255, 256}, {256, 256}, {257, 512}, {1024, 1024},
	}
	for _, tt := range tests {
		if got := AlignRow(tt.in); got != tt.want {
			t.Errorf("AlignRow(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPaddedRows(t *testing.T) {
	src := []byte{1, 2, 3, 4, 5, 6}
	out, pitch := PaddedRows(src, 3, 2)
	if pitch != 256 || len(out) != 512 {
		t.Fatalf("pitch=%d len=%d", pitch, len(out))
	}
	if !bytes.Equal(out[0:3], []byte{1, 2, 3}) || !bytes.Equal(out[256:259], []byte{4, 5, 6}) {
		t.Error("rows not copied to padded offsets")
	}
	if out[3] != 0 || out[255] != 0 {
		t.Error("padding must be zero")
	}

	aligned := make([]byte, 512)
	out, pitch = PaddedRows(aligned, 256, 2)
	if pitch != 256 || &out[0] != &aligned[0] {
		t.Error("aligned rows should be passed through")
	}
}

func TestUploadTextureBlockCompressedMips(t *testing.T) {
	dev := NewHeadlessDevice()
	tex := &formats.TextureData{Width: 64, Height: 64, Mips: 3, Layers: 1, Format: formats.FormatBc1RgbaUnorm}
	size, _ := tex.ExpectedSize()
	tex.Data = make([]byte, size)

	gpu, err := UploadTexture(dev, tex, "bc1")
	if err != nil {
		t.Fatal(err)
	}
	if gpu.Cube || gpu.Bytes != size {
		t.Errorf("gpu = %+v", gpu)
	}

	writes := dev.Writes()
	wantRows := []uint32{16, 8, 4}
	if len(writes) != len(wantRows) {
		t.Fatalf("%d writes, want %d", len(writes), len(wantRows))
	}
	for i, w := range writes {
		if w.Region.Mip != uint32(i) || w.Layout.RowsPerImage != wantRows[i] || w.Layout.BytesPerRow != 256 {
			t.Errorf("write %d = %+v", i, w)
		}
	}
	if dim, _ := dev.ViewDimension(gpu.View); dim != VIEW_DIMENSION_2D {
		t.Error("2D texture must get a 2D view")
	}
}

func TestUploadTextureCube(t *testing.T) {
	dev := NewHeadlessDevice()
	gpu, err := UploadTexture(dev, rgbaTexture(4, 4, 6), "sky")
	if err != nil {
		t.Fatal(err)
	}
	if !gpu.Cube {
		t.Error("six layers must upload as a cube")
	}
	if dim, _ := dev.ViewDimension(gpu.View); dim != VIEW_DIMENSION_CUBE {
		t.Error("expected a cube view")
	}
	writes := dev.Writes()
	if len(writes) != 6 {
		t.Fatalf("%d writes, want 6", len(writes))
	}
	for i, w := range writes {
		if w.Region.Layer != uint32(i) {
			t.Errorf("write %d went to layer %d", i, w.Region.Layer)
		}
	}
}

func TestUploadTextureRejectsShortData(t *testing.T) {
	dev := NewHeadlessDevice()
	tex := rgbaTexture(8, 8, 1)
	tex.Data = tex.Data[:10]
	if _, err := UploadTexture(dev, tex, "short"); err == nil {
		t.Fatal("expected an error")
	}
	if _, textures, _ := dev.Live(); textures != 0 {
		t.Error("no texture should be created")
	}
}

func TestAnonymousMaterialGoesToStore(t *testing.T) {
	r := newRig(0)
	id := resources.MaterialID{Index: containers.Index{Slot: 3, Generation: 1}}
	_ = r.ch.RegistryRequests.Send(resources.LoadMaterial{ID: id, Anonymous: true})
	_ = r.ch.RegistryRequests.Send(resources.LoadModel{ID: resources.ModelID{Index: containers.Index{Slot: 4, Generation: 1}}, Path: "m.model.json"})
	r.manager.ProcessRegistryRequests()

	if len(r.io.submitted) != 1 || r.io.submitted[0].Path != "m.model.json" {
		t.Errorf("io requests = %+v", r.io.submitted)
	}
	msg, ok := r.ch.GameRequests.TryRecv()
	cm, isMat := msg.(store.CreateMaterial)
	if !ok || !isMat || cm.ID != id {
		t.Fatalf("store request = %#v", msg)
	}
	if cm.Manifest.AlphaMode != formats.AlphaOpaque || cm.Manifest.BaseColorFactor != [4]float32{1, 1, 1, 1} {
		t.Errorf("manifest = %+v", cm.Manifest)
	}
}

func TestManifestsAreForwarded(t *testing.T) {
	r := newRig(0)
	_ = r.io.responses.Send(assets.ModelLoaded{Model: &formats.Model{}})
	_ = r.io.responses.Send(assets.SkeletonLoaded{Skeleton: &formats.Skeleton{}})
	_ = r.io.responses.Send(assets.AnimationClipLoaded{Clip: &formats.AnimationClipManifest{}})
	_ = r.io.responses.Send(assets.AnimationLoaded{Clip: &formats.AnimationClip{}})
	if n := r.manager.ProcessIoResponses(); n != 4 {
		t.Fatalf("processed %d", n)
	}
	var kinds []string
	r.ch.GameRequests.Drain(func(req store.CreateGameResourceRequest) {
		kinds = append(kinds, typeName(req))
	})
	want := "CreateModel,CreateSkeleton,CreateAnimationClip,CreateAnimation"
	if got := strings.Join(kinds, ","); got != want {
		t.Errorf("forwarded %s, want %s", got, want)
	}
}

func TestForwardedManifestsDropLabels(t *testing.T) {
	r := newRig(0)
	model := resources.ModelID{Index: containers.Index{Slot: 1, Generation: 1}}
	skel := resources.SkeletonID{Index: containers.Index{Slot: 2, Generation: 1}}
	_ = r.ch.RegistryRequests.Send(resources.LoadModel{ID: model, Path: "a.model.json"})
	_ = r.ch.RegistryRequests.Send(resources.LoadSkeleton{ID: skel, Path: "a.skel.json"})
	r.manager.ProcessRegistryRequests()
	if len(r.manager.labels) != 2 {
		t.Fatalf("labels = %v", r.manager.labels)
	}

	_ = r.io.responses.Send(assets.ModelLoaded{ID: model, Model: &formats.Model{}})
	_ = r.io.responses.Send(assets.SkeletonLoaded{ID: skel, Skeleton: &formats.Skeleton{}})
	r.manager.ProcessIoResponses()
	if len(r.manager.labels) != 0 {
		t.Errorf("labels left after forwarding: %v", r.manager.labels)
	}
}

func typeName(v any) string {
	switch v.(type) {
	case store.CreateModel:
		return "CreateModel"
	case store.CreateSkeleton:
		return "CreateSkeleton"
	case store.CreateAnimationClip:
		return "CreateAnimationClip"
	case store.CreateAnimation:
		return "CreateAnimation"
	case store.CreateMaterial:
		return "CreateMaterial"
	}
	return "?"
}

func TestMeshUploadProgression(t *testing.T) {
	r := newRig(0)
	r.device.SetManualCompletion(true)
	_ = r.io.responses.Send(assets.MeshLoaded{ID: meshID(0), Data: make([]byte, 64)})
	r.manager.ProcessIoResponses()

	res := r.results()
	if len(res) != 1 {
		t.Fatalf("results = %#v", res)
	}
	if _, ok := res[0].(resources.UploadQueued); !ok {
		t.Errorf("first result = %#v", res[0])
	}

	if n := r.manager.ProcessUploads(); n != 0 {
		t.Fatalf("ready before completion: %d", n)
	}
	res = r.results()
	started, ok := res[0].(resources.UploadStarted)
	if len(res) != 1 || !ok {
		t.Fatalf("results = %#v", res)
	}
	if !r.manager.Store().Meshes.Contains(started.RenderIndex) {
		t.Error("started upload must already own its GPU slot")
	}

	r.device.Complete(1)
	if n := r.manager.ProcessUploads(); n != 1 {
		t.Fatalf("ready after completion: %d", n)
	}
	res = r.results()
	mr, ok := res[0].(resources.MeshResult)
	if !ok || mr.RenderID.Index != started.RenderIndex {
		t.Errorf("final result = %#v", res[0])
	}
	if r.manager.Pending() != 0 {
		t.Errorf("Pending = %d", r.manager.Pending())
	}
}

func TestUploadBudget(t *testing.T) {
	r := newRig(150)
	for i := uint32(0); i < 3; i++ {
		_ = r.io.responses.Send(assets.MeshLoaded{ID: meshID(i), Data: make([]byte, 100)})
	}
	r.manager.ProcessIoResponses()
	r.results()

	for frame := 1; frame <= 3; frame++ {
		if n := r.manager.ProcessUploads(); n != 1 {
			t.Fatalf("frame %d: %d uploads ready, want 1", frame, n)
		}
	}
	if r.manager.Store().Meshes.Len() != 3 {
		t.Errorf("meshes = %d", r.manager.Store().Meshes.Len())
	}
}

func TestUploadLargerThanBudgetStillProceeds(t *testing.T) {
	r := newRig(10)
	_ = r.io.responses.Send(assets.MeshLoaded{ID: meshID(0), Data: make([]byte, 100)})
	r.manager.ProcessIoResponses()
	if n := r.manager.ProcessUploads(); n != 1 {
		t.Fatalf("ready = %d", n)
	}
}

func TestFailedUploadLeavesEntry(t *testing.T) {
	r := newRig(0)
	r.device.Fail = func(op string) error {
		if op == "buffer" {
			return errors.New("out of memory")
		}
		return nil
	}
	_ = r.io.responses.Send(assets.MeshLoaded{ID: meshID(0), Data: make([]byte, 8)})
	r.manager.ProcessIoResponses()
	r.results()
	r.manager.ProcessUploads()
	if res := r.results(); len(res) != 0 {
		t.Errorf("failed upload reported %#v", res)
	}
	if r.manager.Pending() != 0 {
		t.Error("failed upload must not stay queued")
	}
}

func TestIoErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	core.SetLogOutput(&buf)
	defer core.SetLogOutput(os.Stderr)

	r := newRig(0)
	_ = r.io.responses.Send(assets.IoError{Kind: resources.KindTexture, Path: "missing.png", Message: "no such file"})
	r.manager.ProcessIoResponses()
	if res := r.results(); len(res) != 0 {
		t.Errorf("results = %#v", res)
	}
	if !strings.Contains(buf.String(), "missing.png") {
		t.Errorf("log does not name the path: %q", buf.String())
	}
}

func uploadTexture(t *testing.T, r *rig, slot uint32) resources.TextureRenderID {
	t.Helper()
	id := resources.TextureID{Index: containers.Index{Slot: slot, Generation: 1}}
	_ = r.io.responses.Send(assets.TextureLoaded{ID: id, Texture: rgbaTexture(2, 2, 1)})
	r.manager.Process()
	for _, res := range r.results() {
		if tr, ok := res.(resources.TextureResult); ok {
			return tr.RenderID
		}
	}
	t.Fatal("texture never became ready")
	return resources.TextureRenderID{}
}

func TestMaterialBinding(t *testing.T) {
	r := newRig(0)
	tex := uploadTexture(t, r, 0)

	manifest := formats.DefaultMaterial()
	manifest.BaseColorTexture = &formats.SampledTexture{Source: "c.png", Sampler: formats.DefaultSampler()}
	created := store.MaterialCreated{
		ID:       resources.MaterialID{Index: containers.Index{Slot: 1, Generation: 1}},
		GameID:   resources.MaterialGameID{Index: containers.Index{Slot: 0, Generation: 1}},
		Manifest: manifest,
	}
	created.Textures[formats.SlotBaseColor] = &tex
	_ = r.ch.GameResponses.Send(created)
	r.manager.ProcessGameResponses()

	res := r.results()
	mr, ok := res[0].(resources.MaterialResult)
	if len(res) != 1 || !ok || mr.GameID != created.GameID {
		t.Fatalf("results = %#v", res)
	}
	gpu, _ := r.manager.Store().Material(mr.RenderID)
	binding, ok := r.device.Binding(gpu.Binding)
	if !ok {
		t.Fatal("binding not created")
	}
	texGpu, _ := r.manager.Store().Texture(tex)
	if binding.Views[formats.SlotBaseColor] != texGpu.View || binding.Views[formats.SlotNormal] != 0 {
		t.Errorf("views = %v", binding.Views)
	}
}

func TestMaterialWithMissingTextureIsNotReported(t *testing.T) {
	r := newRig(0)
	missing := resources.TextureRenderID{Index: containers.Index{Slot: 9, Generation: 1}}
	created := store.MaterialCreated{Manifest: formats.DefaultMaterial()}
	created.Textures[formats.SlotNormal] = &missing
	_ = r.ch.GameResponses.Send(created)
	r.manager.ProcessGameResponses()
	if res := r.results(); len(res) != 0 {
		t.Errorf("results = %#v", res)
	}
}

func TestModelAndCPUKindsReported(t *testing.T) {
	r := newRig(0)
	_ = r.ch.GameResponses.Send(store.ModelCreated{
		Mesh:      resources.MeshRenderID{Index: containers.Index{Slot: 0, Generation: 1}},
		Submeshes: []store.SubMesh{{IndexStart: 0, IndexEnd: 6}},
	})
	_ = r.ch.GameResponses.Send(store.SkeletonCreated{})
	_ = r.ch.GameResponses.Send(store.AnimationClipCreated{})
	_ = r.ch.GameResponses.Send(store.AnimationCreated{})
	r.manager.ProcessGameResponses()

	res := r.results()
	if len(res) != 4 {
		t.Fatalf("results = %#v", res)
	}
	mr := res[0].(resources.ModelResult)
	model, ok := r.manager.Store().Model(mr.RenderID)
	if !ok || len(model.Submeshes) != 1 {
		t.Errorf("model render data = %+v", model)
	}
	if _, ok := res[1].(resources.SkeletonResult); !ok {
		t.Errorf("res[1] = %#v", res[1])
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestTextureEndToEnd(t *testing.T) {
	root := t.TempDir()
	data, err := loaders.EncodeDDS(&formats.TextureData{
		Data:   make([]byte, 4*4*4),
		Width:  4,
		Height: 4,
		Mips:   1,
		Layers: 1,
		Format: formats.FormatRgba8UnormSrgb,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "t.dds"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	pool, err := assets.NewIoWorkerPool(2, 8, root, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Shutdown()

	ch := Channels{
		RegistryRequests: containers.NewMailbox[resources.ResourceRequest](8),
		RegistryResults:  containers.NewMailbox[resources.ResourceResult](8),
		GameRequests:     containers.NewMailbox[store.CreateGameResourceRequest](8),
		GameResponses:    containers.NewMailbox[store.CreateGameResourceResponse](8),
	}
	reg := resources.NewRegistry(ch.RegistryRequests, ch.RegistryResults)
	manager := NewRenderAssetManager(pool, ch, NewHeadlessDevice(), NewRenderAssetStore(), 0)

	var ready int
	reg.SetReadyHook(func(containers.Index, resources.Entry) { ready++ })

	a := reg.RequestTexture("t.dds", true)
	manager.ProcessRegistryRequests()
	b := reg.RequestTexture("t.dds", true)
	manager.ProcessRegistryRequests()
	if a.ID() != b.ID() {
		t.Fatal("same path must share an entry")
	}
	if pool.Pending() > 1 {
		t.Fatalf("pending io = %d", pool.Pending())
	}

	waitFor(t, "texture ready", func() bool {
		manager.Process()
		reg.ProcessResponses()
		_, ok := resources.RenderReady(reg, a.ID())
		return ok
	})

	loaded, failed := pool.Stats()
	if loaded != 1 || failed != 0 {
		t.Errorf("io stats: loaded=%d failed=%d", loaded, failed)
	}
	if ready != 1 {
		t.Errorf("ready hook fired %d times", ready)
	}
	idx, _ := resources.RenderReady(reg, b.ID())
	tex, ok := manager.Store().Textures.Get(idx)
	if !ok || tex.Format != formats.FormatRgba8UnormSrgb {
		t.Errorf("gpu texture = %+v", tex)
	}
}

func identityTRS(x float32) snapshot.TRS {
	return snapshot.TRS{T: mgl32.Vec3{x, 0, 0}, R: mgl32.QuatIdent(), S: mgl32.Vec3{1, 1, 1}}
}

func TestBuildFramePacket(t *testing.T) {
	gpu := NewRenderAssetStore()
	dev := NewHeadlessDevice()
	buf, _ := dev.CreateBuffer(BufferDescriptor{Contents: make([]byte, 16)})
	mesh := gpu.Meshes.Insert(MeshGpuData{Buffer: buf})
	mat := gpu.Materials.Insert(MaterialGpuData{Binding: 7})
	model := gpu.Models.Insert(ModelRenderData{
		Mesh:      resources.MeshRenderID{Index: mesh},
		Submeshes: []store.SubMesh{{IndexStart: 3, IndexEnd: 9, BaseVertex: 2}},
	})

	moving := scene.NodeID{Index: containers.Index{Slot: 1, Generation: 1}}
	still := scene.NodeID{Index: containers.Index{Slot: 2, Generation: 1}}

	prev := snapshot.Empty()
	prev.Draws.StaticInstances[moving] = snapshot.StaticInstanceSnapshot{SubmeshTransforms: [][]snapshot.TRS{{identityTRS(0)}}}
	prev.Draws.StaticInstances[still] = snapshot.StaticInstanceSnapshot{SubmeshTransforms: [][]snapshot.TRS{{identityTRS(100)}}}

	curr := snapshot.Empty()
	curr.Draws.StaticInstances[moving] = snapshot.StaticInstanceSnapshot{SubmeshTransforms: [][]snapshot.TRS{{identityTRS(10)}}, Dirty: true}
	curr.Draws.StaticInstances[still] = snapshot.StaticInstanceSnapshot{SubmeshTransforms: [][]snapshot.TRS{{identityTRS(5)}}}
	curr.Draws.SubmeshBatches = []snapshot.SubmeshBatch{{Instances: []scene.NodeID{moving, still}, SubmeshIndex: 0}}
	curr.Draws.MeshBatches = []snapshot.MeshBatch{
		{Model: resources.ModelRenderID{Index: model}, SubmeshRange: snapshot.Range{Start: 0, End: 1}},
		{Model: resources.ModelRenderID{Index: containers.Index{Slot: 42, Generation: 1}}, SubmeshRange: snapshot.Range{Start: 0, End: 1}},
	}
	curr.Draws.MaterialBatches = []snapshot.MaterialBatch{{Material: resources.MaterialRenderID{Index: mat}, MeshRange: snapshot.Range{Start: 0, End: 2}}}
	curr.Draws.StaticBatch = snapshot.Range{Start: 0, End: 1}

	pair := &snapshot.SnapshotPair{Prev: prev, Curr: curr, Generation: 3}
	packet := BuildFramePacket(pair, 0.5, gpu)

	if packet.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", packet.Skipped)
	}
	if len(packet.Draws) != 1 {
		t.Fatalf("draws = %d", len(packet.Draws))
	}
	d := packet.Draws[0]
	if d.Buffer != buf || d.Material != 7 || d.IndexStart != 3 || d.IndexCount != 6 || d.BaseVertex != 2 {
		t.Errorf("draw = %+v", d)
	}
	if len(d.Instances) != 2 {
		t.Fatalf("instances = %d", len(d.Instances))
	}
	if x := d.Instances[0].Col(3).X(); x < 4.99 || x > 5.01 {
		t.Errorf("moving node x = %v, want 5 (interpolated)", x)
	}
	if x := d.Instances[1].Col(3).X(); x < 4.99 || x > 5.01 {
		t.Errorf("still node x = %v, want 5 (taken from curr)", x)
	}
}

func TestRendererFrameDraws(t *testing.T) {
	r := newRig(0)
	handoff := snapshot.NewSnapshotHandoff(snapshot.Empty())
	rend := NewRenderer(r.device, r.manager, handoff, 100*time.Millisecond, 16*time.Millisecond)

	for i := 0; i < 3; i++ {
		if err := rend.Frame(); err != nil {
			t.Fatal(err)
		}
	}
	if rend.Frames() != 3 || r.device.Frames() != 3 {
		t.Errorf("frames = %d/%d", rend.Frames(), r.device.Frames())
	}

	uploadTexture(t, r, 0)
	rend.Shutdown()
	if _, textures, _ := r.device.Live(); textures != 0 {
		t.Errorf("%d textures left after shutdown", textures)
	}
}
