package snapshot

import (
	"cmp"
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/anima-assets/engine/assets/formats"
	"github.com/spaghettifunk/anima-assets/engine/containers"
	"github.com/spaghettifunk/anima-assets/engine/math"
	"github.com/spaghettifunk/anima-assets/engine/resources"
	"github.com/spaghettifunk/anima-assets/engine/scene"
	"github.com/spaghettifunk/anima-assets/engine/store"
)

// Pipeline selects the shader pipeline a batch is drawn with.
type Pipeline uint8

const (
	PIPELINE_STATIC Pipeline = iota
	PIPELINE_SKINNED
)

func (p Pipeline) String() string {
	if p == PIPELINE_SKINNED {
		return "skinned"
	}
	return "static"
}

type TRS struct {
	T mgl32.Vec3
	R mgl32.Quat
	S mgl32.Vec3
}

func TRSFromMat4(m mgl32.Mat4) TRS {
	t, r, s := math.Decompose(m)
	return TRS{T: t, R: r, S: s}
}

func (x TRS) Mat4() mgl32.Mat4 {
	return math.Compose(x.T, x.R, x.S)
}

// Lerp blends translation and scale linearly and rotation by normalized
// lerp along the shorter arc.
func (x TRS) Lerp(to TRS, t float32) TRS {
	r := to.R
	if x.R.Dot(r) < 0 {
		r = r.Scale(-1)
	}
	return TRS{
		T: x.T.Add(to.T.Sub(x.T).Mul(t)),
		R: mgl32.QuatNlerp(x.R, r, t),
		S: x.S.Add(to.S.Sub(x.S).Mul(t)),
	}
}

// AnimationSnapshot is the playback position of an animated node.
type AnimationSnapshot struct {
	TimeUS uint64
}

type StaticInstanceSnapshot struct {
	SubmeshTransforms [][]TRS
	/** @brief The node transform changed this tick; interpolate from prev. */
	Dirty bool
}

type SkinnedInstanceSnapshot struct {
	SubmeshTransforms [][]TRS
	Animation         *AnimationSnapshot
	Dirty             bool
}

// Range is the half-open interval [Start, End).
type Range struct {
	Start int
	End   int
}

func (r Range) Len() int {
	return r.End - r.Start
}

type SubmeshBatch struct {
	Instances    []scene.NodeID
	SubmeshIndex int
}

// MeshBatch indexes SubmeshBatches.
type MeshBatch struct {
	Model        resources.ModelRenderID
	SubmeshRange Range
}

// MaterialBatch indexes MeshBatches.
type MaterialBatch struct {
	Material  resources.MaterialRenderID
	MeshRange Range
}

/**
 * @brief Visible instances grouped pipeline, then material, then model,
 * then submesh. SkinnedBatch and StaticBatch index MaterialBatches.
 */
type MeshDrawSnapshot struct {
	SubmeshBatches   []SubmeshBatch
	MaterialBatches  []MaterialBatch
	MeshBatches      []MeshBatch
	SkinnedBatch     Range
	StaticBatch      Range
	SkinnedInstances map[scene.NodeID]SkinnedInstanceSnapshot
	StaticInstances  map[scene.NodeID]StaticInstanceSnapshot
}

// Batch returns the material range of a pipeline.
func (d *MeshDrawSnapshot) Batch(p Pipeline) Range {
	if p == PIPELINE_SKINNED {
		return d.SkinnedBatch
	}
	return d.StaticBatch
}

// Transforms returns the per-submesh transforms of a node in either map.
func (d *MeshDrawSnapshot) Transforms(id scene.NodeID) ([][]TRS, bool, bool) {
	if s, ok := d.StaticInstances[id]; ok {
		return s.SubmeshTransforms, s.Dirty, true
	}
	if s, ok := d.SkinnedInstances[id]; ok {
		return s.SubmeshTransforms, s.Dirty, true
	}
	return nil, false, false
}

type EnvironmentMapSnapshot struct {
	Prefiltered resources.TextureRenderID
	Irradiance  resources.TextureRenderID
	BrdfLut     resources.TextureRenderID
}

type LightsSnapshot struct {
	Sun scene.Sun
	/** @brief Nil until all three environment textures are uploaded. */
	EnvironmentMap *EnvironmentMapSnapshot
}

type CameraSnapshot struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Fovy     float32
	Aspect   float32
	ZNear    float32
	ZFar     float32
}

func DefaultCamera() CameraSnapshot {
	return CameraSnapshot{
		Rotation: mgl32.QuatIdent(),
		Fovy:     mgl32.DegToRad(scene.DEFAULT_FOVY_DEGREES),
		Aspect:   16.0 / 9.0,
		ZNear:    scene.DEFAULT_ZNEAR,
		ZFar:     scene.DEFAULT_ZFAR,
	}
}

func CameraFrom(c *scene.Camera) CameraSnapshot {
	if c == nil {
		return DefaultCamera()
	}
	return CameraSnapshot{
		Position: c.Position,
		Rotation: c.Rotation(),
		Fovy:     c.Fovy,
		Aspect:   c.Aspect,
		ZNear:    c.ZNear,
		ZFar:     c.ZFar,
	}
}

// ViewProjection rebuilds the camera matrices from the snapshot.
func (c CameraSnapshot) ViewProjection() mgl32.Mat4 {
	inv := c.Rotation.Conjugate()
	pos := inv.Rotate(c.Position).Mul(-1)
	view := mgl32.Translate3D(pos[0], pos[1], pos[2]).Mul4(inv.Mat4())
	return mgl32.Perspective(c.Fovy, c.Aspect, c.ZNear, c.ZFar).Mul4(view)
}

// Lerp interpolates position and lens linearly and rotation by slerp.
func (c CameraSnapshot) Lerp(to CameraSnapshot, t float32) CameraSnapshot {
	lerp := func(a, b float32) float32 { return a + (b-a)*t }
	r := to.Rotation
	if c.Rotation.Dot(r) < 0 {
		r = r.Scale(-1)
	}
	return CameraSnapshot{
		Position: c.Position.Add(to.Position.Sub(c.Position).Mul(t)),
		Rotation: mgl32.QuatSlerp(c.Rotation, r, t),
		Fovy:     lerp(c.Fovy, to.Fovy),
		Aspect:   lerp(c.Aspect, to.Aspect),
		ZNear:    lerp(c.ZNear, to.ZNear),
		ZFar:     lerp(c.ZFar, to.ZFar),
	}
}

/** @brief Immutable world state of one simulation tick. */
type RenderSnapshot struct {
	Draws      MeshDrawSnapshot
	Lights     LightsSnapshot
	Camera     CameraSnapshot
	FrameIndex uint32
}

// Empty is the snapshot the handoff starts with: nothing to draw.
func Empty() *RenderSnapshot {
	return &RenderSnapshot{
		Draws: MeshDrawSnapshot{
			SkinnedInstances: map[scene.NodeID]SkinnedInstanceSnapshot{},
			StaticInstances:  map[scene.NodeID]StaticInstanceSnapshot{},
		},
		Lights: LightsSnapshot{Sun: scene.DefaultSun()},
		Camera: DefaultCamera(),
	}
}

/**
 * @brief Walks the scene once and captures everything the render goroutine
 * needs for this tick. Nodes whose model is not game-ready are skipped
 * together with their children. Only models and materials that are
 * render-ready end up in batches.
 */
func Build(sc *scene.Scene, reg *resources.Registry, st *store.GameAssetStore, frameIndex uint32) *RenderSnapshot {
	return &RenderSnapshot{
		Draws:      buildDraws(sc, reg, st, frameIndex),
		Lights:     buildLights(sc.Environment, reg),
		Camera:     CameraFrom(sc.Camera),
		FrameIndex: frameIndex,
	}
}

func buildLights(env *scene.Environment, reg *resources.Registry) LightsSnapshot {
	if env == nil {
		return LightsSnapshot{Sun: scene.DefaultSun()}
	}
	out := LightsSnapshot{Sun: env.Sun}
	pre, ok1 := resources.RenderReady(reg, env.Prefiltered.ID())
	irr, ok2 := resources.RenderReady(reg, env.Irradiance.ID())
	brdf, ok3 := resources.RenderReady(reg, env.BrdfLut.ID())
	if ok1 && ok2 && ok3 {
		out.EnvironmentMap = &EnvironmentMapSnapshot{
			Prefiltered: resources.TextureRenderID{Index: pre},
			Irradiance:  resources.TextureRenderID{Index: irr},
			BrdfLut:     resources.TextureRenderID{Index: brdf},
		}
	}
	return out
}

type visibleNode struct {
	id    scene.NodeID
	model *store.ModelGameData
	// render is the model's render id; ok is false while it is uploading.
	render resources.ModelRenderID
	ok     bool
	kind   Pipeline
}

func aabbOf(b formats.Aabb) math.Aabb {
	return math.Aabb{Min: mgl32.Vec3(b.Min), Max: mgl32.Vec3(b.Max)}
}

func buildDraws(sc *scene.Scene, reg *resources.Registry, st *store.GameAssetStore, frameIndex uint32) MeshDrawSnapshot {
	draws := MeshDrawSnapshot{
		SkinnedInstances: map[scene.NodeID]SkinnedInstanceSnapshot{},
		StaticInstances:  map[scene.NodeID]StaticInstanceSnapshot{},
	}

	var frustum *math.Frustum
	if sc.Camera != nil {
		f := sc.Camera.Frustum()
		frustum = &f
	}

	var visible []visibleNode
	sc.Walk(func(id scene.NodeID, n *scene.Node, world mgl32.Mat4) bool {
		h := n.Model()
		if h == nil {
			return true
		}
		gid, ok := resources.GameReady(reg, h.ID())
		if !ok {
			return false
		}
		md, ok := st.Model(resources.ModelGameID{Index: gid})
		if !ok {
			return false
		}

		// draw what was visible last frame too, so fast camera turns do not pop
		recent := frameIndex-n.LastVisibleFrame() <= 1
		inside := frustum == nil || frustum.IntersectsAabb(aabbOf(md.Aabb).Transform(world))
		if inside {
			n.MarkVisible(frameIndex)
		}
		if !recent && !inside {
			return true
		}

		transforms := make([][]TRS, 0, len(md.SubmeshInstances))
		for _, instances := range md.SubmeshInstances {
			sub := make([]TRS, 0, len(instances))
			for _, m := range instances {
				sub = append(sub, TRSFromMat4(world.Mul4(m)))
			}
			transforms = append(transforms, sub)
		}
		if len(transforms) == 0 {
			return true
		}

		dirty := n.TransformLastMut == frameIndex
		v := visibleNode{id: id, model: md, kind: PIPELINE_STATIC}
		if md.Deformation.Skinned() {
			v.kind = PIPELINE_SKINNED
			inst := SkinnedInstanceSnapshot{SubmeshTransforms: transforms, Dirty: dirty}
			if n.Animated != nil {
				inst.Animation = &AnimationSnapshot{TimeUS: n.Animated.Animator.TimeMicros()}
			}
			draws.SkinnedInstances[id] = inst
		} else {
			draws.StaticInstances[id] = StaticInstanceSnapshot{SubmeshTransforms: transforms, Dirty: dirty}
		}
		if rid, ok := resources.RenderReady(reg, h.ID()); ok {
			v.render, v.ok = resources.ModelRenderID{Index: rid}, true
		}
		visible = append(visible, v)
		return true
	})

	batch(&draws, visible, reg, st)
	return draws
}

type batchKey struct {
	pipeline Pipeline
	material resources.MaterialRenderID
	model    resources.ModelRenderID
}

func compareIndex(a, b containers.Index) int {
	if c := cmp.Compare(a.Slot, b.Slot); c != 0 {
		return c
	}
	return cmp.Compare(a.Generation, b.Generation)
}

func compareKeys(a, b batchKey) int {
	if c := cmp.Compare(a.pipeline, b.pipeline); c != 0 {
		return c
	}
	if c := compareIndex(a.material.Index, b.material.Index); c != 0 {
		return c
	}
	return compareIndex(a.model.Index, b.model.Index)
}

// batch groups the visible nodes. Nodes are visited in scene order, so the
// instance lists are deterministic as well as the batch order.
func batch(draws *MeshDrawSnapshot, visible []visibleNode, reg *resources.Registry, st *store.GameAssetStore) {
	groups := map[batchKey][][]scene.NodeID{}
	for _, v := range visible {
		if !v.ok {
			continue
		}
		n := len(v.model.Manifest.Submeshes)
		for i := 0; i < n; i++ {
			mat, ok := resources.RenderReady(reg, st.SubmeshMaterial(v.model, i).ID())
			if !ok {
				continue
			}
			key := batchKey{pipeline: v.kind, material: resources.MaterialRenderID{Index: mat}, model: v.render}
			subs, ok := groups[key]
			if !ok {
				subs = make([][]scene.NodeID, n)
			}
			subs[i] = append(subs[i], v.id)
			groups[key] = subs
		}
	}

	keys := make([]batchKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)

	for i, k := range keys {
		newMaterial := i == 0 || keys[i-1].pipeline != k.pipeline || keys[i-1].material != k.material
		if newMaterial {
			if i > 0 && keys[i-1].pipeline != k.pipeline {
				closePipeline(draws, keys[i-1].pipeline)
			}
			draws.MaterialBatches = append(draws.MaterialBatches, MaterialBatch{
				Material:  k.material,
				MeshRange: Range{Start: len(draws.MeshBatches), End: len(draws.MeshBatches)},
			})
		}
		start := len(draws.SubmeshBatches)
		for sub, instances := range groups[k] {
			if len(instances) == 0 {
				continue
			}
			draws.SubmeshBatches = append(draws.SubmeshBatches, SubmeshBatch{Instances: instances, SubmeshIndex: sub})
		}
		draws.MeshBatches = append(draws.MeshBatches, MeshBatch{
			Model:        k.model,
			SubmeshRange: Range{Start: start, End: len(draws.SubmeshBatches)},
		})
		draws.MaterialBatches[len(draws.MaterialBatches)-1].MeshRange.End = len(draws.MeshBatches)
	}
	if len(keys) > 0 {
		closePipeline(draws, keys[len(keys)-1].pipeline)
	}
}

// closePipeline records the material batches appended since the previous
// pipeline was closed.
func closePipeline(draws *MeshDrawSnapshot, p Pipeline) {
	start := max(draws.StaticBatch.End, draws.SkinnedBatch.End)
	r := Range{Start: start, End: len(draws.MaterialBatches)}
	if p == PIPELINE_SKINNED {
		draws.SkinnedBatch = r
	} else {
		draws.StaticBatch = r
	}
}
