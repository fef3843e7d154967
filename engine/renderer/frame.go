package renderer

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/anima-assets/engine/scene"
	"github.com/spaghettifunk/anima-assets/engine/snapshot"
)

/**
 * @brief Everything needed to draw one frame, resolved against the GPU
 * store and interpolated between the two latest snapshots.
 */
type FramePacket struct {
	DeltaTime      float64
	Alpha          float32
	Generation     uint64
	Camera         snapshot.CameraSnapshot
	ViewProjection mgl32.Mat4
	Lights         snapshot.LightsSnapshot
	Draws          []DrawCommand
	/** @brief Interpolated playback position per skinned node. */
	AnimationTimes map[scene.NodeID]uint64
	/** @brief Submesh batches dropped because a GPU object was missing. */
	Skipped int
}

func lerpU64(a, b uint64, t float32) uint64 {
	if b < a {
		return a - uint64(float64(a-b)*float64(t))
	}
	return a + uint64(float64(b-a)*float64(t))
}

// instanceMatrices interpolates the transforms of one node's submesh. Nodes
// that did not move this tick or are new since prev are taken from curr.
func instanceMatrices(out []mgl32.Mat4, pair *snapshot.SnapshotPair, id scene.NodeID, submesh int, t float32) []mgl32.Mat4 {
	curr, dirty, ok := pair.Curr.Draws.Transforms(id)
	if !ok || submesh >= len(curr) {
		return out
	}
	var prev []snapshot.TRS
	if dirty {
		if p, _, ok := pair.Prev.Draws.Transforms(id); ok && submesh < len(p) && len(p[submesh]) == len(curr[submesh]) {
			prev = p[submesh]
		}
	}
	for i, trs := range curr[submesh] {
		if prev != nil {
			trs = prev[i].Lerp(trs, t)
		}
		out = append(out, trs.Mat4())
	}
	return out
}

/**
 * @brief Builds the draw list for a snapshot pair at interpolation factor t.
 * Batches reference render ids; any that no longer resolve in gpu are
 * skipped and counted.
 */
func BuildFramePacket(pair *snapshot.SnapshotPair, t float32, gpu *RenderAssetStore) *FramePacket {
	camera := pair.Prev.Camera.Lerp(pair.Curr.Camera, t)
	packet := &FramePacket{
		Alpha:          t,
		Generation:     pair.Generation,
		Camera:         camera,
		ViewProjection: camera.ViewProjection(),
		Lights:         pair.Curr.Lights,
		AnimationTimes: make(map[scene.NodeID]uint64, len(pair.Curr.Draws.SkinnedInstances)),
	}

	for id, inst := range pair.Curr.Draws.SkinnedInstances {
		if inst.Animation == nil {
			continue
		}
		time := inst.Animation.TimeUS
		if p, ok := pair.Prev.Draws.SkinnedInstances[id]; ok && p.Animation != nil {
			time = lerpU64(p.Animation.TimeUS, time, t)
		}
		packet.AnimationTimes[id] = time
	}

	draws := &pair.Curr.Draws
	for _, pipeline := range []snapshot.Pipeline{snapshot.PIPELINE_STATIC, snapshot.PIPELINE_SKINNED} {
		r := draws.Batch(pipeline)
		for _, mb := range draws.MaterialBatches[r.Start:r.End] {
			material, ok := gpu.Material(mb.Material)
			if !ok {
				packet.Skipped += mb.MeshRange.Len()
				continue
			}
			for _, meshBatch := range draws.MeshBatches[mb.MeshRange.Start:mb.MeshRange.End] {
				model, ok := gpu.Model(meshBatch.Model)
				var mesh *MeshGpuData
				if ok {
					mesh, ok = gpu.Mesh(model.Mesh)
				}
				if !ok {
					packet.Skipped += meshBatch.SubmeshRange.Len()
					continue
				}
				for _, sb := range draws.SubmeshBatches[meshBatch.SubmeshRange.Start:meshBatch.SubmeshRange.End] {
					if sb.SubmeshIndex >= len(model.Submeshes) {
						packet.Skipped++
						continue
					}
					sub := model.Submeshes[sb.SubmeshIndex]
					var instances []mgl32.Mat4
					for _, id := range sb.Instances {
						instances = instanceMatrices(instances, pair, id, sb.SubmeshIndex, t)
					}
					packet.Draws = append(packet.Draws, DrawCommand{
						Pipeline:   pipeline,
						Buffer:     mesh.Buffer,
						Material:   material.Binding,
						IndexStart: sub.IndexStart,
						IndexCount: sub.IndexCount(),
						BaseVertex: sub.BaseVertex,
						Instances:  instances,
					})
				}
			}
		}
	}
	return packet
}
