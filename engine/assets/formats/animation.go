package formats

import (
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

type TargetKind int

const (
	TargetPrimitiveGroup TargetKind = iota
	TargetSkeletonJoint
)

// Target is what a track animates: a primitive group or a skeleton joint.
type Target struct {
	Kind  TargetKind
	Index uint32
}

func (t *Target) UnmarshalJSON(data []byte) error {
	var tagged map[string]uint32
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}
	if len(tagged) != 1 {
		return fmt.Errorf("animation target must have exactly one variant, got %s", string(data))
	}
	for k, v := range tagged {
		switch k {
		case "PrimitiveGroup":
			t.Kind = TargetPrimitiveGroup
		case "SkeletonJoint":
			t.Kind = TargetSkeletonJoint
		default:
			return fmt.Errorf("unknown animation target %q", k)
		}
		t.Index = v
	}
	return nil
}

func (t Target) MarshalJSON() ([]byte, error) {
	name := "PrimitiveGroup"
	if t.Kind == TargetSkeletonJoint {
		name = "SkeletonJoint"
	}
	return json.Marshal(map[string]uint32{name: t.Index})
}

type Interpolation string

const (
	InterpolationLinear      Interpolation = "Linear"
	InterpolationStep        Interpolation = "Step"
	InterpolationCubicSpline Interpolation = "CubicSpline"
)

// BinRef points at Count consecutive elements starting at byte Offset of the
// clip's binary file.
type BinRef struct {
	Offset uint32 `json:"offset"`
	Count  uint32 `json:"count"`
}

type ChannelRef struct {
	// Nil means the track's shared time array.
	Times         *BinRef       `json:"times"`
	Values        BinRef        `json:"values"`
	Interpolation Interpolation `json:"interpolation"`
}

type TrackRef struct {
	Target      Target      `json:"target"`
	SharedTimes *BinRef     `json:"shared_times"`
	Translation *ChannelRef `json:"translation"`
	Rotation    *ChannelRef `json:"rotation"`
	Scale       *ChannelRef `json:"scale"`
}

// AnimationClipManifest is the JSON header of a clip. Sample data lives in
// BinaryPath and is decoded separately.
type AnimationClipManifest struct {
	Duration        float32    `json:"duration"`
	Tracks          []TrackRef `json:"tracks"`
	PrimitiveGroups [][]uint32 `json:"primitive_groups"`
	BinaryPath      string     `json:"binary_path"`
}

type Channel[T any] struct {
	// Nil means Track.SharedTimes.
	Times         []float32
	Values        []T
	Interpolation Interpolation
}

type Track struct {
	Target      Target
	SharedTimes []float32
	Translation *Channel[mgl32.Vec3]
	Rotation    *Channel[mgl32.Quat]
	Scale       *Channel[mgl32.Vec3]
}

// AnimationClip is the decoded runtime clip.
type AnimationClip struct {
	Duration        float32
	Tracks          []Track
	PrimitiveGroups [][]uint32
}
