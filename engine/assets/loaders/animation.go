package loaders

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/exp/mmap"

	"github.com/spaghettifunk/anima-assets/engine/assets/formats"
	"github.com/spaghettifunk/anima-assets/engine/core"
)

const (
	f32Size  = 4
	vec3Size = 3 * f32Size
	quatSize = 4 * f32Size
)

// AnimationLoader decodes the binary sample file of a clip. The clip header
// must be passed in Params.
type AnimationLoader struct{}

func (al *AnimationLoader) Load(path string, params Params) (*Resource, error) {
	if params.Header == nil {
		return nil, fmt.Errorf("%w: %s: animation requested without a clip header", core.ErrMalformedAsset, path)
	}

	r, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	clip, err := decodeClip(r, params.Header)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Resource{
		FullPath: path,
		DataSize: uint64(r.Len()),
		Data:     clip,
	}, nil
}

type sampleReader interface {
	ReadAt(p []byte, off int64) (int, error)
	Len() int
}

func decodeClip(r sampleReader, header *formats.AnimationClipManifest) (*formats.AnimationClip, error) {
	clip := &formats.AnimationClip{
		Duration:        header.Duration,
		PrimitiveGroups: header.PrimitiveGroups,
		Tracks:          make([]formats.Track, 0, len(header.Tracks)),
	}

	for i, tr := range header.Tracks {
		track := formats.Track{Target: tr.Target}
		var err error
		if tr.SharedTimes != nil {
			if track.SharedTimes, err = readFloats(r, *tr.SharedTimes); err != nil {
				return nil, fmt.Errorf("track %d shared times: %w", i, err)
			}
		}
		if track.Translation, err = readChannel(r, tr.Translation, track.SharedTimes, readVec3s); err != nil {
			return nil, fmt.Errorf("track %d translation: %w", i, err)
		}
		if track.Rotation, err = readChannel(r, tr.Rotation, track.SharedTimes, readQuats); err != nil {
			return nil, fmt.Errorf("track %d rotation: %w", i, err)
		}
		if track.Scale, err = readChannel(r, tr.Scale, track.SharedTimes, readVec3s); err != nil {
			return nil, fmt.Errorf("track %d scale: %w", i, err)
		}
		clip.Tracks = append(clip.Tracks, track)
	}
	return clip, nil
}

func readChannel[T any](r sampleReader, ref *formats.ChannelRef, shared []float32, values func(sampleReader, formats.BinRef) ([]T, error)) (*formats.Channel[T], error) {
	if ref == nil {
		return nil, nil
	}
	ch := &formats.Channel[T]{Interpolation: ref.Interpolation}
	if ch.Interpolation == "" {
		ch.Interpolation = formats.InterpolationLinear
	}

	keys := len(shared)
	if ref.Times != nil {
		times, err := readFloats(r, *ref.Times)
		if err != nil {
			return nil, err
		}
		ch.Times = times
		keys = len(times)
	} else if shared == nil {
		return nil, fmt.Errorf("%w: channel has no times and track has no shared times", core.ErrMalformedAsset)
	}

	vals, err := values(r, ref.Values)
	if err != nil {
		return nil, err
	}
	want := keys
	if ch.Interpolation == formats.InterpolationCubicSpline {
		want = keys * 3 // in-tangent, value, out-tangent
	}
	if len(vals) != want {
		return nil, fmt.Errorf("%w: %d values for %d keyframes", core.ErrMalformedAsset, len(vals), keys)
	}
	ch.Values = vals
	return ch, nil
}

func readRange(r sampleReader, ref formats.BinRef, stride int) ([]byte, error) {
	end := int64(ref.Offset) + int64(ref.Count)*int64(stride)
	if end > int64(r.Len()) {
		return nil, fmt.Errorf("%w: range %d+%d*%d exceeds file of %d bytes", core.ErrMalformedAsset, ref.Offset, ref.Count, stride, r.Len())
	}
	buf := make([]byte, int(ref.Count)*stride)
	if _, err := r.ReadAt(buf, int64(ref.Offset)); err != nil {
		return nil, err
	}
	return buf, nil
}

func f32At(b []byte, i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[i*f32Size:]))
}

func readFloats(r sampleReader, ref formats.BinRef) ([]float32, error) {
	buf, err := readRange(r, ref, f32Size)
	if err != nil {
		return nil, err
	}
	out := make([]float32, ref.Count)
	for i := range out {
		out[i] = f32At(buf, i)
	}
	return out, nil
}

func readVec3s(r sampleReader, ref formats.BinRef) ([]mgl32.Vec3, error) {
	buf, err := readRange(r, ref, vec3Size)
	if err != nil {
		return nil, err
	}
	out := make([]mgl32.Vec3, ref.Count)
	for i := range out {
		out[i] = mgl32.Vec3{f32At(buf, i*3), f32At(buf, i*3+1), f32At(buf, i*3+2)}
	}
	return out, nil
}

// readQuats reads xyzw quaternions.
func readQuats(r sampleReader, ref formats.BinRef) ([]mgl32.Quat, error) {
	buf, err := readRange(r, ref, quatSize)
	if err != nil {
		return nil, err
	}
	out := make([]mgl32.Quat, ref.Count)
	for i := range out {
		out[i] = mgl32.Quat{
			V: mgl32.Vec3{f32At(buf, i*4), f32At(buf, i*4+1), f32At(buf, i*4+2)},
			W: f32At(buf, i*4+3),
		}
	}
	return out, nil
}
