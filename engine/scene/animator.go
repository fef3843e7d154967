package scene

import (
	stdmath "math"

	"github.com/spaghettifunk/anima-assets/engine/resources"
)

type WrapMode uint8

const (
	WRAP_LOOP WrapMode = iota
	WRAP_CLAMP
)

// Animator plays one clip on an animated model. Duration stays zero until the
// simulation copies it from the loaded clip manifest; until then time only
// moves forward.
type Animator struct {
	Clip     *resources.AnimationClipHandle
	TimeSec  float64
	Speed    float32
	Duration float32
	Wrap     WrapMode
}

func NewAnimator(clip *resources.AnimationClipHandle) Animator {
	return Animator{Clip: clip, Speed: 1}
}

func (a *Animator) Advance(dt float32) {
	a.TimeSec += float64(dt * a.Speed)
	if a.Duration <= 0 {
		return
	}
	d := float64(a.Duration)
	switch a.Wrap {
	case WRAP_LOOP:
		a.TimeSec = stdmath.Mod(a.TimeSec, d)
		if a.TimeSec < 0 {
			a.TimeSec += d
		}
	case WRAP_CLAMP:
		a.TimeSec = stdmath.Max(0, stdmath.Min(a.TimeSec, d))
	}
}

// TimeMicros is the playback position in microseconds, the unit poses are
// interpolated in.
func (a *Animator) TimeMicros() uint64 {
	if a.TimeSec <= 0 {
		return 0
	}
	return uint64(a.TimeSec * 1e6)
}
