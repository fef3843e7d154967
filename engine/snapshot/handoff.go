package snapshot

import (
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/anima-assets/engine/math"
)

// SnapshotPair is the last two published snapshots. A pair is never mutated
// after it is published.
type SnapshotPair struct {
	Prev          *RenderSnapshot
	PrevTimestamp time.Time
	Curr          *RenderSnapshot
	CurrTimestamp time.Time
	Generation    uint64
}

/**
 * @brief Interpolation factor between Prev and Curr for a frame drawn at
 * now, assuming snapshots are published every tick. Clamped to [0, 1].
 */
func (p *SnapshotPair) Alpha(now time.Time, tick time.Duration) float32 {
	if tick <= 0 {
		return 1
	}
	t := float32(now.Sub(p.CurrTimestamp)) / float32(tick)
	return math.Clamp(t, 0, 1)
}

/**
 * @brief Hands snapshots from the simulation goroutine to the render
 * goroutine through one atomic pointer. Readers get a (prev, curr) pair
 * that was published together.
 */
type SnapshotHandoff struct {
	pair atomic.Pointer[SnapshotPair]
	now  func() time.Time
}

func NewSnapshotHandoff(init *RenderSnapshot) *SnapshotHandoff {
	h := &SnapshotHandoff{now: time.Now}
	ts := h.now()
	h.pair.Store(&SnapshotPair{
		Prev:          init,
		PrevTimestamp: ts,
		Curr:          init,
		CurrTimestamp: ts,
	})
	return h
}

// Publish makes snap current; the old current becomes prev.
func (h *SnapshotHandoff) Publish(snap *RenderSnapshot) {
	ts := h.now()
	for {
		old := h.pair.Load()
		next := &SnapshotPair{
			Prev:          old.Curr,
			PrevTimestamp: old.CurrTimestamp,
			Curr:          snap,
			CurrTimestamp: ts,
			Generation:    old.Generation + 1,
		}
		if h.pair.CompareAndSwap(old, next) {
			return
		}
	}
}

func (h *SnapshotHandoff) Load() *SnapshotPair {
	return h.pair.Load()
}
