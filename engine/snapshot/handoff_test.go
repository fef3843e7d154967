package snapshot

import (
	"sync"
	"testing"
	"time"
)

func TestHandoffStartsWithInit(t *testing.T) {
	init := Empty()
	h := NewSnapshotHandoff(init)
	pair := h.Load()
	if pair.Prev != init || pair.Curr != init || pair.Generation != 0 {
		t.Errorf("initial pair = %+v", pair)
	}
}

func TestHandoffPublishRotates(t *testing.T) {
	h := NewSnapshotHandoff(Empty())
	a := &RenderSnapshot{FrameIndex: 1}
	b := &RenderSnapshot{FrameIndex: 2}

	h.Publish(a)
	h.Publish(b)
	pair := h.Load()
	if pair.Prev != a || pair.Curr != b || pair.Generation != 2 {
		t.Errorf("pair = prev %d curr %d gen %d", pair.Prev.FrameIndex, pair.Curr.FrameIndex, pair.Generation)
	}
	if pair.CurrTimestamp.Before(pair.PrevTimestamp) {
		t.Error("timestamps out of order")
	}
}

func TestHandoffReadersSeeConsistentPairs(t *testing.T) {
	const publishes = 2000
	h := NewSnapshotHandoff(&RenderSnapshot{})

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan string, 4)
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				p := h.Load()
				if uint64(p.Curr.FrameIndex) != p.Generation {
					errs <- "curr does not match generation"
					return
				}
				if p.Generation > 0 && p.Prev.FrameIndex+1 != p.Curr.FrameIndex {
					errs <- "prev and curr are not adjacent"
					return
				}
			}
		}()
	}

	for i := 1; i <= publishes; i++ {
		h.Publish(&RenderSnapshot{FrameIndex: uint32(i)})
	}
	close(stop)
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}
	if h.Load().Generation != publishes {
		t.Errorf("generation = %d", h.Load().Generation)
	}
}

func TestAlpha(t *testing.T) {
	base := time.Unix(100, 0)
	pair := &SnapshotPair{CurrTimestamp: base}
	tick := 20 * time.Millisecond

	tests := []struct {
		now  time.Time
		want float32
	}{
		{base, 0},
		{base.Add(10 * time.Millisecond), 0.5},
		{base.Add(time.Second), 1},
		{base.Add(-time.Second), 0},
	}
	for _, tt := range tests {
		got := pair.Alpha(tt.now, tick)
		if got < tt.want-1e-4 || got > tt.want+1e-4 {
			t.Errorf("Alpha(%v) = %v, want %v", tt.now.Sub(base), got, tt.want)
		}
	}
	if pair.Alpha(base, 0) != 1 {
		t.Error("zero tick must not interpolate")
	}
}
