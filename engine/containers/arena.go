package containers

import "fmt"

// Index addresses a slot in an Arena. The generation detects stale indices:
// once a slot is removed and reused, indices pointing at the old occupant no
// longer resolve.
type Index struct {
	Slot       uint32
	Generation uint32
}

// String renders the index for logs.
func (i Index) String() string {
	return fmt.Sprintf("%d:%d", i.Slot, i.Generation)
}

type arenaSlot[T any] struct {
	value      T
	generation uint32
	occupied   bool
}

// Arena is a generational arena. It is not safe for concurrent use; every
// arena in the engine has a single owning goroutine.
type Arena[T any] struct {
	slots []arenaSlot[T]
	free  []uint32
	count int
}

// NewArena creates an empty arena with room for capacity values.
func NewArena[T any](capacity int) *Arena[T] {
	return &Arena[T]{
		slots: make([]arenaSlot[T], 0, capacity),
	}
}

// Insert stores the value, recycling a free slot when one exists.
func (a *Arena[T]) Insert(value T) Index {
	var slot uint32
	if n := len(a.free); n > 0 {
		slot = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		slot = uint32(len(a.slots))
		a.slots = append(a.slots, arenaSlot[T]{})
	}

	s := &a.slots[slot]
	s.generation++
	s.value = value
	s.occupied = true
	a.count++

	return Index{Slot: slot, Generation: s.generation}
}

// Get returns a pointer to the stored value, or false if the index is stale.
func (a *Arena[T]) Get(idx Index) (*T, bool) {
	if int(idx.Slot) >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[idx.Slot]
	if !s.occupied || s.generation != idx.Generation {
		return nil, false
	}
	return &s.value, true
}

// Contains reports whether idx resolves to a live value.
func (a *Arena[T]) Contains(idx Index) bool {
	_, ok := a.Get(idx)
	return ok
}

// Remove evicts the value at idx. The slot's generation is bumped on the next
// insert, so idx becomes stale.
func (a *Arena[T]) Remove(idx Index) (T, bool) {
	var zero T
	if !a.Contains(idx) {
		return zero, false
	}
	s := &a.slots[idx.Slot]
	value := s.value
	s.value = zero
	s.occupied = false
	a.free = append(a.free, idx.Slot)
	a.count--
	return value, true
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int {
	return a.count
}

// Each visits every live value in slot order.
func (a *Arena[T]) Each(fn func(Index, *T)) {
	for i := range a.slots {
		s := &a.slots[i]
		if s.occupied {
			fn(Index{Slot: uint32(i), Generation: s.generation}, &s.value)
		}
	}
}
