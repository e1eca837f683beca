package granary

import (
	"sync"
	"sync/atomic"
)

// Entity is a lightweight generational handle. It owns no data directly; a
// handle is valid only while its generation matches the allocator's current
// generation for that id.
type Entity struct {
	ID         uint32
	Generation uint32
}

// ArchetypeID identifies an archetype within a world. IDs follow creation
// order and are never reused.
type ArchetypeID uint32

// Location is an entity's current storage address. The chunk holding the row
// is derived from Row and the chunk capacity.
type Location struct {
	Archetype ArchetypeID
	Set       int // chunkset index within the archetype
	Row       int // row index within the chunkset
}

// allocator issues and recycles entity ids. Reservation is safe from multiple
// goroutines; everything else requires exclusive access.
//
// Reserved ids are handed out from the tail of the free list via an atomic
// cursor, falling back to a fresh-id counter once the list is exhausted. A
// flush converts outstanding reservations into tracked entities.
type allocator struct {
	mu          sync.Mutex
	generations []uint32
	alive       []bool
	locations   []Location
	free        []uint32
	freeCursor  atomic.Int64
	next        atomic.Int64
	flushedNext int64
}

func newAllocator() *allocator {
	return &allocator{}
}

// reserve hands out an entity id without the world lock. The returned handle
// is not valid for storage access until the next flush.
func (a *allocator) reserve() Entity {
	n := a.freeCursor.Add(-1)
	if n >= 0 {
		id := a.free[n]
		return Entity{ID: id, Generation: a.generations[id]}
	}
	id := uint32(a.next.Add(1) - 1)
	return Entity{ID: id}
}

// alloc issues a fresh tracked entity. Requires exclusive access and no
// outstanding reservations (callers flush first).
func (a *allocator) alloc() Entity {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.free) > 0 {
		id := a.free[len(a.free)-1]
		a.free = a.free[:len(a.free)-1]
		a.freeCursor.Store(int64(len(a.free)))
		a.alive[id] = true
		return Entity{ID: id, Generation: a.generations[id]}
	}
	id := uint32(a.next.Add(1) - 1)
	a.flushedNext = a.next.Load()
	a.ensure(id)
	a.alive[id] = true
	return Entity{ID: id, Generation: a.generations[id]}
}

// flush materializes reserved ids into tracked entities, invoking place for
// each so the world can put them in the zero-component archetype. place runs
// outside the allocator lock because it writes locations back.
func (a *allocator) flush(place func(Entity)) {
	a.mu.Lock()

	cursor := a.freeCursor.Load()
	if cursor < 0 {
		cursor = 0
	}
	var pending []Entity
	for _, id := range a.free[cursor:] {
		a.alive[id] = true
		pending = append(pending, Entity{ID: id, Generation: a.generations[id]})
	}
	a.free = a.free[:cursor]
	a.freeCursor.Store(int64(len(a.free)))

	next := a.next.Load()
	for id := a.flushedNext; id < next; id++ {
		a.ensure(uint32(id))
		a.alive[id] = true
		pending = append(pending, Entity{ID: uint32(id), Generation: a.generations[id]})
	}
	a.flushedNext = next
	a.mu.Unlock()

	for _, e := range pending {
		place(e)
	}
}

// hasPending reports whether any reservations await a flush.
func (a *allocator) hasPending() bool {
	return a.freeCursor.Load() < int64(len(a.free)) || a.flushedNext < a.next.Load()
}

// freeEntity marks the id free, bumps its generation to invalidate stale
// handles, and returns the entity's last location.
func (a *allocator) freeEntity(e Entity) (Location, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.validLocked(e) {
		return Location{}, NoSuchEntityError{Entity: e}
	}
	loc := a.locations[e.ID]
	a.alive[e.ID] = false
	a.generations[e.ID]++
	a.free = append(a.free, e.ID)
	a.freeCursor.Store(int64(len(a.free)))
	return loc, nil
}

func (a *allocator) get(e Entity) (Location, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.validLocked(e) {
		return Location{}, NoSuchEntityError{Entity: e}
	}
	return a.locations[e.ID], nil
}

func (a *allocator) setLocation(id uint32, loc Location) {
	a.mu.Lock()
	a.locations[id] = loc
	a.mu.Unlock()
}

func (a *allocator) validLocked(e Entity) bool {
	if int(e.ID) >= len(a.generations) {
		return false
	}
	return a.alive[e.ID] && a.generations[e.ID] == e.Generation
}

func (a *allocator) ensure(id uint32) {
	for int(id) >= len(a.generations) {
		a.generations = append(a.generations, 0)
		a.alive = append(a.alive, false)
		a.locations = append(a.locations, Location{})
	}
}
