package granary

import (
	"slices"
	"sync/atomic"

	"github.com/TheBitDrifter/mask"
	iter_util "github.com/TheBitDrifter/util/iter"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

var _ Storage = &World{}

// World is the archetype index. It maps type-set fingerprints to archetypes,
// owns the entity allocator, and exposes the mutation and query surfaces.
//
// Mutating calls (Spawn, Despawn, Insert, Remove) require exclusive access.
// Read-only queries may run concurrently.
type World struct {
	alloc         *allocator
	archetypes    archetypes
	generation    atomic.Uint64
	journal       *removalJournal
	chunkCapacity int
	logger        *zap.Logger
	emptyID       ArchetypeID
}

type archetypes struct {
	asSlice          []*archetype
	idsByFingerprint map[mask.Mask]ArchetypeID
}

func newWorld() *World {
	w := &World{
		alloc: newAllocator(),
		archetypes: archetypes{
			idsByFingerprint: make(map[mask.Mask]ArchetypeID),
		},
		journal:       newRemovalJournal(),
		chunkCapacity: Config.chunkCapacity,
		logger:        Config.logger,
	}
	// Reserved ids land here once flushed.
	empty := w.findOrCreateArchetype(nil, nil)
	empty.findOrCreateSet(nil)
	w.emptyID = empty.id
	return w
}

// Generation returns the topology generation counter. It increments whenever
// an archetype is created, letting external schedulers cheaply detect that the
// storage shape changed since their last conflict-graph computation.
func (w *World) Generation() uint64 {
	return w.generation.Load()
}

func (w *World) archetypeByID(id ArchetypeID) *archetype {
	return w.archetypes.asSlice[id]
}

func (w *World) findOrCreateArchetype(componentTypes []ComponentTypeID, tagTypes []TagTypeID) *archetype {
	var fp mask.Mask
	for _, ct := range componentTypes {
		fp.Mark(mainSchema.componentBit(ct))
	}
	for _, tt := range tagTypes {
		fp.Mark(mainSchema.tagBit(tt))
	}
	if id, found := w.archetypes.idsByFingerprint[fp]; found {
		return w.archetypes.asSlice[id]
	}
	created := newArchetype(ArchetypeID(len(w.archetypes.asSlice)), componentTypes, tagTypes, w.chunkCapacity)
	created.fingerprint = fp
	w.archetypes.asSlice = append(w.archetypes.asSlice, created)
	w.archetypes.idsByFingerprint[fp] = created.id
	gen := w.generation.Add(1)
	w.logger.Debug("created archetype",
		zap.Uint32("archetype", uint32(created.id)),
		zap.Int("components", len(componentTypes)),
		zap.Int("tags", len(tagTypes)),
		zap.Uint64("topology_generation", gen),
	)
	return created
}

// Reserve hands out an entity handle without exclusive access. The handle
// joins the zero-component archetype at the next Flush; until then it cannot
// be used for storage access.
func (w *World) Reserve() Entity {
	return w.alloc.reserve()
}

// Flush converts outstanding reservations into tracked entities in the
// zero-component archetype. Mutating calls flush implicitly.
func (w *World) Flush() {
	if !w.alloc.hasPending() {
		return
	}
	empty := w.archetypeByID(w.emptyID)
	n := 0
	w.alloc.flush(func(e Entity) {
		row := empty.allocate(0, e)
		w.alloc.setLocation(e.ID, Location{Archetype: empty.id, Set: 0, Row: row})
		n++
	})
	w.logger.Debug("flushed reserved entities", zap.Int("count", n))
}

// Spawn creates an entity from the bundle, finding or creating the owning
// archetype and chunkset, and writes the component values.
func (w *World) Spawn(parts ...EntityPart) (Entity, error) {
	w.Flush()
	b, err := newBundle(parts)
	if err != nil {
		return Entity{}, err
	}
	arch := w.findOrCreateArchetype(b.componentIDs(), b.tagIDs())
	set := arch.findOrCreateSet(b.tagValues())
	e := w.alloc.alloc()
	row := arch.allocate(set, e)
	for _, cv := range b.comps {
		arch.put(set, row, cv.id, cv.value, true)
	}
	w.alloc.setLocation(e.ID, Location{Archetype: arch.id, Set: set, Row: row})
	return e, nil
}

// Despawn frees the entity's row via swap-remove and recycles its id,
// journaling the removed component types.
func (w *World) Despawn(e Entity) error {
	w.Flush()
	loc, err := w.alloc.freeEntity(e)
	if err != nil {
		return err
	}
	arch := w.archetypeByID(loc.Archetype)
	for _, ct := range arch.componentTypes {
		w.journal.record(ct, e)
	}
	if swapped, ok := arch.removeRow(loc.Set, loc.Row, nil); ok {
		w.alloc.setLocation(swapped.ID, loc)
	}
	return nil
}

// Insert adds component values to an entity, overwriting values for types the
// entity already has and relocating the row when new types are required.
// Tags are fixed at spawn; tag parts are rejected.
func (w *World) Insert(e Entity, parts ...EntityPart) error {
	w.Flush()
	b, err := newBundle(parts)
	if err != nil {
		return err
	}
	if len(b.tags) > 0 {
		return eris.New("tags are fixed at spawn and cannot be inserted")
	}
	loc, err := w.alloc.get(e)
	if err != nil {
		return err
	}
	src := w.archetypeByID(loc.Archetype)

	var fresh []componentValue
	for _, cv := range b.comps {
		if src.hasComponent(cv.id) {
			src.put(loc.Set, loc.Row, cv.id, cv.value, false)
		} else {
			fresh = append(fresh, cv)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	dst := w.insertTarget(src, fresh)
	newLoc := w.migrate(e, loc, src, dst)
	for _, cv := range fresh {
		dst.put(newLoc.Set, newLoc.Row, cv.id, cv.value, true)
	}
	return nil
}

// Remove strips component types from an entity, relocating the row and
// dropping the removed values. Fails with MissingComponentError if any named
// type is absent.
func (w *World) Remove(e Entity, comps ...ComponentIdentifier) error {
	w.Flush()
	loc, err := w.alloc.get(e)
	if err != nil {
		return err
	}
	src := w.archetypeByID(loc.Archetype)
	for _, c := range comps {
		if !src.hasComponent(c.componentTypeID()) {
			return MissingComponentError{TypeName: mainSchema.componentInfo(c.componentTypeID()).name}
		}
	}

	dst := w.removeTarget(src, comps)
	w.migrate(e, loc, src, dst)
	for _, c := range comps {
		w.journal.record(c.componentTypeID(), e)
	}
	return nil
}

// insertTarget resolves the archetype gaining the fresh component types,
// consulting the single-type edge cache on the hot path.
func (w *World) insertTarget(src *archetype, fresh []componentValue) *archetype {
	if len(fresh) == 1 {
		key := uint64(fresh[0].id) << 1
		if id, ok := src.edges.Get(key); ok {
			return w.archetypeByID(id)
		}
		dst := w.findOrCreateArchetype(append(slices.Clone(src.componentTypes), fresh[0].id), src.tagTypes)
		src.edges.Put(key, dst.id)
		return dst
	}
	combined := slices.Clone(src.componentTypes)
	for _, cv := range fresh {
		combined = append(combined, cv.id)
	}
	return w.findOrCreateArchetype(combined, src.tagTypes)
}

func (w *World) removeTarget(src *archetype, comps []ComponentIdentifier) *archetype {
	if len(comps) == 1 {
		key := uint64(comps[0].componentTypeID())<<1 | 1
		if id, ok := src.edges.Get(key); ok {
			return w.archetypeByID(id)
		}
		dst := w.findOrCreateArchetype(withoutTypes(src.componentTypes, comps), src.tagTypes)
		src.edges.Put(key, dst.id)
		return dst
	}
	return w.findOrCreateArchetype(withoutTypes(src.componentTypes, comps), src.tagTypes)
}

func withoutTypes(types []ComponentTypeID, comps []ComponentIdentifier) []ComponentTypeID {
	kept := make([]ComponentTypeID, 0, len(types))
	for _, ct := range types {
		drop := false
		for _, c := range comps {
			if c.componentTypeID() == ct {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, ct)
		}
	}
	return kept
}

// migrate relocates an entity between archetypes: shared-type values move
// bit-for-bit, types absent in the target are dropped, and newly required
// types stay uninitialized until written. The entity swapped into the vacated
// source row gets its Location fixed up.
func (w *World) migrate(e Entity, loc Location, src, dst *archetype) Location {
	srcSet := src.chunksets[loc.Set]
	values := make([]any, len(dst.tagTypes))
	for i, tt := range dst.tagTypes {
		values[i] = srcSet.tags[src.tagIndex[tt]]
	}
	set := dst.findOrCreateSet(values)
	row := dst.allocate(set, e)
	dstChunk, dstSlot := dst.chunkAt(set, row)

	swapped, ok := src.removeRow(loc.Set, loc.Row, func(col column, slot int) {
		if idx, has := dst.colIndex[col.typeID()]; has {
			dcol := dstChunk.columns[idx]
			dcol.transfer(col, slot, dstSlot)
			dcol.stamp()
		}
	})
	if ok {
		w.alloc.setLocation(swapped.ID, loc)
	}
	newLoc := Location{Archetype: dst.id, Set: set, Row: row}
	w.alloc.setLocation(e.ID, newLoc)
	return newLoc
}

// Location returns the entity's current storage address.
func (w *World) Location(e Entity) (Location, error) {
	return w.alloc.get(e)
}

// ClearTrackers resets per-row added/mutated markers across all archetypes.
// Run once per tick. Monotonic column versions are untouched, so
// change-detection filters keep working across ticks.
func (w *World) ClearTrackers() {
	for _, arch := range w.archetypes.asSlice {
		arch.clearTrackers()
	}
}

// DrainRemoved consumes the removal journal for one component type: the
// entities whose component of that type was removed (or despawned with it)
// since the last drain.
func (w *World) DrainRemoved(c ComponentIdentifier) []Entity {
	drained := w.journal.drain(c.componentTypeID())
	if len(drained) > 0 {
		w.logger.Debug("drained removal journal",
			zap.String("component", mainSchema.componentInfo(c.componentTypeID()).name),
			zap.Int("count", len(drained)),
		)
	}
	return drained
}

// Query constructs a cursor over entities matching the filter. Read-only;
// safe to run concurrently with other read-only queries.
func (w *World) Query(f Filter) *Cursor {
	return newCursor(f, w)
}

// CollectEntities runs the filter to completion and returns every matching
// entity handle.
func (w *World) CollectEntities(f Filter) []Entity {
	cursor := newCursor(f, w)
	return iter_util.Collect(cursor.Entities())
}

// QueryMut constructs a cursor whose typed accessors may mutate component
// data. The caller must guarantee exclusive access to the component types it
// writes; granary performs no aliasing checks on this path.
func (w *World) QueryMut(f Filter) *Cursor {
	return newCursor(f, w)
}

// newBundle canonicalizes parts: values sorted by type id, duplicates
// rejected.
func newBundle(parts []EntityPart) (*bundle, error) {
	b := &bundle{}
	for _, p := range parts {
		p.addToBundle(b)
	}
	slices.SortFunc(b.comps, func(a, c componentValue) int {
		return int(a.id) - int(c.id)
	})
	slices.SortFunc(b.tags, func(a, c tagValue) int {
		return int(a.id) - int(c.id)
	})
	for i := 1; i < len(b.comps); i++ {
		if b.comps[i].id == b.comps[i-1].id {
			return nil, eris.Errorf("duplicate component in bundle: %s", mainSchema.componentInfo(b.comps[i].id).name)
		}
	}
	for i := 1; i < len(b.tags); i++ {
		if b.tags[i].id == b.tags[i-1].id {
			return nil, eris.Errorf("duplicate tag in bundle: %s", mainSchema.tagInfo(b.tags[i].id).name)
		}
	}
	return b, nil
}

func (b *bundle) componentIDs() []ComponentTypeID {
	ids := make([]ComponentTypeID, len(b.comps))
	for i, cv := range b.comps {
		ids[i] = cv.id
	}
	return ids
}

func (b *bundle) tagIDs() []TagTypeID {
	ids := make([]TagTypeID, len(b.tags))
	for i, tv := range b.tags {
		ids[i] = tv.id
	}
	return ids
}

func (b *bundle) tagValues() []any {
	values := make([]any, len(b.tags))
	for i, tv := range b.tags {
		values[i] = tv.value
	}
	return values
}
