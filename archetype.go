package granary

import (
	"slices"

	"github.com/TheBitDrifter/mask"
	"github.com/kamstrup/intmap"
)

// archetype stores every entity sharing one canonical set of component and
// tag types. Rows live in chunksets partitioned by tag values; each chunkset
// is split into fixed-capacity chunks.
type archetype struct {
	id             ArchetypeID
	fingerprint    mask.Mask
	componentTypes []ComponentTypeID // sorted
	tagTypes       []TagTypeID       // sorted
	colIndex       map[ComponentTypeID]int
	tagIndex       map[TagTypeID]int
	chunkCapacity  int
	chunksets      []*chunkset

	// edges caches single-type add/remove transitions to other archetypes,
	// keyed by typeID<<1|removeBit.
	edges *intmap.Map[uint64, ArchetypeID]
}

func newArchetype(id ArchetypeID, componentTypes []ComponentTypeID, tagTypes []TagTypeID, chunkCapacity int) *archetype {
	componentTypes = slices.Clone(componentTypes)
	tagTypes = slices.Clone(tagTypes)
	slices.Sort(componentTypes)
	slices.Sort(tagTypes)

	a := &archetype{
		id:             id,
		componentTypes: componentTypes,
		tagTypes:       tagTypes,
		colIndex:       make(map[ComponentTypeID]int, len(componentTypes)),
		tagIndex:       make(map[TagTypeID]int, len(tagTypes)),
		chunkCapacity:  chunkCapacity,
		edges:          intmap.New[uint64, ArchetypeID](4),
	}
	for i, ct := range componentTypes {
		a.colIndex[ct] = i
		a.fingerprint.Mark(mainSchema.componentBit(ct))
	}
	for i, tt := range tagTypes {
		a.tagIndex[tt] = i
		a.fingerprint.Mark(mainSchema.tagBit(tt))
	}
	return a
}

// ID returns the archetype's creation-order identifier.
func (a *archetype) ID() ArchetypeID {
	return a.id
}

func (a *archetype) hasComponent(id ComponentTypeID) bool {
	_, ok := a.colIndex[id]
	return ok
}

func (a *archetype) hasTag(id TagTypeID) bool {
	_, ok := a.tagIndex[id]
	return ok
}

func (a *archetype) length() int {
	total := 0
	for _, cs := range a.chunksets {
		total += cs.rows
	}
	return total
}

// findOrCreateSet locates the chunkset whose tag tuple equals values, creating
// it on first use. values must be ordered like a.tagTypes.
func (a *archetype) findOrCreateSet(values []any) int {
	for i, cs := range a.chunksets {
		if a.tagsEqual(cs.tags, values) {
			return i
		}
	}
	a.chunksets = append(a.chunksets, &chunkset{tags: slices.Clone(values)})
	return len(a.chunksets) - 1
}

func (a *archetype) tagsEqual(stored, values []any) bool {
	for i, tt := range a.tagTypes {
		if !mainSchema.tagInfo(tt).equal(stored[i], values[i]) {
			return false
		}
	}
	return true
}

// allocate appends a row for e to the given chunkset, growing into a new
// chunk when the last one is full. Columns gain an uninitialized slot; values
// stay unwritten until put records them.
func (a *archetype) allocate(set int, e Entity) int {
	cs := a.chunksets[set]
	var ch *Chunk
	if n := len(cs.chunks); n > 0 && len(cs.chunks[n-1].entities) < a.chunkCapacity {
		ch = cs.chunks[n-1]
	} else {
		ch = a.newChunk(cs, set)
		cs.chunks = append(cs.chunks, ch)
	}
	ch.entities = append(ch.entities, e)
	for _, col := range ch.columns {
		col.appendZero()
	}
	row := cs.rows
	cs.rows++
	return row
}

func (a *archetype) newChunk(cs *chunkset, setIdx int) *Chunk {
	ch := &Chunk{
		arch:    a,
		set:     cs,
		setIdx:  setIdx,
		columns: make([]column, len(a.componentTypes)),
	}
	for i, ct := range a.componentTypes {
		ch.columns[i] = mainSchema.componentInfo(ct).newColumn()
	}
	return ch
}

// chunkAt resolves a chunkset row to its owning chunk and in-chunk slot.
func (a *archetype) chunkAt(set, row int) (*Chunk, int) {
	cs := a.chunksets[set]
	return cs.chunks[row/a.chunkCapacity], row % a.chunkCapacity
}

// put writes a type-erased value into the column for typeID, bumping the
// added marker if isNew, else mutated.
func (a *archetype) put(set, row int, typeID ComponentTypeID, v any, isNew bool) bool {
	idx, ok := a.colIndex[typeID]
	if !ok {
		return false
	}
	ch, slot := a.chunkAt(set, row)
	ch.columns[idx].setAny(slot, v, isNew)
	return true
}

// get returns a pointer to the value in the column for typeID, or false if
// the type is absent from this archetype.
func (a *archetype) get(set, row int, typeID ComponentTypeID) (any, bool) {
	idx, ok := a.colIndex[typeID]
	if !ok {
		return nil, false
	}
	ch, slot := a.chunkAt(set, row)
	return ch.columns[idx].getAny(slot), true
}

// columnAt resolves a row to its column and in-chunk slot for typeID.
func (a *archetype) columnAt(set, row int, typeID ComponentTypeID) (column, int, bool) {
	idx, ok := a.colIndex[typeID]
	if !ok {
		return nil, 0, false
	}
	ch, slot := a.chunkAt(set, row)
	return ch.columns[idx], slot, true
}

// removeRow removes (set, row) via swap-with-last. visit, when non-nil, runs
// for each column before the swap so a caller can copy values into a target
// archetype. Returns the entity swapped into the vacated row, if any, for
// Location fixup.
func (a *archetype) removeRow(set, row int, visit func(col column, slot int)) (Entity, bool) {
	cs := a.chunksets[set]
	ch, slot := a.chunkAt(set, row)

	if visit != nil {
		for _, col := range ch.columns {
			visit(col, slot)
		}
	}

	lastRow := cs.rows - 1
	lastChunk, lastSlot := a.chunkAt(set, lastRow)

	var swapped Entity
	var hasSwapped bool
	if lastRow != row {
		swapped = lastChunk.entities[lastSlot]
		hasSwapped = true
		ch.entities[slot] = swapped
		for i := range ch.columns {
			ch.columns[i].transfer(lastChunk.columns[i], lastSlot, slot)
		}
	}

	lastChunk.entities = lastChunk.entities[:lastSlot]
	for _, col := range lastChunk.columns {
		col.pop()
	}
	cs.rows--
	if len(lastChunk.entities) == 0 && len(cs.chunks) > 1 {
		cs.chunks = cs.chunks[:len(cs.chunks)-1]
	}
	return swapped, hasSwapped
}

// clearTrackers resets per-row added/mutated markers. Monotonic column
// versions are left untouched.
func (a *archetype) clearTrackers() {
	for _, cs := range a.chunksets {
		for _, ch := range cs.chunks {
			for _, col := range ch.columns {
				col.clearTrackers()
			}
		}
	}
}
