package granary

// EntityPart is one contribution to an entity bundle: a component value or a
// tag value. Parts are produced by ComponentType.With and TagType.With.
type EntityPart interface {
	addToBundle(b *bundle)
}

// ComponentIdentifier is satisfied by any typed component handle.
type ComponentIdentifier interface {
	componentTypeID() ComponentTypeID
}

// TagIdentifier is satisfied by any typed tag handle.
type TagIdentifier interface {
	tagTypeID() TagTypeID
}

type bundle struct {
	comps []componentValue
	tags  []tagValue
}

type componentValue struct {
	id    ComponentTypeID
	value any
}

type tagValue struct {
	id    TagTypeID
	value any
}

// ComponentType is a typed handle for a registered component type. Handles
// for the same Go type share one ComponentTypeID process-wide.
type ComponentType[T any] struct {
	id ComponentTypeID
}

// FactoryNewComponent registers T as a component type and returns its handle
func FactoryNewComponent[T any]() ComponentType[T] {
	return ComponentType[T]{id: registerComponent[T](mainSchema)}
}

func (c ComponentType[T]) componentTypeID() ComponentTypeID { return c.id }

// TypeID returns the component's stable identifier.
func (c ComponentType[T]) TypeID() ComponentTypeID { return c.id }

// With binds a value to the component type for use in Spawn or Insert.
func (c ComponentType[T]) With(v T) EntityPart {
	return componentPart{componentValue{id: c.id, value: v}}
}

type componentPart struct {
	cv componentValue
}

func (p componentPart) addToBundle(b *bundle) {
	b.comps = append(b.comps, p.cv)
}

// Get returns a read-only pointer to the entity's component value.
func (c ComponentType[T]) Get(w *World, e Entity) (*T, error) {
	loc, err := w.alloc.get(e)
	if err != nil {
		return nil, err
	}
	arch := w.archetypeByID(loc.Archetype)
	v, ok := arch.get(loc.Set, loc.Row, c.id)
	if !ok {
		return nil, MissingComponentError{TypeName: mainSchema.componentInfo(c.id).name}
	}
	return v.(*T), nil
}

// Mut returns a mutable pointer to the entity's component value, recording a
// mutation in the column's markers and version.
func (c ComponentType[T]) Mut(w *World, e Entity) (*T, error) {
	loc, err := w.alloc.get(e)
	if err != nil {
		return nil, err
	}
	arch := w.archetypeByID(loc.Archetype)
	col, slot, ok := arch.columnAt(loc.Set, loc.Row, c.id)
	if !ok {
		return nil, MissingComponentError{TypeName: mainSchema.componentInfo(c.id).name}
	}
	col.markMutated(slot)
	return col.getAny(slot).(*T), nil
}

// GetFromCursor returns a read-only pointer to the component value at the
// cursor position, or nil if the type is absent from the current archetype.
func (c ComponentType[T]) GetFromCursor(cursor *Cursor) *T {
	col, slot, ok := cursor.currentColumn(c.id)
	if !ok {
		return nil
	}
	return col.getAny(slot).(*T)
}

// MutFromCursor is GetFromCursor plus mutation tracking.
func (c ComponentType[T]) MutFromCursor(cursor *Cursor) *T {
	col, slot, ok := cursor.currentColumn(c.id)
	if !ok {
		return nil
	}
	col.markMutated(slot)
	return col.getAny(slot).(*T)
}

// CheckCursor determines if the component exists in the archetype at the
// cursor position
func (c ComponentType[T]) CheckCursor(cursor *Cursor) bool {
	_, _, ok := cursor.currentColumn(c.id)
	return ok
}

// Slice returns the chunk's column for this component as a typed slice, in
// row order. Intended for read-only chunk iteration; no mutation is recorded.
func (c ComponentType[T]) Slice(ch *Chunk) []T {
	col, ok := ch.column(c.id)
	if !ok {
		return nil
	}
	return col.(*typedColumn[T]).data
}

// MutSlice is Slice plus a version stamp on the column. Per-row markers are
// not set; chunk-level change detection still observes the write.
func (c ComponentType[T]) MutSlice(ch *Chunk) []T {
	col, ok := ch.column(c.id)
	if !ok {
		return nil
	}
	col.stamp()
	return col.(*typedColumn[T]).data
}

// TagType is a typed handle for a registered tag type. Tag values are shared
// per chunkset rather than stored per row.
type TagType[T comparable] struct {
	id TagTypeID
}

// FactoryNewTag registers T as a tag type and returns its handle
func FactoryNewTag[T comparable]() TagType[T] {
	return TagType[T]{id: registerTag[T](mainSchema)}
}

func (t TagType[T]) tagTypeID() TagTypeID { return t.id }

// TypeID returns the tag's stable identifier.
func (t TagType[T]) TypeID() TagTypeID { return t.id }

// With binds a value to the tag type for use in Spawn.
func (t TagType[T]) With(v T) EntityPart {
	return tagPart{tagValue{id: t.id, value: v}}
}

type tagPart struct {
	tv tagValue
}

func (p tagPart) addToBundle(b *bundle) {
	b.tags = append(b.tags, p.tv)
}

// Get returns the entity's tag value.
func (t TagType[T]) Get(w *World, e Entity) (T, error) {
	var zero T
	loc, err := w.alloc.get(e)
	if err != nil {
		return zero, err
	}
	arch := w.archetypeByID(loc.Archetype)
	idx, ok := arch.tagIndex[t.id]
	if !ok {
		return zero, MissingTagError{TypeName: mainSchema.tagInfo(t.id).name}
	}
	return arch.chunksets[loc.Set].tagValue(idx).(T), nil
}

// FromCursor returns the tag value shared by the cursor's current chunkset.
func (t TagType[T]) FromCursor(cursor *Cursor) (T, bool) {
	var zero T
	arch, set := cursor.currentSet()
	idx, ok := arch.tagIndex[t.id]
	if !ok {
		return zero, false
	}
	return arch.chunksets[set].tagValue(idx).(T), true
}
