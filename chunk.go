package granary

// Chunk is a fixed-capacity run of rows within a chunkset. Each chunk owns its
// own component columns, so change-detection versions are tracked at chunk
// granularity.
type Chunk struct {
	arch     *archetype
	set      *chunkset
	setIdx   int
	entities []Entity
	columns  []column // ordered as arch.componentTypes
}

// Len returns the number of rows currently stored in the chunk.
func (ch *Chunk) Len() int {
	return len(ch.entities)
}

// Entities returns the entities stored in the chunk, in row order. The slice
// is owned by the chunk; callers must not mutate it.
func (ch *Chunk) Entities() []Entity {
	return ch.entities
}

func (ch *Chunk) column(id ComponentTypeID) (column, bool) {
	idx, ok := ch.arch.colIndex[id]
	if !ok {
		return nil, false
	}
	return ch.columns[idx], true
}

// chunkset groups the rows of an archetype that share identical tag values.
// Tag values are stored once per chunkset, not per row.
type chunkset struct {
	tags   []any // by arch.tagTypes order
	chunks []*Chunk
	rows   int
}

func (cs *chunkset) tagValue(idx int) any {
	return cs.tags[idx]
}
