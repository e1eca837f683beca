package granary

import "iter"

// Cursor drives a filter across a world, narrowing archetypes, then
// chunksets, then chunks, and exposing the surviving rows. Iteration order is
// archetype-creation order then row order; it is not stable across
// migrations.
//
// Warning: internal dependencies abound!
type Cursor struct {
	filter Filter
	world  *World

	cache queryCache

	chunk       *Chunk
	row         int
	next        func() (*Chunk, bool)
	stop        func()
	initialized bool
}

func newCursor(filter Filter, world *World) *Cursor {
	return &Cursor{
		filter: filter.normalized(),
		world:  world,
	}
}

// Next advances to the next matching row. Returns false once the cursor is
// exhausted, after which the cursor resets and may be reused for a fresh run.
func (c *Cursor) Next() bool {
	if !c.initialized {
		c.initialize()
	}
	c.row++
	for c.chunk == nil || c.row >= c.chunk.Len() {
		ch, ok := c.next()
		if !ok {
			c.Reset()
			return false
		}
		c.chunk = ch
		c.row = 0
	}
	return true
}

func (c *Cursor) initialize() {
	c.filter.init()
	c.cache.refresh(c.world, c.filter)
	c.next, c.stop = iter.Pull(c.chunkSeq())
	c.chunk = nil
	c.row = -1
	c.initialized = true
}

// chunkSeq yields surviving chunks lazily: chunkset and chunk predicates run
// only for archetypes that already passed the archetype stage.
func (c *Cursor) chunkSeq() iter.Seq[*Chunk] {
	return func(yield func(*Chunk) bool) {
		for _, arch := range c.cache.matched {
			for _, cs := range arch.chunksets {
				if !c.filter.chunkset.match(site{arch: arch, set: cs}).pass() {
					continue
				}
				for _, ch := range cs.chunks {
					if ch.Len() == 0 {
						continue
					}
					if !c.filter.chunk.match(site{arch: arch, set: cs, chunk: ch}).pass() {
						continue
					}
					if !yield(ch) {
						return
					}
				}
			}
		}
	}
}

// Chunks yields the chunks surviving all three filter stages, for callers
// that work at chunk granularity instead of per row. Each call is an
// independent query execution.
func (c *Cursor) Chunks() iter.Seq[*Chunk] {
	c.filter.init()
	c.cache.refresh(c.world, c.filter)
	return c.chunkSeq()
}

// Entities yields the entity handle at each matching row. The sequence is an
// independent query execution; breaking early resets the cursor.
func (c *Cursor) Entities() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for c.Next() {
			if !yield(c.Entity()) {
				c.Reset()
				return
			}
		}
	}
}

// Reset returns the cursor to its pre-iteration state.
func (c *Cursor) Reset() {
	if c.stop != nil {
		c.stop()
	}
	c.next = nil
	c.stop = nil
	c.chunk = nil
	c.row = -1
	c.initialized = false
}

// Entity returns the entity at the cursor position.
func (c *Cursor) Entity() Entity {
	return c.chunk.entities[c.row]
}

// CurrentChunk returns the chunk at the cursor position.
func (c *Cursor) CurrentChunk() *Chunk {
	return c.chunk
}

func (c *Cursor) currentColumn(id ComponentTypeID) (column, int, bool) {
	col, ok := c.chunk.column(id)
	if !ok {
		return nil, 0, false
	}
	return col, c.row, ok
}

func (c *Cursor) currentSet() (*archetype, int) {
	return c.chunk.arch, c.chunk.setIdx
}
