package granary

import (
	"iter"

	"go.uber.org/zap"
)

// SpawnBatch spawns n entities sharing one bundle shape, amortizing the
// archetype and chunkset lookup across the whole batch. Entities are yielded
// as they are created; if the consumer stops early the remaining entities are
// still created, so no allocation is left half-applied.
func (w *World) SpawnBatch(n int, parts ...EntityPart) iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		w.Flush()
		b, err := newBundle(parts)
		if err != nil {
			w.logger.Error("spawn batch rejected", zap.Error(err))
			return
		}
		arch := w.findOrCreateArchetype(b.componentIDs(), b.tagIDs())
		set := arch.findOrCreateSet(b.tagValues())

		stopped := false
		for i := 0; i < n; i++ {
			e := w.alloc.alloc()
			row := arch.allocate(set, e)
			for _, cv := range b.comps {
				arch.put(set, row, cv.id, cv.value, true)
			}
			w.alloc.setLocation(e.ID, Location{Archetype: arch.id, Set: set, Row: row})
			if !stopped && !yield(e) {
				stopped = true
			}
		}
	}
}
