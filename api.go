package granary

import (
	"context"
	"iter"
)

// Storage is the mutation and query surface consumed by systems and command
// layers. *World implements it.
type Storage interface {
	Spawn(parts ...EntityPart) (Entity, error)
	SpawnBatch(n int, parts ...EntityPart) iter.Seq[Entity]
	Despawn(Entity) error
	Insert(Entity, ...EntityPart) error
	Remove(Entity, ...ComponentIdentifier) error

	Reserve() Entity
	Flush()

	Location(Entity) (Location, error)
	Generation() uint64
	ClearTrackers()
	DrainRemoved(ComponentIdentifier) []Entity

	Query(Filter) *Cursor
	QueryMut(Filter) *Cursor
	ForEachChunk(ctx context.Context, filter Filter, parallelism int, fn func(*Chunk) error) error
}
