/*
Package granary provides an in-process entity-component storage engine for games
and simulations.

Granary is a columnar database for heterogeneous per-entity data. Entities that
share the same set of component types are grouped into archetypes, and each
archetype is partitioned into chunksets (groups of rows sharing identical tag
values) and fixed-capacity chunks. Queries narrow archetypes, then chunksets,
then chunks before any per-row work happens, which keeps iteration
cache-friendly and lets change-detection filters skip untouched data wholesale.

Core Concepts:

  - Entity: A generational handle {id, generation} that owns no data directly.
  - Component: A per-entity typed payload stored in a column.
  - Tag: A per-chunkset shared value used to partition an archetype.
  - Archetype: Storage for all entities sharing one component-type set.
  - Filter: A composable three-valued predicate over archetypes, chunksets, and chunks.

Basic Usage:

	// Create a world
	world := granary.Factory.NewWorld()

	// Define components
	position := granary.FactoryNewComponent[Position]()
	velocity := granary.FactoryNewComponent[Velocity]()

	// Spawn entities
	e, _ := world.Spawn(position.With(Position{X: 1}), velocity.With(Velocity{X: 2}))

	// Query entities and process them
	cursor := world.Query(granary.Has(position, velocity))
	for cursor.Next() {
		pos := position.MutFromCursor(cursor)
		vel := velocity.GetFromCursor(cursor)
		pos.X += vel.X
		pos.Y += vel.Y
	}
	_ = e

Mutating operations (Spawn, Despawn, Insert, Remove) require exclusive access.
Read-only queries may run concurrently; granary does not enforce aliasing at
query-construction time.
*/
package granary
