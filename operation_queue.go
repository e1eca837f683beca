package granary

import (
	"errors"

	"github.com/rotisserie/eris"
)

// CommandBuffer records storage mutations for later application, so systems
// iterating queries can request structural changes without mutating the world
// mid-iteration. The buffer performs no locking; the caller decides when
// exclusive access holds and flushes then.
type CommandBuffer struct {
	world          *World
	spawns         []spawnOp
	inserts        []mutateOp
	removes        []removeOp
	despawns       []Entity
	pendingDespawn map[Entity]struct{}
}

type spawnOp struct {
	parts []EntityPart
}

type mutateOp struct {
	entity Entity
	parts  []EntityPart
}

type removeOp struct {
	entity Entity
	comps  []ComponentIdentifier
}

func newCommandBuffer(world *World) *CommandBuffer {
	return &CommandBuffer{
		world:          world,
		pendingDespawn: make(map[Entity]struct{}),
	}
}

// Spawn queues an entity creation.
func (b *CommandBuffer) Spawn(parts ...EntityPart) {
	b.spawns = append(b.spawns, spawnOp{parts: parts})
}

// Insert queues component additions for an entity.
func (b *CommandBuffer) Insert(e Entity, parts ...EntityPart) {
	if _, dead := b.pendingDespawn[e]; dead {
		return
	}
	b.inserts = append(b.inserts, mutateOp{entity: e, parts: parts})
}

// Remove queues component removals for an entity.
func (b *CommandBuffer) Remove(e Entity, comps ...ComponentIdentifier) {
	if _, dead := b.pendingDespawn[e]; dead {
		return
	}
	b.removes = append(b.removes, removeOp{entity: e, comps: comps})
}

// Despawn queues an entity destruction. Later component operations for the
// same entity are dropped.
func (b *CommandBuffer) Despawn(e Entity) {
	if _, dup := b.pendingDespawn[e]; dup {
		return
	}
	b.pendingDespawn[e] = struct{}{}
	b.despawns = append(b.despawns, e)
}

// Flush applies queued operations: spawns first, then component
// modifications, then despawns. Operations targeting entities that died in
// the meantime are skipped; NoSuchEntity is routine here, not a failure.
func (b *CommandBuffer) Flush() error {
	for _, op := range b.spawns {
		if _, err := b.world.Spawn(op.parts...); err != nil {
			return eris.Wrap(err, "failed to apply queued spawn")
		}
	}
	for _, op := range b.inserts {
		if _, dead := b.pendingDespawn[op.entity]; dead {
			continue
		}
		if err := b.world.Insert(op.entity, op.parts...); err != nil {
			if errors.As(err, &NoSuchEntityError{}) {
				continue
			}
			return eris.Wrap(err, "failed to apply queued insert")
		}
	}
	for _, op := range b.removes {
		if _, dead := b.pendingDespawn[op.entity]; dead {
			continue
		}
		if err := b.world.Remove(op.entity, op.comps...); err != nil {
			if errors.As(err, &NoSuchEntityError{}) || errors.As(err, &MissingComponentError{}) {
				continue
			}
			return eris.Wrap(err, "failed to apply queued remove")
		}
	}
	for _, e := range b.despawns {
		if err := b.world.Despawn(e); err != nil {
			if errors.As(err, &NoSuchEntityError{}) {
				continue
			}
			return eris.Wrap(err, "failed to apply queued despawn")
		}
	}

	b.spawns = b.spawns[:0]
	b.inserts = b.inserts[:0]
	b.removes = b.removes[:0]
	b.despawns = b.despawns[:0]
	clear(b.pendingDespawn)
	return nil
}
