package granary

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test component types
type Position struct {
	X, Y float64
}

type Velocity struct {
	X, Y float64
}

type Health struct {
	Current, Max int
}

// Test tag types
type Team struct {
	ID int
}

func TestEntityLifecycle(t *testing.T) {
	posComp := FactoryNewComponent[Position]()

	world := Factory.NewWorld()
	e, err := world.Spawn(posComp.With(Position{X: 1, Y: 2}))
	require.NoError(t, err)

	got, err := posComp.Get(world, e)
	require.NoError(t, err)
	assert.Equal(t, Position{X: 1, Y: 2}, *got)

	require.NoError(t, world.Despawn(e))

	_, err = posComp.Get(world, e)
	var noSuch NoSuchEntityError
	require.ErrorAs(t, err, &noSuch)
	assert.Equal(t, e, noSuch.Entity)

	// the recycled id carries a bumped generation, invalidating the old handle
	replacement, err := world.Spawn(posComp.With(Position{X: 3}))
	require.NoError(t, err)
	assert.Equal(t, e.ID, replacement.ID)
	assert.Equal(t, e.Generation+1, replacement.Generation)

	_, err = posComp.Get(world, e)
	assert.ErrorAs(t, err, &noSuch)
	_, err = posComp.Get(world, replacement)
	assert.NoError(t, err)
}

func TestEntityHandleValidation(t *testing.T) {
	posComp := FactoryNewComponent[Position]()

	world := Factory.NewWorld()
	e, err := world.Spawn(posComp.With(Position{}))
	require.NoError(t, err)

	tests := []struct {
		name   string
		handle Entity
		valid  bool
	}{
		{"Live handle", e, true},
		{"Wrong generation", Entity{ID: e.ID, Generation: e.Generation + 1}, false},
		{"Out of range id", Entity{ID: 9999, Generation: 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := world.Location(tt.handle)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				var noSuch NoSuchEntityError
				assert.ErrorAs(t, err, &noSuch)
			}
		})
	}
}

func TestDespawnStaleHandle(t *testing.T) {
	posComp := FactoryNewComponent[Position]()

	world := Factory.NewWorld()
	e, err := world.Spawn(posComp.With(Position{}))
	require.NoError(t, err)
	require.NoError(t, world.Despawn(e))

	err = world.Despawn(e)
	var noSuch NoSuchEntityError
	assert.ErrorAs(t, err, &noSuch)
}

func TestReserveAndFlush(t *testing.T) {
	world := Factory.NewWorld()

	const perWorker = 50
	const workers = 4

	var mu sync.Mutex
	var reserved []Entity
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]Entity, 0, perWorker)
			for range perWorker {
				local = append(local, world.Reserve())
			}
			mu.Lock()
			reserved = append(reserved, local...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	// every reservation got a distinct id
	seen := make(map[uint32]struct{}, len(reserved))
	for _, e := range reserved {
		_, dup := seen[e.ID]
		require.False(t, dup, "duplicate reserved id %d", e.ID)
		seen[e.ID] = struct{}{}
	}

	world.Flush()

	// flushed reservations are tracked entities in the zero-component archetype
	for _, e := range reserved {
		loc, err := world.Location(e)
		require.NoError(t, err)
		assert.Equal(t, world.emptyID, loc.Archetype)
	}
}

func TestReserveRecyclesFreedIDs(t *testing.T) {
	posComp := FactoryNewComponent[Position]()

	world := Factory.NewWorld()
	e, err := world.Spawn(posComp.With(Position{}))
	require.NoError(t, err)
	require.NoError(t, world.Despawn(e))

	r := world.Reserve()
	assert.Equal(t, e.ID, r.ID)
	assert.Equal(t, e.Generation+1, r.Generation)

	world.Flush()
	_, err = world.Location(r)
	assert.NoError(t, err)
}
