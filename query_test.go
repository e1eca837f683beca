package granary

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorIteration(t *testing.T) {
	posComp := FactoryNewComponent[Position]()
	velComp := FactoryNewComponent[Velocity]()

	world := Factory.NewWorld()
	var spawned []Entity
	for i := 0; i < 5; i++ {
		e, err := world.Spawn(posComp.With(Position{X: float64(i)}), velComp.With(Velocity{}))
		require.NoError(t, err)
		spawned = append(spawned, e)
	}
	// noise the cursor must skip
	_, err := world.Spawn(velComp.With(Velocity{}))
	require.NoError(t, err)

	cur := world.Query(Has(posComp))
	var seen []Entity
	for cur.Next() {
		seen = append(seen, cur.Entity())
		p := posComp.GetFromCursor(cur)
		assert.Equal(t, float64(len(seen)-1), p.X)
	}
	assert.Equal(t, spawned, seen, "iteration follows creation order within an archetype")

	// an exhausted cursor resets and can run again
	count := 0
	for cur.Next() {
		count++
	}
	assert.Equal(t, 5, count)
}

func TestCursorSpansChunks(t *testing.T) {
	prev := Config.chunkCapacity
	Config.SetChunkCapacity(2)
	t.Cleanup(func() { Config.SetChunkCapacity(prev) })

	posComp := FactoryNewComponent[Position]()

	world := Factory.NewWorld()
	for e := range world.SpawnBatch(5, posComp.With(Position{})) {
		_ = e
	}

	cur := world.Query(Has(posComp))
	rows, chunks := 0, 0
	for ch := range cur.Chunks() {
		chunks++
		rows += ch.Len()
	}
	assert.Equal(t, 3, chunks)
	assert.Equal(t, 5, rows)
}

func TestTagEqPrunesChunksets(t *testing.T) {
	posComp := FactoryNewComponent[Position]()
	teamTag := FactoryNewTag[Team]()

	world := Factory.NewWorld()
	for i := 0; i < 3; i++ {
		_, err := world.Spawn(posComp.With(Position{}), teamTag.With(Team{ID: 1}))
		require.NoError(t, err)
	}
	blue, err := world.Spawn(posComp.With(Position{}), teamTag.With(Team{ID: 2}))
	require.NoError(t, err)
	// untagged entities never reach the chunkset test
	_, err = world.Spawn(posComp.With(Position{}))
	require.NoError(t, err)

	assert.Len(t, world.CollectEntities(TagEq(teamTag, Team{ID: 1})), 3)
	assert.Equal(t, []Entity{blue}, world.CollectEntities(TagEq(teamTag, Team{ID: 2})))
}

func TestQueryCacheTracksTopology(t *testing.T) {
	posComp := FactoryNewComponent[Position]()
	velComp := FactoryNewComponent[Velocity]()

	world := Factory.NewWorld()
	_, err := world.Spawn(posComp.With(Position{}))
	require.NoError(t, err)

	filter := Has(posComp)
	assert.Len(t, world.CollectEntities(filter), 1)

	// a new archetype appearing between runs must be picked up
	_, err = world.Spawn(posComp.With(Position{}), velComp.With(Velocity{}))
	require.NoError(t, err)
	assert.Len(t, world.CollectEntities(filter), 2)
}

func TestChangedFilter(t *testing.T) {
	prev := Config.chunkCapacity
	Config.SetChunkCapacity(1)
	t.Cleanup(func() { Config.SetChunkCapacity(prev) })

	posComp := FactoryNewComponent[Position]()

	world := Factory.NewWorld()
	a, err := world.Spawn(posComp.With(Position{X: 1}))
	require.NoError(t, err)
	b, err := world.Spawn(posComp.With(Position{X: 2}))
	require.NoError(t, err)

	changed := Changed(posComp)
	countChunks := func() int {
		n := 0
		for range world.Query(changed).Chunks() {
			n++
		}
		return n
	}

	// freshly spawned columns count as written
	assert.Equal(t, 2, countChunks())

	// only a's chunk moves past the threshold
	p, err := posComp.Mut(world, a)
	require.NoError(t, err)
	p.X = 10
	assert.Equal(t, 1, countChunks())

	// writes in both chunks
	for _, e := range []Entity{a, b} {
		p, err := posComp.Mut(world, e)
		require.NoError(t, err)
		p.X *= 2
	}
	assert.Equal(t, 2, countChunks())

	// repeating the mutation keeps both versions above the raised threshold
	for _, e := range []Entity{a, b} {
		p, err := posComp.Mut(world, e)
		require.NoError(t, err)
		p.X++
	}
	assert.Equal(t, 2, countChunks())

	// quiet world: nothing passes
	assert.Equal(t, 0, countChunks())
}

func TestChangedFilterIgnoresReads(t *testing.T) {
	posComp := FactoryNewComponent[Position]()

	world := Factory.NewWorld()
	e, err := world.Spawn(posComp.With(Position{X: 1}))
	require.NoError(t, err)

	changed := Changed(posComp)
	require.NotEmpty(t, world.CollectEntities(changed))

	// read-only access leaves versions alone
	_, err = posComp.Get(world, e)
	require.NoError(t, err)
	assert.Empty(t, world.CollectEntities(changed))
}

func TestTrackerMarkers(t *testing.T) {
	posComp := FactoryNewComponent[Position]()

	world := Factory.NewWorld()
	e, err := world.Spawn(posComp.With(Position{}))
	require.NoError(t, err)
	loc, err := world.Location(e)
	require.NoError(t, err)

	arch := world.archetypeByID(loc.Archetype)
	col, slot, ok := arch.columnAt(loc.Set, loc.Row, posComp.id)
	require.True(t, ok)

	assert.True(t, col.added(slot))
	assert.False(t, col.mutated(slot))

	p, err := posComp.Mut(world, e)
	require.NoError(t, err)
	p.X = 1
	assert.True(t, col.mutated(slot))

	world.ClearTrackers()
	assert.False(t, col.added(slot))
	assert.False(t, col.mutated(slot))
}

func TestConcurrentReadQueries(t *testing.T) {
	posComp := FactoryNewComponent[Position]()
	velComp := FactoryNewComponent[Velocity]()

	world := Factory.NewWorld()
	for range 64 {
		_, err := world.Spawn(posComp.With(Position{}), velComp.With(Velocity{}))
		require.NoError(t, err)
	}
	for range 32 {
		_, err := world.Spawn(posComp.With(Position{}))
		require.NoError(t, err)
	}

	want := world.CollectEntities(Has(posComp))

	const readers = 8
	results := make([][]Entity, readers)
	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = world.CollectEntities(Has(posComp))
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestForEachChunk(t *testing.T) {
	prev := Config.chunkCapacity
	Config.SetChunkCapacity(8)
	t.Cleanup(func() { Config.SetChunkCapacity(prev) })

	posComp := FactoryNewComponent[Position]()

	world := Factory.NewWorld()
	for e := range world.SpawnBatch(50, posComp.With(Position{})) {
		_ = e
	}

	var mu sync.Mutex
	total := 0
	err := world.ForEachChunk(context.Background(), Has(posComp), 4, func(ch *Chunk) error {
		n := 0
		for _, p := range posComp.Slice(ch) {
			_ = p
			n++
		}
		mu.Lock()
		total += n
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 50, total)
}

func TestForEachChunkPropagatesError(t *testing.T) {
	posComp := FactoryNewComponent[Position]()

	world := Factory.NewWorld()
	_, err := world.Spawn(posComp.With(Position{}))
	require.NoError(t, err)

	wantErr := assert.AnError
	err = world.ForEachChunk(context.Background(), Has(posComp), 2, func(ch *Chunk) error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
}
