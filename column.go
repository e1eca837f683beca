package granary

import "sync/atomic"

// versionCounter issues column write versions. One monotonic counter serves
// every column so change-detection thresholds totally order writes across
// chunks. Versions never decrease and are never reset.
var versionCounter atomic.Uint64

func nextVersion() uint64 {
	return versionCounter.Add(1)
}

// column is a type-erased growable array of fixed-size elements with parallel
// per-row added/mutated markers and a monotonic write version.
//
// setAny and stamp record logical writes and advance the column version.
// transfer and pop relocate rows verbatim (markers included) without touching
// the version; relocation is not a write.
type column interface {
	typeID() ComponentTypeID
	length() int

	// appendZero appends an uninitialized (zero-value) row with no markers.
	// Values stay unwritten until a put records them.
	appendZero()
	// setAny overwrites row in place, marking it added or mutated.
	setAny(row int, v any, isNew bool)
	// getAny returns a pointer to the element at row.
	getAny(row int) any
	// transfer copies the value and markers at srcRow in src, which must be a
	// column of the same concrete type, onto dstRow of this column.
	transfer(src column, srcRow, dstRow int)
	// pop drops the last row.
	pop()

	version() uint64
	stamp()
	markMutated(row int)
	added(row int) bool
	mutated(row int) bool
	clearTrackers()
}

type typedColumn[T any] struct {
	id          ComponentTypeID
	data        []T
	addedRows   []bool
	mutatedRows []bool
	ver         atomic.Uint64
}

func newTypedColumn[T any](id ComponentTypeID) column {
	return &typedColumn[T]{id: id}
}

func (c *typedColumn[T]) typeID() ComponentTypeID { return c.id }

func (c *typedColumn[T]) length() int { return len(c.data) }

func (c *typedColumn[T]) appendZero() {
	var zero T
	c.data = append(c.data, zero)
	c.addedRows = append(c.addedRows, false)
	c.mutatedRows = append(c.mutatedRows, false)
}

func (c *typedColumn[T]) setAny(row int, v any, isNew bool) {
	c.data[row] = v.(T)
	if isNew {
		c.addedRows[row] = true
	} else {
		c.mutatedRows[row] = true
	}
	c.ver.Store(nextVersion())
}

func (c *typedColumn[T]) getAny(row int) any {
	return &c.data[row]
}

func (c *typedColumn[T]) transfer(src column, srcRow, dstRow int) {
	s := src.(*typedColumn[T])
	c.data[dstRow] = s.data[srcRow]
	c.addedRows[dstRow] = s.addedRows[srcRow]
	c.mutatedRows[dstRow] = s.mutatedRows[srcRow]
}

func (c *typedColumn[T]) pop() {
	last := len(c.data) - 1
	c.data = c.data[:last]
	c.addedRows = c.addedRows[:last]
	c.mutatedRows = c.mutatedRows[:last]
}

func (c *typedColumn[T]) version() uint64 { return c.ver.Load() }

func (c *typedColumn[T]) stamp() {
	c.ver.Store(nextVersion())
}

func (c *typedColumn[T]) markMutated(row int) {
	c.mutatedRows[row] = true
	c.ver.Store(nextVersion())
}

func (c *typedColumn[T]) added(row int) bool   { return c.addedRows[row] }
func (c *typedColumn[T]) mutated(row int) bool { return c.mutatedRows[row] }

func (c *typedColumn[T]) clearTrackers() {
	for i := range c.addedRows {
		c.addedRows[i] = false
		c.mutatedRows[i] = false
	}
}
