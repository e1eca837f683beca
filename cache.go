package granary

// queryCache memoizes the archetypes passing a cursor's archetype stage.
// Archetypes grow monotonically, so the cached match list stays correct until
// the world's topology generation moves.
type queryCache struct {
	generation uint64
	matched    []*archetype
	valid      bool
}

func (qc *queryCache) refresh(w *World, f Filter) {
	gen := w.Generation()
	if qc.valid && qc.generation == gen {
		return
	}
	qc.matched = qc.matched[:0]
	for _, arch := range w.archetypes.asSlice {
		if f.archetype.match(site{arch: arch}).pass() {
			qc.matched = append(qc.matched, arch)
		}
	}
	qc.generation = gen
	qc.valid = true
}
