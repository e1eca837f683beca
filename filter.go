package granary

import (
	"sync/atomic"

	"github.com/TheBitDrifter/mask"
)

// Match is the three-valued result of a filter test.
type Match int8

const (
	// MatchNone expresses no opinion. It is the identity for both And and Or,
	// letting neutral filters combine without forcing a decision.
	MatchNone Match = iota
	MatchPass
	MatchFail
)

func matchOf(b bool) Match {
	if b {
		return MatchPass
	}
	return MatchFail
}

// coalesceAnd folds two opinions left to right: no-opinion defers to the
// other side; two definite opinions combine with logical AND.
func (m Match) coalesceAnd(other Match) Match {
	if m == MatchNone {
		return other
	}
	if other == MatchNone {
		return m
	}
	return matchOf(m == MatchPass && other == MatchPass)
}

func (m Match) coalesceOr(other Match) Match {
	if m == MatchNone {
		return other
	}
	if other == MatchNone {
		return m
	}
	return matchOf(m == MatchPass || other == MatchPass)
}

func (m Match) invert() Match {
	switch m {
	case MatchPass:
		return MatchFail
	case MatchFail:
		return MatchPass
	}
	return MatchNone
}

// pass treats no-opinion as a pass.
func (m Match) pass() bool {
	return m != MatchFail
}

// site is the input to a predicate test. Archetype-level predicates see only
// arch; chunkset-level predicates also see set; chunk-level predicates see
// all three.
type site struct {
	arch  *archetype
	set   *chunkset
	chunk *Chunk
}

// predicate is a boxed three-valued filter test. Predicates for the three
// narrowing levels share one interface and one combination algebra.
type predicate interface {
	// init resets per-query-execution bookkeeping. Called once before a query
	// run; change-detection predicates capture their comparison baseline here.
	init()
	match(s site) Match
}

type passthroughPred struct{}

func (passthroughPred) init()            {}
func (passthroughPred) match(site) Match { return MatchNone }

type anyPred struct{}

func (anyPred) init()            {}
func (anyPred) match(site) Match { return MatchPass }

type notPred struct {
	inner predicate
}

func (p notPred) init() { p.inner.init() }

func (p notPred) match(s site) Match {
	return p.inner.match(s).invert()
}

type andPred struct {
	children []predicate
}

func (p andPred) init() {
	for _, c := range p.children {
		c.init()
	}
}

func (p andPred) match(s site) Match {
	result := MatchNone
	for _, c := range p.children {
		result = result.coalesceAnd(c.match(s))
	}
	return result
}

type orPred struct {
	children []predicate
}

func (p orPred) init() {
	for _, c := range p.children {
		c.init()
	}
}

func (p orPred) match(s site) Match {
	result := MatchNone
	for _, c := range p.children {
		result = result.coalesceOr(c.match(s))
	}
	return result
}

// typeSetPred passes archetypes whose fingerprint contains every marked bit.
// Serves both component and tag presence tests.
type typeSetPred struct {
	bits mask.Mask
}

func (typeSetPred) init() {}

func (p typeSetPred) match(s site) Match {
	return matchOf(s.arch.fingerprint.ContainsAll(p.bits))
}

// tagValuePred passes chunksets whose stored tag value equals the wanted
// value under the tag's registered equality.
type tagValuePred struct {
	id    TagTypeID
	value any
}

func (tagValuePred) init() {}

func (p tagValuePred) match(s site) Match {
	idx, ok := s.arch.tagIndex[p.id]
	if !ok {
		return MatchFail
	}
	return matchOf(mainSchema.tagInfo(p.id).equal(s.set.tags[idx], p.value))
}

// changedPred passes chunks whose column for the watched component has been
// written since the filter's last execution.
//
// Stateful: highWaterMark tracks the newest column version any execution has
// observed; versionThreshold is the baseline captured at init. Both advance
// through compare-and-swap retry loops so concurrent readers of one filter
// instance converge without losing a legitimate update.
type changedPred struct {
	id               ComponentTypeID
	highWaterMark    *atomic.Uint64
	versionThreshold *atomic.Uint64
}

func newChangedPred(id ComponentTypeID) changedPred {
	return changedPred{
		id:               id,
		highWaterMark:    &atomic.Uint64{},
		versionThreshold: &atomic.Uint64{},
	}
}

func (p changedPred) init() {
	version := p.highWaterMark.Load()
	threshold := p.versionThreshold.Load()
	for threshold < version {
		if p.versionThreshold.CompareAndSwap(threshold, version) {
			break
		}
		// another reader advanced it; stop once the stored value covers ours
		threshold = p.versionThreshold.Load()
	}
}

func (p changedPred) match(s site) Match {
	col, ok := s.chunk.column(p.id)
	if !ok {
		// absence of the watched component is "does not match", not an error
		return MatchFail
	}
	version := col.version()
	lastRead := p.highWaterMark.Load()
	for lastRead < version {
		if p.highWaterMark.CompareAndSwap(lastRead, version) {
			break
		}
		lastRead = p.highWaterMark.Load()
	}
	return matchOf(version > p.versionThreshold.Load())
}
