package granary

import "github.com/TheBitDrifter/mask"

// Filter combines one predicate per narrowing level: archetype, chunkset,
// chunk. Combinators compose level-wise, so any two filters can be combined
// regardless of which levels they actually test.
type Filter struct {
	archetype predicate
	chunkset  predicate
	chunk     predicate
}

// normalized fills missing levels with passthrough so a zero-value Filter
// behaves like Passthrough().
func (f Filter) normalized() Filter {
	if f.archetype == nil {
		f.archetype = passthroughPred{}
	}
	if f.chunkset == nil {
		f.chunkset = passthroughPred{}
	}
	if f.chunk == nil {
		f.chunk = passthroughPred{}
	}
	return f
}

func (f Filter) init() {
	f.archetype.init()
	f.chunkset.init()
	f.chunk.init()
}

// Passthrough returns the neutral filter: no opinion at any level. It is the
// identity for And and Or.
func Passthrough() Filter {
	return Filter{
		archetype: passthroughPred{},
		chunkset:  passthroughPred{},
		chunk:     passthroughPred{},
	}
}

// Any returns the filter that passes everything.
func Any() Filter {
	return Filter{
		archetype: anyPred{},
		chunkset:  anyPred{},
		chunk:     anyPred{},
	}
}

// Has passes archetypes that store every named component type.
func Has(comps ...ComponentIdentifier) Filter {
	var bits mask.Mask
	for _, c := range comps {
		bits.Mark(mainSchema.componentBit(c.componentTypeID()))
	}
	f := Passthrough()
	f.archetype = typeSetPred{bits: bits}
	return f
}

// HasTag passes archetypes that carry every named tag type.
func HasTag(tags ...TagIdentifier) Filter {
	var bits mask.Mask
	for _, t := range tags {
		bits.Mark(mainSchema.tagBit(t.tagTypeID()))
	}
	f := Passthrough()
	f.archetype = typeSetPred{bits: bits}
	return f
}

// TagEq passes chunksets whose tag value equals v. Archetypes without the tag
// type are skipped outright.
func TagEq[T comparable](t TagType[T], v T) Filter {
	var bits mask.Mask
	bits.Mark(mainSchema.tagBit(t.id))
	f := Passthrough()
	f.archetype = typeSetPred{bits: bits}
	f.chunkset = tagValuePred{id: t.id, value: v}
	return f
}

// Changed passes chunks whose column for the component has been written since
// the filter's previous execution. The returned filter is stateful; reuse one
// instance across runs to observe deltas.
func Changed[T any](c ComponentType[T]) Filter {
	var bits mask.Mask
	bits.Mark(mainSchema.componentBit(c.id))
	f := Passthrough()
	f.archetype = typeSetPred{bits: bits}
	f.chunk = newChangedPred(c.id)
	return f
}

// And combines filters level-wise: no-opinion entries are ignored, definite
// opinions AND together.
func (f Filter) And(others ...Filter) Filter {
	combined := Filter{
		archetype: andPred{children: levelPreds(f.archetype, others, archetypeLevel)},
		chunkset:  andPred{children: levelPreds(f.chunkset, others, chunksetLevel)},
		chunk:     andPred{children: levelPreds(f.chunk, others, chunkLevel)},
	}
	return combined
}

// Or combines filters level-wise with OR.
func (f Filter) Or(others ...Filter) Filter {
	combined := Filter{
		archetype: orPred{children: levelPreds(f.archetype, others, archetypeLevel)},
		chunkset:  orPred{children: levelPreds(f.chunkset, others, chunksetLevel)},
		chunk:     orPred{children: levelPreds(f.chunk, others, chunkLevel)},
	}
	return combined
}

// Not inverts each level's opinion; no-opinion stays no-opinion.
func (f Filter) Not() Filter {
	return Filter{
		archetype: notPred{inner: f.archetype},
		chunkset:  notPred{inner: f.chunkset},
		chunk:     notPred{inner: f.chunk},
	}
}

type filterLevel int

const (
	archetypeLevel filterLevel = iota
	chunksetLevel
	chunkLevel
)

func levelPreds(first predicate, others []Filter, level filterLevel) []predicate {
	preds := make([]predicate, 0, len(others)+1)
	preds = append(preds, first)
	for _, o := range others {
		switch level {
		case archetypeLevel:
			preds = append(preds, o.archetype)
		case chunksetLevel:
			preds = append(preds, o.chunkset)
		case chunkLevel:
			preds = append(preds, o.chunk)
		}
	}
	return preds
}
