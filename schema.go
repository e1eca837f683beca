package granary

import (
	"reflect"
	"sync"
)

// ComponentTypeID is a process-wide, stable, orderable identifier for a
// registered component type. IDs are assigned in registration order.
type ComponentTypeID uint32

// TagTypeID is a process-wide, stable, orderable identifier for a registered
// tag type.
type TagTypeID uint32

// mainSchema is the process-wide type registry. Component and tag types share
// one mask bit space so an archetype fingerprint covers both.
var mainSchema = newSchema()

type componentInfo struct {
	id        ComponentTypeID
	bit       uint32
	name      string
	newColumn func() column
}

type tagInfo struct {
	id    TagTypeID
	bit   uint32
	name  string
	equal func(a, b any) bool
}

type schema struct {
	mu               sync.RWMutex
	nextBit          uint32
	componentsByType map[reflect.Type]ComponentTypeID
	tagsByType       map[reflect.Type]TagTypeID
	components       []componentInfo
	tags             []tagInfo
}

func newSchema() *schema {
	return &schema{
		componentsByType: make(map[reflect.Type]ComponentTypeID),
		tagsByType:       make(map[reflect.Type]TagTypeID),
	}
}

func registerComponent[T any](s *schema) ComponentTypeID {
	t := reflect.TypeFor[T]()
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.componentsByType[t]; ok {
		return id
	}
	id := ComponentTypeID(len(s.components))
	s.components = append(s.components, componentInfo{
		id:   id,
		bit:  s.nextBit,
		name: t.String(),
		newColumn: func() column {
			return newTypedColumn[T](id)
		},
	})
	s.nextBit++
	s.componentsByType[t] = id
	return id
}

func registerTag[T comparable](s *schema) TagTypeID {
	t := reflect.TypeFor[T]()
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.tagsByType[t]; ok {
		return id
	}
	id := TagTypeID(len(s.tags))
	s.tags = append(s.tags, tagInfo{
		id:   id,
		bit:  s.nextBit,
		name: t.String(),
		equal: func(a, b any) bool {
			av, aok := a.(T)
			bv, bok := b.(T)
			return aok && bok && av == bv
		},
	})
	s.nextBit++
	s.tagsByType[t] = id
	return id
}

func (s *schema) componentInfo(id ComponentTypeID) componentInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.components[id]
}

func (s *schema) tagInfo(id TagTypeID) tagInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tags[id]
}

func (s *schema) componentBit(id ComponentTypeID) uint32 {
	return s.componentInfo(id).bit
}

func (s *schema) tagBit(id TagTypeID) uint32 {
	return s.tagInfo(id).bit
}
