package granary

import "fmt"

// NoSuchEntityError reports a stale or freed handle: the entity's generation
// does not match the allocator's current generation for that id, or the id is
// out of range.
type NoSuchEntityError struct {
	Entity Entity
}

func (e NoSuchEntityError) Error() string {
	return fmt.Sprintf("no such entity: %v", e.Entity)
}

// MissingComponentError reports typed access to, or targeted removal of, a
// component type absent on the entity's archetype.
type MissingComponentError struct {
	TypeName string
}

func (e MissingComponentError) Error() string {
	return fmt.Sprintf("missing component: %s", e.TypeName)
}

// MissingTagError reports typed access to a tag type absent on the entity's
// archetype.
type MissingTagError struct {
	TypeName string
}

func (e MissingTagError) Error() string {
	return fmt.Sprintf("missing tag: %s", e.TypeName)
}
