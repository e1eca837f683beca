package granary

import "github.com/kamstrup/intmap"

// removalJournal records, per component type, the entities whose component of
// that type was removed since the last drain. Despawn and Remove both feed
// it; consumers drain once per tick.
type removalJournal struct {
	byType *intmap.Map[uint32, []Entity]
}

func newRemovalJournal() *removalJournal {
	return &removalJournal{
		byType: intmap.New[uint32, []Entity](16),
	}
}

func (j *removalJournal) record(id ComponentTypeID, e Entity) {
	entries, _ := j.byType.Get(uint32(id))
	j.byType.Put(uint32(id), append(entries, e))
}

func (j *removalJournal) drain(id ComponentTypeID) []Entity {
	entries, ok := j.byType.Get(uint32(id))
	if !ok {
		return nil
	}
	j.byType.Del(uint32(id))
	return entries
}
