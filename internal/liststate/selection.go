package liststate

// SelectionSet is the cross-page set of selected record ids. Ids keep the
// order in which they were first selected.
type SelectionSet struct {
	ids   []string
	index map[string]int
}

// NewSelectionSet returns an empty set.
func NewSelectionSet() *SelectionSet {
	return &SelectionSet{index: make(map[string]int)}
}

// Add inserts id. Adding an id twice is a no-op.
func (s *SelectionSet) Add(id string) {
	if _, ok := s.index[id]; ok {
		return
	}
	s.index[id] = len(s.ids)
	s.ids = append(s.ids, id)
}

// Remove deletes id if present.
func (s *SelectionSet) Remove(id string) {
	i, ok := s.index[id]
	if !ok {
		return
	}
	s.ids = append(s.ids[:i], s.ids[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.ids); j++ {
		s.index[s.ids[j]] = j
	}
}

// Merge adds every id, keeping the existing ones.
func (s *SelectionSet) Merge(ids []string) {
	for _, id := range ids {
		s.Add(id)
	}
}

// Has reports whether id is selected.
func (s *SelectionSet) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Len returns the number of selected ids.
func (s *SelectionSet) Len() int {
	return len(s.ids)
}

// IDs returns a copy of the selected ids.
func (s *SelectionSet) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Clear empties the set.
func (s *SelectionSet) Clear() {
	s.ids = nil
	s.index = make(map[string]int)
}
