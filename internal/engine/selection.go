package engine

// Selection is the ordered set of checked document ids. It is not safe for
// concurrent use; the engine guards it with its own lock.
type Selection struct {
	ids []string
}

// Toggle adds or removes id and reports whether the set changed
func (s *Selection) Toggle(id string, checked bool) bool {
	idx := s.index(id)
	switch {
	case checked && idx < 0:
		s.ids = append(s.ids, id)
		return true
	case !checked && idx >= 0:
		s.ids = append(s.ids[:idx], s.ids[idx+1:]...)
		return true
	default:
		return false
	}
}

// Has reports whether id is selected
func (s *Selection) Has(id string) bool {
	return s.index(id) >= 0
}

// IDs returns a copy of the selected ids in selection order
func (s *Selection) IDs() []string {
	return append([]string(nil), s.ids...)
}

// Len returns the number of selected ids
func (s *Selection) Len() int {
	return len(s.ids)
}

// Clear empties the selection
func (s *Selection) Clear() {
	s.ids = nil
}

// Retain drops ids not present in the given set
func (s *Selection) Retain(present map[string]struct{}) bool {
	kept := s.ids[:0]
	for _, id := range s.ids {
		if _, ok := present[id]; ok {
			kept = append(kept, id)
		}
	}
	changed := len(kept) != len(s.ids)
	s.ids = kept
	return changed
}

// State returns the tri-state "select all" value for a list of total documents
func (s *Selection) State(total int) CheckState {
	switch {
	case len(s.ids) == 0:
		return Unchecked
	case len(s.ids) == total:
		return Checked
	default:
		return Indeterminate
	}
}

func (s *Selection) index(id string) int {
	for i, sel := range s.ids {
		if sel == id {
			return i
		}
	}
	return -1
}
