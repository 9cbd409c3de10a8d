package track

// RecordSet is an insertion-ordered set of records keyed by name. Records are
// created on first mention and never deleted; round restarts only clear the
// done flag. RecordSet is not safe for concurrent use; the owning Board
// serializes access behind the domain's file lock.
type RecordSet struct {
	order []string
	done  map[string]bool
}

// NewRecordSet returns an empty set.
func NewRecordSet() *RecordSet {
	return &RecordSet{done: make(map[string]bool)}
}

// Restore replaces the set contents with records loaded from disk, keeping
// their order. Duplicate names keep the first position and the last state.
func (s *RecordSet) Restore(recs []Record) {
	s.order = s.order[:0]
	s.done = make(map[string]bool, len(recs))
	for _, rec := range recs {
		if _, seen := s.done[rec.Name]; !seen {
			s.order = append(s.order, rec.Name)
		}
		s.done[rec.Name] = rec.Done
	}
}

// MarkDone marks name as completed, creating the record when absent. It
// reports whether a new record was created.
func (s *RecordSet) MarkDone(name string) bool {
	_, seen := s.done[name]
	if !seen {
		s.order = append(s.order, name)
	}
	s.done[name] = true
	return !seen
}

// ResetAll clears the done flag on every known record.
func (s *RecordSet) ResetAll() {
	for name := range s.done {
		s.done[name] = false
	}
}

// List returns the records in insertion order.
func (s *RecordSet) List() []Record {
	out := make([]Record, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, Record{Name: name, Done: s.done[name]})
	}
	return out
}

// AsMap returns the name -> state mapping used for wip_update payloads and
// the persisted file shape.
func (s *RecordSet) AsMap() map[string]RecordState {
	out := make(map[string]RecordState, len(s.done))
	for name, done := range s.done {
		out[name] = RecordState{Done: done}
	}
	return out
}

// Ratio reports how many records are done out of the total known.
func (s *RecordSet) Ratio() (completed, total int) {
	for _, done := range s.done {
		if done {
			completed++
		}
	}
	return completed, len(s.done)
}

// Len returns the number of known records.
func (s *RecordSet) Len() int {
	return len(s.order)
}
