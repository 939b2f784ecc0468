package compactor

// Stats accumulates the batch-statistics figures the source logs after
// every batch (spec §9's "bytes per element" figures, §4 of SPEC_FULL.md).
type Stats struct {
	NewElements       uint64
	NewElementBytes   uint64
	DuplicateElements uint64
	DuplicateBytes    uint64
	TotalFilterBytes  uint64
}

// Add folds other into s in place, used both per-block and to keep a
// process-lifetime running total.
func (s *Stats) Add(other Stats) {
	s.NewElements += other.NewElements
	s.NewElementBytes += other.NewElementBytes
	s.DuplicateElements += other.DuplicateElements
	s.DuplicateBytes += other.DuplicateBytes
	s.TotalFilterBytes += other.TotalFilterBytes
}

// BytesPerElement returns the average encoded size of a new element and
// whether the ratio is defined (NewElements > 0): guards the division by
// zero the upstream source does not (spec §9 open question).
func (s Stats) BytesPerElement() (float64, bool) {
	if s.NewElements == 0 {
		return 0, false
	}
	return float64(s.NewElementBytes) / float64(s.NewElements), true
}

// BytesPerDuplicate mirrors BytesPerElement for duplicate pointers.
func (s Stats) BytesPerDuplicate() (float64, bool) {
	if s.DuplicateElements == 0 {
		return 0, false
	}
	return float64(s.DuplicateBytes) / float64(s.DuplicateElements), true
}

// BytesPerAddress reports the combined new+duplicate average.
func (s Stats) BytesPerAddress() (float64, bool) {
	count := s.NewElements + s.DuplicateElements
	if count == 0 {
		return 0, false
	}
	return float64(s.NewElementBytes+s.DuplicateBytes) / float64(count), true
}
