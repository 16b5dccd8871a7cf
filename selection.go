package gridengine

// Selection models the selected cells of a grid: one primary cell (the
// anchor for keyboard interaction) plus one or more ranges. The primary
// always lies within some range.
type Selection struct {
	Primary CellRef
	ranges  []CellRange
}

// NewSelection creates a selection covering a single cell.
func NewSelection(ref CellRef) Selection {
	return Selection{
		Primary: ref,
		ranges:  []CellRange{SingleCellRange(ref)},
	}
}

// SelectionFromRange creates a selection covering a range, with the
// primary at the range end.
func SelectionFromRange(r CellRange) Selection {
	return Selection{
		Primary: r.End,
		ranges:  []CellRange{r},
	}
}

// ExtendTo replaces the selection with the rectangle spanned by the
// original primary and end. Repeated extends are not cumulative: each
// one spans from the unchanged primary.
func (s *Selection) ExtendTo(end CellRef) {
	s.ranges = []CellRange{NewCellRange(s.Primary, end)}
}

// AddRange adds a disjoint range (ctrl-click multi-select). The primary
// moves to the new range's end.
func (s *Selection) AddRange(r CellRange) {
	s.ranges = append(s.ranges, r)
	s.Primary = r.End
}

// Set collapses the selection to a single cell.
func (s *Selection) Set(ref CellRef) {
	s.Primary = ref
	s.ranges = []CellRange{SingleCellRange(ref)}
}

// IsSelected reports whether any range covers the cell.
func (s *Selection) IsSelected(ref CellRef) bool {
	for _, r := range s.ranges {
		if r.Contains(ref) {
			return true
		}
	}
	return false
}

// Cells returns the set of selected cells. Overlapping ranges are
// deduplicated.
func (s *Selection) Cells() map[CellRef]struct{} {
	set := make(map[CellRef]struct{})
	for _, r := range s.ranges {
		for ref := range r.Cells() {
			set[ref] = struct{}{}
		}
	}
	return set
}

// CellCount is the number of distinct selected cells.
func (s *Selection) CellCount() int {
	return len(s.Cells())
}

// Range returns the first selected range.
func (s *Selection) Range() CellRange {
	return s.ranges[0]
}

// Ranges returns all selected ranges.
func (s *Selection) Ranges() []CellRange {
	return s.ranges
}
