package gridengine

import (
	"iter"
	"strings"
)

// CellRange is a rectangular block of cells. Start is always the
// top-left corner and End the bottom-right; NewCellRange normalizes
// any corner pair.
type CellRange struct {
	Start CellRef
	End   CellRef
}

func NewCellRange(start, end CellRef) CellRange {
	if start.Row > end.Row {
		start.Row, end.Row = end.Row, start.Row
	}
	if start.Col > end.Col {
		start.Col, end.Col = end.Col, start.Col
	}
	return CellRange{Start: start, End: end}
}

// SingleCellRange is the 1x1 range covering one cell.
func SingleCellRange(ref CellRef) CellRange {
	return CellRange{Start: ref, End: ref}
}

// ParseCellRange parses "A1:C5" style notation. Both endpoints must be
// valid cell references; the result is normalized.
func ParseCellRange(s string) (CellRange, bool) {
	first, second, found := strings.Cut(s, ":")
	if !found {
		return CellRange{}, false
	}
	start, ok := ParseCellRef(first)
	if !ok {
		return CellRange{}, false
	}
	end, ok := ParseCellRef(second)
	if !ok {
		return CellRange{}, false
	}
	return NewCellRange(start, end), true
}

// Contains reports whether the cell lies within the range.
func (r CellRange) Contains(ref CellRef) bool {
	return ref.Row >= r.Start.Row && ref.Row <= r.End.Row &&
		ref.Col >= r.Start.Col && ref.Col <= r.End.Col
}

func (r CellRange) RowCount() int {
	return int(r.End.Row-r.Start.Row) + 1
}

func (r CellRange) ColCount() int {
	return int(r.End.Col-r.Start.Col) + 1
}

// CellCount is the total number of cells covered.
func (r CellRange) CellCount() int {
	return r.RowCount() * r.ColCount()
}

// Cells yields every reference in the range in row-major order. The
// sequence is lazy and restartable; no slice is materialized.
func (r CellRange) Cells() iter.Seq[CellRef] {
	return func(yield func(CellRef) bool) {
		for row := r.Start.Row; row <= r.End.Row; row++ {
			for col := r.Start.Col; col <= r.End.Col; col++ {
				if !yield(CellRef{Row: row, Col: col}) {
					return
				}
			}
		}
	}
}

// String renders the range in A1 notation, e.g. "A1:C5".
func (r CellRange) String() string {
	return r.Start.A1() + ":" + r.End.A1()
}
