package gridengine

import "iter"

const (
	defaultColWidth  = 100.0
	defaultRowHeight = 24.0
)

// Sheet is a single grid of cells with sparse storage: only non-empty
// cells have entries. The sheet owns its parsed formulas and the
// dependency graph that drives recalculation.
type Sheet struct {
	Name string

	cells      map[CellRef]*Cell
	colWidths  map[uint32]float64
	rowHeights map[uint32]float64

	FrozenRows uint32
	FrozenCols uint32

	formulas  map[CellRef]*Formula
	graph     *DependencyGraph
	functions *BuiltInFunctions
}

func NewSheet(name string) *Sheet {
	return NewSheetWithFunctions(name, NewBuiltInFunctions(WallClock{}, DefaultRandomGenerator{}))
}

// NewSheetWithFunctions creates a sheet with an injected function
// library, for pinning NOW/TODAY/RAND in tests.
func NewSheetWithFunctions(name string, functions *BuiltInFunctions) *Sheet {
	return &Sheet{
		Name:       name,
		cells:      make(map[CellRef]*Cell),
		colWidths:  make(map[uint32]float64),
		rowHeights: make(map[uint32]float64),
		formulas:   make(map[CellRef]*Formula),
		graph:      NewDependencyGraph(),
		functions:  NewBuiltInFunctions(functions.clock, functions.random),
	}
}

// Cell returns the stored cell, if any. Absent cells are empty.
func (s *Sheet) Cell(ref CellRef) (*Cell, bool) {
	cell, ok := s.cells[ref]
	return cell, ok
}

// Value returns the cell's computed value; absent cells read as empty.
func (s *Sheet) Value(ref CellRef) CellValue {
	if cell, ok := s.cells[ref]; ok {
		return cell.Value
	}
	return EmptyValue()
}

// CellValue implements EvalContext.
func (s *Sheet) CellValue(ref CellRef) (CellValue, bool) {
	cell, ok := s.cells[ref]
	if !ok {
		return EmptyValue(), false
	}
	return cell.Value, true
}

// Functions implements EvalContext.
func (s *Sheet) Functions() *BuiltInFunctions {
	return s.functions
}

// FormulaText returns the formula text of a cell, if it has one.
func (s *Sheet) FormulaText(ref CellRef) (string, bool) {
	if formula, ok := s.formulas[ref]; ok {
		return formula.Text, true
	}
	return "", false
}

// CellState reports where a cell is in the recalculation lifecycle.
func (s *Sheet) CellState(ref CellRef) CellState {
	return s.graph.State(ref)
}

// SetValue writes a literal value, replacing any formula the cell had.
// Writing an empty value removes the cell's entry entirely, keeping
// storage sparse. Returns every cell whose computed value changed,
// including downstream formula cells, sorted row-major.
func (s *Sheet) SetValue(ref CellRef, value CellValue) []CellRef {
	changed := make(map[CellRef]struct{})
	old := s.Value(ref)

	cell, exists := s.cells[ref]
	if exists && cell.HasFormula() {
		s.removeFormula(ref)
		cell.Formula = ""
	}

	if value.IsEmpty() {
		delete(s.cells, ref)
	} else {
		if !exists {
			cell = &Cell{}
			s.cells[ref] = cell
		}
		cell.Value = value
	}

	if !old.Equal(value) {
		changed[ref] = struct{}{}
	}
	s.graph.MarkDirty(ref)
	return s.recalculate(changed)
}

// SetFormula parses and installs a formula. A rejected formula returns
// a *ParseError and leaves the cell untouched; parse errors are never
// stored in cells. On success the cell and everything downstream
// recalculate, and the changed set comes back sorted row-major.
func (s *Sheet) SetFormula(ref CellRef, text string) ([]CellRef, error) {
	formula, err := ParseFormula(text)
	if err != nil {
		return nil, err
	}

	cell, exists := s.cells[ref]
	if exists && cell.HasFormula() {
		s.removeFormula(ref)
	}
	if !exists {
		cell = &Cell{}
		s.cells[ref] = cell
	}
	cell.Formula = formula.Text
	s.formulas[ref] = formula

	cells, ranges := formula.Refs()
	s.graph.SetDependencies(ref, cells, ranges)
	s.graph.MarkVolatile(ref, formula.IsVolatile())
	s.graph.MarkDirty(ref)

	return s.recalculate(make(map[CellRef]struct{})), nil
}

// ClearCell removes a cell entirely, value and formula both.
func (s *Sheet) ClearCell(ref CellRef) []CellRef {
	return s.SetValue(ref, EmptyValue())
}

// SetStyle applies styling. Styling an absent cell creates its entry;
// a later empty write still removes it, style included.
func (s *Sheet) SetStyle(ref CellRef, style *CellStyle) {
	cell, exists := s.cells[ref]
	if !exists {
		if style == nil {
			return
		}
		cell = &Cell{}
		s.cells[ref] = cell
	}
	cell.Style = style
}

func (s *Sheet) removeFormula(ref CellRef) {
	delete(s.formulas, ref)
	s.graph.ClearDependencies(ref)
	s.graph.MarkVolatile(ref, false)
	s.graph.setState(ref, StateClean)
}

// Recalculate runs a full pass over the dirty and volatile sets and
// returns the cells whose values changed.
func (s *Sheet) Recalculate() []CellRef {
	return s.recalculate(make(map[CellRef]struct{}))
}

// recalculate is the shared recomputation pass. Seeds are the dirty
// set plus volatile cells; every affected formula cell evaluates
// exactly once, in topological order. Cells that Kahn's algorithm
// cannot order form dependency cycles: they are not evaluated and get
// a circular-reference error value instead.
func (s *Sheet) recalculate(changed map[CellRef]struct{}) []CellRef {
	seeds := make(map[CellRef]struct{})
	for ref := range s.graph.Dirty() {
		seeds[ref] = struct{}{}
	}
	for ref := range s.graph.Volatile() {
		seeds[ref] = struct{}{}
	}

	if len(seeds) > 0 {
		affected := s.graph.Affected(seeds)
		formulaCells := make(map[CellRef]struct{})
		for ref := range affected {
			if _, has := s.formulas[ref]; has {
				formulaCells[ref] = struct{}{}
			}
		}

		order, cycle := s.graph.TopoOrder(formulaCells)
		for _, ref := range order {
			s.graph.setState(ref, StateEvaluating)
			result := s.formulas[ref].Eval(s)
			if result.IsError() {
				s.graph.setState(ref, StateError)
			} else {
				s.graph.setState(ref, StateClean)
			}
			s.storeResult(ref, result, changed)
		}
		for _, ref := range cycle {
			s.graph.setState(ref, StateError)
			s.storeResult(ref, ErrorValue(NewCellError(ErrorCodeRef, "circular-reference")), changed)
		}
	}

	s.graph.ClearDirty()

	out := make([]CellRef, 0, len(changed))
	for ref := range changed {
		out = append(out, ref)
	}
	sortRefs(out)
	return out
}

func (s *Sheet) storeResult(ref CellRef, result CellValue, changed map[CellRef]struct{}) {
	cell, ok := s.cells[ref]
	if !ok {
		// formula cells always have entries
		return
	}
	if !cell.Value.Equal(result) {
		cell.Value = result
		changed[ref] = struct{}{}
	}
}

// sizing. overrides never store the default value, so clearing a
// custom size returns the axis to the sparse default.

func (s *Sheet) ColWidth(col uint32) float64 {
	if w, ok := s.colWidths[col]; ok {
		return w
	}
	return defaultColWidth
}

func (s *Sheet) SetColWidth(col uint32, width float64) {
	if width == defaultColWidth {
		delete(s.colWidths, col)
		return
	}
	s.colWidths[col] = width
}

func (s *Sheet) RowHeight(row uint32) float64 {
	if h, ok := s.rowHeights[row]; ok {
		return h
	}
	return defaultRowHeight
}

func (s *Sheet) SetRowHeight(row uint32, height float64) {
	if height == defaultRowHeight {
		delete(s.rowHeights, row)
		return
	}
	s.rowHeights[row] = height
}

// CellCount is the number of stored (non-empty) cells.
func (s *Sheet) CellCount() int {
	return len(s.cells)
}

// Cells yields all stored cells in unspecified order.
func (s *Sheet) Cells() iter.Seq2[CellRef, *Cell] {
	return func(yield func(CellRef, *Cell) bool) {
		for ref, cell := range s.cells {
			if !yield(ref, cell) {
				return
			}
		}
	}
}

// UsedRange returns the bounding box of all stored cells. Reports
// false for an empty sheet.
func (s *Sheet) UsedRange() (CellRange, bool) {
	if len(s.cells) == 0 {
		return CellRange{}, false
	}

	first := true
	var bounds CellRange
	for ref := range s.cells {
		if first {
			bounds = CellRange{Start: ref, End: ref}
			first = false
			continue
		}
		if ref.Row < bounds.Start.Row {
			bounds.Start.Row = ref.Row
		}
		if ref.Col < bounds.Start.Col {
			bounds.Start.Col = ref.Col
		}
		if ref.Row > bounds.End.Row {
			bounds.End.Row = ref.Row
		}
		if ref.Col > bounds.End.Col {
			bounds.End.Col = ref.Col
		}
	}
	return bounds, true
}
