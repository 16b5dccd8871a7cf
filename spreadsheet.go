package gridengine

// Spreadsheet is a workbook of sheets. It always contains at least one
// sheet, and the active index always points at a valid sheet.
type Spreadsheet struct {
	sheets []*Sheet
	active int
}

// NewSpreadsheet creates a workbook with one empty sheet named
// "Sheet1".
func NewSpreadsheet() *Spreadsheet {
	return &Spreadsheet{
		sheets: []*Sheet{NewSheet("Sheet1")},
	}
}

func (s *Spreadsheet) SheetCount() int {
	return len(s.sheets)
}

// Sheet returns the sheet at the given index.
func (s *Spreadsheet) Sheet(index int) (*Sheet, bool) {
	if index < 0 || index >= len(s.sheets) {
		return nil, false
	}
	return s.sheets[index], true
}

// ActiveIndex returns the active sheet index.
func (s *Spreadsheet) ActiveIndex() int {
	return s.active
}

// ActiveSheet returns the active sheet.
func (s *Spreadsheet) ActiveSheet() *Sheet {
	return s.sheets[s.active]
}

// SetActiveSheet activates the sheet at index, clamping out-of-range
// indexes to the valid range.
func (s *Spreadsheet) SetActiveSheet(index int) {
	if index < 0 {
		index = 0
	}
	if index >= len(s.sheets) {
		index = len(s.sheets) - 1
	}
	s.active = index
}

// AddSheet appends a new empty sheet and returns its index.
func (s *Spreadsheet) AddSheet(name string) int {
	index := len(s.sheets)
	s.sheets = append(s.sheets, NewSheet(name))
	return index
}

// RemoveSheet removes the sheet at index. Removing the last remaining
// sheet, or an invalid index, is a no-op reporting false. The active
// index is clamped afterwards.
func (s *Spreadsheet) RemoveSheet(index int) (*Sheet, bool) {
	if len(s.sheets) <= 1 || index < 0 || index >= len(s.sheets) {
		return nil, false
	}

	removed := s.sheets[index]
	s.sheets = append(s.sheets[:index], s.sheets[index+1:]...)
	if s.active >= len(s.sheets) {
		s.active = len(s.sheets) - 1
	}
	return removed, true
}

// RenameSheet renames the sheet at index.
func (s *Spreadsheet) RenameSheet(index int, name string) bool {
	sheet, ok := s.Sheet(index)
	if !ok {
		return false
	}
	sheet.Name = name
	return true
}

// SheetNames returns the sheet names in order.
func (s *Spreadsheet) SheetNames() []string {
	names := make([]string, len(s.sheets))
	for i, sheet := range s.sheets {
		names[i] = sheet.Name
	}
	return names
}

// active-sheet conveniences, the engine's inbound surface

// Value reads a cell value from the active sheet.
func (s *Spreadsheet) Value(ref CellRef) CellValue {
	return s.ActiveSheet().Value(ref)
}

// SetValue writes a literal to the active sheet and returns the
// changed cells.
func (s *Spreadsheet) SetValue(ref CellRef, value CellValue) []CellRef {
	return s.ActiveSheet().SetValue(ref, value)
}

// SetFormula installs a formula on the active sheet.
func (s *Spreadsheet) SetFormula(ref CellRef, text string) ([]CellRef, error) {
	return s.ActiveSheet().SetFormula(ref, text)
}

// ClearCell clears a cell on the active sheet.
func (s *Spreadsheet) ClearCell(ref CellRef) []CellRef {
	return s.ActiveSheet().ClearCell(ref)
}

// Recalculate recalculates the active sheet.
func (s *Spreadsheet) Recalculate() []CellRef {
	return s.ActiveSheet().Recalculate()
}
