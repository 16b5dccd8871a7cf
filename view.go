package gridengine

// GridView holds the UI-facing view state for one sheet: scroll
// position, selection, in-progress edit, and zoom. It owns no cell
// data and does no rendering.
type GridView struct {
	RowHeaderWidth     float64
	ColumnHeaderHeight float64
	CellWidth          float64
	CellHeight         float64

	// ScrollPosition is the top-left visible cell.
	ScrollPosition CellRef
	Selection      Selection

	// Zoom level as a percentage (100 = 100%).
	Zoom float64

	VisibleRows uint32
	VisibleCols uint32

	editing    bool
	editCell   CellRef
	editBuffer string
}

const (
	defaultViewCellWidth  = 100.0
	defaultViewCellHeight = 24.0
	minZoom               = 50.0
	maxZoom               = 200.0
)

func NewGridView() *GridView {
	return &GridView{
		RowHeaderWidth:     50,
		ColumnHeaderHeight: 24,
		CellWidth:          defaultViewCellWidth,
		CellHeight:         defaultViewCellHeight,
		ScrollPosition:     CellRef{},
		Selection:          NewSelection(CellRef{}),
		Zoom:               100,
		VisibleRows:        20,
		VisibleCols:        10,
	}
}

// CellAt returns the cell under the given pixel coordinates, relative
// to the grid area. Points inside the headers report false.
func (v *GridView) CellAt(x, y float64) (CellRef, bool) {
	if x < v.RowHeaderWidth || y < v.ColumnHeaderHeight {
		return CellRef{}, false
	}
	col := uint32((x - v.RowHeaderWidth) / v.CellWidth)
	row := uint32((y - v.ColumnHeaderHeight) / v.CellHeight)
	return CellRef{
		Row: v.ScrollPosition.Row + row,
		Col: v.ScrollPosition.Col + col,
	}, true
}

// CellBounds returns the pixel bounds of a cell in grid coordinates.
func (v *GridView) CellBounds(ref CellRef) (x, y, width, height float64) {
	var rowOffset, colOffset float64
	if ref.Row > v.ScrollPosition.Row {
		rowOffset = float64(ref.Row - v.ScrollPosition.Row)
	}
	if ref.Col > v.ScrollPosition.Col {
		colOffset = float64(ref.Col - v.ScrollPosition.Col)
	}
	x = v.RowHeaderWidth + colOffset*v.CellWidth
	y = v.ColumnHeaderHeight + rowOffset*v.CellHeight
	return x, y, v.CellWidth, v.CellHeight
}

// ScrollToCell scrolls the minimum amount needed to make the cell
// visible.
func (v *GridView) ScrollToCell(ref CellRef) {
	if ref.Row < v.ScrollPosition.Row {
		v.ScrollPosition.Row = ref.Row
	} else if ref.Row >= v.ScrollPosition.Row+v.VisibleRows {
		v.ScrollPosition.Row = ref.Row - (v.VisibleRows - 1)
	}

	if ref.Col < v.ScrollPosition.Col {
		v.ScrollPosition.Col = ref.Col
	} else if ref.Col >= v.ScrollPosition.Col+v.VisibleCols {
		v.ScrollPosition.Col = ref.Col - (v.VisibleCols - 1)
	}
}

// StartEdit begins editing a cell with the given initial buffer.
func (v *GridView) StartEdit(ref CellRef, initial string) {
	v.editing = true
	v.editCell = ref
	v.editBuffer = initial
	v.ScrollToCell(ref)
}

// IsEditing reports whether an edit is in progress.
func (v *GridView) IsEditing() bool {
	return v.editing
}

// EditBuffer returns the current edit buffer contents.
func (v *GridView) EditBuffer() string {
	return v.editBuffer
}

// SetEditBuffer replaces the edit buffer contents.
func (v *GridView) SetEditBuffer(s string) {
	v.editBuffer = s
}

// FinishEdit ends the edit and returns the edited cell and buffer.
// Reports false when no edit was in progress.
func (v *GridView) FinishEdit() (CellRef, string, bool) {
	if !v.editing {
		return CellRef{}, "", false
	}
	ref, value := v.editCell, v.editBuffer
	v.editing = false
	v.editBuffer = ""
	return ref, value, true
}

// CancelEdit discards the in-progress edit.
func (v *GridView) CancelEdit() {
	v.editing = false
	v.editBuffer = ""
}

// MoveSelection moves the primary selection by the given delta, for
// arrow-key navigation. Movement clamps at row and column zero rather
// than wrapping.
func (v *GridView) MoveSelection(dRow, dCol int) {
	row := int64(v.Selection.Primary.Row) + int64(dRow)
	col := int64(v.Selection.Primary.Col) + int64(dCol)
	if row < 0 {
		row = 0
	}
	if col < 0 {
		col = 0
	}
	ref := CellRef{Row: uint32(row), Col: uint32(col)}
	v.Selection.Set(ref)
	v.ScrollToCell(ref)
}

// SetZoom sets the zoom percentage, clamped to [50, 200], and scales
// the effective cell dimensions.
func (v *GridView) SetZoom(zoom float64) {
	if zoom < minZoom {
		zoom = minZoom
	} else if zoom > maxZoom {
		zoom = maxZoom
	}
	v.Zoom = zoom
	scale := zoom / 100
	v.CellWidth = defaultViewCellWidth * scale
	v.CellHeight = defaultViewCellHeight * scale
}

// ContentWidth is the pixel width of the visible grid area.
func (v *GridView) ContentWidth() float64 {
	return v.RowHeaderWidth + float64(v.VisibleCols)*v.CellWidth
}

// ContentHeight is the pixel height of the visible grid area.
func (v *GridView) ContentHeight() float64 {
	return v.ColumnHeaderHeight + float64(v.VisibleRows)*v.CellHeight
}
