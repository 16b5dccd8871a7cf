package gridengine

import (
	"errors"
	"testing"

	"github.com/go-quicktest/qt"
	"github.com/google/go-cmp/cmp"
)

func ref(a1 string) CellRef {
	r, ok := ParseCellRef(a1)
	if !ok {
		panic("bad ref in test: " + a1)
	}
	return r
}

func assertChanged(t *testing.T, got []CellRef, want ...CellRef) {
	t.Helper()
	if want == nil {
		want = []CellRef{}
	}
	if got == nil {
		got = []CellRef{}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("changed set mismatch (-want +got):\n%s", diff)
	}
}

func TestSheetSparseStorage(t *testing.T) {
	sheet := NewSheet("test")
	qt.Assert(t, qt.Equals(sheet.CellCount(), 0))

	sheet.SetValue(ref("B2"), NumberValue(5))
	qt.Assert(t, qt.Equals(sheet.CellCount(), 1))
	qt.Assert(t, qt.IsTrue(sheet.Value(ref("B2")).Equal(NumberValue(5))))

	// absent cells read as empty
	qt.Assert(t, qt.IsTrue(sheet.Value(ref("A1")).IsEmpty()))
	_, exists := sheet.Cell(ref("A1"))
	qt.Assert(t, qt.IsFalse(exists))

	// writing empty removes the entry entirely
	sheet.SetValue(ref("B2"), EmptyValue())
	qt.Assert(t, qt.Equals(sheet.CellCount(), 0))
	_, exists = sheet.Cell(ref("B2"))
	qt.Assert(t, qt.IsFalse(exists))
}

func TestSheetUsedRange(t *testing.T) {
	sheet := NewSheet("test")

	_, ok := sheet.UsedRange()
	qt.Assert(t, qt.IsFalse(ok))

	sheet.SetValue(ref("C3"), NumberValue(1))
	sheet.SetValue(ref("B5"), NumberValue(2))
	sheet.SetValue(ref("E2"), NumberValue(3))

	bounds, ok := sheet.UsedRange()
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(bounds, CellRange{Start: ref("B2"), End: ref("E5")}))

	// clearing shrinks the box
	sheet.ClearCell(ref("B5"))
	bounds, _ = sheet.UsedRange()
	qt.Assert(t, qt.Equals(bounds, CellRange{Start: ref("C2"), End: ref("E3")}))
}

func TestSheetSizingOverrides(t *testing.T) {
	sheet := NewSheet("test")
	qt.Assert(t, qt.Equals(sheet.ColWidth(2), 100.0))
	qt.Assert(t, qt.Equals(sheet.RowHeight(2), 24.0))

	sheet.SetColWidth(2, 150)
	sheet.SetRowHeight(2, 40)
	qt.Assert(t, qt.Equals(sheet.ColWidth(2), 150.0))
	qt.Assert(t, qt.Equals(sheet.RowHeight(2), 40.0))

	// other axes keep the default
	qt.Assert(t, qt.Equals(sheet.ColWidth(3), 100.0))

	// setting back to the default clears the override
	sheet.SetColWidth(2, 100)
	sheet.SetRowHeight(2, 24)
	qt.Assert(t, qt.Equals(sheet.ColWidth(2), 100.0))
	qt.Assert(t, qt.Equals(sheet.RowHeight(2), 24.0))
}

func TestSheetStyle(t *testing.T) {
	sheet := NewSheet("test")
	bold := true
	sheet.SetValue(ref("A1"), TextValue("head"))
	sheet.SetStyle(ref("A1"), &CellStyle{Bold: &bold})

	cell, ok := sheet.Cell(ref("A1"))
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.IsNotNil(cell.Style))
	qt.Assert(t, qt.IsTrue(*cell.Style.Bold))

	// an empty write drops the entry, styling included
	sheet.SetValue(ref("A1"), EmptyValue())
	_, ok = sheet.Cell(ref("A1"))
	qt.Assert(t, qt.IsFalse(ok))
}

func TestSetValueChangedSet(t *testing.T) {
	sheet := NewSheet("test")

	changed := sheet.SetValue(ref("A1"), NumberValue(5))
	assertChanged(t, changed, ref("A1"))

	// writing the identical value changes nothing
	changed = sheet.SetValue(ref("A1"), NumberValue(5))
	assertChanged(t, changed)

	changed = sheet.SetValue(ref("A1"), NumberValue(6))
	assertChanged(t, changed, ref("A1"))
}

func TestFormulaEvaluatesOnWrite(t *testing.T) {
	sheet := NewSheet("test")
	sheet.SetValue(ref("A1"), NumberValue(5))

	changed, err := sheet.SetFormula(ref("B1"), "=A1+1")
	qt.Assert(t, qt.IsNil(err))
	assertChanged(t, changed, ref("B1"))
	qt.Assert(t, qt.IsTrue(sheet.Value(ref("B1")).Equal(NumberValue(6))))

	text, ok := sheet.FormulaText(ref("B1"))
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(text, "=A1+1"))
}

// a chain of formulas recomputes in dependency order, and the changed
// set reports everything downstream, sorted row-major
func TestFormulaChainRecompute(t *testing.T) {
	sheet := NewSheet("test")
	sheet.SetValue(ref("A1"), NumberValue(1))
	_, err := sheet.SetFormula(ref("B1"), "=A1+1")
	qt.Assert(t, qt.IsNil(err))
	_, err = sheet.SetFormula(ref("C1"), "=B1+1")
	qt.Assert(t, qt.IsNil(err))

	changed := sheet.SetValue(ref("A1"), NumberValue(10))
	assertChanged(t, changed, ref("A1"), ref("B1"), ref("C1"))

	qt.Assert(t, qt.IsTrue(sheet.Value(ref("B1")).Equal(NumberValue(11))))
	qt.Assert(t, qt.IsTrue(sheet.Value(ref("C1")).Equal(NumberValue(12))))
}

// writes inside a watched range dirty the formulas observing it
func TestRangeObserverRecompute(t *testing.T) {
	sheet := NewSheet("test")
	_, err := sheet.SetFormula(ref("B1"), "=SUM(A1:A3)")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(sheet.Value(ref("B1")).Equal(NumberValue(0))))

	changed := sheet.SetValue(ref("A2"), NumberValue(7))
	assertChanged(t, changed, ref("B1"), ref("A2"))
	qt.Assert(t, qt.IsTrue(sheet.Value(ref("B1")).Equal(NumberValue(7))))

	// a write outside the range leaves the observer alone
	changed = sheet.SetValue(ref("A5"), NumberValue(100))
	assertChanged(t, changed, ref("A5"))
}

// diamond dependencies evaluate each cell exactly once, so the final
// values are consistent
func TestDiamondRecompute(t *testing.T) {
	sheet := NewSheet("test")
	sheet.SetValue(ref("A1"), NumberValue(1))
	for _, f := range []struct{ ref, formula string }{
		{"B1", "=A1*2"},
		{"B2", "=A1*3"},
		{"C1", "=B1+B2"},
	} {
		_, err := sheet.SetFormula(ref(f.ref), f.formula)
		qt.Assert(t, qt.IsNil(err))
	}

	changed := sheet.SetValue(ref("A1"), NumberValue(10))
	assertChanged(t, changed, ref("A1"), ref("B1"), ref("C1"), ref("B2"))
	qt.Assert(t, qt.IsTrue(sheet.Value(ref("C1")).Equal(NumberValue(50))))
}

func TestEvalErrorStoredInCell(t *testing.T) {
	sheet := NewSheet("test")
	changed, err := sheet.SetFormula(ref("A1"), "=1/0")
	qt.Assert(t, qt.IsNil(err))
	assertChanged(t, changed, ref("A1"))

	value := sheet.Value(ref("A1"))
	qt.Assert(t, qt.IsTrue(value.IsError()))
	qt.Assert(t, qt.Equals(value.Err().Message, "div-by-zero"))
	qt.Assert(t, qt.Equals(sheet.CellState(ref("A1")), StateError))
}

// a formula that fails to parse is rejected outright: the error comes
// back to the caller and the cell keeps its prior contents
func TestRejectedFormulaRetainsPrior(t *testing.T) {
	sheet := NewSheet("test")
	sheet.SetValue(ref("A1"), NumberValue(5))

	changed, err := sheet.SetFormula(ref("A1"), "=1+")
	qt.Assert(t, qt.IsNotNil(err))
	qt.Assert(t, qt.IsNil(changed))

	var parseErr *ParseError
	qt.Assert(t, qt.IsTrue(errors.As(err, &parseErr)))
	qt.Assert(t, qt.Equals(parseErr.Kind, ParseInvalidSyntax))

	qt.Assert(t, qt.IsTrue(sheet.Value(ref("A1")).Equal(NumberValue(5))))
	_, hasFormula := sheet.FormulaText(ref("A1"))
	qt.Assert(t, qt.IsFalse(hasFormula))

	// invalid references are their own rejection kind
	_, err = sheet.SetFormula(ref("A1"), "=A0+1")
	qt.Assert(t, qt.IsTrue(errors.As(err, &parseErr)))
	qt.Assert(t, qt.Equals(parseErr.Kind, ParseInvalidRef))
	qt.Assert(t, qt.IsTrue(sheet.Value(ref("A1")).Equal(NumberValue(5))))
}

func TestCircularReference(t *testing.T) {
	sheet := NewSheet("test")
	_, err := sheet.SetFormula(ref("A1"), "=B1+1")
	qt.Assert(t, qt.IsNil(err))
	_, err = sheet.SetFormula(ref("B1"), "=A1+1")
	qt.Assert(t, qt.IsNil(err))

	for _, r := range []CellRef{ref("A1"), ref("B1")} {
		value := sheet.Value(r)
		qt.Assert(t, qt.IsTrue(value.IsError()), qt.Commentf("cell %v", r))
		qt.Assert(t, qt.Equals(value.Err().Message, "circular-reference"))
		qt.Assert(t, qt.Equals(sheet.CellState(r), StateError))
	}

	// breaking the cycle heals both cells
	changed := sheet.SetValue(ref("B1"), NumberValue(1))
	assertChanged(t, changed, ref("A1"), ref("B1"))
	qt.Assert(t, qt.IsTrue(sheet.Value(ref("A1")).Equal(NumberValue(2))))
	qt.Assert(t, qt.Equals(sheet.CellState(ref("A1")), StateClean))
}

func TestSelfReferenceIsCircular(t *testing.T) {
	sheet := NewSheet("test")
	_, err := sheet.SetFormula(ref("A1"), "=A1+1")
	qt.Assert(t, qt.IsNil(err))

	value := sheet.Value(ref("A1"))
	qt.Assert(t, qt.IsTrue(value.IsError()))
	qt.Assert(t, qt.Equals(value.Err().Message, "circular-reference"))
}

// a range observer that feeds into its own range is a cycle too
func TestRangeCycleIsCircular(t *testing.T) {
	sheet := NewSheet("test")
	_, err := sheet.SetFormula(ref("A2"), "=SUM(A1:A3)")
	qt.Assert(t, qt.IsNil(err))

	value := sheet.Value(ref("A2"))
	qt.Assert(t, qt.IsTrue(value.IsError()))
	qt.Assert(t, qt.Equals(value.Err().Message, "circular-reference"))
}

// cells outside the cycle keep evaluating; only cycle members get the
// circular-reference error
func TestCycleDoesNotPoisonNeighbors(t *testing.T) {
	sheet := NewSheet("test")
	sheet.SetValue(ref("D1"), NumberValue(4))
	_, err := sheet.SetFormula(ref("E1"), "=D1*2")
	qt.Assert(t, qt.IsNil(err))
	_, err = sheet.SetFormula(ref("A1"), "=B1+1")
	qt.Assert(t, qt.IsNil(err))
	_, err = sheet.SetFormula(ref("B1"), "=A1+1")
	qt.Assert(t, qt.IsNil(err))

	changed := sheet.SetValue(ref("D1"), NumberValue(5))
	assertChanged(t, changed, ref("D1"), ref("E1"))
	qt.Assert(t, qt.IsTrue(sheet.Value(ref("E1")).Equal(NumberValue(10))))
}

// replacing a formula with a literal detaches it from its precedents
func TestFormulaReplacedByValue(t *testing.T) {
	sheet := NewSheet("test")
	sheet.SetValue(ref("A1"), NumberValue(1))
	_, err := sheet.SetFormula(ref("B1"), "=A1+1")
	qt.Assert(t, qt.IsNil(err))

	sheet.SetValue(ref("B1"), NumberValue(99))
	_, hasFormula := sheet.FormulaText(ref("B1"))
	qt.Assert(t, qt.IsFalse(hasFormula))

	changed := sheet.SetValue(ref("A1"), NumberValue(2))
	assertChanged(t, changed, ref("A1"))
	qt.Assert(t, qt.IsTrue(sheet.Value(ref("B1")).Equal(NumberValue(99))))
}

func TestClearCellRecomputesDependents(t *testing.T) {
	sheet := NewSheet("test")
	sheet.SetValue(ref("A1"), NumberValue(1))
	sheet.SetValue(ref("A2"), NumberValue(2))
	_, err := sheet.SetFormula(ref("B1"), "=SUM(A1:A3)")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(sheet.Value(ref("B1")).Equal(NumberValue(3))))

	changed := sheet.ClearCell(ref("A1"))
	assertChanged(t, changed, ref("A1"), ref("B1"))
	qt.Assert(t, qt.IsTrue(sheet.Value(ref("B1")).Equal(NumberValue(2))))
}

// volatile formulas re-evaluate on every pass, not just when their
// precedents change
func TestVolatileRecalculation(t *testing.T) {
	random := &sequenceRandom{values: []float64{0.1, 0.2, 0.3, 0.4}}
	sheet := NewSheetWithFunctions("test", NewBuiltInFunctions(WallClock{}, random))

	_, err := sheet.SetFormula(ref("A1"), "=RAND()")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(sheet.Value(ref("A1")).Equal(NumberValue(0.1))))

	changed := sheet.Recalculate()
	assertChanged(t, changed, ref("A1"))
	qt.Assert(t, qt.IsTrue(sheet.Value(ref("A1")).Equal(NumberValue(0.2))))

	// non-volatile cells sit out a plain recalculation
	_, err = sheet.SetFormula(ref("B1"), "=1+1")
	qt.Assert(t, qt.IsNil(err))
	changed = sheet.Recalculate()
	assertChanged(t, changed, ref("A1"))
}

func TestFormulaUpdateRewiresDependencies(t *testing.T) {
	sheet := NewSheet("test")
	sheet.SetValue(ref("A1"), NumberValue(1))
	sheet.SetValue(ref("A2"), NumberValue(10))
	_, err := sheet.SetFormula(ref("B1"), "=A1*2")
	qt.Assert(t, qt.IsNil(err))

	// repoint the formula at A2
	_, err = sheet.SetFormula(ref("B1"), "=A2*2")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(sheet.Value(ref("B1")).Equal(NumberValue(20))))

	// the old precedent no longer triggers it
	changed := sheet.SetValue(ref("A1"), NumberValue(2))
	assertChanged(t, changed, ref("A1"))

	changed = sheet.SetValue(ref("A2"), NumberValue(20))
	assertChanged(t, changed, ref("A2"), ref("B1"))
	qt.Assert(t, qt.IsTrue(sheet.Value(ref("B1")).Equal(NumberValue(40))))
}
