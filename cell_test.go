package gridengine

import (
	"testing"

	"github.com/go-quicktest/qt"
)

func TestParseCellRef(t *testing.T) {
	cases := []struct {
		input string
		want  CellRef
	}{
		{"A1", CellRef{Row: 0, Col: 0}},
		{"B3", CellRef{Row: 2, Col: 1}},
		{"Z10", CellRef{Row: 9, Col: 25}},
		{"AA1", CellRef{Row: 0, Col: 26}},
		{"AZ1", CellRef{Row: 0, Col: 51}},
		{"BA1", CellRef{Row: 0, Col: 52}},
		{"b3", CellRef{Row: 2, Col: 1}},
		{"  C7  ", CellRef{Row: 6, Col: 2}},
	}

	for _, c := range cases {
		t.Run(c.input, func(t *testing.T) {
			ref, ok := ParseCellRef(c.input)
			qt.Assert(t, qt.IsTrue(ok))
			qt.Assert(t, qt.Equals(ref, c.want))
		})
	}
}

func TestParseCellRefRejects(t *testing.T) {
	invalid := []string{"", "A", "1", "12", "A0", "0", "1A", "A-1", "A1B", "!", "A 1"}

	for _, input := range invalid {
		t.Run(input, func(t *testing.T) {
			_, ok := ParseCellRef(input)
			qt.Assert(t, qt.IsFalse(ok))
		})
	}
}

func TestCellRefA1(t *testing.T) {
	cases := []struct {
		ref  CellRef
		want string
	}{
		{CellRef{Row: 0, Col: 0}, "A1"},
		{CellRef{Row: 2, Col: 1}, "B3"},
		{CellRef{Row: 9, Col: 25}, "Z10"},
		{CellRef{Row: 0, Col: 26}, "AA1"},
		{CellRef{Row: 0, Col: 701}, "ZZ1"},
		{CellRef{Row: 0, Col: 702}, "AAA1"},
	}

	for _, c := range cases {
		t.Run(c.want, func(t *testing.T) {
			qt.Assert(t, qt.Equals(c.ref.A1(), c.want))
		})
	}
}

// every reference survives formatting and reparsing unchanged
func TestCellRefRoundTrip(t *testing.T) {
	for row := uint32(0); row < 40; row += 3 {
		for col := uint32(0); col < 800; col += 7 {
			ref := CellRef{Row: row, Col: col}
			parsed, ok := ParseCellRef(ref.A1())
			qt.Assert(t, qt.IsTrue(ok), qt.Commentf("ref %v", ref))
			qt.Assert(t, qt.Equals(parsed, ref))
		}
	}
}

func TestCellValueAsNumber(t *testing.T) {
	cases := []struct {
		name  string
		value CellValue
		want  float64
		ok    bool
	}{
		{"number", NumberValue(2.5), 2.5, true},
		{"bool true", BoolValue(true), 1, true},
		{"bool false", BoolValue(false), 0, true},
		{"numeric text", TextValue("42"), 42, true},
		{"padded text", TextValue("  3.5 "), 3.5, true},
		{"date", DateValue(19000), 19000, true},
		{"plain text", TextValue("hello"), 0, false},
		{"empty", EmptyValue(), 0, false},
		{"error", ErrorValue(NewCellError(ErrorCodeDiv0, "div-by-zero")), 0, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			n, ok := c.value.AsNumber()
			qt.Assert(t, qt.Equals(ok, c.ok))
			if c.ok {
				qt.Assert(t, qt.Equals(n, c.want))
			}
		})
	}
}

func TestCellValueDisplayString(t *testing.T) {
	cases := []struct {
		name  string
		value CellValue
		want  string
	}{
		{"empty", EmptyValue(), ""},
		{"text", TextValue("hi"), "hi"},
		{"integer", NumberValue(20), "20"},
		{"decimal", NumberValue(0.5), "0.5"},
		{"true", BoolValue(true), "TRUE"},
		{"false", BoolValue(false), "FALSE"},
		{"error", ErrorValue(NewCellError(ErrorCodeDiv0, "div-by-zero")), "#DIV/0!"},
		{"date", DateValue(19000), "Date(19000)"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			qt.Assert(t, qt.Equals(c.value.DisplayString(), c.want))
		})
	}
}

func TestCellValueEqual(t *testing.T) {
	qt.Assert(t, qt.IsTrue(NumberValue(1).Equal(NumberValue(1))))
	qt.Assert(t, qt.IsFalse(NumberValue(1).Equal(NumberValue(2))))
	qt.Assert(t, qt.IsFalse(NumberValue(1).Equal(TextValue("1"))))
	qt.Assert(t, qt.IsTrue(EmptyValue().Equal(EmptyValue())))

	a := ErrorValue(NewCellError(ErrorCodeRef, "circular-reference"))
	b := ErrorValue(NewCellError(ErrorCodeRef, "circular-reference"))
	c := ErrorValue(NewCellError(ErrorCodeDiv0, "div-by-zero"))
	qt.Assert(t, qt.IsTrue(a.Equal(b)))
	qt.Assert(t, qt.IsFalse(a.Equal(c)))
}
