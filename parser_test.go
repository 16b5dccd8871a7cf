package gridengine

import (
	"errors"
	"testing"

	"github.com/go-quicktest/qt"
)

func TestParserValidFormulas(t *testing.T) {
	validFormulas := []string{
		"=1+2",
		"=A1",
		"=SUM(A1:A10)",
		"=SUM(B2:A1)",
		"=SUM(A1:A1)",
		"=SUM(A1:Z1000)",
		"=-A1",
		"=50%",
		"=2^3^2",
		"=1+2*3-4/5",
		"=(1+2)*3",
		"=A1&\" \"&B1",
		"=IF(A1>0, \"pos\", \"neg\")",
		"=PI()",
		"=1 <= 2",
		"=1 <> 2",
		`="Hello 世界"`,
		`="Test 😀 emoji"`,
		`=CONCATENATE("Hello ", "世界")`,
		`="she said ""hi"""`,
		"=1.5e3+2E-2",
		"=UNKNOWNFUNC(1)", // name resolution is evaluation-time
		"  =1+1  ",
	}

	for _, formula := range validFormulas {
		t.Run(formula, func(t *testing.T) {
			_, err := ParseFormula(formula)
			qt.Assert(t, qt.IsNil(err))
		})
	}
}

func TestParserInvalidFormulas(t *testing.T) {
	cases := []struct {
		formula string
		kind    ParseErrorKind
	}{
		{"", ParseInvalidSyntax},
		{"1+2", ParseInvalidSyntax}, // missing '='
		{"=", ParseInvalidSyntax},
		{"=SUM(", ParseInvalidSyntax},
		{"=A1:", ParseInvalidSyntax},
		{`="hello`, ParseInvalidSyntax},
		{"=1+", ParseInvalidSyntax},
		{"=1 2", ParseInvalidSyntax},
		{"=)", ParseInvalidSyntax},
		{"=SUM(1,)", ParseInvalidSyntax},
		{"=foo", ParseInvalidSyntax}, // bare identifier
		{"=#", ParseInvalidSyntax},
		{"=A0", ParseInvalidRef},
		{"=A0+1", ParseInvalidRef},
		{"=SUM(A0:B2)", ParseInvalidRef},
	}

	for _, c := range cases {
		t.Run(c.formula, func(t *testing.T) {
			_, err := ParseFormula(c.formula)
			qt.Assert(t, qt.IsNotNil(err))

			var parseErr *ParseError
			qt.Assert(t, qt.IsTrue(errors.As(err, &parseErr)))
			qt.Assert(t, qt.Equals(parseErr.Kind, c.kind))
		})
	}
}

// formulas render back from the AST with normalized casing and spacing
func TestParserStringNormalization(t *testing.T) {
	cases := []struct {
		formula string
		want    string
	}{
		{"=sum(a1:b2)", "=SUM(A1:B2)"},
		{"=1+2*3", "=1 + 2 * 3"},
		{"=a1", "=A1"},
		{"=concat(\"a\",\"b\")", "=CONCAT(\"a\", \"b\")"},
		{"=-a1%", "=-A1%"},
		{"=true", "=TRUE"},
	}

	for _, c := range cases {
		t.Run(c.formula, func(t *testing.T) {
			f, err := ParseFormula(c.formula)
			qt.Assert(t, qt.IsNil(err))
			qt.Assert(t, qt.Equals(f.String(), c.want))
		})
	}
}

func TestParserRefExtraction(t *testing.T) {
	f, err := ParseFormula("=A1 + SUM(B1:B3) + A1 + IF(C1>0, D1, 1)")
	qt.Assert(t, qt.IsNil(err))

	cells, ranges := f.Refs()
	sortRefs(cells)

	wantCells := []CellRef{
		{Row: 0, Col: 0}, // A1, deduplicated
		{Row: 0, Col: 2}, // C1
		{Row: 0, Col: 3}, // D1
	}
	qt.Assert(t, qt.DeepEquals(cells, wantCells))
	qt.Assert(t, qt.DeepEquals(ranges, []CellRange{
		NewCellRange(CellRef{Row: 0, Col: 1}, CellRef{Row: 2, Col: 1}),
	}))
}

func TestParserVolatileDetection(t *testing.T) {
	cases := []struct {
		formula  string
		volatile bool
	}{
		{"=RAND()", true},
		{"=NOW()", true},
		{"=TODAY()", true},
		{"=1+RAND()*10", true},
		{"=SUM(A1:A3, RAND())", true},
		{"=SUM(A1:A3)", false},
		{"=1+2", false},
	}

	for _, c := range cases {
		t.Run(c.formula, func(t *testing.T) {
			f, err := ParseFormula(c.formula)
			qt.Assert(t, qt.IsNil(err))
			qt.Assert(t, qt.Equals(f.IsVolatile(), c.volatile))
		})
	}
}
