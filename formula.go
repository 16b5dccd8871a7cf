package gridengine

import "strings"

// Formula pairs the original formula text with its parsed expression.
type Formula struct {
	Text string
	Expr ASTNode
}

// ParseFormula parses formula text into a Formula. Text must start
// with '=' after trimming. The returned error, when non-nil, is a
// *ParseError; nothing is stored on failure.
func ParseFormula(text string) (*Formula, error) {
	trimmed := strings.TrimSpace(text)

	lexer := NewLexer(trimmed)
	tokens, lexErr := lexer.Tokenize()
	if lexErr != "" {
		return nil, NewParseError(ParseInvalidSyntax, lexErr)
	}

	expr, err := NewParser(tokens).Parse()
	if err != nil {
		return nil, err
	}

	return &Formula{Text: trimmed, Expr: expr}, nil
}

// Eval evaluates the formula against the given context. Evaluation
// failures come back as error values, never as Go errors.
func (f *Formula) Eval(ctx EvalContext) CellValue {
	return f.Expr.Eval(ctx)
}

// String renders the formula from its AST, normalizing whitespace and
// casing.
func (f *Formula) String() string {
	return "=" + f.Expr.String()
}

// Refs walks the expression and collects every cell and range the
// formula reads. Duplicates are removed.
func (f *Formula) Refs() ([]CellRef, []CellRange) {
	cellSet := make(map[CellRef]struct{})
	rangeSet := make(map[CellRange]struct{})
	collectRefs(f.Expr, cellSet, rangeSet)

	cells := make([]CellRef, 0, len(cellSet))
	for ref := range cellSet {
		cells = append(cells, ref)
	}
	ranges := make([]CellRange, 0, len(rangeSet))
	for r := range rangeSet {
		ranges = append(ranges, r)
	}
	return cells, ranges
}

func collectRefs(node ASTNode, cells map[CellRef]struct{}, ranges map[CellRange]struct{}) {
	switch n := node.(type) {
	case *CellRefNode:
		cells[n.Ref] = struct{}{}
	case *RangeNode:
		ranges[n.Range] = struct{}{}
	case *BinaryOpNode:
		collectRefs(n.Left, cells, ranges)
		collectRefs(n.Right, cells, ranges)
	case *UnaryOpNode:
		collectRefs(n.Operand, cells, ranges)
	case *FunctionCallNode:
		for _, arg := range n.Args {
			collectRefs(arg, cells, ranges)
		}
	}
}

// IsVolatile reports whether the formula calls any volatile function
// (NOW, TODAY, RAND). Volatile formulas re-evaluate on every
// recalculation pass regardless of dependency changes.
func (f *Formula) IsVolatile() bool {
	return hasVolatileCall(f.Expr)
}

func hasVolatileCall(node ASTNode) bool {
	switch n := node.(type) {
	case *FunctionCallNode:
		if isVolatileFunction(n.Name) {
			return true
		}
		for _, arg := range n.Args {
			if hasVolatileCall(arg) {
				return true
			}
		}
	case *BinaryOpNode:
		return hasVolatileCall(n.Left) || hasVolatileCall(n.Right)
	case *UnaryOpNode:
		return hasVolatileCall(n.Operand)
	}
	return false
}
