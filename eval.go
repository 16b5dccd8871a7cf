package gridengine

import "math"

// EvalContext supplies what formula evaluation needs from the outside:
// cell values by reference and the function library. A Sheet is the
// usual implementation.
type EvalContext interface {
	// CellValue returns the current value of a cell. Absent cells
	// report false and evaluate as empty.
	CellValue(ref CellRef) (CellValue, bool)
	// Functions returns the built-in function library.
	Functions() *BuiltInFunctions
}

// Evaluation never returns Go errors: failures become error values
// that flow through the computation like any other value.

func (n *NumberNode) Eval(ctx EvalContext) CellValue {
	return NumberValue(n.Value)
}

func (n *StringNode) Eval(ctx EvalContext) CellValue {
	return TextValue(n.Value)
}

func (n *BooleanNode) Eval(ctx EvalContext) CellValue {
	return BoolValue(n.Value)
}

func (n *CellRefNode) Eval(ctx EvalContext) CellValue {
	value, ok := ctx.CellValue(n.Ref)
	if !ok {
		return EmptyValue()
	}
	return value
}

// A bare range is not a scalar; it only has meaning as a function
// argument, where FunctionCallNode expands it before calling.
func (n *RangeNode) Eval(ctx EvalContext) CellValue {
	return ErrorValue(NewCellError(ErrorCodeValue, "range-in-scalar-context"))
}

func (n *FunctionCallNode) Eval(ctx EvalContext) CellValue {
	args := make([]Argument, len(n.Args))
	for i, argNode := range n.Args {
		if rangeNode, ok := argNode.(*RangeNode); ok {
			values := make([]CellValue, 0, rangeNode.Range.CellCount())
			for ref := range rangeNode.Range.Cells() {
				value, present := ctx.CellValue(ref)
				if !present {
					value = EmptyValue()
				}
				values = append(values, value)
			}
			args[i] = rangeArgument(values)
		} else {
			args[i] = scalarArgument(argNode.Eval(ctx))
		}
	}
	return ctx.Functions().Call(n.Name, args)
}

func (n *BinaryOpNode) Eval(ctx EvalContext) CellValue {
	left := n.Left.Eval(ctx)
	right := n.Right.Eval(ctx)
	return evalBinaryOp(n.Op, left, right)
}

func (n *UnaryOpNode) Eval(ctx EvalContext) CellValue {
	operand := n.Operand.Eval(ctx)
	return evalUnaryOp(n.Op, operand)
}

func evalBinaryOp(op BinaryOp, left, right CellValue) CellValue {
	// error operands win, left first
	if left.IsError() {
		return left
	}
	if right.IsError() {
		return right
	}

	switch op {
	case BinOpAdd, BinOpSubtract, BinOpMultiply, BinOpDivide, BinOpPower:
		return evalArithmetic(op, left, right)
	case BinOpConcat:
		return TextValue(left.DisplayString() + right.DisplayString())
	case BinOpEqual:
		return BoolValue(valuesEqual(left, right))
	case BinOpNotEqual:
		return BoolValue(!valuesEqual(left, right))
	case BinOpLess, BinOpLessEqual, BinOpGreater, BinOpGreaterEqual:
		return evalOrdered(op, left, right)
	}
	return ErrorValue(NewCellError(ErrorCodeOther, "unknown-operator"))
}

func evalArithmetic(op BinaryOp, left, right CellValue) CellValue {
	a, ok := left.AsNumber()
	if !ok {
		return ErrorValue(NewCellError(ErrorCodeValue, "expected-number"))
	}
	b, ok := right.AsNumber()
	if !ok {
		return ErrorValue(NewCellError(ErrorCodeValue, "expected-number"))
	}

	switch op {
	case BinOpAdd:
		return NumberValue(a + b)
	case BinOpSubtract:
		return NumberValue(a - b)
	case BinOpMultiply:
		return NumberValue(a * b)
	case BinOpDivide:
		if b == 0 {
			return ErrorValue(NewCellError(ErrorCodeDiv0, "div-by-zero"))
		}
		return NumberValue(a / b)
	case BinOpPower:
		return NumberValue(math.Pow(a, b))
	}
	return ErrorValue(NewCellError(ErrorCodeOther, "unknown-operator"))
}

// valuesEqual implements = and <>. Values of different types are
// simply unequal; no coercion happens across types.
func valuesEqual(left, right CellValue) bool {
	if left.Type != right.Type {
		return false
	}
	return left.Equal(right)
}

// evalOrdered implements < <= > >=. Ordering is only defined within a
// type: numbers numerically, text lexicographically, FALSE before
// TRUE, dates by day count. Mixed types are an error.
func evalOrdered(op BinaryOp, left, right CellValue) CellValue {
	if left.Type != right.Type {
		return ErrorValue(NewCellError(ErrorCodeValue, "unequal-types"))
	}

	var cmp int
	switch left.Type {
	case CellValueTypeNumber, CellValueTypeDate, CellValueTypeBoolean:
		a, _ := left.AsNumber()
		b, _ := right.AsNumber()
		cmp = compareFloats(a, b)
	case CellValueTypeText:
		a, b := left.Value.(string), right.Value.(string)
		switch {
		case a < b:
			cmp = -1
		case a > b:
			cmp = 1
		}
	default:
		return ErrorValue(NewCellError(ErrorCodeValue, "unequal-types"))
	}

	switch op {
	case BinOpLess:
		return BoolValue(cmp < 0)
	case BinOpLessEqual:
		return BoolValue(cmp <= 0)
	case BinOpGreater:
		return BoolValue(cmp > 0)
	case BinOpGreaterEqual:
		return BoolValue(cmp >= 0)
	}
	return ErrorValue(NewCellError(ErrorCodeOther, "unknown-operator"))
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func evalUnaryOp(op UnaryOp, operand CellValue) CellValue {
	if operand.IsError() {
		return operand
	}

	switch op {
	case UnaryOpPlus:
		return operand
	case UnaryOpMinus:
		n, ok := operand.AsNumber()
		if !ok {
			return ErrorValue(NewCellError(ErrorCodeValue, "expected-number"))
		}
		return NumberValue(-n)
	case UnaryOpPercent:
		n, ok := operand.AsNumber()
		if !ok {
			return ErrorValue(NewCellError(ErrorCodeValue, "expected-number"))
		}
		return NumberValue(n / 100)
	}
	return operand
}

// isTruthy implements the total truthiness used by logical functions:
// booleans as themselves, nonzero numbers, non-empty text, nonzero
// dates. Empty is false. Errors propagate.
func isTruthy(v CellValue) (bool, *CellError) {
	switch v.Type {
	case CellValueTypeError:
		return false, v.Err()
	case CellValueTypeBoolean:
		return v.Value.(bool), nil
	case CellValueTypeNumber:
		return v.Value.(float64) != 0, nil
	case CellValueTypeText:
		return v.Value.(string) != "", nil
	case CellValueTypeDate:
		return v.Value.(int64) != 0, nil
	default:
		return false, nil
	}
}
