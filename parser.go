package gridengine

import (
	"strconv"
	"strings"
)

// NodePosition tracks where a node came from in the formula text,
// in rune offsets.
type NodePosition struct {
	Start int
	End   int
}

// ASTNode is a parsed formula expression node. Eval lives with the
// evaluator; String renders the node back to formula syntax.
type ASTNode interface {
	Eval(ctx EvalContext) CellValue
	Position() NodePosition
	String() string
}

// NumberNode is a numeric literal
type NumberNode struct {
	Value float64
	Pos   NodePosition
}

func (n *NumberNode) Position() NodePosition { return n.Pos }
func (n *NumberNode) String() string {
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}

// StringNode is a string literal
type StringNode struct {
	Value string
	Pos   NodePosition
}

func (n *StringNode) Position() NodePosition { return n.Pos }
func (n *StringNode) String() string {
	return `"` + strings.ReplaceAll(n.Value, `"`, `""`) + `"`
}

// BooleanNode is a TRUE/FALSE literal
type BooleanNode struct {
	Value bool
	Pos   NodePosition
}

func (n *BooleanNode) Position() NodePosition { return n.Pos }
func (n *BooleanNode) String() string {
	if n.Value {
		return "TRUE"
	}
	return "FALSE"
}

// CellRefNode is an absolute reference to a single cell
type CellRefNode struct {
	Ref CellRef
	Pos NodePosition
}

func (n *CellRefNode) Position() NodePosition { return n.Pos }
func (n *CellRefNode) String() string         { return n.Ref.A1() }

// RangeNode is an absolute reference to a rectangular cell range
type RangeNode struct {
	Range CellRange
	Pos   NodePosition
}

func (n *RangeNode) Position() NodePosition { return n.Pos }
func (n *RangeNode) String() string         { return n.Range.String() }

// FunctionCallNode is a call like SUM(A1:A3, 4). Names are stored
// uppercased; resolution happens at evaluation time, so unknown names
// parse fine and evaluate to #NAME?.
type FunctionCallNode struct {
	Name string
	Args []ASTNode
	Pos  NodePosition
}

func (n *FunctionCallNode) Position() NodePosition { return n.Pos }
func (n *FunctionCallNode) String() string {
	parts := make([]string, len(n.Args))
	for i, arg := range n.Args {
		parts[i] = arg.String()
	}
	return n.Name + "(" + strings.Join(parts, ", ") + ")"
}

// BinaryOpNode is a binary operation
type BinaryOpNode struct {
	Op    BinaryOp
	Left  ASTNode
	Right ASTNode
	Pos   NodePosition
}

func (n *BinaryOpNode) Position() NodePosition { return n.Pos }
func (n *BinaryOpNode) String() string {
	return n.Left.String() + " " + n.Op.symbol() + " " + n.Right.String()
}

func (op BinaryOp) symbol() string {
	switch op {
	case BinOpAdd:
		return "+"
	case BinOpSubtract:
		return "-"
	case BinOpMultiply:
		return "*"
	case BinOpDivide:
		return "/"
	case BinOpPower:
		return "^"
	case BinOpConcat:
		return "&"
	case BinOpEqual:
		return "="
	case BinOpNotEqual:
		return "<>"
	case BinOpLess:
		return "<"
	case BinOpLessEqual:
		return "<="
	case BinOpGreater:
		return ">"
	case BinOpGreaterEqual:
		return ">="
	}
	return "?"
}

// UnaryOpNode is a unary operation: prefix - and +, postfix %
type UnaryOpNode struct {
	Op      UnaryOp
	Operand ASTNode
	Pos     NodePosition
}

func (n *UnaryOpNode) Position() NodePosition { return n.Pos }
func (n *UnaryOpNode) String() string {
	switch n.Op {
	case UnaryOpMinus:
		return "-" + n.Operand.String()
	case UnaryOpPlus:
		return "+" + n.Operand.String()
	case UnaryOpPercent:
		return n.Operand.String() + "%"
	}
	return n.Operand.String()
}

// Parser builds an AST from lexer tokens with a recursive-descent
// precedence chain: comparison, concatenation, additive,
// multiplicative, power, unary, primary.
type Parser struct {
	tokens []Token
	pos    int
}

func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse consumes the '=' prefix, parses one expression, and requires
// the input to be fully consumed.
func (p *Parser) Parse() (ASTNode, *ParseError) {
	if p.current().Type != TokenEquals {
		return nil, NewParseError(ParseInvalidSyntax, "formula must start with '='")
	}
	p.advance()

	expr, err := p.parseComparison()
	if err != nil {
		return nil, err
	}

	if p.current().Type != TokenEOF {
		return nil, NewParseError(ParseInvalidSyntax, "unexpected token: "+p.current().Value)
	}
	return expr, nil
}

func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// currentBinaryOp returns the binary operator at the cursor, if the
// cursor is on one of the given operator symbols.
func (p *Parser) currentBinaryOp(symbols ...string) (BinaryOp, bool) {
	tok := p.current()
	if tok.Type != TokenBinaryOp {
		return 0, false
	}
	for _, sym := range symbols {
		if tok.Value == sym {
			op, ok := binaryOpFromSymbol(sym)
			return op, ok
		}
	}
	return 0, false
}

func binaryOpFromSymbol(sym string) (BinaryOp, bool) {
	switch sym {
	case "+":
		return BinOpAdd, true
	case "-":
		return BinOpSubtract, true
	case "*":
		return BinOpMultiply, true
	case "/":
		return BinOpDivide, true
	case "^":
		return BinOpPower, true
	case "&":
		return BinOpConcat, true
	case "=":
		return BinOpEqual, true
	case "<>":
		return BinOpNotEqual, true
	case "<":
		return BinOpLess, true
	case "<=":
		return BinOpLessEqual, true
	case ">":
		return BinOpGreater, true
	case ">=":
		return BinOpGreaterEqual, true
	}
	return 0, false
}

func (p *Parser) parseComparison() (ASTNode, *ParseError) {
	left, err := p.parseConcatenation()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.currentBinaryOp("=", "<>", "<", "<=", ">", ">=")
		if !ok {
			break
		}
		tok := p.advance()
		right, err := p.parseConcatenation()
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Op: op, Left: left, Right: right, Pos: NodePosition{Start: left.Position().Start, End: tok.Pos + len(tok.Value)}}
	}
	return left, nil
}

func (p *Parser) parseConcatenation() (ASTNode, *ParseError) {
	left, err := p.parseAddition()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.currentBinaryOp("&")
		if !ok {
			break
		}
		p.advance()
		right, err := p.parseAddition()
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Op: op, Left: left, Right: right, Pos: spanOf(left, right)}
	}
	return left, nil
}

func (p *Parser) parseAddition() (ASTNode, *ParseError) {
	left, err := p.parseMultiplication()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.currentBinaryOp("+", "-")
		if !ok {
			break
		}
		p.advance()
		right, err := p.parseMultiplication()
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Op: op, Left: left, Right: right, Pos: spanOf(left, right)}
	}
	return left, nil
}

func (p *Parser) parseMultiplication() (ASTNode, *ParseError) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.currentBinaryOp("*", "/")
		if !ok {
			break
		}
		p.advance()
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Op: op, Left: left, Right: right, Pos: spanOf(left, right)}
	}
	return left, nil
}

// parsePower is right-associative: 2^3^2 is 2^(3^2)
func (p *Parser) parsePower() (ASTNode, *ParseError) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if op, ok := p.currentBinaryOp("^"); ok {
		p.advance()
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		return &BinaryOpNode{Op: op, Left: left, Right: right, Pos: spanOf(left, right)}, nil
	}
	return left, nil
}

func (p *Parser) parseUnary() (ASTNode, *ParseError) {
	tok := p.current()
	if tok.Type == TokenUnaryPrefixOp {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		op := UnaryOpPlus
		if tok.Value == "-" {
			op = UnaryOpMinus
		}
		return &UnaryOpNode{Op: op, Operand: operand, Pos: NodePosition{Start: tok.Pos, End: operand.Position().End}}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (ASTNode, *ParseError) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.current().Type == TokenUnaryPostfixOp {
		tok := p.advance()
		node = &UnaryOpNode{Op: UnaryOpPercent, Operand: node, Pos: NodePosition{Start: node.Position().Start, End: tok.Pos + 1}}
	}
	return node, nil
}

func (p *Parser) parsePrimary() (ASTNode, *ParseError) {
	tok := p.current()

	switch tok.Type {
	case TokenNumber:
		p.advance()
		value, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, NewParseError(ParseInvalidSyntax, "invalid number: "+tok.Value)
		}
		return &NumberNode{Value: value, Pos: tokenSpan(tok)}, nil

	case TokenString:
		p.advance()
		return &StringNode{Value: tok.Value, Pos: tokenSpan(tok)}, nil

	case TokenBoolean:
		p.advance()
		return &BooleanNode{Value: tok.Value == "TRUE", Pos: tokenSpan(tok)}, nil

	case TokenCell:
		p.advance()
		ref, ok := ParseCellRef(tok.Value)
		if !ok {
			return nil, NewParseError(ParseInvalidRef, "invalid cell reference: "+tok.Value)
		}
		return &CellRefNode{Ref: ref, Pos: tokenSpan(tok)}, nil

	case TokenRange:
		p.advance()
		rng, ok := ParseCellRange(tok.Value)
		if !ok {
			return nil, NewParseError(ParseInvalidRef, "invalid range reference: "+tok.Value)
		}
		return &RangeNode{Range: rng, Pos: tokenSpan(tok)}, nil

	case TokenFunction:
		return p.parseFunctionCall()

	case TokenLeftParen:
		p.advance()
		expr, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		if p.current().Type != TokenRightParen {
			return nil, NewParseError(ParseInvalidSyntax, "expected closing parenthesis")
		}
		p.advance()
		return expr, nil

	case TokenIdentifier:
		return nil, NewParseError(ParseInvalidSyntax, "unexpected identifier: "+tok.Value)

	case TokenEOF:
		return nil, NewParseError(ParseInvalidSyntax, "unexpected end of formula")
	}

	return nil, NewParseError(ParseInvalidSyntax, "unexpected token: "+tok.Value)
}

func (p *Parser) parseFunctionCall() (ASTNode, *ParseError) {
	nameTok := p.advance()

	if p.current().Type != TokenLeftParen {
		return nil, NewParseError(ParseInvalidSyntax, "expected '(' after function name")
	}
	p.advance()

	var args []ASTNode

	// arg-less call like PI()
	if p.current().Type == TokenRightParen {
		closeTok := p.advance()
		return &FunctionCallNode{Name: nameTok.Value, Pos: NodePosition{Start: nameTok.Pos, End: closeTok.Pos + 1}}, nil
	}

	for {
		arg, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		switch p.current().Type {
		case TokenComma:
			p.advance()
		case TokenRightParen:
			closeTok := p.advance()
			return &FunctionCallNode{Name: nameTok.Value, Args: args, Pos: NodePosition{Start: nameTok.Pos, End: closeTok.Pos + 1}}, nil
		default:
			return nil, NewParseError(ParseInvalidSyntax, "expected ',' or ')' in function arguments")
		}
	}
}

func tokenSpan(tok Token) NodePosition {
	return NodePosition{Start: tok.Pos, End: tok.Pos + len(tok.Value)}
}

func spanOf(left, right ASTNode) NodePosition {
	return NodePosition{Start: left.Position().Start, End: right.Position().End}
}
