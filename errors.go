package gridengine

import "fmt"

// ParseErrorKind classifies formula rejection reasons.
type ParseErrorKind uint8

const (
	// ParseInvalidSyntax covers malformed expressions: missing '=',
	// unbalanced parentheses, dangling operators, unclosed strings.
	ParseInvalidSyntax ParseErrorKind = iota + 1
	// ParseInvalidRef covers references that scan like a cell but do
	// not denote one, such as a zero row.
	ParseInvalidRef
)

func (k ParseErrorKind) String() string {
	switch k {
	case ParseInvalidSyntax:
		return "invalid syntax"
	case ParseInvalidRef:
		return "invalid reference"
	}
	return "parse error"
}

// ParseError is returned when a formula write is rejected. The cell
// keeps its prior contents; parse errors are never stored as values.
type ParseError struct {
	Kind    ParseErrorKind
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NewParseError(kind ParseErrorKind, message string) *ParseError {
	return &ParseError{Kind: kind, Message: message}
}
