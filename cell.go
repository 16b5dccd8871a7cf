package gridengine

import (
	"fmt"
	"strconv"
	"strings"
)

// Primitive represents basic grid value types.
// types:
//   - float64: numeric values (integers are converted to float64)
//   - string: text values
//   - bool: boolean values (TRUE/FALSE)
//   - int64: date values, counted in days since the Unix epoch
//   - nil: empty cells
//   - *CellError: error values (#DIV/0!, #VALUE!, etc.)
type Primitive any

// ErrorCode represents standard spreadsheet error codes following
// Excel conventions
type ErrorCode uint8

const (
	ErrorCodeNull  ErrorCode = 1 // #NULL! - no cells in common between ranges
	ErrorCodeDiv0  ErrorCode = 2 // #DIV/0! - division by zero
	ErrorCodeValue ErrorCode = 3 // #VALUE! - wrong type of argument or operand
	ErrorCodeRef   ErrorCode = 4 // #REF! - invalid or circular cell reference
	ErrorCodeName  ErrorCode = 5 // #NAME? - unrecognized function name
	ErrorCodeNum   ErrorCode = 6 // #NUM! - number outside the representable domain
	ErrorCodeNA    ErrorCode = 7 // #N/A - wrong number of arguments for function
	ErrorCodeOther ErrorCode = 8 // #ERROR! - all other errors
)

// ErrorMapper maps error code numbers to their string representations
var ErrorMapper = map[ErrorCode]string{
	ErrorCodeNull:  "#NULL!",
	ErrorCodeDiv0:  "#DIV/0!",
	ErrorCodeValue: "#VALUE!",
	ErrorCodeRef:   "#REF!",
	ErrorCodeName:  "#NAME?",
	ErrorCodeNum:   "#NUM!",
	ErrorCodeNA:    "#N/A",
	ErrorCodeOther: "#ERROR!",
}

// CellError preserves the error code for display in cells
type CellError struct {
	Code    ErrorCode
	Message string
}

func (e *CellError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return ErrorMapper[e.Code]
}

func NewCellError(code ErrorCode, message string) *CellError {
	if message == "" {
		message = ErrorMapper[code]
	}
	return &CellError{
		Code:    code,
		Message: message,
	}
}

// CellType represents numeric constants for cell value
// types (external API)
type CellType uint8

const (
	CellValueTypeEmpty   CellType = 0
	CellValueTypeNumber  CellType = 1
	CellValueTypeText    CellType = 2
	CellValueTypeDate    CellType = 3
	CellValueTypeBoolean CellType = 4
	CellValueTypeError   CellType = 5
)

// CellValue represents a cell value with type information. The zero
// value is the empty cell value.
type CellValue struct {
	Type  CellType
	Value Primitive
}

func EmptyValue() CellValue {
	return CellValue{Type: CellValueTypeEmpty}
}

func NumberValue(n float64) CellValue {
	return CellValue{Type: CellValueTypeNumber, Value: n}
}

func TextValue(s string) CellValue {
	return CellValue{Type: CellValueTypeText, Value: s}
}

func BoolValue(b bool) CellValue {
	return CellValue{Type: CellValueTypeBoolean, Value: b}
}

// DateValue builds a date value from days since the Unix epoch.
func DateValue(days int64) CellValue {
	return CellValue{Type: CellValueTypeDate, Value: days}
}

func ErrorValue(err *CellError) CellValue {
	return CellValue{Type: CellValueTypeError, Value: err}
}

func (v CellValue) IsEmpty() bool {
	return v.Type == CellValueTypeEmpty
}

func (v CellValue) IsError() bool {
	return v.Type == CellValueTypeError
}

// Err returns the contained error for error values, nil otherwise.
func (v CellValue) Err() *CellError {
	if v.Type != CellValueTypeError {
		return nil
	}
	return v.Value.(*CellError)
}

// AsNumber attempts numeric coercion: numbers pass through, booleans
// become 0/1, text is parsed, dates coerce to their day count. Empty
// and error values do not coerce.
func (v CellValue) AsNumber() (float64, bool) {
	switch v.Type {
	case CellValueTypeNumber:
		return v.Value.(float64), true
	case CellValueTypeBoolean:
		if v.Value.(bool) {
			return 1, true
		}
		return 0, true
	case CellValueTypeText:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.Value.(string)), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	case CellValueTypeDate:
		return float64(v.Value.(int64)), true
	default:
		return 0, false
	}
}

// DisplayString renders the value the way the grid shows it.
func (v CellValue) DisplayString() string {
	switch v.Type {
	case CellValueTypeEmpty:
		return ""
	case CellValueTypeText:
		return v.Value.(string)
	case CellValueTypeNumber:
		return strconv.FormatFloat(v.Value.(float64), 'f', -1, 64)
	case CellValueTypeBoolean:
		if v.Value.(bool) {
			return "TRUE"
		}
		return "FALSE"
	case CellValueTypeError:
		return ErrorMapper[v.Value.(*CellError).Code]
	case CellValueTypeDate:
		return fmt.Sprintf("Date(%d)", v.Value.(int64))
	}
	return ""
}

// Equal reports whether two values have the same type and payload.
// Error values compare by code and message.
func (v CellValue) Equal(other CellValue) bool {
	if v.Type != other.Type {
		return false
	}
	if v.Type == CellValueTypeError {
		a, b := v.Value.(*CellError), other.Value.(*CellError)
		return a.Code == b.Code && a.Message == b.Message
	}
	return v.Value == other.Value
}

// CellRef identifies a cell by zero-based row and column.
type CellRef struct {
	Row uint32
	Col uint32
}

func NewCellRef(row, col uint32) CellRef {
	return CellRef{Row: row, Col: col}
}

// ParseCellRef parses A1 notation, e.g. "B3" is row 2, column 1.
// Case-insensitive; surrounding whitespace is ignored.
func ParseCellRef(s string) (CellRef, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))

	// column letters: bijective base-26
	col := uint64(0)
	i := 0
	for ; i < len(s); i++ {
		ch := s[i]
		if ch < 'A' || ch > 'Z' {
			break
		}
		col = col*26 + uint64(ch-'A'+1)
	}
	if col == 0 {
		return CellRef{}, false
	}
	col-- // convert to 0-based

	if i == len(s) {
		return CellRef{}, false
	}
	row, err := strconv.ParseUint(s[i:], 10, 32)
	if err != nil || row == 0 {
		return CellRef{}, false
	}

	return CellRef{Row: uint32(row - 1), Col: uint32(col)}, true
}

// A1 converts the reference to A1 notation.
func (r CellRef) A1() string {
	var letters []byte
	col := r.Col + 1
	for col > 0 {
		col--
		letters = append([]byte{byte('A' + col%26)}, letters...)
		col /= 26
	}
	return string(letters) + strconv.FormatUint(uint64(r.Row+1), 10)
}

func (r CellRef) String() string {
	return r.A1()
}

// less orders references row-major, for deterministic output sets.
func (r CellRef) less(other CellRef) bool {
	if r.Row != other.Row {
		return r.Row < other.Row
	}
	return r.Col < other.Col
}

// Cell represents a single grid cell: its computed value, the formula
// text that produced it (empty for literal cells), and styling.
type Cell struct {
	Value   CellValue
	Formula string
	Style   *CellStyle
}

func (c *Cell) HasFormula() bool {
	return c.Formula != ""
}

// HAlign is a horizontal alignment setting.
type HAlign uint8

const (
	HAlignLeft HAlign = iota
	HAlignCenter
	HAlignRight
)

// VAlign is a vertical alignment setting.
type VAlign uint8

const (
	VAlignTop VAlign = iota
	VAlignMiddle
	VAlignBottom
)

// Color is an RGBA color.
type Color [4]uint8

// CellStyle holds per-cell presentation settings. Nil fields mean
// "inherit the default".
type CellStyle struct {
	NumberFormat *string
	FontFamily   *string
	FontSize     *float32
	Bold         *bool
	Italic       *bool
	Color        *Color
	Background   *Color
	HAlign       *HAlign
	VAlign       *VAlign
}
