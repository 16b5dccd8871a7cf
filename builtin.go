package gridengine

import (
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const millisPerDay = 24 * 60 * 60 * 1000

// Clock abstracts time for NOW/TODAY so tests can pin it
type Clock interface {
	Now() time.Time
}

// WallClock is the production clock
type WallClock struct{}

func (WallClock) Now() time.Time {
	return time.Now()
}

// RandomGenerator abstracts randomness for RAND so tests can pin it
type RandomGenerator interface {
	Float64() float64
}

// DefaultRandomGenerator is the production random source
type DefaultRandomGenerator struct{}

func (DefaultRandomGenerator) Float64() float64 {
	return rand.Float64()
}

// Argument is one evaluated function argument. Range arguments arrive
// pre-expanded into their member values in row-major order.
type Argument struct {
	value   CellValue
	values  []CellValue
	isRange bool
}

func scalarArgument(v CellValue) Argument {
	return Argument{value: v}
}

func rangeArgument(values []CellValue) Argument {
	return Argument{values: values, isRange: true}
}

// Scalar returns the argument as a single value. A range in scalar
// position is a type error.
func (a Argument) Scalar() CellValue {
	if a.isRange {
		return ErrorValue(NewCellError(ErrorCodeValue, "range-in-scalar-context"))
	}
	return a.value
}

// Flatten returns the argument's values: one for scalars, all members
// for ranges.
func (a Argument) Flatten() []CellValue {
	if a.isRange {
		return a.values
	}
	return []CellValue{a.value}
}

func flattenArgs(args []Argument) []CellValue {
	var values []CellValue
	for _, a := range args {
		values = append(values, a.Flatten()...)
	}
	return values
}

// numericValues keeps the values that coerce to numbers. Text that
// doesn't parse, empties, and errors are skipped, which gives the
// aggregate functions their skip semantics.
func numericValues(values []CellValue) []float64 {
	var nums []float64
	for _, v := range values {
		if n, ok := v.AsNumber(); ok {
			nums = append(nums, n)
		}
	}
	return nums
}

// functionSynonyms maps accepted aliases to canonical names
var functionSynonyms = map[string]string{
	"AVG":     "AVERAGE",
	"CEILING": "CEIL",
	"CONCAT":  "CONCATENATE",
	"SEARCH":  "FIND",
	"REPLACE": "SUBSTITUTE",
	"POW":     "POWER",
	"LENGTH":  "LEN",
}

// isVolatileFunction reports whether a function's result can change
// between identical recalculations
func isVolatileFunction(name string) bool {
	name = canonicalFunctionName(name)
	return name == "NOW" || name == "TODAY" || name == "RAND"
}

func canonicalFunctionName(name string) string {
	name = toUpperASCII(name)
	if canonical, ok := functionSynonyms[name]; ok {
		return canonical
	}
	return name
}

// BuiltInFunctions implements the built-in formula function library
type BuiltInFunctions struct {
	clock  Clock
	random RandomGenerator
}

func NewBuiltInFunctions(clock Clock, random RandomGenerator) *BuiltInFunctions {
	return &BuiltInFunctions{clock: clock, random: random}
}

// Call dispatches by name. Synonyms resolve to their canonical
// function; unknown names produce #NAME?.
func (f *BuiltInFunctions) Call(name string, args []Argument) CellValue {
	switch canonicalFunctionName(name) {
	case "SUM":
		return f.sum(args)
	case "AVERAGE":
		return f.average(args)
	case "COUNT":
		return f.count(args)
	case "COUNTA":
		return f.counta(args)
	case "MAX":
		return f.max(args)
	case "MIN":
		return f.min(args)
	case "MEDIAN":
		return f.median(args)
	case "MODE":
		return f.mode(args)
	case "ABS":
		return f.abs(args)
	case "ROUND":
		return f.round(args)
	case "FLOOR":
		return f.floor(args)
	case "CEIL":
		return f.ceil(args)
	case "SQRT":
		return f.sqrt(args)
	case "POWER":
		return f.power(args)
	case "MOD":
		return f.mod(args)
	case "PI":
		return f.pi(args)
	case "IF":
		return f.ifFunc(args)
	case "AND":
		return f.and(args)
	case "OR":
		return f.or(args)
	case "NOT":
		return f.not(args)
	case "TRUE":
		return BoolValue(true)
	case "FALSE":
		return BoolValue(false)
	case "CONCATENATE":
		return f.concatenate(args)
	case "LEN":
		return f.lenFunc(args)
	case "UPPER":
		return f.upper(args)
	case "LOWER":
		return f.lower(args)
	case "TRIM":
		return f.trim(args)
	case "LEFT":
		return f.left(args)
	case "RIGHT":
		return f.right(args)
	case "MID":
		return f.mid(args)
	case "FIND":
		return f.find(args)
	case "SUBSTITUTE":
		return f.substitute(args)
	case "CHAR":
		return f.charFunc(args)
	case "CODE":
		return f.code(args)
	case "NOW":
		return f.now(args)
	case "TODAY":
		return f.today(args)
	case "RAND":
		return f.randFunc(args)
	}
	return ErrorValue(NewCellError(ErrorCodeName, "unknown-function: "+toUpperASCII(name)))
}

func wrongArgCount() CellValue {
	return ErrorValue(NewCellError(ErrorCodeNA, "wrong-argument-count"))
}

// aggregate functions

func (f *BuiltInFunctions) sum(args []Argument) CellValue {
	total := 0.0
	for _, n := range numericValues(flattenArgs(args)) {
		total += n
	}
	return NumberValue(total)
}

func (f *BuiltInFunctions) average(args []Argument) CellValue {
	nums := numericValues(flattenArgs(args))
	if len(nums) == 0 {
		return NumberValue(0)
	}
	total := 0.0
	for _, n := range nums {
		total += n
	}
	return NumberValue(total / float64(len(nums)))
}

func (f *BuiltInFunctions) count(args []Argument) CellValue {
	count := 0
	for _, v := range flattenArgs(args) {
		if v.Type == CellValueTypeNumber {
			count++
		}
	}
	return NumberValue(float64(count))
}

func (f *BuiltInFunctions) counta(args []Argument) CellValue {
	count := 0
	for _, v := range flattenArgs(args) {
		if !v.IsEmpty() {
			count++
		}
	}
	return NumberValue(float64(count))
}

func (f *BuiltInFunctions) max(args []Argument) CellValue {
	nums := numericValues(flattenArgs(args))
	if len(nums) == 0 {
		return ErrorValue(NewCellError(ErrorCodeNA, "no-numeric-values"))
	}
	best := nums[0]
	for _, n := range nums[1:] {
		best = math.Max(best, n)
	}
	return NumberValue(best)
}

func (f *BuiltInFunctions) min(args []Argument) CellValue {
	nums := numericValues(flattenArgs(args))
	if len(nums) == 0 {
		return ErrorValue(NewCellError(ErrorCodeNA, "no-numeric-values"))
	}
	best := nums[0]
	for _, n := range nums[1:] {
		best = math.Min(best, n)
	}
	return NumberValue(best)
}

func (f *BuiltInFunctions) median(args []Argument) CellValue {
	nums := numericValues(flattenArgs(args))
	if len(nums) == 0 {
		return ErrorValue(NewCellError(ErrorCodeNA, "no-numeric-values"))
	}
	sort.Float64s(nums)
	mid := len(nums) / 2
	if len(nums)%2 == 1 {
		return NumberValue(nums[mid])
	}
	return NumberValue((nums[mid-1] + nums[mid]) / 2)
}

func (f *BuiltInFunctions) mode(args []Argument) CellValue {
	nums := numericValues(flattenArgs(args))
	counts := make(map[float64]int)
	for _, n := range nums {
		counts[n]++
	}

	bestCount := 0
	best := 0.0
	for n, count := range counts {
		if count > bestCount || (count == bestCount && n < best) {
			bestCount = count
			best = n
		}
	}
	if bestCount < 2 {
		return ErrorValue(NewCellError(ErrorCodeNA, "no-mode"))
	}
	return NumberValue(best)
}

// scalar math functions. non-numeric input passes through unchanged,
// errors included.

func (f *BuiltInFunctions) abs(args []Argument) CellValue {
	if len(args) != 1 {
		return wrongArgCount()
	}
	v := args[0].Scalar()
	n, ok := v.AsNumber()
	if !ok {
		return v
	}
	return NumberValue(math.Abs(n))
}

func (f *BuiltInFunctions) round(args []Argument) CellValue {
	if len(args) < 1 || len(args) > 2 {
		return wrongArgCount()
	}
	v := args[0].Scalar()
	n, ok := v.AsNumber()
	if !ok {
		return v
	}

	decimals := 0.0
	if len(args) == 2 {
		d, ok := args[1].Scalar().AsNumber()
		if !ok {
			return ErrorValue(NewCellError(ErrorCodeValue, "expected-number"))
		}
		decimals = d
	}

	multiplier := math.Pow(10, math.Trunc(decimals))
	return NumberValue(math.Round(n*multiplier) / multiplier)
}

func (f *BuiltInFunctions) floor(args []Argument) CellValue {
	if len(args) != 1 {
		return wrongArgCount()
	}
	v := args[0].Scalar()
	n, ok := v.AsNumber()
	if !ok {
		return v
	}
	return NumberValue(math.Floor(n))
}

func (f *BuiltInFunctions) ceil(args []Argument) CellValue {
	if len(args) != 1 {
		return wrongArgCount()
	}
	v := args[0].Scalar()
	n, ok := v.AsNumber()
	if !ok {
		return v
	}
	return NumberValue(math.Ceil(n))
}

func (f *BuiltInFunctions) sqrt(args []Argument) CellValue {
	if len(args) != 1 {
		return wrongArgCount()
	}
	v := args[0].Scalar()
	n, ok := v.AsNumber()
	if !ok {
		return v
	}
	if n < 0 {
		return ErrorValue(NewCellError(ErrorCodeNum, "negative-sqrt"))
	}
	return NumberValue(math.Sqrt(n))
}

func (f *BuiltInFunctions) power(args []Argument) CellValue {
	if len(args) != 2 {
		return wrongArgCount()
	}
	base := args[0].Scalar()
	a, ok := base.AsNumber()
	if !ok {
		return base
	}
	exp := args[1].Scalar()
	b, ok := exp.AsNumber()
	if !ok {
		return exp
	}
	return NumberValue(math.Pow(a, b))
}

func (f *BuiltInFunctions) mod(args []Argument) CellValue {
	if len(args) != 2 {
		return wrongArgCount()
	}
	a, ok := args[0].Scalar().AsNumber()
	if !ok {
		return ErrorValue(NewCellError(ErrorCodeValue, "expected-number"))
	}
	b, ok := args[1].Scalar().AsNumber()
	if !ok {
		return ErrorValue(NewCellError(ErrorCodeValue, "expected-number"))
	}
	if b == 0 {
		return ErrorValue(NewCellError(ErrorCodeDiv0, "div-by-zero"))
	}
	return NumberValue(math.Mod(a, b))
}

func (f *BuiltInFunctions) pi(args []Argument) CellValue {
	if len(args) != 0 {
		return wrongArgCount()
	}
	return NumberValue(math.Pi)
}

// logical functions

func (f *BuiltInFunctions) ifFunc(args []Argument) CellValue {
	if len(args) < 2 || len(args) > 3 {
		return wrongArgCount()
	}
	cond := args[0].Scalar()
	truthy, err := isTruthy(cond)
	if err != nil {
		return ErrorValue(err)
	}
	if truthy {
		return args[1].Scalar()
	}
	if len(args) == 3 {
		return args[2].Scalar()
	}
	return BoolValue(false)
}

func (f *BuiltInFunctions) and(args []Argument) CellValue {
	if len(args) == 0 {
		return wrongArgCount()
	}
	seen := false
	for _, v := range flattenArgs(args) {
		if v.IsEmpty() {
			continue
		}
		truthy, err := isTruthy(v)
		if err != nil {
			return ErrorValue(err)
		}
		seen = true
		if !truthy {
			return BoolValue(false)
		}
	}
	if !seen {
		return ErrorValue(NewCellError(ErrorCodeValue, "no-logical-values"))
	}
	return BoolValue(true)
}

func (f *BuiltInFunctions) or(args []Argument) CellValue {
	if len(args) == 0 {
		return wrongArgCount()
	}
	seen := false
	for _, v := range flattenArgs(args) {
		if v.IsEmpty() {
			continue
		}
		truthy, err := isTruthy(v)
		if err != nil {
			return ErrorValue(err)
		}
		seen = true
		if truthy {
			return BoolValue(true)
		}
	}
	if !seen {
		return ErrorValue(NewCellError(ErrorCodeValue, "no-logical-values"))
	}
	return BoolValue(false)
}

func (f *BuiltInFunctions) not(args []Argument) CellValue {
	if len(args) != 1 {
		return wrongArgCount()
	}
	truthy, err := isTruthy(args[0].Scalar())
	if err != nil {
		return ErrorValue(err)
	}
	return BoolValue(!truthy)
}

// text functions. arguments are rendered to display strings; error
// values propagate instead of rendering as "#VALUE!" text.

// displayArg renders one scalar argument, propagating errors
func displayArg(a Argument) (string, *CellError) {
	v := a.Scalar()
	if v.IsError() {
		return "", v.Err()
	}
	return v.DisplayString(), nil
}

func (f *BuiltInFunctions) concatenate(args []Argument) CellValue {
	var b strings.Builder
	for _, v := range flattenArgs(args) {
		if v.IsError() {
			return v
		}
		b.WriteString(v.DisplayString())
	}
	return TextValue(b.String())
}

func (f *BuiltInFunctions) lenFunc(args []Argument) CellValue {
	if len(args) != 1 {
		return wrongArgCount()
	}
	s, err := displayArg(args[0])
	if err != nil {
		return ErrorValue(err)
	}
	return NumberValue(float64(utf8.RuneCountInString(s)))
}

func (f *BuiltInFunctions) upper(args []Argument) CellValue {
	if len(args) != 1 {
		return wrongArgCount()
	}
	s, err := displayArg(args[0])
	if err != nil {
		return ErrorValue(err)
	}
	return TextValue(strings.ToUpper(s))
}

func (f *BuiltInFunctions) lower(args []Argument) CellValue {
	if len(args) != 1 {
		return wrongArgCount()
	}
	s, err := displayArg(args[0])
	if err != nil {
		return ErrorValue(err)
	}
	return TextValue(strings.ToLower(s))
}

func (f *BuiltInFunctions) trim(args []Argument) CellValue {
	if len(args) != 1 {
		return wrongArgCount()
	}
	s, err := displayArg(args[0])
	if err != nil {
		return ErrorValue(err)
	}
	return TextValue(strings.TrimSpace(s))
}

func (f *BuiltInFunctions) left(args []Argument) CellValue {
	if len(args) < 1 || len(args) > 2 {
		return wrongArgCount()
	}
	s, err := displayArg(args[0])
	if err != nil {
		return ErrorValue(err)
	}

	count := 1.0
	if len(args) == 2 {
		n, ok := args[1].Scalar().AsNumber()
		if !ok {
			return ErrorValue(NewCellError(ErrorCodeValue, "expected-number"))
		}
		count = n
	}
	if count < 0 {
		return ErrorValue(NewCellError(ErrorCodeValue, "negative-length"))
	}

	runes := []rune(s)
	if int(count) < len(runes) {
		runes = runes[:int(count)]
	}
	return TextValue(string(runes))
}

func (f *BuiltInFunctions) right(args []Argument) CellValue {
	if len(args) < 1 || len(args) > 2 {
		return wrongArgCount()
	}
	s, err := displayArg(args[0])
	if err != nil {
		return ErrorValue(err)
	}

	count := 1.0
	if len(args) == 2 {
		n, ok := args[1].Scalar().AsNumber()
		if !ok {
			return ErrorValue(NewCellError(ErrorCodeValue, "expected-number"))
		}
		count = n
	}
	if count < 0 {
		return ErrorValue(NewCellError(ErrorCodeValue, "negative-length"))
	}

	runes := []rune(s)
	if int(count) < len(runes) {
		runes = runes[len(runes)-int(count):]
	}
	return TextValue(string(runes))
}

func (f *BuiltInFunctions) mid(args []Argument) CellValue {
	if len(args) != 3 {
		return wrongArgCount()
	}
	s, err := displayArg(args[0])
	if err != nil {
		return ErrorValue(err)
	}
	start, ok := args[1].Scalar().AsNumber()
	if !ok || start < 1 {
		return ErrorValue(NewCellError(ErrorCodeValue, "invalid-start"))
	}
	count, ok := args[2].Scalar().AsNumber()
	if !ok || count < 0 {
		return ErrorValue(NewCellError(ErrorCodeValue, "negative-length"))
	}

	runes := []rune(s)
	from := int(start) - 1 // 1-based position
	if from >= len(runes) {
		return TextValue("")
	}
	to := from + int(count)
	if to > len(runes) {
		to = len(runes)
	}
	return TextValue(string(runes[from:to]))
}

func (f *BuiltInFunctions) find(args []Argument) CellValue {
	if len(args) < 2 || len(args) > 3 {
		return wrongArgCount()
	}
	needle, err := displayArg(args[0])
	if err != nil {
		return ErrorValue(err)
	}
	haystack, err := displayArg(args[1])
	if err != nil {
		return ErrorValue(err)
	}

	start := 1.0
	if len(args) == 3 {
		n, ok := args[2].Scalar().AsNumber()
		if !ok || n < 1 {
			return ErrorValue(NewCellError(ErrorCodeValue, "invalid-start"))
		}
		start = n
	}

	runes := []rune(haystack)
	from := int(start) - 1
	if from > len(runes) {
		return ErrorValue(NewCellError(ErrorCodeValue, "not-found"))
	}

	idx := strings.Index(string(runes[from:]), needle)
	if idx < 0 {
		return ErrorValue(NewCellError(ErrorCodeValue, "not-found"))
	}
	// report the 1-based rune position in the full string
	pos := from + utf8.RuneCountInString(string(runes[from:])[:idx]) + 1
	return NumberValue(float64(pos))
}

func (f *BuiltInFunctions) substitute(args []Argument) CellValue {
	if len(args) != 3 {
		return wrongArgCount()
	}
	text, err := displayArg(args[0])
	if err != nil {
		return ErrorValue(err)
	}
	old, err := displayArg(args[1])
	if err != nil {
		return ErrorValue(err)
	}
	replacement, err := displayArg(args[2])
	if err != nil {
		return ErrorValue(err)
	}
	if old == "" {
		return TextValue(text)
	}
	return TextValue(strings.ReplaceAll(text, old, replacement))
}

func (f *BuiltInFunctions) charFunc(args []Argument) CellValue {
	if len(args) != 1 {
		return wrongArgCount()
	}
	n, ok := args[0].Scalar().AsNumber()
	if !ok || n < 1 || n > utf8.MaxRune {
		return ErrorValue(NewCellError(ErrorCodeValue, "invalid-char-code"))
	}
	return TextValue(string(rune(n)))
}

func (f *BuiltInFunctions) code(args []Argument) CellValue {
	if len(args) != 1 {
		return wrongArgCount()
	}
	s, err := displayArg(args[0])
	if err != nil {
		return ErrorValue(err)
	}
	if s == "" {
		return ErrorValue(NewCellError(ErrorCodeValue, "empty-text"))
	}
	r, _ := utf8.DecodeRuneInString(s)
	return NumberValue(float64(r))
}

// volatile functions

// now returns fractional days since the Unix epoch
func (f *BuiltInFunctions) now(args []Argument) CellValue {
	if len(args) != 0 {
		return wrongArgCount()
	}
	return NumberValue(float64(f.clock.Now().UnixMilli()) / millisPerDay)
}

// today returns the current date as whole days since the Unix epoch
func (f *BuiltInFunctions) today(args []Argument) CellValue {
	if len(args) != 0 {
		return wrongArgCount()
	}
	return DateValue(f.clock.Now().UnixMilli() / millisPerDay)
}

func (f *BuiltInFunctions) randFunc(args []Argument) CellValue {
	if len(args) != 0 {
		return wrongArgCount()
	}
	return NumberValue(f.random.Float64())
}
