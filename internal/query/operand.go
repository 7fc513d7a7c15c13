package query

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PlaceholderToken is the parameter marker preserved verbatim for the
// execution collaborator to bind.
const PlaceholderToken = "?"

// Operand is the right-hand side of a predicate.
//
// This is a sealed interface: the variants are Param, Null, Int, Float,
// ColumnRef, String and List. Values passed to Where/And/Or/Having as plain Go
// values are converted with ToOperand.
type Operand interface {
	// render returns the SQL text for the operand used with op.
	render(op string) (string, error)
	// column returns the referenced column, if any, for join inference.
	column() *Column
}

type placeholderOperand struct{}

func (placeholderOperand) render(string) (string, error) { return PlaceholderToken, nil }
func (placeholderOperand) column() *Column               { return nil }

type nullOperand struct{}

func (nullOperand) render(string) (string, error) { return "NULL", nil }
func (nullOperand) column() *Column               { return nil }

type numberOperand string

func (n numberOperand) render(string) (string, error) { return string(n), nil }
func (numberOperand) column() *Column                 { return nil }

type columnOperand struct{ col *Column }

func (c columnOperand) render(string) (string, error) { return c.col.String(), nil }
func (c columnOperand) column() *Column               { return c.col }

type rawOperand string

func (r rawOperand) render(string) (string, error) { return string(r), nil }
func (rawOperand) column() *Column                 { return nil }

type stringOperand string

func (s stringOperand) render(string) (string, error) {
	v := string(s)
	if v == PlaceholderToken || strings.EqualFold(v, "NULL") {
		return v, nil
	}
	return Escape(v), nil
}
func (stringOperand) column() *Column { return nil }

type listOperand []Operand

func (l listOperand) render(op string) (string, error) {
	if !isListOperator(op) {
		return "", fmt.Errorf("%w: list value requires IN or NOT IN, got %q", ErrUnsupportedOperand, op)
	}
	parts := make([]string, len(l))
	for i, item := range l {
		s, err := item.render("=")
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return "(" + strings.Join(parts, ", ") + ")", nil
}
func (listOperand) column() *Column { return nil }

var (
	// Param renders the placeholder token "?".
	Param Operand = placeholderOperand{}

	// Null renders the literal NULL.
	Null Operand = nullOperand{}
)

// Int renders an integer literal.
func Int(n int64) Operand { return numberOperand(strconv.FormatInt(n, 10)) }

type invalidOperand struct{ err error }

func (i invalidOperand) render(string) (string, error) { return "", i.err }
func (invalidOperand) column() *Column                 { return nil }

// Float renders a floating point literal. NaN and infinities have no SQL
// literal and fail to render with ErrUnsupportedOperand.
func Float(f float64) Operand {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return invalidOperand{err: fmt.Errorf("%w: non-finite float %v", ErrUnsupportedOperand, f)}
	}
	return numberOperand(strconv.FormatFloat(f, 'g', -1, 64))
}

// ColumnRef renders a column expression and joins its tables.
func ColumnRef(c *Column) Operand { return columnOperand{col: c} }

// String renders an escaped string literal. The placeholder token and the
// word NULL (any case) are kept verbatim.
func String(s string) Operand { return stringOperand(s) }

// List renders a parenthesized IN list. Each value is converted with
// ToOperand and escaped individually.
func List(values ...any) (Operand, error) {
	items := make(listOperand, len(values))
	for i, v := range values {
		op, err := ToOperand(v)
		if err != nil {
			return nil, err
		}
		if _, nested := op.(listOperand); nested {
			return nil, fmt.Errorf("%w: nested list", ErrUnsupportedOperand)
		}
		items[i] = op
	}
	return items, nil
}

// Escape quotes s as a SQL string literal, doubling embedded single quotes.
func Escape(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// ToOperand converts a Go value to an Operand:
//
//	nil                    -> NULL
//	Operand                -> itself
//	*Column                -> column reference
//	Raw                    -> verbatim SQL
//	string                 -> escaped literal ("?" and NULL kept verbatim)
//	integers, floats       -> numeric literal
//	bool                   -> 1 or 0
//	[]string, []int, []any -> IN list
func ToOperand(v any) (Operand, error) {
	switch val := v.(type) {
	case nil:
		return Null, nil
	case Operand:
		return val, nil
	case *Column:
		if val == nil {
			return Null, nil
		}
		return ColumnRef(val), nil
	case Raw:
		return rawOperand(val), nil
	case string:
		return String(val), nil
	case int:
		return Int(int64(val)), nil
	case int8:
		return Int(int64(val)), nil
	case int16:
		return Int(int64(val)), nil
	case int32:
		return Int(int64(val)), nil
	case int64:
		return Int(val), nil
	case uint:
		return numberOperand(strconv.FormatUint(uint64(val), 10)), nil
	case uint8:
		return Int(int64(val)), nil
	case uint16:
		return Int(int64(val)), nil
	case uint32:
		return Int(int64(val)), nil
	case uint64:
		return numberOperand(strconv.FormatUint(val, 10)), nil
	case float32:
		return Float(float64(val)), nil
	case float64:
		return Float(val), nil
	case bool:
		if val {
			return Int(1), nil
		}
		return Int(0), nil
	case []string:
		items := make([]any, len(val))
		for i, s := range val {
			items[i] = s
		}
		return List(items...)
	case []int:
		items := make([]any, len(val))
		for i, n := range val {
			items[i] = n
		}
		return List(items...)
	case []int64:
		items := make([]any, len(val))
		for i, n := range val {
			items[i] = n
		}
		return List(items...)
	case []any:
		return List(val...)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedOperand, v)
	}
}

func isListOperator(op string) bool {
	switch strings.ToUpper(strings.Join(strings.Fields(op), " ")) {
	case "IN", "NOT IN":
		return true
	}
	return false
}
