package query

import (
	"errors"
	"fmt"
	"strings"
)

// JoinErrorCode categorizes join resolution failures.
type JoinErrorCode string

const (
	// ErrCodeNoJoinPath indicates the target table is unreachable from the
	// source table through a direct edge or a single bridging table.
	ErrCodeNoJoinPath JoinErrorCode = "NO_JOIN_PATH"

	// ErrCodeAmbiguousJoinPath indicates more than one bridging table
	// connects the source and target tables.
	ErrCodeAmbiguousJoinPath JoinErrorCode = "AMBIGUOUS_JOIN_PATH"
)

// JoinError is returned when a query references a table that cannot be
// joined to its from table.
//
// Join errors are programmer errors: either the schema is missing a join
// declaration or the query needs an explicit Join of an intermediate table
// to pick one of several paths.
type JoinError struct {
	// Code identifies the failure.
	Code JoinErrorCode

	// From is the table the path was searched from.
	From string

	// To is the table that could not be reached.
	To string

	// Bridges lists the candidate intermediate tables (ambiguous paths only).
	Bridges []string
}

// Error implements the error interface.
func (e *JoinError) Error() string {
	if e.Code == ErrCodeAmbiguousJoinPath {
		return fmt.Sprintf("%s: multiple join paths exist between %s and %s (via %s); join an intermediate table explicitly",
			e.Code, e.From, e.To, strings.Join(e.Bridges, ", "))
	}
	return fmt.Sprintf("%s: no join path found between %s and %s", e.Code, e.From, e.To)
}

// IsNoJoinPath reports whether err is a JoinError with ErrCodeNoJoinPath.
// Uses errors.As to handle wrapped errors.
func IsNoJoinPath(err error) bool {
	var je *JoinError
	if errors.As(err, &je) {
		return je.Code == ErrCodeNoJoinPath
	}
	return false
}

// IsAmbiguousJoinPath reports whether err is a JoinError with
// ErrCodeAmbiguousJoinPath.
func IsAmbiguousJoinPath(err error) bool {
	var je *JoinError
	if errors.As(err, &je) {
		return je.Code == ErrCodeAmbiguousJoinPath
	}
	return false
}

func newNoJoinPath(from, to string) *JoinError {
	return &JoinError{Code: ErrCodeNoJoinPath, From: from, To: to}
}

func newAmbiguousJoinPath(from, to string, bridges []string) *JoinError {
	return &JoinError{Code: ErrCodeAmbiguousJoinPath, From: from, To: to, Bridges: bridges}
}

var (
	// ErrMalformedSubquery is reported when a subquery column is reformatted
	// but its projected expression cannot be located.
	ErrMalformedSubquery = errors.New("malformed subquery")

	// ErrNoFromTable is reported when a query is rendered with no from table
	// and no column to infer one from.
	ErrNoFromTable = errors.New("query has no from table")

	// ErrUnsupportedOperand is reported for expressions, operands or
	// directions the builder cannot render safely.
	ErrUnsupportedOperand = errors.New("unsupported operand")
)
