package cli

import "github.com/google/uuid"

// TraceIDGenerator produces the trace id of one command invocation.
//
// Implemented by UUIDv7Generator (production) and the generators in
// internal/testutil (tests).
type TraceIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 trace ids, so envelopes
// sort by invocation time.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// It falls back to a random UUIDv4 if the clock-based generator fails.
func (UUIDv7Generator) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
