package testutil

import (
	"fmt"
	"sync"
)

// SequenceTraceIDs generates "<prefix>-0001", "<prefix>-0002", ... so CLI
// output can be compared byte for byte.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequenceTraceIDs struct {
	mu     sync.Mutex
	prefix string
	seq    int
}

// NewSequenceTraceIDs creates a generator whose first id ends in 0001.
func NewSequenceTraceIDs(prefix string) *SequenceTraceIDs {
	if prefix == "" {
		prefix = "trace"
	}
	return &SequenceTraceIDs{prefix: prefix}
}

// Generate returns the next id in the sequence.
func (g *SequenceTraceIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%04d", g.prefix, g.seq)
}

// Reset restarts the sequence. The next Generate returns the 0001 id.
func (g *SequenceTraceIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}

// FixedTraceID returns the same id every time.
type FixedTraceID string

// Generate returns the fixed id.
func (id FixedTraceID) Generate() string {
	return string(id)
}
