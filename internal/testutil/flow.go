package testutil

import "fmt"

// SequentialSessionGenerator hands out "session-1", "session-2", ...
//
// Unlike engine.FixedGenerator it never runs out, which suits scenario
// suites where the number of sessions is not known up front.
type SequentialSessionGenerator struct {
	prefix string
	n      int
}

// NewSequentialSessionGenerator creates a generator with the given prefix.
// An empty prefix defaults to "session".
func NewSequentialSessionGenerator(prefix string) *SequentialSessionGenerator {
	if prefix == "" {
		prefix = "session"
	}
	return &SequentialSessionGenerator{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialSessionGenerator) Generate() string {
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
