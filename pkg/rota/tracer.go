package rota

import (
	"fmt"
	"io"
)

// CheckReport describes the end of a satisfiability check.
type CheckReport interface {
	Outcome() Outcome
	Conflicts() []Constraint
}

type Tracer interface {
	Trace(r CheckReport)
}

type DefaultTracer struct{}

func (DefaultTracer) Trace(_ CheckReport) {
}

type LoggingTracer struct {
	Writer io.Writer
}

func (t LoggingTracer) Trace(r CheckReport) {
	fmt.Fprintf(t.Writer, "---\nOutcome: %s\n", r.Outcome())
	if len(r.Conflicts()) == 0 {
		return
	}
	fmt.Fprintf(t.Writer, "Conflicts:\n")
	for _, c := range r.Conflicts() {
		fmt.Fprintf(t.Writer, "- %s\n", c)
	}
}
