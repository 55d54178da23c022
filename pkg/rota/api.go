package rota

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSolverSetup is wrapped by every error raised while declaring
	// variables or constraints on a Backend. It is not recoverable.
	ErrSolverSetup = errors.New("solver setup failed")

	// ErrIncomplete is reported when a satisfiability check ends
	// without a verdict, e.g. because its time budget ran out.
	ErrIncomplete = errors.New("cancelled before a solution could be found")

	// ErrPrematureEvaluation is returned by a Model asked for a
	// Variable it holds no value for.
	ErrPrematureEvaluation = errors.New("model has no value for variable")
)

// NotSatisfiable is an error composed of the constraints the backend
// blamed for making a solution impossible. Backends that cannot
// explain a conflict report it empty.
type NotSatisfiable []Constraint

func (e NotSatisfiable) Error() string {
	const msg = "constraints not satisfiable"
	if len(e) == 0 {
		return msg
	}
	s := make([]string, len(e))
	for i, c := range e {
		s[i] = c.String()
	}
	return fmt.Sprintf("%s:\n%s", msg, strings.Join(s, "\n"))
}

// DuplicateIdentifier is returned when a Backend is asked to declare
// the same Identifier twice.
type DuplicateIdentifier Identifier

func (e DuplicateIdentifier) Error() string {
	return fmt.Sprintf("duplicate identifier %q in input", Identifier(e))
}

func (e DuplicateIdentifier) Unwrap() error {
	return ErrSolverSetup
}

// Identifier values uniquely identify particular Variables within
// a single Backend.
type Identifier string

func (id Identifier) String() string {
	return string(id)
}

// Variable is the handle a Backend hands out for a declared boolean
// unknown. Handles are only meaningful to the Backend that issued them.
type Variable interface {
	Identifier() Identifier
}

// Constraint bounds how many of its Variables may be true at once:
// min <= |{v in Variables() : v is true}| <= max.
type Constraint interface {
	String() string
	Variables() []Variable
	Bounds() (min, max int)
}

// Model is a satisfying assignment of every declared Variable.
type Model interface {
	Value(v Variable) (bool, error)
}

// Outcome is the verdict of a satisfiability check.
type Outcome int

const (
	Unknown Outcome = iota
	Satisfiable
	Unsatisfiable
)

func (o Outcome) String() string {
	switch o {
	case Satisfiable:
		return "satisfiable"
	case Unsatisfiable:
		return "unsatisfiable"
	default:
		return "unknown"
	}
}

// Result is returned by Backend.Check. A Model can only be obtained
// from a Result whose outcome is Satisfiable.
type Result struct {
	outcome   Outcome
	model     Model
	conflicts []Constraint
}

// SatisfiableResult wraps a model found by a Backend.
func SatisfiableResult(m Model) Result {
	return Result{outcome: Satisfiable, model: m}
}

// UnsatisfiableResult records a refutation together with the
// constraints blamed for it, if the backend can tell.
func UnsatisfiableResult(conflicts ...Constraint) Result {
	return Result{outcome: Unsatisfiable, conflicts: conflicts}
}

// UnknownResult records a check that ended without a verdict.
func UnknownResult() Result {
	return Result{outcome: Unknown}
}

func (r Result) Outcome() Outcome {
	return r.outcome
}

// Model returns the satisfying assignment, or false if the check did
// not prove satisfiability.
func (r Result) Model() (Model, bool) {
	if r.outcome != Satisfiable || r.model == nil {
		return nil, false
	}
	return r.model, true
}

func (r Result) Conflicts() []Constraint {
	return r.conflicts
}

// Err returns nil for a satisfiable result, NotSatisfiable for a
// refutation and ErrIncomplete otherwise.
func (r Result) Err() error {
	switch r.outcome {
	case Satisfiable:
		return nil
	case Unsatisfiable:
		return NotSatisfiable(r.conflicts)
	default:
		return ErrIncomplete
	}
}

// Backend is the capability the assignment model is compiled against.
// Any boolean constraint engine able to express cardinality bounds can
// implement it.
type Backend interface {
	// DeclareBool registers a fresh boolean unknown under id.
	DeclareBool(id Identifier) (Variable, error)
	// AddConstraint appends c to the constraint store.
	AddConstraint(c Constraint) error
	// Check decides the constraints added so far. A Model obtained
	// from the Result stays valid until the next call to Check.
	Check(ctx context.Context) (Result, error)
}
