package constraint

import (
	"fmt"
	"strings"

	"github.com/rota-sched/rota/pkg/rota"
)

type UserFriendlyConstraintMessageFormatter func(constraint rota.Constraint) string

// UserFriendlyConstraint replaces the message of the wrapped
// Constraint, e.g. to speak in terms of attendees and timeslots
// rather than variable identifiers.
type UserFriendlyConstraint struct {
	rota.Constraint
	messageFormatter UserFriendlyConstraintMessageFormatter
}

func (constraint *UserFriendlyConstraint) String() string {
	return constraint.messageFormatter(constraint.Constraint)
}

func NewUserFriendlyConstraint(constraint rota.Constraint, messageFormatter UserFriendlyConstraintMessageFormatter) *UserFriendlyConstraint {
	return &UserFriendlyConstraint{
		Constraint:       constraint,
		messageFormatter: messageFormatter,
	}
}

// CardinalityConstraint bounds the number of true Variables among
// its operands.
type CardinalityConstraint struct {
	vars []rota.Variable
	min  int
	max  int
}

func (constraint *CardinalityConstraint) String() string {
	s := make([]string, len(constraint.vars))
	for i, each := range constraint.vars {
		s[i] = each.Identifier().String()
	}
	ids := strings.Join(s, ", ")
	switch {
	case constraint.min == constraint.max:
		return fmt.Sprintf("exactly %d of %s", constraint.min, ids)
	case constraint.min <= 0:
		return fmt.Sprintf("at most %d of %s", constraint.max, ids)
	case constraint.max >= len(constraint.vars):
		return fmt.Sprintf("at least %d of %s", constraint.min, ids)
	}
	return fmt.Sprintf("between %d and %d of %s", constraint.min, constraint.max, ids)
}

func (constraint *CardinalityConstraint) Variables() []rota.Variable {
	return constraint.vars
}

func (constraint *CardinalityConstraint) Bounds() (int, int) {
	return constraint.min, constraint.max
}

// AtMost returns a Constraint that forbids solutions in which more
// than n of the given Variables are true.
func AtMost(n int, vars ...rota.Variable) rota.Constraint {
	return &CardinalityConstraint{
		vars: vars,
		min:  0,
		max:  n,
	}
}

// AtLeast returns a Constraint that forbids solutions in which fewer
// than n of the given Variables are true.
func AtLeast(n int, vars ...rota.Variable) rota.Constraint {
	return &CardinalityConstraint{
		vars: vars,
		min:  n,
		max:  len(vars),
	}
}

// Exactly returns a Constraint that permits only solutions in which
// exactly n of the given Variables are true. If n exceeds the number
// of Variables the constraint cannot be satisfied.
func Exactly(n int, vars ...rota.Variable) rota.Constraint {
	return &CardinalityConstraint{
		vars: vars,
		min:  n,
		max:  n,
	}
}

// Trivial reports whether c holds for every assignment of its
// Variables, and Impossible whether it holds for none. Backends use
// them to avoid encoding constants.
func Trivial(c rota.Constraint) bool {
	lo, hi := c.Bounds()
	return lo <= 0 && hi >= len(c.Variables())
}

func Impossible(c rota.Constraint) bool {
	lo, hi := c.Bounds()
	return lo > hi || lo > len(c.Variables()) || hi < 0
}
