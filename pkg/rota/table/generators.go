package table

import (
	"errors"
	"fmt"

	"github.com/rota-sched/rota/pkg/rota"
	"github.com/rota-sched/rota/pkg/rota/constraint"
)

// EqVisits requires every attendee to visit exactly n timeslots. n is
// not checked against the number of timeslots: asking for more visits
// than there are timeslots makes the problem unsatisfiable.
//
// EqVisits is meant to be called once per table; calling it again
// adds the same constraints a second time.
func (t *AssignmentTable) EqVisits(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: visits must not be negative, got %d", rota.ErrSolverSetup, n)
	}
	for i, attendee := range t.attendees {
		name := attendee.Name
		c := constraint.NewUserFriendlyConstraint(constraint.Exactly(n, t.vars[i]...), func(rota.Constraint) string {
			return fmt.Sprintf("%s must visit exactly %d timeslot(s)", name, n)
		})
		if err := t.add(c); err != nil {
			return err
		}
	}
	return nil
}

// MaxAttendees bounds every timeslot by its capacity. Timeslots
// without a capacity are unconstrained and get no constraint at all.
//
// Like EqVisits, MaxAttendees is meant to be called once per table.
func (t *AssignmentTable) MaxAttendees() error {
	for j, timeslot := range t.timeslots {
		capacity, ok := timeslot.Bounded()
		if !ok {
			continue
		}
		name := timeslot.Name
		c := constraint.NewUserFriendlyConstraint(constraint.AtMost(capacity, t.column(j)...), func(rota.Constraint) string {
			return fmt.Sprintf("%s holds at most %d attendee(s)", name, capacity)
		})
		if err := t.add(c); err != nil {
			return err
		}
	}
	return nil
}

func (t *AssignmentTable) add(c rota.Constraint) error {
	if err := t.backend.AddConstraint(c); err != nil {
		if !errors.Is(err, rota.ErrSolverSetup) {
			err = fmt.Errorf("%w: %w", rota.ErrSolverSetup, err)
		}
		return fmt.Errorf("adding %q: %w", c, err)
	}
	return nil
}
