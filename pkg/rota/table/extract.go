package table

import (
	"fmt"
	"strings"

	"github.com/rota-sched/rota/pkg/rota"
	"github.com/rota-sched/rota/pkg/rota/input"
)

// Assignment is the decoded outcome for one attendee.
type Assignment struct {
	Attendee input.Attendee
	// Timeslot is the first timeslot, in input order, the attendee was
	// assigned to, or nil if the attendee is unassigned. When visits
	// exceed one it deliberately names a single timeslot only.
	Timeslot *input.Timeslot
	// Visits lists every timeslot the attendee was assigned to, in
	// input order.
	Visits []input.Timeslot
}

// Assigned reports whether the attendee got at least one timeslot.
func (a Assignment) Assigned() bool {
	return a.Timeslot != nil
}

// Decode reads the attendee rows back out of a model, in attendee
// input order. The model must come from the Result of a check on the
// table's backend.
func (t *AssignmentTable) Decode(m rota.Model) ([]Assignment, error) {
	assignments := make([]Assignment, 0, len(t.attendees))
	for _, attendee := range t.attendees {
		assignment := Assignment{Attendee: attendee}
		for j, v := range t.AssignmentsFor(attendee.Name) {
			selected, err := m.Value(v)
			if err != nil {
				return nil, fmt.Errorf("decoding %s: %w", attendee.Name, err)
			}
			if !selected {
				continue
			}
			assignment.Visits = append(assignment.Visits, t.timeslots[j])
			if assignment.Timeslot == nil {
				assignment.Timeslot = &t.timeslots[j]
			}
		}
		assignments = append(assignments, assignment)
	}
	return assignments, nil
}

// VerificationError lists every rule a decoded assignment breaks.
type VerificationError []string

func (e VerificationError) Error() string {
	return fmt.Sprintf("assignment violates %d rule(s): %s", len(e), strings.Join(e, "; "))
}

// Verify recounts decoded assignments independently of the backend:
// every attendee must visit exactly visits timeslots and no timeslot
// may exceed its capacity.
func (t *AssignmentTable) Verify(assignments []Assignment, visits int) error {
	var violations VerificationError

	if len(assignments) != len(t.attendees) {
		violations = append(violations, fmt.Sprintf("expected %d attendees, got %d", len(t.attendees), len(assignments)))
	}

	occupancy := make(map[string]int, len(t.timeslots))
	for _, assignment := range assignments {
		if len(assignment.Visits) != visits {
			violations = append(violations, fmt.Sprintf("%s visits %d timeslot(s), expected %d", assignment.Attendee.Name, len(assignment.Visits), visits))
		}
		for _, timeslot := range assignment.Visits {
			occupancy[timeslot.Name]++
		}
	}

	for _, timeslot := range t.timeslots {
		capacity, ok := timeslot.Bounded()
		if !ok {
			continue
		}
		if occupancy[timeslot.Name] > capacity {
			violations = append(violations, fmt.Sprintf("%s holds %d attendee(s), capacity is %d", timeslot.Name, occupancy[timeslot.Name], capacity))
		}
	}

	if len(violations) > 0 {
		return violations
	}
	return nil
}
