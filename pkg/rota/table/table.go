// Package table compiles attendees and timeslots into a matrix of
// boolean decision variables on a rota.Backend, generates the visit
// and capacity constraints over it, and decodes solved models back
// into per-attendee assignments.
package table

import (
	"errors"
	"fmt"
	"iter"
	"strconv"

	"github.com/rota-sched/rota/pkg/rota"
	"github.com/rota-sched/rota/pkg/rota/input"
)

// AssignmentTable owns one decision variable per (attendee, timeslot)
// pair. Row order is attendee input order and column order is
// timeslot input order; both are fixed at construction.
type AssignmentTable struct {
	attendees []input.Attendee
	timeslots []input.Timeslot
	rows      map[string]int
	columns   map[string]int
	vars      [][]rota.Variable
	backend   rota.Backend
}

// VariableID returns the identifier under which the variable for the
// given pair is declared. Both names are quoted, so distinct pairs
// never share an identifier.
func VariableID(attendee, timeslot string) rota.Identifier {
	return rota.Identifier(strconv.Quote(attendee) + "@" + strconv.Quote(timeslot))
}

// FromDocument is New applied to the records of a parsed document.
func FromDocument(doc *input.Document, backend rota.Backend) (*AssignmentTable, error) {
	return New(doc.Attendees, doc.Timeslots, backend)
}

// New declares |attendees| x |timeslots| fresh boolean variables on
// backend. No constraints are added.
func New(attendees []input.Attendee, timeslots []input.Timeslot, backend rota.Backend) (*AssignmentTable, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: no backend", rota.ErrSolverSetup)
	}

	t := &AssignmentTable{
		attendees: attendees,
		timeslots: timeslots,
		rows:      make(map[string]int, len(attendees)),
		columns:   make(map[string]int, len(timeslots)),
		vars:      make([][]rota.Variable, len(attendees)),
		backend:   backend,
	}
	for j, timeslot := range timeslots {
		t.columns[timeslot.Name] = j
	}

	for i, attendee := range attendees {
		t.rows[attendee.Name] = i
		t.vars[i] = make([]rota.Variable, len(timeslots))
		for j, timeslot := range timeslots {
			v, err := backend.DeclareBool(VariableID(attendee.Name, timeslot.Name))
			if err != nil {
				if !errors.Is(err, rota.ErrSolverSetup) {
					err = fmt.Errorf("%w: %w", rota.ErrSolverSetup, err)
				}
				return nil, fmt.Errorf("declaring %s at %s: %w", attendee.Name, timeslot.Name, err)
			}
			t.vars[i][j] = v
		}
	}

	return t, nil
}

func (t *AssignmentTable) Attendees() []input.Attendee {
	return t.attendees
}

func (t *AssignmentTable) Timeslots() []input.Timeslot {
	return t.timeslots
}

// Len returns the dimensions of the variable matrix.
func (t *AssignmentTable) Len() (rows, columns int) {
	return len(t.attendees), len(t.timeslots)
}

// Row returns the row index of the named attendee.
func (t *AssignmentTable) Row(attendee string) (int, bool) {
	i, ok := t.rows[attendee]
	return i, ok
}

// Column returns the column index of the named timeslot.
func (t *AssignmentTable) Column(timeslot string) (int, bool) {
	j, ok := t.columns[timeslot]
	return j, ok
}

// Variable returns the decision variable for "attendee visits timeslot".
func (t *AssignmentTable) Variable(attendee, timeslot string) (rota.Variable, bool) {
	i, ok := t.rows[attendee]
	if !ok {
		return nil, false
	}
	j, ok := t.columns[timeslot]
	if !ok {
		return nil, false
	}
	return t.vars[i][j], true
}

// AssignmentsFor yields the (timeslot index, variable) pairs of the
// attendee's row in timeslot order. The sequence is a view over the
// table and may be iterated any number of times. An unknown attendee
// yields nothing.
func (t *AssignmentTable) AssignmentsFor(attendee string) iter.Seq2[int, rota.Variable] {
	return func(yield func(int, rota.Variable) bool) {
		i, ok := t.rows[attendee]
		if !ok {
			return
		}
		for j, v := range t.vars[i] {
			if !yield(j, v) {
				return
			}
		}
	}
}

func (t *AssignmentTable) column(j int) []rota.Variable {
	column := make([]rota.Variable, len(t.vars))
	for i := range t.vars {
		column[i] = t.vars[i][j]
	}
	return column
}
