package solver

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/rota-sched/rota/internal/solver"
	"github.com/rota-sched/rota/pkg/rota"
	"github.com/rota-sched/rota/pkg/rota/input"
	"github.com/rota-sched/rota/pkg/rota/table"
)

// Solution is returned by the Solver when the backend executed successfully.
// A successful execution can still end in an error when no assignment can
// be found, or when the backend gave up before reaching a verdict.
type Solution struct {
	err         error
	outcome     rota.Outcome
	assignments []table.Assignment
	byAttendee  map[string]int
}

// Error returns the resolution error: rota.NotSatisfiable when no
// assignment exists, rota.ErrIncomplete when the check was cut short,
// and nil otherwise.
func (s *Solution) Error() error {
	return s.err
}

func (s *Solution) Outcome() rota.Outcome {
	return s.outcome
}

// Assignments returns one entry per attendee in input order. It is
// empty unless the outcome is rota.Satisfiable.
func (s *Solution) Assignments() []table.Assignment {
	return s.assignments
}

// Lookup returns the assignment of the named attendee.
func (s *Solution) Lookup(attendee string) (table.Assignment, bool) {
	i, ok := s.byAttendee[attendee]
	if !ok {
		return table.Assignment{}, false
	}
	return s.assignments[i], true
}

// Solver builds an assignment table for a document, constrains it and
// decodes the backend's verdict into a Solution.
type Solver struct {
	newBackend func() (rota.Backend, error)
	visits     int
	logger     *logrus.Entry
	verify     bool
}

type Option func(s *Solver) error

// WithBackend sets the constructor of the backend used by each call to
// Solve. Backends hold state, so a fresh one is built every time.
func WithBackend(newBackend func() (rota.Backend, error)) Option {
	return func(s *Solver) error {
		s.newBackend = newBackend
		return nil
	}
}

// WithVisits sets how many timeslots every attendee must visit.
func WithVisits(n int) Option {
	return func(s *Solver) error {
		if n < 0 {
			return fmt.Errorf("%w: visits must not be negative, got %d", rota.ErrSolverSetup, n)
		}
		s.visits = n
		return nil
	}
}

func WithLogger(l *logrus.Entry) Option {
	return func(s *Solver) error {
		s.logger = l
		return nil
	}
}

// WithVerification makes Solve recount every decoded assignment and
// fail if the backend returned a model breaking the rules.
func WithVerification(verify bool) Option {
	return func(s *Solver) error {
		s.verify = verify
		return nil
	}
}

var defaults = []Option{
	func(s *Solver) error {
		if s.logger == nil {
			s.logger = logrus.NewEntry(logrus.StandardLogger())
		}
		return nil
	},
	func(s *Solver) error {
		if s.newBackend == nil {
			logger := s.logger
			s.newBackend = func() (rota.Backend, error) {
				return solver.NewBackend(solver.DefaultBackend, solver.Settings{Logger: logger})
			}
		}
		return nil
	},
}

func New(options ...Option) (*Solver, error) {
	s := Solver{visits: 1}
	for _, option := range append(options, defaults...) {
		if err := option(&s); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

func (s *Solver) Solve(ctx context.Context, doc *input.Document) (*Solution, error) {
	backend, err := s.newBackend()
	if err != nil {
		return nil, fmt.Errorf("failed to create backend: %w", err)
	}

	t, err := table.FromDocument(doc, backend)
	if err != nil {
		return nil, err
	}
	if err := t.EqVisits(s.visits); err != nil {
		return nil, err
	}
	if err := t.MaxAttendees(); err != nil {
		return nil, err
	}

	rows, columns := t.Len()
	log := s.logger.WithFields(logrus.Fields{
		"attendees": rows,
		"timeslots": columns,
		"visits":    s.visits,
	})
	log.Debug("checking assignment table")

	result, err := backend.Check(ctx)
	if err != nil {
		return nil, err
	}

	solution := &Solution{outcome: result.Outcome(), err: result.Err()}
	m, ok := result.Model()
	if !ok {
		if errors.Is(solution.err, rota.ErrIncomplete) {
			log.Warn("solver stopped before reaching a verdict")
		} else {
			log.WithField("conflicts", len(result.Conflicts())).Info("no valid assignment")
		}
		return solution, nil
	}

	solution.assignments, err = t.Decode(m)
	if err != nil {
		return nil, err
	}
	if s.verify {
		if err := t.Verify(solution.assignments, s.visits); err != nil {
			return nil, err
		}
	}
	solution.byAttendee = make(map[string]int, len(solution.assignments))
	for i, a := range solution.assignments {
		solution.byAttendee[a.Attendee.Name] = i
	}
	log.Debug("assignment found")
	return solution, nil
}
