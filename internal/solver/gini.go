package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/go-air/gini"
	"github.com/sirupsen/logrus"

	"github.com/rota-sched/rota/pkg/rota"
)

const (
	satisfiable   = 1
	unsatisfiable = -1
	unknown       = 0
)

var _ rota.Backend = &Gini{}

// Gini decides constraints in process with the gini SAT solver.
// Cardinality bounds are encoded as sorting networks.
type Gini struct {
	g      *gini.Gini
	litMap *litMapping
	tracer rota.Tracer
	logger *logrus.Entry
	poll   time.Duration
	checks int
}

func NewGini(options ...Option) (*Gini, error) {
	s := Gini{g: gini.New(), litMap: newLitMapping()}
	for _, option := range append(options, defaults...) {
		if err := option(&s); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

func (s *Gini) DeclareBool(id rota.Identifier) (rota.Variable, error) {
	v, err := s.litMap.Declare(id)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Gini) AddConstraint(c rota.Constraint) error {
	return s.litMap.Apply(c)
}

// Check decides every constraint added so far. If ctx is cancelled
// or its deadline passes first, the outcome is Unknown.
func (s *Gini) Check(ctx context.Context) (rota.Result, error) {
	s.checks++
	start := time.Now()
	result := s.check(ctx)

	variables, constraints := s.litMap.Len()
	s.logger.WithFields(logrus.Fields{
		"backend":     "gini",
		"outcome":     result.Outcome().String(),
		"variables":   variables,
		"constraints": constraints,
		"elapsed":     time.Since(start).String(),
	}).Debug("check finished")
	s.tracer.Trace(result)

	return result, nil
}

func (s *Gini) check(ctx context.Context) rota.Result {
	if len(s.litMap.refuted) > 0 {
		return rota.UnsatisfiableResult(s.litMap.refuted...)
	}
	if ctx.Err() != nil {
		return rota.UnknownResult()
	}

	// teach all constraints to the solver, then assume that they hold
	s.litMap.AddConstraints(s.g)
	s.litMap.AssumeConstraints(s.g)

	switch s.solve(ctx) {
	case satisfiable:
		return rota.SatisfiableResult(&giniModel{s: s, generation: s.checks})
	case unsatisfiable:
		return rota.UnsatisfiableResult(s.litMap.Conflicts(s.g)...)
	}
	return rota.UnknownResult()
}

func (s *Gini) solve(ctx context.Context) int {
	if ctx.Done() == nil {
		return s.g.Solve()
	}

	solve := s.g.GoSolve()
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return solve.Stop()
		case <-ticker.C:
			if result, done := solve.Test(); done {
				return result
			}
		}
	}
}

type giniModel struct {
	s          *Gini
	generation int
}

func (m *giniModel) Value(v rota.Variable) (bool, error) {
	own, err := m.s.litMap.own(v)
	if err != nil || m.generation != m.s.checks {
		return false, fmt.Errorf("%w: %q", rota.ErrPrematureEvaluation, v.Identifier())
	}
	// variables that appear in no constraint were never taught to
	// the solver and are free; report them unselected
	if own.lit.Var() > m.s.g.MaxVar() {
		return false, nil
	}
	return m.s.g.Value(own.lit), nil
}

type Option func(s *Gini) error

func WithTracer(t rota.Tracer) Option {
	return func(s *Gini) error {
		s.tracer = t
		return nil
	}
}

func WithLogger(l *logrus.Entry) Option {
	return func(s *Gini) error {
		s.logger = l
		return nil
	}
}

// WithPollInterval sets how often a cancellable check looks for a
// verdict.
func WithPollInterval(d time.Duration) Option {
	return func(s *Gini) error {
		if d <= 0 {
			return fmt.Errorf("poll interval must be positive, got %s", d)
		}
		s.poll = d
		return nil
	}
}

var defaults = []Option{
	func(s *Gini) error {
		if s.tracer == nil {
			s.tracer = rota.DefaultTracer{}
		}
		return nil
	},
	func(s *Gini) error {
		if s.logger == nil {
			s.logger = logrus.NewEntry(logrus.StandardLogger())
		}
		return nil
	},
	func(s *Gini) error {
		if s.poll == 0 {
			s.poll = 10 * time.Millisecond
		}
		return nil
	},
}
