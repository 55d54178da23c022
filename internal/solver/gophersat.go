package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/crillab/gophersat/solver"
	"github.com/sirupsen/logrus"

	"github.com/rota-sched/rota/pkg/rota"
	"github.com/rota-sched/rota/pkg/rota/constraint"
)

var _ rota.Backend = &Gophersat{}

type intVariable struct {
	id    rota.Identifier
	lit   int
	owner *Gophersat
}

func (v *intVariable) Identifier() rota.Identifier {
	return v.id
}

// Gophersat decides constraints with gophersat, which handles
// cardinality constraints natively. It cannot explain refutations,
// nor can a running check be interrupted.
type Gophersat struct {
	ids     map[rota.Identifier]*intVariable
	vars    []*intVariable
	constrs []solver.CardConstr
	refuted []rota.Constraint
	tracer  rota.Tracer
	logger  *logrus.Entry
	checks  int
}

func NewGophersat(tracer rota.Tracer, logger *logrus.Entry) *Gophersat {
	if tracer == nil {
		tracer = rota.DefaultTracer{}
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Gophersat{
		ids:    make(map[rota.Identifier]*intVariable),
		tracer: tracer,
		logger: logger,
	}
}

func (s *Gophersat) DeclareBool(id rota.Identifier) (rota.Variable, error) {
	if _, ok := s.ids[id]; ok {
		return nil, rota.DuplicateIdentifier(id)
	}
	v := &intVariable{id: id, lit: len(s.vars) + 1, owner: s}
	s.ids[id] = v
	s.vars = append(s.vars, v)
	return v, nil
}

func (s *Gophersat) AddConstraint(c rota.Constraint) error {
	vars := c.Variables()
	lits := make([]int, len(vars))
	for i, v := range vars {
		own, ok := v.(*intVariable)
		if !ok || own.owner != s {
			return fmt.Errorf("%w: variable %q was not declared by this backend", rota.ErrSolverSetup, v.Identifier())
		}
		lits[i] = own.lit
	}

	switch {
	case constraint.Impossible(c):
		s.refuted = append(s.refuted, c)
		return nil
	case constraint.Trivial(c):
		return nil
	}

	lo, hi := c.Bounds()
	if lo > 0 {
		s.constrs = append(s.constrs, solver.CardConstr{Lits: lits, AtLeast: lo})
	}
	if hi < len(lits) {
		// at most hi of lits <=> at least len-hi of their negations
		negated := make([]int, len(lits))
		for i, lit := range lits {
			negated[i] = -lit
		}
		s.constrs = append(s.constrs, solver.CardConstr{Lits: negated, AtLeast: len(lits) - hi})
	}
	return nil
}

func (s *Gophersat) Check(ctx context.Context) (rota.Result, error) {
	s.checks++
	start := time.Now()

	var result rota.Result
	switch {
	case len(s.refuted) > 0:
		result = rota.UnsatisfiableResult(s.refuted...)
	case ctx.Err() != nil:
		result = rota.UnknownResult()
	default:
		result = s.solve()
	}

	s.logger.WithFields(logrus.Fields{
		"backend":     "gophersat",
		"outcome":     result.Outcome().String(),
		"variables":   len(s.vars),
		"constraints": len(s.constrs),
		"elapsed":     time.Since(start).String(),
	}).Debug("check finished")
	s.tracer.Trace(result)

	return result, nil
}

func (s *Gophersat) solve() rota.Result {
	if len(s.vars) == 0 && len(s.constrs) == 0 {
		return rota.SatisfiableResult(&gophersatModel{s: s, generation: s.checks})
	}

	// mention every variable so the model covers all of them
	constrs := make([]solver.CardConstr, 0, len(s.vars)+len(s.constrs))
	for _, v := range s.vars {
		constrs = append(constrs, solver.AtLeast1(v.lit, -v.lit))
	}
	constrs = append(constrs, s.constrs...)

	gs := solver.New(solver.ParseCardConstrs(constrs))
	switch gs.Solve() {
	case solver.Sat:
		return rota.SatisfiableResult(&gophersatModel{s: s, values: gs.Model(), generation: s.checks})
	case solver.Unsat:
		return rota.UnsatisfiableResult()
	}
	return rota.UnknownResult()
}

type gophersatModel struct {
	s          *Gophersat
	values     []bool
	generation int
}

func (m *gophersatModel) Value(v rota.Variable) (bool, error) {
	own, ok := v.(*intVariable)
	if !ok || own.owner != m.s || m.generation != m.s.checks {
		return false, fmt.Errorf("%w: %q", rota.ErrPrematureEvaluation, v.Identifier())
	}
	if own.lit > len(m.values) {
		return false, nil
	}
	return m.values[own.lit-1], nil
}
