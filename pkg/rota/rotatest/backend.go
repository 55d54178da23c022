// Package rotatest provides an in-memory rota.Backend that decides
// small problems by exhaustive enumeration. It exists for tests.
package rotatest

import (
	"context"
	"fmt"

	"github.com/rota-sched/rota/pkg/rota"
)

// MaxVariables bounds the problems Backend is willing to enumerate.
const MaxVariables = 20

var _ rota.Backend = &Backend{}

type variable struct {
	id    rota.Identifier
	index int
	owner *Backend
}

func (v *variable) Identifier() rota.Identifier {
	return v.id
}

// Backend enumerates assignments in increasing binary order, the
// first declared variable being the least significant bit, and
// reports the first one satisfying every constraint.
type Backend struct {
	// DeclareErr, when set, is returned by every DeclareBool call.
	DeclareErr error

	vars        []*variable
	ids         map[rota.Identifier]*variable
	constraints []rota.Constraint
	checks      int
}

func New() *Backend {
	return &Backend{ids: map[rota.Identifier]*variable{}}
}

func (b *Backend) DeclareBool(id rota.Identifier) (rota.Variable, error) {
	if b.DeclareErr != nil {
		return nil, b.DeclareErr
	}
	if b.ids == nil {
		b.ids = map[rota.Identifier]*variable{}
	}
	if _, ok := b.ids[id]; ok {
		return nil, rota.DuplicateIdentifier(id)
	}
	v := &variable{id: id, index: len(b.vars), owner: b}
	b.vars = append(b.vars, v)
	b.ids[id] = v
	return v, nil
}

func (b *Backend) AddConstraint(c rota.Constraint) error {
	for _, v := range c.Variables() {
		if _, err := b.own(v); err != nil {
			return err
		}
	}
	b.constraints = append(b.constraints, c)
	return nil
}

func (b *Backend) Check(ctx context.Context) (rota.Result, error) {
	b.checks++
	if len(b.vars) > MaxVariables {
		return rota.Result{}, fmt.Errorf("%d variables exceed the enumeration limit of %d", len(b.vars), MaxVariables)
	}
	for mask := uint64(0); mask < 1<<len(b.vars); mask++ {
		if mask&0xffff == 0 && ctx.Err() != nil {
			return rota.UnknownResult(), nil
		}
		if b.holds(mask) {
			return rota.SatisfiableResult(&model{owner: b, mask: mask, generation: b.checks}), nil
		}
	}
	return rota.UnsatisfiableResult(), nil
}

// Variables returns the identifiers declared so far, in order.
func (b *Backend) Variables() []rota.Identifier {
	ids := make([]rota.Identifier, len(b.vars))
	for i, v := range b.vars {
		ids[i] = v.id
	}
	return ids
}

// Constraints returns the constraints added so far, in order.
func (b *Backend) Constraints() []rota.Constraint {
	return b.constraints
}

func (b *Backend) own(v rota.Variable) (*variable, error) {
	own, ok := v.(*variable)
	if !ok || own.owner != b {
		return nil, fmt.Errorf("%w: variable %q was not declared by this backend", rota.ErrSolverSetup, v.Identifier())
	}
	return own, nil
}

func (b *Backend) holds(mask uint64) bool {
	for _, c := range b.constraints {
		count := 0
		for _, v := range c.Variables() {
			if mask&(1<<v.(*variable).index) != 0 {
				count++
			}
		}
		lo, hi := c.Bounds()
		if count < lo || count > hi {
			return false
		}
	}
	return true
}

type model struct {
	owner      *Backend
	mask       uint64
	generation int
}

func (m *model) Value(v rota.Variable) (bool, error) {
	own, err := m.owner.own(v)
	if err != nil || m.generation != m.owner.checks {
		return false, fmt.Errorf("%w: %q", rota.ErrPrematureEvaluation, v.Identifier())
	}
	return m.mask&(1<<own.index) != 0, nil
}
