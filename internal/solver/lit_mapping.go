package solver

import (
	"fmt"

	"github.com/go-air/gini/inter"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"

	"github.com/rota-sched/rota/pkg/rota"
	"github.com/rota-sched/rota/pkg/rota/constraint"
)

// litVariable is the rota.Variable handed out by circuit based
// backends.
type litVariable struct {
	id    rota.Identifier
	lit   z.Lit
	owner *litMapping
}

func (v *litVariable) Identifier() rota.Identifier {
	return v.id
}

// litMapping performs translation between the inputs of a Backend
// (Identifiers, Constraints) and the literals of a logic circuit.
// Every constraint is compiled to a single root literal which the
// backend assumes true, so a refutation can be traced back to the
// constraints that caused it.
type litMapping struct {
	inorder     []*litVariable
	lits        map[rota.Identifier]*litVariable
	constraints map[z.Lit][]rota.Constraint
	roots       []z.Lit
	refuted     []rota.Constraint
	c           *logic.C

	// marks and taught track which part of the circuit has already
	// been translated to CNF.
	marks  []int8
	taught int
}

func newLitMapping() *litMapping {
	return &litMapping{
		lits:        make(map[rota.Identifier]*litVariable),
		constraints: make(map[z.Lit][]rota.Constraint),
		c:           logic.NewC(),
	}
}

// Declare allocates a fresh input literal for id.
func (d *litMapping) Declare(id rota.Identifier) (*litVariable, error) {
	if _, ok := d.lits[id]; ok {
		return nil, rota.DuplicateIdentifier(id)
	}
	v := &litVariable{id: id, lit: d.c.Lit(), owner: d}
	d.lits[id] = v
	d.inorder = append(d.inorder, v)
	return v, nil
}

// Apply compiles c into the circuit. Constraints that hold for every
// assignment are dropped and constraints that hold for none are
// remembered as refuted without being encoded.
func (d *litMapping) Apply(c rota.Constraint) error {
	vars := c.Variables()
	ms := make([]z.Lit, len(vars))
	for i, v := range vars {
		own, err := d.own(v)
		if err != nil {
			return err
		}
		ms[i] = own.lit
	}

	switch {
	case constraint.Impossible(c):
		d.refuted = append(d.refuted, c)
		return nil
	case constraint.Trivial(c):
		return nil
	}

	// at least lo of ms <=> not at most lo-1 of ms
	lo, hi := c.Bounds()
	cs := d.c.CardSort(ms)
	var m z.Lit
	switch {
	case lo <= 0:
		m = cs.Leq(hi)
	case hi >= len(ms):
		m = cs.Leq(lo - 1).Not()
	default:
		m = d.c.And(cs.Leq(lo-1).Not(), cs.Leq(hi))
	}

	if _, ok := d.constraints[m]; !ok {
		d.roots = append(d.roots, m)
	}
	d.constraints[m] = append(d.constraints[m], c)
	return nil
}

func (d *litMapping) own(v rota.Variable) (*litVariable, error) {
	own, ok := v.(*litVariable)
	if !ok || own.owner != d {
		return nil, fmt.Errorf("%w: variable %q was not declared by this backend", rota.ErrSolverSetup, v.Identifier())
	}
	return own, nil
}

// AddConstraints translates the part of the circuit not yet taught
// to g into CNF.
func (d *litMapping) AddConstraints(g inter.Adder) {
	if d.marks == nil {
		d.c.ToCnf(g)
		d.marks = make([]int8, d.c.Len())
		for i := range d.marks {
			d.marks[i] = 1
		}
		d.taught = len(d.roots)
		return
	}
	if d.taught == len(d.roots) {
		return
	}
	marks := make([]int8, len(d.marks), d.c.Len())
	copy(marks, d.marks)
	d.marks, _ = d.c.CnfSince(g, marks, d.roots[d.taught:]...)
	d.taught = len(d.roots)
}

// AssumeConstraints assumes every constraint root true.
func (d *litMapping) AssumeConstraints(s inter.Assumable) {
	s.Assume(d.roots...)
}

// Conflicts maps the failed assumptions of the last refutation back
// to constraints.
func (d *litMapping) Conflicts(g inter.Assumable) []rota.Constraint {
	whys := g.Why(nil)
	as := make([]rota.Constraint, 0, len(whys))
	for _, why := range whys {
		as = append(as, d.constraints[why]...)
	}
	return as
}

// Len returns the number of declared variables and of distinct
// constraint roots.
func (d *litMapping) Len() (variables, constraints int) {
	return len(d.inorder), len(d.roots)
}
