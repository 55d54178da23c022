package solver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-air/gini/z"

	"github.com/rota-sched/rota/pkg/rota"
)

// ErrNoSolver is returned by CNF.Check: a CNF only collects clauses.
var ErrNoSolver = errors.New("no solver attached to cnf")

var _ rota.Backend = &CNF{}

// clauseSet implements inter.Adder by collecting zero terminated
// clauses.
type clauseSet struct {
	clauses [][]z.Lit
	current []z.Lit
	maxVar  z.Var
}

func (s *clauseSet) Add(m z.Lit) {
	if m == z.LitNull {
		s.clauses = append(s.clauses, s.current)
		s.current = nil
		return
	}
	if m.Var() > s.maxVar {
		s.maxVar = m.Var()
	}
	s.current = append(s.current, m)
}

// CNF compiles constraints the same way Gini does but, instead of
// deciding them, writes the resulting formula in DIMACS format. Each
// constraint root is asserted by a unit clause.
type CNF struct {
	litMap  *litMapping
	clauses *clauseSet
}

func NewCNF() *CNF {
	return &CNF{litMap: newLitMapping(), clauses: &clauseSet{}}
}

func (c *CNF) DeclareBool(id rota.Identifier) (rota.Variable, error) {
	v, err := c.litMap.Declare(id)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (c *CNF) AddConstraint(constraint rota.Constraint) error {
	return c.litMap.Apply(constraint)
}

func (c *CNF) Check(_ context.Context) (rota.Result, error) {
	return rota.UnknownResult(), ErrNoSolver
}

// Variables returns the number of variables of the formula written by
// WriteTo.
func (c *CNF) Variables() int {
	c.litMap.AddConstraints(c.clauses)
	n := c.clauses.maxVar
	for _, v := range c.litMap.inorder {
		if v.lit.Var() > n {
			n = v.lit.Var()
		}
	}
	for _, m := range c.litMap.roots {
		if m.Var() > n {
			n = m.Var()
		}
	}
	return int(n)
}

// WriteTo writes the formula as DIMACS CNF. Comment lines preceding
// the header name the variable of every declared identifier.
func (c *CNF) WriteTo(w io.Writer) (int64, error) {
	vars := c.Variables()
	units := c.litMap.roots
	if len(c.litMap.refuted) > 0 {
		// contradicts the unit clause asserting the constant true
		units = append(units[:len(units):len(units)], c.litMap.c.T.Not())
	}

	cw := &countingWriter{w: bufio.NewWriter(w)}
	for _, v := range c.litMap.inorder {
		fmt.Fprintf(cw, "c %d %s\n", v.lit.Dimacs(), v.id)
	}
	fmt.Fprintf(cw, "p cnf %d %d\n", vars, len(c.clauses.clauses)+len(units))
	for _, clause := range c.clauses.clauses {
		for _, m := range clause {
			fmt.Fprintf(cw, "%d ", m.Dimacs())
		}
		fmt.Fprintln(cw, "0")
	}
	for _, m := range units {
		fmt.Fprintf(cw, "%d 0\n", m.Dimacs())
	}
	if err := cw.w.Flush(); err != nil && cw.err == nil {
		cw.err = err
	}
	return cw.n, cw.err
}

type countingWriter struct {
	w   *bufio.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
