package solver

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rota-sched/rota/pkg/rota"
	"github.com/rota-sched/rota/pkg/rota/constraint"
)

func TestCNFWriteTo(t *testing.T) {
	type tc struct {
		Name        string
		Constraints func(vars ...rota.Variable) []rota.Constraint
		Expected    string
	}

	for _, tt := range []tc{
		{
			Name: "no constraints",
			Constraints: func(vars ...rota.Variable) []rota.Constraint {
				return nil
			},
			Expected: "c 2 a\nc 3 b\np cnf 3 1\n1 0\n",
		},
		{
			Name: "single variable selected",
			Constraints: func(vars ...rota.Variable) []rota.Constraint {
				return []rota.Constraint{constraint.Exactly(1, vars[0])}
			},
			Expected: "c 2 a\nc 3 b\np cnf 3 2\n1 0\n2 0\n",
		},
		{
			Name: "single variable excluded",
			Constraints: func(vars ...rota.Variable) []rota.Constraint {
				return []rota.Constraint{constraint.AtMost(0, vars[1])}
			},
			Expected: "c 2 a\nc 3 b\np cnf 3 2\n1 0\n-3 0\n",
		},
		{
			Name: "trivial constraint is dropped",
			Constraints: func(vars ...rota.Variable) []rota.Constraint {
				return []rota.Constraint{constraint.AtMost(2, vars...)}
			},
			Expected: "c 2 a\nc 3 b\np cnf 3 1\n1 0\n",
		},
		{
			Name: "impossible constraint contradicts true",
			Constraints: func(vars ...rota.Variable) []rota.Constraint {
				return []rota.Constraint{constraint.AtLeast(3, vars...)}
			},
			Expected: "c 2 a\nc 3 b\np cnf 3 2\n1 0\n-1 0\n",
		},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			cnf := NewCNF()
			a, err := cnf.DeclareBool("a")
			require.NoError(t, err)
			b, err := cnf.DeclareBool("b")
			require.NoError(t, err)
			for _, c := range tt.Constraints(a, b) {
				require.NoError(t, cnf.AddConstraint(c))
			}

			var buf bytes.Buffer
			n, err := cnf.WriteTo(&buf)
			require.NoError(t, err)
			assert.Equal(t, tt.Expected, buf.String())
			assert.EqualValues(t, buf.Len(), n)
		})
	}
}

func TestCNFWriteToIsRepeatable(t *testing.T) {
	cnf := NewCNF()
	vars := make([]rota.Variable, 3)
	for i, id := range []rota.Identifier{"a", "b", "c"} {
		v, err := cnf.DeclareBool(id)
		require.NoError(t, err)
		vars[i] = v
	}
	require.NoError(t, cnf.AddConstraint(constraint.AtMost(1, vars...)))

	var first, second bytes.Buffer
	_, err := cnf.WriteTo(&first)
	require.NoError(t, err)
	_, err = cnf.WriteTo(&second)
	require.NoError(t, err)
	assert.Equal(t, first.String(), second.String())
	assert.Contains(t, first.String(), "p cnf ")
}

func TestCNFCheck(t *testing.T) {
	result, err := NewCNF().Check(context.Background())
	assert.ErrorIs(t, err, ErrNoSolver)
	assert.Equal(t, rota.Unknown, result.Outcome())
}
