package solver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-air/gini/z"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/rota-sched/rota/pkg/rota"
)

// Exit codes shared by SAT competition solvers.
const (
	exitSatisfiable   = 10
	exitUnsatisfiable = 20
)

var _ rota.Backend = &External{}

// Command describes how to invoke an external SAT solver binary.
type Command struct {
	Name string
	Path string
	Args []string
	// ResultFile is set for solvers that write their model to a file
	// named by the last argument instead of printing "v" lines. The
	// formula is then passed as a file too.
	ResultFile bool
}

// External writes its formula as DIMACS CNF and hands it to a solver
// binary. Refutations carry no explanation.
type External struct {
	*CNF
	cmd    Command
	tracer rota.Tracer
	logger *logrus.Entry
	checks int
}

func NewExternal(cmd Command, tracer rota.Tracer, logger *logrus.Entry) *External {
	if tracer == nil {
		tracer = rota.DefaultTracer{}
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &External{CNF: NewCNF(), cmd: cmd, tracer: tracer, logger: logger}
}

func (s *External) Check(ctx context.Context) (rota.Result, error) {
	s.checks++
	start := time.Now()

	var result rota.Result
	switch {
	case len(s.litMap.refuted) > 0:
		result = rota.UnsatisfiableResult(s.litMap.refuted...)
	case ctx.Err() != nil:
		result = rota.UnknownResult()
	default:
		var err error
		if result, err = s.run(ctx); err != nil {
			return rota.UnknownResult(), err
		}
	}

	variables, constraints := s.litMap.Len()
	s.logger.WithFields(logrus.Fields{
		"backend":     s.cmd.Name,
		"outcome":     result.Outcome().String(),
		"variables":   variables,
		"constraints": constraints,
		"elapsed":     time.Since(start).String(),
	}).Debug("check finished")
	s.tracer.Trace(result)

	return result, nil
}

func (s *External) run(ctx context.Context) (rota.Result, error) {
	var formula bytes.Buffer
	if _, err := s.WriteTo(&formula); err != nil {
		return rota.UnknownResult(), fmt.Errorf("failed to write formula: %w", err)
	}

	args := s.cmd.Args
	var resultFile string
	if s.cmd.ResultFile {
		dir, err := os.MkdirTemp("", "rota-")
		if err != nil {
			return rota.UnknownResult(), fmt.Errorf("failed to create temporary directory: %w", err)
		}
		defer os.RemoveAll(dir)

		input := filepath.Join(dir, "formula.cnf")
		if err := os.WriteFile(input, formula.Bytes(), 0o600); err != nil {
			return rota.UnknownResult(), fmt.Errorf("failed to write formula: %w", err)
		}
		resultFile = filepath.Join(dir, "result")
		args = append(args[:len(args):len(args)], input, resultFile)
	}

	cmd := exec.CommandContext(ctx, s.cmd.Path, args...)
	cmd.Stdin = &formula
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return rota.UnknownResult(), nil
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return rota.UnknownResult(), fmt.Errorf("failed to run %s: %w", s.cmd.Name, err)
	}

	switch code := cmd.ProcessState.ExitCode(); code {
	case exitSatisfiable:
		output := stdout.String()
		if resultFile != "" {
			b, err := os.ReadFile(resultFile)
			if err != nil {
				return rota.UnknownResult(), fmt.Errorf("failed to read %s result: %w", s.cmd.Name, err)
			}
			output = string(b)
		}
		values, err := parseSolution(output)
		if err != nil {
			return rota.UnknownResult(), fmt.Errorf("%s: %w", s.cmd.Name, err)
		}
		return rota.SatisfiableResult(&externalModel{s: s, values: values, generation: s.checks}), nil
	case exitUnsatisfiable:
		return rota.UnsatisfiableResult(), nil
	default:
		return rota.UnknownResult(), fmt.Errorf("%s exited with code %d: %s", s.cmd.Name, code, strings.TrimSpace(stderr.String()))
	}
}

// parseSolution reads the literals of a model printed by a SAT solver,
// either as "v" lines or as a bare line following "SAT".
func parseSolution(output string) (map[z.Var]bool, error) {
	var fields []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "v "):
			line = strings.TrimPrefix(line, "v ")
		case line == "", line == "SAT", line == "UNSAT",
			strings.HasPrefix(line, "c"), strings.HasPrefix(line, "s"):
			continue
		}
		fields = append(fields, strings.Fields(line)...)
	}

	var invalid []string
	lits := lo.FilterMap(fields, func(field string, _ int) (int, bool) {
		lit, err := strconv.Atoi(field)
		if err != nil {
			invalid = append(invalid, field)
			return 0, false
		}
		return lit, lit != 0
	})
	if len(invalid) > 0 {
		return nil, fmt.Errorf("invalid literals %q in solver output", invalid)
	}
	return lo.SliceToMap(lits, func(lit int) (z.Var, bool) {
		return z.Dimacs2Lit(lit).Var(), lit > 0
	}), nil
}

type externalModel struct {
	s          *External
	values     map[z.Var]bool
	generation int
}

func (m *externalModel) Value(v rota.Variable) (bool, error) {
	own, err := m.s.litMap.own(v)
	if err != nil || m.generation != m.s.checks {
		return false, fmt.Errorf("%w: %q", rota.ErrPrematureEvaluation, v.Identifier())
	}
	value, ok := m.values[own.lit.Var()]
	if !ok {
		return false, nil
	}
	return value == own.lit.IsPos(), nil
}
