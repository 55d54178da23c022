package dimacs

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Dimacs summarises a CNF formula in DIMACS format as written by
// rota: comment lines naming variables, a header and the clauses.
// see: https://logic.pdmi.ras.ru/~basolver/dimacs.html
type Dimacs struct {
	variables int
	clauses   [][]int
	names     map[int]string
}

func (d *Dimacs) Variables() int {
	return d.variables
}

func (d *Dimacs) Clauses() [][]int {
	return d.clauses
}

// Names maps variable numbers to the identifiers given in comments.
func (d *Dimacs) Names() map[int]string {
	return d.names
}

// Units returns the literals asserted by single literal clauses.
func (d *Dimacs) Units() []int {
	return lo.FilterMap(d.clauses, func(clause []int, _ int) (int, bool) {
		if len(clause) != 1 {
			return 0, false
		}
		return clause[0], true
	})
}

// Read parses and validates the DIMACS formatted stream afforded by
// dimacsReader.
func Read(dimacsReader io.Reader) (*Dimacs, error) {
	reader := bufio.NewReader(dimacsReader)

	numVariables := 0
	numClauses := 0
	var clauses [][]int
	names := map[int]string{}

	nameLine := regexp.MustCompile(`^c (-?\d+) (.+)$`)
	commentLine := regexp.MustCompile(`^c\s*.*`)
	headerLine := regexp.MustCompile(`^p cnf\s+\d+\s+\d+\s*`)
	clauseLine := regexp.MustCompile(`^(-?\d+\s+)+0`)

	for {
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("error reading dimacs data: %w", err)
		}
		eof := err != nil
		line = strings.TrimSpace(line)

		switch {
		case line == "":
		case nameLine.MatchString(line):
			if clauses != nil {
				return nil, fmt.Errorf("variable name after header: %s", line)
			}
			m := nameLine.FindStringSubmatch(line)
			n, _ := strconv.Atoi(m[1])
			names[n] = m[2]
		case commentLine.MatchString(line):
		case headerLine.MatchString(line):
			if clauses != nil {
				return nil, fmt.Errorf("duplicate header: %s", line)
			}
			problem := strings.Fields(line)
			if len(problem) != 4 {
				return nil, fmt.Errorf("invalid statement: (%s). Valid format is p cnf <variables> <clauses>", line)
			}
			numVariables, _ = strconv.Atoi(problem[2])
			numClauses, _ = strconv.Atoi(problem[3])
			clauses = make([][]int, 0, numClauses)
		case clauseLine.MatchString(line):
			if clauses == nil {
				return nil, fmt.Errorf("invalid dimacs format: missing header 'p cnf <variable> <clauses>'")
			}
			clause, err := parseClause(strings.Fields(line), numVariables)
			if err != nil {
				return nil, fmt.Errorf("invalid clause (%s): %w", line, err)
			}
			clauses = append(clauses, clause)
		default:
			return nil, fmt.Errorf("invalid dimacs command: %s", line)
		}

		if eof {
			break
		}
	}

	if clauses == nil {
		return nil, fmt.Errorf("invalid format: missing header 'p cnf <variable> <clauses>'")
	}
	if len(clauses) != numClauses {
		return nil, fmt.Errorf("invalid format: header declares %d clauses, found %d", numClauses, len(clauses))
	}
	for n := range names {
		if n < 1 || n > numVariables {
			return nil, fmt.Errorf("invalid format: named variable %d out of range", n)
		}
	}

	return &Dimacs{
		variables: numVariables,
		clauses:   clauses,
		names:     names,
	}, nil
}

func parseClause(fields []string, numVariables int) ([]int, error) {
	if fields[len(fields)-1] != "0" {
		return nil, fmt.Errorf("does not end with 0")
	}
	clause := make([]int, 0, len(fields)-1)
	for _, field := range fields[:len(fields)-1] {
		lit, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("%s is not a number", field)
		}
		if lit == 0 {
			return nil, fmt.Errorf("0 is not a valid variable")
		}
		if lit > numVariables || lit < -numVariables {
			return nil, fmt.Errorf("%s is not a valid variable", field)
		}
		clause = append(clause, lit)
	}
	return clause, nil
}
