package dimacs

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rota-sched/rota/internal/cli"
	"github.com/rota-sched/rota/internal/solver"
	"github.com/rota-sched/rota/pkg/rota/input"
	"github.com/rota-sched/rota/pkg/rota/table"
)

func NewDimacsCommand(globals *cli.Globals) *cobra.Command {
	var (
		visits int
		output string
	)
	cmd := &cobra.Command{
		Use:   "dimacs <path>",
		Short: "Exports the assignment problem in dimacs format",
		Long: `Exports the constraints of an assignment problem as CNF in dimacs
format, to be decided by any SAT solver. Comment lines preceding the header
name the variable of every attendee and timeslot pair:

c 2 "Alice"@"Room A"
c 3 "Alice"@"Room B"
p cnf <number of variables> <number of clauses>
`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("visits") {
				globals.Config.Visits = visits
			}
			return globals.Config.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("error creating dimacs file (%s): %w", output, err)
				}
				defer f.Close()
				w = f
			}
			return export(w, globals, args[0])
		},
	}

	cmd.Flags().IntVar(&visits, "visits", 1, "the amount of timeslots every attendee has to visit")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func export(w io.Writer, globals *cli.Globals, path string) error {
	doc, err := input.FromFile(path)
	if err != nil {
		return err
	}

	cnf := solver.NewCNF()
	t, err := table.FromDocument(doc, cnf)
	if err != nil {
		return err
	}
	if err := t.EqVisits(globals.Config.Visits); err != nil {
		return err
	}
	if err := t.MaxAttendees(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if _, err := cnf.WriteTo(&buf); err != nil {
		return err
	}
	d, err := Read(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return fmt.Errorf("exported formula is invalid: %w", err)
	}
	globals.Logger.WithFields(logrus.Fields{
		"input":     path,
		"variables": d.Variables(),
		"clauses":   len(d.Clauses()),
	}).Info("exported formula")

	_, err = buf.WriteTo(w)
	return err
}
