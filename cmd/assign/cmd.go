package assign

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/rota-sched/rota/internal/cli"
	"github.com/rota-sched/rota/pkg/rota/input"
	"github.com/rota-sched/rota/pkg/rota/solver"
	"github.com/rota-sched/rota/pkg/rota/table"
)

const (
	outputText = "text"
	outputJSON = "json"
)

type options struct {
	visits  int
	solver  string
	timeout time.Duration
	output  string
	all     bool
	verify  bool
}

func NewAssignCommand(globals *cli.Globals) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "assign <path>",
		Short: "Assigns attendees to timeslots",
		Long: `Assigns every attendee of a JSON document to timeslots such that each
attendee visits exactly --visits timeslots and no timeslot exceeds its
capacity. For instance:

{
  "attendees": [{"name": "Alice"}, {"name": "Bob"}],
  "timeslots": [{"name": "Room A", "capacity": 1}, {"name": "Room B", "capacity": 1}]
}

Exits with status 2 if no valid assignment exists.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			cfg := &globals.Config
			if flags.Changed("visits") {
				cfg.Visits = opts.visits
			}
			if flags.Changed("solver") {
				cfg.Solver = opts.solver
			}
			if flags.Changed("timeout") {
				cfg.Timeout = opts.timeout
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if opts.output != outputText && opts.output != outputJSON {
				return fmt.Errorf("unknown output format %q, expected %s or %s", opts.output, outputText, outputJSON)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), globals, opts, args[0])
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&opts.visits, "visits", 1, "the amount of timeslots every attendee has to visit")
	flags.StringVar(&opts.solver, "solver", "gini", "solver backend, one of gini|gophersat|kissat|cadical|minisat")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "give up after this long, 0 for no limit")
	flags.StringVarP(&opts.output, "output", "o", outputText, "output format, one of text|json")
	flags.BoolVar(&opts.all, "all", false, "list every visited timeslot instead of the first one")
	flags.BoolVar(&opts.verify, "verify", false, "recount the assignment before printing it")
	return cmd
}

func run(ctx context.Context, w io.Writer, globals *cli.Globals, opts *options, path string) error {
	doc, err := input.FromFile(path)
	if err != nil {
		return err
	}

	cfg := globals.Config
	s, err := solver.New(
		solver.WithBackend(globals.Backend()),
		solver.WithVisits(cfg.Visits),
		solver.WithLogger(globals.Logger.WithField("input", path)),
		solver.WithVerification(opts.verify),
	)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	solution, err := s.Solve(ctx, doc)
	if err != nil {
		return err
	}
	if err := solution.Error(); err != nil {
		globals.Logger.WithField("outcome", solution.Outcome().String()).Debug(err)
		return fmt.Errorf("%w (%s)", cli.ErrNoAssignment, solution.Outcome())
	}

	if opts.output == outputJSON {
		return writeJSON(w, solution.Assignments())
	}
	return writeText(w, solution.Assignments(), opts.all)
}

func writeText(w io.Writer, assignments []table.Assignment, all bool) error {
	for _, a := range assignments {
		var err error
		switch {
		case !a.Assigned():
			_, err = fmt.Fprintf(w, "%s -> Nothing found\n", a.Attendee.Name)
		case all:
			names := lo.Map(a.Visits, func(t input.Timeslot, _ int) string { return t.Name })
			_, err = fmt.Fprintf(w, " %s -> %s\n", a.Attendee.Name, strings.Join(names, ", "))
		default:
			_, err = fmt.Fprintf(w, " %s -> %s\n", a.Attendee.Name, a.Timeslot.Name)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

type assignmentJSON struct {
	Attendee string   `json:"attendee"`
	Timeslot *string  `json:"timeslot"`
	Visits   []string `json:"visits"`
}

func writeJSON(w io.Writer, assignments []table.Assignment) error {
	out := lo.Map(assignments, func(a table.Assignment, _ int) assignmentJSON {
		entry := assignmentJSON{
			Attendee: a.Attendee.Name,
			Visits:   lo.Map(a.Visits, func(t input.Timeslot, _ int) string { return t.Name }),
		}
		if a.Assigned() {
			entry.Timeslot = &a.Timeslot.Name
		}
		return entry
	})
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
