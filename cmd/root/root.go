package root

import (
	"github.com/spf13/cobra"

	"github.com/rota-sched/rota/cmd/assign"
	"github.com/rota-sched/rota/cmd/dimacs"
	"github.com/rota-sched/rota/internal/cli"
)

func NewRootCmd() *cobra.Command {
	globals := &cli.Globals{}
	rootCmd := &cobra.Command{
		Use:   "rota",
		Short: "Rota assigns attendees to timeslots",
		Long: `Rota assigns attendees to capacity bounded timeslots by encoding the
problem as boolean constraints and handing them to a SAT solver.

Settings are read from --config, then ROTA_* environment variables (a .env
file in the working directory is honoured), then command line flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return globals.Setup(cmd)
		},
	}
	globals.BindFlags(rootCmd)

	// add sub-commands
	rootCmd.AddCommand(assign.NewAssignCommand(globals))
	rootCmd.AddCommand(dimacs.NewDimacsCommand(globals))

	return rootCmd
}
