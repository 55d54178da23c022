package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rota-sched/rota/cmd/root"
	"github.com/rota-sched/rota/internal/cli"
)

func main() {
	rootCmd := root.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, cli.ErrNoAssignment) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
