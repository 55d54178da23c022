// Package cli holds the state shared by every rota subcommand: the
// resolved configuration and the run logger.
package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rota-sched/rota/internal/config"
	"github.com/rota-sched/rota/internal/solver"
	"github.com/rota-sched/rota/pkg/rota"
)

// ErrNoAssignment is returned by commands that ran to completion but
// found no valid assignment.
var ErrNoAssignment = errors.New("no valid assignment found")

const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Globals are bound to the persistent flags of the root command and
// resolved by Setup before any subcommand runs.
type Globals struct {
	ConfigPath string
	Debug      bool
	LogFormat  string
	Trace      bool

	Config config.Config
	Logger *logrus.Entry
	Tracer rota.Tracer
}

func (g *Globals) BindFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&g.ConfigPath, "config", "", "path to a JSON configuration file")
	flags.BoolVar(&g.Debug, "debug", false, "enable debug logging")
	flags.StringVar(&g.LogFormat, "log-format", LogFormatText, "log format, one of text|json")
	flags.BoolVar(&g.Trace, "trace", false, "print the outcome and conflicts of every satisfiability check")
}

// Setup loads the configuration and builds the logger. Logs go to the
// command's error stream so they never mix with results.
func (g *Globals) Setup(cmd *cobra.Command) error {
	cfg, err := config.Load(g.ConfigPath)
	if err != nil {
		return err
	}
	g.Config = cfg

	logger, err := NewLogger(cmd.ErrOrStderr(), g.LogFormat, g.Debug)
	if err != nil {
		return err
	}
	g.Logger = logger.WithField("run", runID(uuid.NewRandom))

	g.Tracer = rota.DefaultTracer{}
	if g.Trace {
		g.Tracer = rota.LoggingTracer{Writer: cmd.ErrOrStderr()}
	}
	return nil
}

// Backend returns a constructor for the backend named by the
// configuration.
func (g *Globals) Backend() func() (rota.Backend, error) {
	settings := solver.Settings{
		Logger:      g.Logger,
		Tracer:      g.Tracer,
		Executables: g.Config.Executables,
	}
	name := g.Config.Solver
	return func() (rota.Backend, error) {
		return solver.NewBackend(name, settings)
	}
}

// runID identifies the log lines of one invocation. A clock based id
// stands in if no random uuid can be drawn.
func runID(next func() (uuid.UUID, error)) string {
	id, err := next()
	if err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	return id.String()
}

func NewLogger(w io.Writer, format string, debug bool) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(w)
	switch format {
	case LogFormatText, "":
		logger.SetFormatter(&logrus.TextFormatter{})
	case LogFormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q, expected %s or %s", format, LogFormatText, LogFormatJSON)
	}
	if debug {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger, nil
}
