package solver

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/rota-sched/rota/pkg/rota"
)

const DefaultBackend = "gini"

// Settings configure the backends built by NewBackend.
type Settings struct {
	Logger *logrus.Entry
	Tracer rota.Tracer
	// Executables overrides the path of external solver binaries,
	// keyed by backend name. Unset names are looked up in PATH.
	Executables map[string]string
}

var externals = map[string]Command{
	"kissat":  {Name: "kissat", Path: "kissat", Args: []string{"-q"}},
	"cadical": {Name: "cadical", Path: "cadical", Args: []string{"-q"}},
	"minisat": {Name: "minisat", Path: "minisat", Args: []string{"-verb=0"}, ResultFile: true},
}

// Backends lists the names accepted by NewBackend.
func Backends() []string {
	names := []string{DefaultBackend, "gophersat"}
	for name := range externals {
		names = append(names, name)
	}
	sort.Strings(names[2:])
	return names
}

// NewBackend builds a fresh backend by name. An empty name selects
// DefaultBackend.
func NewBackend(name string, settings Settings) (rota.Backend, error) {
	switch name {
	case "", DefaultBackend:
		return NewGini(WithLogger(settings.Logger), WithTracer(settings.Tracer))
	case "gophersat":
		return NewGophersat(settings.Tracer, settings.Logger), nil
	}

	cmd, ok := externals[name]
	if !ok {
		return nil, fmt.Errorf("unknown solver %q, expected one of %v", name, Backends())
	}
	if path, ok := settings.Executables[name]; ok && path != "" {
		cmd.Path = path
	}
	return NewExternal(cmd, settings.Tracer, settings.Logger), nil
}
