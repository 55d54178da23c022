// Package config resolves the settings of a rota run from an optional
// JSON file and ROTA_* environment variables. A .env file in the working
// directory is loaded into the environment first.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
)

const envPrefix = "ROTA_"

type Config struct {
	Solver  string        `mapstructure:"solver"`
	Visits  int           `mapstructure:"visits"`
	Timeout time.Duration `mapstructure:"timeout"`
	// Executables maps external solver names to binary paths.
	Executables map[string]string `mapstructure:"executables"`
}

func Default() Config {
	return Config{
		Solver:  "gini",
		Visits:  1,
		Timeout: 30 * time.Second,
	}
}

// Load returns Default overlaid with the JSON file at path, if path is
// not empty, and then with the environment.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.readEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Visits < 0 {
		return fmt.Errorf("visits must not be negative, got %d", c.Visits)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}

func (c *Config) readFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read config file: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.DecodeHookFuncType(secondsToDuration),
		),
		ErrorUnused: true,
		Result:      c,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return nil
}

// secondsToDuration reads a bare number given for a duration as seconds.
func secondsToDuration(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Float32, reflect.Float64:
		return time.Duration(reflect.ValueOf(data).Float() * float64(time.Second)), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return time.Duration(reflect.ValueOf(data).Int()) * time.Second, nil
	}
	return data, nil
}

func (c *Config) readEnv() error {
	if v, ok := lookup("SOLVER"); ok {
		c.Solver = v
	}
	if v, ok := lookup("VISITS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sVISITS: %w", envPrefix, err)
		}
		c.Visits = n
	}
	if v, ok := lookup("TIMEOUT"); ok {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sTIMEOUT: %w", envPrefix, err)
		}
		c.Timeout = d
	}

	// ROTA_<NAME>_PATH points at the binary of an external solver
	for _, kv := range os.Environ() {
		k, v, _ := strings.Cut(kv, "=")
		name, ok := strings.CutPrefix(k, envPrefix)
		if !ok || v == "" {
			continue
		}
		if name, ok = strings.CutSuffix(name, "_PATH"); !ok || name == "" {
			continue
		}
		if c.Executables == nil {
			c.Executables = make(map[string]string)
		}
		c.Executables[strings.ToLower(name)] = v
	}
	return nil
}

// parseDuration accepts a Go duration string or a bare number of seconds.
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(v, 64); err == nil && !math.IsNaN(secs) && !math.IsInf(secs, 0) {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(v)
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
