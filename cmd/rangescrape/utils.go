package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pevans/rangescrape/config"
)

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an environment variable parsed as an int, or the default
// value when it is unset or malformed.
func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

// getEnvBool returns an environment variable parsed as a bool, or the
// default value when it is unset or malformed.
func getEnvBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

// getEnvDuration returns an environment variable parsed as a duration, or
// the default value when it is unset or malformed.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}

// givenFlags returns the names of the flags set on the command line or
// through their environment variable. envs maps flag names to variables. An
// environment value that does not parse as its flag's type is an error
// unless the flag was also set on the command line.
func givenFlags(fs *flag.FlagSet, envs map[string]string) (map[string]bool, error) {
	given := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		given[f.Name] = true
	})

	for name, env := range envs {
		value := os.Getenv(env)
		f := fs.Lookup(name)
		if value == "" || f == nil || given[name] {
			continue
		}
		if err := checkFlagValue(f, value); err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", env, value, err)
		}
		given[name] = true
	}
	return given, nil
}

// checkFlagValue reports whether value parses as f's type.
func checkFlagValue(f *flag.Flag, value string) error {
	getter, ok := f.Value.(flag.Getter)
	if !ok {
		return nil
	}

	var err error
	switch getter.Get().(type) {
	case int:
		_, err = strconv.Atoi(value)
	case bool:
		_, err = strconv.ParseBool(value)
	case time.Duration:
		_, err = time.ParseDuration(value)
	}
	return err
}

// mustGivenFlags is givenFlags, exiting on a malformed environment value.
func mustGivenFlags(fs *flag.FlagSet, envs map[string]string) map[string]bool {
	given, err := givenFlags(fs, envs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return given
}

// loadConfig loads the config file or exits.
func loadConfig(path string) *config.FileConfig {
	cfg, err := config.LoadConfigFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
