// Package config reads CLI settings from the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/reoring/dataskema"
)

// Config holds process settings. Flags override these values.
type Config struct {
	// Schema is a JTD document path; empty selects the embedded Datasworn set.
	Schema    string `env:"DATASKEMA_SCHEMA"`
	LogLevel  string `env:"DATASKEMA_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"DATASKEMA_LOG_FORMAT" envDefault:"console"`
	// Patterns is "defer" or "enforce".
	Patterns string `env:"DATASKEMA_PATTERNS" envDefault:"defer"`
	// JSONDriver is "go-json" or "encoding/json".
	JSONDriver string `env:"DATASKEMA_JSON_DRIVER" envDefault:"go-json"`
	// Lang is a BCP 47 tag selecting the issue message language.
	Lang string `env:"DATASKEMA_LANG" envDefault:"en"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if _, err := c.PatternPolicy(); err != nil {
		return Config{}, err
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return Config{}, fmt.Errorf("DATASKEMA_LOG_FORMAT: unknown format %q", c.LogFormat)
	}
	return c, nil
}

// PatternPolicy maps Patterns onto the decoder option.
func (c Config) PatternPolicy() (dataskema.PatternPolicy, error) {
	switch strings.ToLower(c.Patterns) {
	case "", "defer":
		return dataskema.PatternDefer, nil
	case "enforce":
		return dataskema.PatternEnforce, nil
	}
	return 0, fmt.Errorf("DATASKEMA_PATTERNS: unknown policy %q", c.Patterns)
}

// Driver returns the JSON token driver named by JSONDriver.
func (c Config) Driver() (dataskema.JSONDriver, error) {
	switch c.JSONDriver {
	case "", "go-json":
		return dataskema.GoJSONDriver(), nil
	case "encoding/json", "std":
		return dataskema.StdJSONDriver(), nil
	}
	return nil, fmt.Errorf("DATASKEMA_JSON_DRIVER: unknown driver %q", c.JSONDriver)
}
