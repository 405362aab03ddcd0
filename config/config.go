// Package config holds the tunables of the range analysis.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config bounds the effort the range analysis spends on loops and the
// range assigned to program-id producers.
type Config struct {
	// MaxTripCount is the largest loop trip count the analysis will
	// iterate; loops with a larger or unknown total trip count have
	// their loop-carried values widened to the maximal range at once.
	MaxTripCount int64 `toml:"max_trip_count"`
	// MaxPrograms bounds the number of programs a kernel launch may
	// consist of; program-id values range over [0, MaxPrograms-1].
	MaxPrograms int64 `toml:"max_programs"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		MaxTripCount: 1024,
		MaxPrograms:  2 << 15,
	}
}

// Load reads a TOML file over the defaults. Unknown keys are an error so
// typos don't silently fall back to defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	md, err := toml.NewDecoder(f).Decode(&cfg)
	if err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return cfg, fmt.Errorf("%s: unknown option %s", path, undec[0])
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (cfg Config) validate() error {
	if cfg.MaxTripCount <= 0 {
		return fmt.Errorf("max_trip_count must be positive, got %d", cfg.MaxTripCount)
	}
	if cfg.MaxPrograms <= 0 {
		return fmt.Errorf("max_programs must be positive, got %d", cfg.MaxPrograms)
	}
	return nil
}
