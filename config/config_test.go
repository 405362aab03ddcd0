package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rangecheck.toml")
	if err := os.WriteFile(path, []byte(content), 0666); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.MaxTripCount != 1024 {
		t.Errorf("MaxTripCount = %d", cfg.MaxTripCount)
	}
	if cfg.MaxPrograms != 65536 {
		t.Errorf("MaxPrograms = %d", cfg.MaxPrograms)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "max_trip_count = 2048\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxTripCount != 2048 {
		t.Errorf("MaxTripCount = %d", cfg.MaxTripCount)
	}
	// Unset keys keep their defaults.
	if cfg.MaxPrograms != 65536 {
		t.Errorf("MaxPrograms = %d", cfg.MaxPrograms)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "max_trip_cuont = 2048\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a misspelled key")
	}
}

func TestLoadRejectsNonPositiveValues(t *testing.T) {
	for _, content := range []string{
		"max_trip_count = 0\n",
		"max_programs = -1\n",
	} {
		path := writeConfig(t, content)
		if _, err := Load(path); err == nil {
			t.Fatalf("expected an error for %q", content)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
