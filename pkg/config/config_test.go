package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/james-see/msq2midi/pkg/converter"
)

func useTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dirOverride = dir
	t.Cleanup(func() { dirOverride = "" })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	useTempDir(t)

	if Exists() {
		t.Fatal("Exists() = true before Save()")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Timebase != converter.Timebase || cfg.ServerPort != "8080" {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
}

func TestSaveLoad(t *testing.T) {
	useTempDir(t)

	cfg := DefaultConfig()
	cfg.Filter = converter.Filter{ProgramChange: true, Solo: 1 << 9}
	cfg.Timebase = 480
	cfg.Track = 2
	cfg.Truncate = true
	cfg.DebugLog = "/tmp/msq2midi.log"

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !Exists() {
		t.Fatal("Exists() = false after Save()")
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if *got != *cfg {
		t.Errorf("Load() = %+v, want %+v", got, cfg)
	}
}

func TestLoadPartialFile(t *testing.T) {
	dir := useTempDir(t)

	data := []byte(`{"timebase": 500, "filter": {"pitchBend": true}}`)
	if err := os.WriteFile(filepath.Join(dir, "config.json"), data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Timebase != 480 {
		t.Errorf("Timebase = %d, want 480", cfg.Timebase)
	}
	if !cfg.Filter.PitchBend {
		t.Error("Filter.PitchBend = false, want true")
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want default", cfg.ServerPort)
	}
}

func TestLoadInvalid(t *testing.T) {
	dir := useTempDir(t)

	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(); err == nil {
		t.Error("Load() should fail on malformed JSON")
	}
}
