package main

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/james-see/msq2midi/pkg/converter"
	"github.com/james-see/msq2midi/pkg/debug"
)

func TestFilterUsageExamplesParse(t *testing.T) {
	m := regexp.MustCompile(`\(e\.g\. ([^)]*)\)`).FindStringSubmatch(filterUsage)
	if m == nil {
		t.Fatalf("filterUsage has no examples: %q", filterUsage)
	}
	examples := regexp.MustCompile(`[a-z0-9]+`).FindAllString(m[1], -1)

	// every option letter on its own, with a channel where one is required
	examples = append(examples, "p", "a", "b", "l", "c1", "x16", "pax")

	for _, spec := range examples {
		t.Run(spec, func(t *testing.T) {
			if _, err := converter.ParseFilter(spec); err != nil {
				t.Errorf("ParseFilter(%q) error = %v", spec, err)
			}
		})
	}

	f, err := converter.ParseFilter("lc10")
	if err != nil {
		t.Fatal(err)
	}
	if !f.Controllers || f.Mute != 1<<9 {
		t.Errorf("ParseFilter(%q) = %+v, want controllers and channel 10 muted", "lc10", f)
	}
}

func TestConfigInitKeepsExistingFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	run := func(args ...string) error {
		rootCmd.SetArgs(args)
		return rootCmd.Execute()
	}

	if err := run("config", "init"); err != nil {
		t.Fatalf("config init error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, ".config", "msq2midi", "config.json")); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if err := run("config", "init"); err == nil {
		t.Error("config init should refuse to overwrite an existing file")
	}
	if err := run("config", "init", "--force"); err != nil {
		t.Errorf("config init --force error = %v", err)
	}
}

func TestDebugLogClosedAfterCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	logPath := filepath.Join(t.TempDir(), "debug.log")

	rootCmd.SetArgs([]string{"config", "show", "--debug", logPath})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if debug.Enabled() {
		t.Error("debug log still enabled after the command finished")
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "cli") {
		t.Errorf("debug log = %q, want a cli entry", data)
	}
}
