package debug

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogDisabledIsNoop(t *testing.T) {
	Disable()
	Log("test", "should not panic %d", 1)
	if Enabled() {
		t.Error("Enabled() = true after Disable()")
	}
}

func TestEnableWritesCategories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "debug.log")
	if err := Enable(path); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}
	defer Disable()

	Log("framer", "block %d closed at %d bytes", 3, 210)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "Debug logging started") {
		t.Errorf("log missing start banner: %q", content)
	}
	if !strings.Contains(content, "framer") || !strings.Contains(content, "block 3 closed at 210 bytes") {
		t.Errorf("log missing entry: %q", content)
	}
}
