package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "daytracker.log")
	logger, closeFn, err := New(Options{File: path, Level: "debug"})
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("ensured items", "created", 3)
	if err := closeFn(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "ensured items") || !strings.Contains(string(data), "created=3") {
		t.Fatalf("unexpected log output: %q", data)
	}
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Options{Writer: &buf, Level: "warn"})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
