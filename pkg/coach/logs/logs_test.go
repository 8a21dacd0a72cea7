package logs

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_TextAndFileFanout(t *testing.T) {
	var term bytes.Buffer
	path := filepath.Join(t.TempDir(), "coach.log")

	logger, err := New(Options{Writer: &term, Level: "info", File: path})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Debug("hidden")
	logger.Info("coach session initialized", "session_id", "s_1")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if strings.Contains(term.String(), "hidden") {
		t.Fatalf("debug record leaked at info level: %q", term.String())
	}
	if !strings.Contains(term.String(), "session_id=s_1") {
		t.Fatalf("terminal output=%q", term.String())
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(raw), &rec); err != nil {
		t.Fatalf("file should hold one JSON line, got %q: %v", raw, err)
	}
	if rec["msg"] != "coach session initialized" || rec["session_id"] != "s_1" {
		t.Fatalf("record=%v", rec)
	}
}

func TestNew_LevelIsAdjustable(t *testing.T) {
	var term bytes.Buffer
	logger, err := New(Options{Writer: &term, Level: "warn"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Info("quiet")
	logger.Level.Set(slog.LevelDebug)
	logger.Debug("loud")

	if strings.Contains(term.String(), "quiet") || !strings.Contains(term.String(), "loud") {
		t.Fatalf("output=%q", term.String())
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(Options{Level: "chatty"}); err == nil {
		t.Fatal("expected invalid level error")
	}
	if _, err := New(Options{File: filepath.Join(t.TempDir(), "missing", "dir", "x.log")}); err == nil {
		t.Fatal("expected open error")
	}
}
