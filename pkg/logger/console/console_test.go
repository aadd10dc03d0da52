package console

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestConsoleLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(ConsoleLoggerParams{Output: &buf})

	l.Debug("hidden")
	l.Info("visible", "chunks", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug message written at info level: %q", out)
	}
	if !strings.Contains(out, "visible") || !strings.Contains(out, "chunks=3") {
		t.Fatalf("missing info message: %q", out)
	}
}

func TestConsoleLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(ConsoleLoggerParams{Debug: true, JSON: true, Prefix: "worker", Output: &buf})

	l.Debug("chunk done", "chunk", 2)

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "chunk done" {
		t.Fatalf("unexpected msg %v", entry["msg"])
	}
	if entry["chunk"] != float64(2) {
		t.Fatalf("unexpected chunk %v", entry["chunk"])
	}
}
