package logger

import (
	"fmt"
	"sync"
	"testing"
)

type recorder struct {
	mu      sync.Mutex
	entries []string
}

func (r *recorder) add(level, message string, keyvals ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, fmt.Sprintf("%s %s %v", level, message, keyvals))
}

func (r *recorder) Log(message string, keyvals ...any)   { r.add("log", message, keyvals...) }
func (r *recorder) Debug(message string, keyvals ...any) { r.add("debug", message, keyvals...) }
func (r *recorder) Info(message string, keyvals ...any)  { r.add("info", message, keyvals...) }
func (r *recorder) Warn(message string, keyvals ...any)  { r.add("warn", message, keyvals...) }
func (r *recorder) Error(message string, keyvals ...any) { r.add("error", message, keyvals...) }
func (r *recorder) Fatal(message string, keyvals ...any) { r.add("fatal", message, keyvals...) }

func TestDispatchesToAllInstances(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	Init(a, b)
	t.Cleanup(func() { Init() })

	Log("plain", "k", 1)
	Info("started", "chunks", 3)
	Warn("slow")
	Debug("detail")
	Error("failed", "chunk", 2)

	want := []string{
		"log plain [k 1]",
		"info started [chunks 3]",
		"warn slow []",
		"debug detail []",
		"error failed [chunk 2]",
	}
	for _, r := range []*recorder{a, b} {
		if len(r.entries) != len(want) {
			t.Fatalf("expected %d entries, got %v", len(want), r.entries)
		}
		for i := range want {
			if r.entries[i] != want[i] {
				t.Fatalf("entry %d = %q, want %q", i, r.entries[i], want[i])
			}
		}
	}
}

func TestInitReplacesInstances(t *testing.T) {
	first, second := &recorder{}, &recorder{}
	Init(first)
	Init(second)
	t.Cleanup(func() { Init() })

	Info("hello")

	if len(first.entries) != 0 {
		t.Fatalf("replaced instance received %v", first.entries)
	}
	if len(second.entries) != 1 {
		t.Fatalf("expected one entry, got %v", second.entries)
	}
}
