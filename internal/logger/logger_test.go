package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew_Development(t *testing.T) {
	log, err := New(true)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	if log == nil {
		t.Fatal("expected non-nil logger")
	}

	// Should not panic
	log.Info("test message")
}

func TestNew_Production(t *testing.T) {
	log, err := New(false)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	if log == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestMust(t *testing.T) {
	// Should not panic
	log := Must(true)
	if log == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestForMode(t *testing.T) {
	for _, mode := range []string{"debug", "DEBUG", "release", ""} {
		log, err := ForMode(mode)
		if err != nil {
			t.Fatalf("ForMode(%q) failed: %v", mode, err)
		}
		if log == nil {
			t.Fatalf("ForMode(%q) returned nil logger", mode)
		}
	}

	if !Must(true).Core().Enabled(zapcore.DebugLevel) {
		t.Error("development logger should log debug")
	}
	prod, _ := ForMode("release")
	if prod.Core().Enabled(zapcore.DebugLevel) {
		t.Error("production logger should not log debug")
	}
}
