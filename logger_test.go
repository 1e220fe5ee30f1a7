package lintas

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// Light smoke tests ensuring exported logger APIs do not panic and remain callable.
func TestSimpleLoggerLevels(t *testing.T) {
	logger := NewSimpleLogger()

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message", "key", "value")
	logger.Error("error message")
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	for i := 0; i < 5; i++ {
		logger.Info("loop message", "i", i)
	}
}

func TestZapLoggerFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := NewZapLogger(zap.New(core))

	logger.Warn("Skipping malformed NDJSON line", "line", "{broken")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].Level != zap.WarnLevel {
		t.Errorf("Expected warn level, got %v", entries[0].Level)
	}
	if got := entries[0].ContextMap()["line"]; got != "{broken" {
		t.Errorf("Expected line field, got %v", got)
	}
}

func TestDefaultNotifierLogsErrors(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	notifier := &logNotifier{logger: NewZapLogger(zap.New(core))}

	notifier.Notify(context.Background(), &ClientError{Type: ErrorTypeServer, Message: "internal server error", RequestID: "r1"})

	if logs.FilterMessage("Request failed").Len() != 1 {
		t.Errorf("Expected one error entry, got %v", logs.All())
	}
}
