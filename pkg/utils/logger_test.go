package utils

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	for _, debug := range []bool{true, false} {
		logger, err := NewLogger(debug)
		if err != nil {
			t.Fatalf("NewLogger(%v) error: %v", debug, err)
		}
		if logger == nil {
			t.Fatalf("NewLogger(%v) returned nil logger", debug)
		}
		_ = logger.Sync()
	}

	debugLogger, _ := NewLogger(true)
	if !debugLogger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug logger should enable debug level")
	}
	prodLogger, _ := NewLogger(false)
	if prodLogger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("production logger should not enable debug level")
	}
}
