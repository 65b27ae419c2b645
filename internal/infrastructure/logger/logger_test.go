package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"WARN", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"", zapcore.InfoLevel},
		{"bogus", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.input), "level %q", tt.input)
	}
}

func TestNew(t *testing.T) {
	l := New(Config{Level: "debug", Format: "json", Output: "stdout"})
	require.NotNil(t, l)
	l.Debug("test entry")

	console := New(Config{Level: "info", Format: "console", Output: "stderr"})
	require.NotNil(t, console)
}

func TestNewForEnvironment(t *testing.T) {
	require.NotNil(t, NewForEnvironment("production"))
	require.NotNil(t, NewForEnvironment("development"))
}
