package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WARN, &buf)

	l.Debug("debug %d", 1)
	l.Info("info")
	assert.Empty(t, buf.String())

	l.Warn("warn %s", "msg")
	l.Error("error")
	out := buf.String()
	assert.Contains(t, out, "[WARN] warn msg")
	assert.Contains(t, out, "[ERROR] error")
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(ERROR, &buf)

	l.Info("dropped")
	assert.Empty(t, buf.String())

	l.SetLevel(DEBUG)
	l.Info("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestOffSilencesEverything(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(OFF, &buf)
	l.Error("nothing")
	assert.Empty(t, buf.String())
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", DEBUG.String())
	assert.Equal(t, "OFF", OFF.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

func TestDefaultLoggerSwap(t *testing.T) {
	orig := GetDefault()
	defer SetDefault(orig)

	SetDefault(NewDiscardLogger())
	Debug("x")
	Info("x")
	Warn("x")
	Error("x")
}
