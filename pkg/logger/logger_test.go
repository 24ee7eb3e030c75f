package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_FieldsAreForwarded(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewWithZap(zap.New(core))

	log.Info("phase completed", map[string]interface{}{
		"phase": "identity",
		"error": errors.New("boom"),
	})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "phase completed", entries[0].Message)

	ctx := entries[0].ContextMap()
	assert.Equal(t, "identity", ctx["phase"])
	assert.Equal(t, "boom", ctx["error"])
}

func TestNopLogger(t *testing.T) {
	log := NewNop()
	assert.NotPanics(t, func() {
		log.Info("x", nil)
		log.Fatal("y", map[string]interface{}{"k": 1})
	})
}
