package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedactsSensitiveKeys(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core))

	log.Info("login", "email", "admin@example.com", "password", "Admin1234", "user_id", 7, "route", "/api/login")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "[REDACTED]", fields["email"])
	assert.Equal(t, "[REDACTED]", fields["password"])
	assert.Equal(t, "/api/login", fields["route"])
	assert.Contains(t, fields["user_id"], "hash:")
}

func TestKeepPII(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := &Logger{SugaredLogger: zap.New(core).Sugar()}

	log.With("component", "seed").Warn("demo user", "email", "admin@example.com")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "admin@example.com", fields["email"])
	assert.Equal(t, "seed", fields["component"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Options{Mode: "development", Level: "chatty"})
	assert.Error(t, err)

	log, err := New(Options{Mode: "production", Level: "warn"})
	require.NoError(t, err)
	assert.False(t, log.SugaredLogger.Desugar().Core().Enabled(zapcore.InfoLevel))
}
