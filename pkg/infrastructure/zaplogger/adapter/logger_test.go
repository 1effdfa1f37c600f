package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mateusmacedo/bus-storefront/pkg/application"
)

func TestZapAdapterAttachesRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewFromZap(zap.New(core))

	ctx := application.WithRequestID(context.Background(), "req-1")
	logger.Warn(ctx, "seat ignored", map[string]interface{}{"seat_id": "3B"})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "seat ignored", entries[0].Message)

	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["requestID"])
	assert.Equal(t, "3B", fields["seat_id"])
}

func TestNewZapAppLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := NewZapAppLogger(Options{App: "test", Level: "loud"})
	assert.Error(t, err)
}
