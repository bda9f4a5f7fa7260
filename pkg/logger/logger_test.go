package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContext_AddsCorrelationID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	prev := Get()
	SetLogger(zap.New(core))
	defer SetLogger(prev)

	ctx := ContextWithCorrelationID(context.Background(), "req-42")
	WithContext(ctx).Info("hello")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "req-42", entries[0].ContextMap()["correlation_id"])
	}
}

func TestCorrelationID_Missing(t *testing.T) {
	assert.Equal(t, "", CorrelationID(context.Background()))
}
