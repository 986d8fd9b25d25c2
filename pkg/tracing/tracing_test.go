package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInit_DisabledIsInert(t *testing.T) {
	tp, err := Init(Config{Enabled: false})

	assert.NoError(t, err)
	assert.NotNil(t, tp)
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestStartSpan(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "test.operation")
	defer span.End()

	assert.NotNil(t, ctx)
	assert.NotNil(t, span)

	// With no provider installed the span is a no-op; recording an
	// error must still be safe.
	RecordError(ctx, errors.New("boom"))
}

func TestTraceOperation(t *testing.T) {
	ctx, span := TraceOperation(context.Background(), "stop_stream", "bc-1")
	defer span.End()

	assert.NotNil(t, ctx)
	assert.NotNil(t, span)
}
