package tracer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"registra/internal/registry/tracer"
)

func TestNoopTracer(t *testing.T) {
	tr := tracer.NewNoop()
	ctx := context.Background()

	newCtx, span := tr.Start(ctx, "lookup.company",
		tracer.String(tracer.AttrAuthority, "mf"),
		tracer.Bool(tracer.AttrCacheHit, false),
	)

	assert.Equal(t, ctx, newCtx, "context is returned unchanged")
	require.NotNil(t, span)

	span.SetAttributes(tracer.String(tracer.AttrOutcome, "found"))
	span.AddEvent("cache.saved", tracer.Int64("bytes", 42))
	span.End(nil)

	_, span = tr.Start(ctx, "lookup.company")
	span.End(errors.New("authority unreachable"))
}

func TestHashIdentifier(t *testing.T) {
	t.Run("empty input returns empty", func(t *testing.T) {
		assert.Empty(t, tracer.HashIdentifier(""))
	})

	t.Run("deterministic short hash", func(t *testing.T) {
		first := tracer.HashIdentifier("1234563218")
		second := tracer.HashIdentifier("1234563218")
		assert.Equal(t, first, second)
		assert.Len(t, first, 16)
	})

	t.Run("different identifiers hash differently", func(t *testing.T) {
		assert.NotEqual(t, tracer.HashIdentifier("1234563218"), tracer.HashIdentifier("5260250274"))
	})
}
