package logger

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithLoggerAndFromContext(t *testing.T) {
	base := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("round trip", func(t *testing.T) {
		ctx := WithLogger(context.Background(), base)
		assert.Same(t, base, FromContext(ctx))
	})

	t.Run("missing logger falls back to default", func(t *testing.T) {
		assert.Same(t, slog.Default(), FromContext(context.Background()))
	})

	t.Run("FromContextOrDefault prefers context logger", func(t *testing.T) {
		fallback := slog.New(slog.NewTextHandler(io.Discard, nil))
		ctx := WithLogger(context.Background(), base)
		assert.Same(t, base, FromContextOrDefault(ctx, fallback))
	})

	t.Run("FromContextOrDefault uses fallback when unset", func(t *testing.T) {
		fallback := slog.New(slog.NewTextHandler(io.Discard, nil))
		assert.Same(t, fallback, FromContextOrDefault(context.Background(), fallback))
	})

	t.Run("nil fallback yields default", func(t *testing.T) {
		assert.Same(t, slog.Default(), FromContextOrDefault(context.Background(), nil))
	})
}
