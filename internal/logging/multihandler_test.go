package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("sink down") }

func TestMultiHandler_FansOut(t *testing.T) {
	var a, b bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&a, nil),
		nil,
		slog.NewJSONHandler(&b, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)

	logger := slog.New(h).With("vehicle", 12).WithGroup("adapter")
	logger.Info("attached", "kind", "ModularCar")
	logger.Warn("missing sample")

	assert.Contains(t, a.String(), "attached")
	assert.Contains(t, a.String(), "vehicle=12")
	assert.Contains(t, a.String(), "adapter.kind=ModularCar")
	assert.NotContains(t, b.String(), "attached")
	assert.Contains(t, b.String(), "missing sample")
}

func TestMultiHandler_FailingSink(t *testing.T) {
	var buf bytes.Buffer
	h := NewMultiHandler(failingHandler{slog.NewTextHandler(&bytes.Buffer{}, nil)}, slog.NewTextHandler(&buf, nil))

	err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "tick", 0))
	require.Error(t, err)
	assert.Contains(t, buf.String(), "tick")
}

func TestMultiHandler_Enabled(t *testing.T) {
	h := NewMultiHandler(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
	assert.False(t, NewMultiHandler().Enabled(context.Background(), slog.LevelError))
}

func TestMultiHandler_DropsNilAndEmptyGroup(t *testing.T) {
	multi := NewMultiHandler(nil, slog.NewTextHandler(&bytes.Buffer{}, nil), nil)
	require.Len(t, multi.handlers, 1)
	assert.Same(t, multi, multi.WithGroup(""))
}
