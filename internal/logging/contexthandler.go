package logging

import (
	"context"
	"log/slog"
)

// ContextProvider is evaluated once per record.
type ContextProvider func() []slog.Attr

// AdapterCounts reports how many vehicles are patched and how many of them
// are running drag correction at the time a record is written. Records are
// written from background goroutines too, so attached and active must be safe
// to call from any goroutine.
func AdapterCounts(attached, active func() int) ContextProvider {
	return func() []slog.Attr {
		return []slog.Attr{
			slog.Int("adaptersAttached", attached()),
			slog.Int("correctionsActive", active()),
		}
	}
}

// ContextHandler appends the provider's attributes to every record before
// passing it on. Enabled is inherited from the wrapped handler.
type ContextHandler struct {
	slog.Handler
	provider ContextProvider
}

func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{Handler: inner, provider: provider}
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider != nil {
		r.AddAttrs(h.provider()...)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return NewContextHandler(h.Handler.WithAttrs(attrs), h.provider)
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return NewContextHandler(h.Handler.WithGroup(name), h.provider)
}
