package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestSwappableHandler_Swap(t *testing.T) {
	var first, second bytes.Buffer
	h := NewSwappableHandler(slog.NewTextHandler(&first, nil))
	logger := slog.New(h)

	logger.Info("one")
	h.Swap(slog.NewTextHandler(&second, nil))
	logger.Info("two")

	if !strings.Contains(first.String(), "one") || strings.Contains(first.String(), "two") {
		t.Errorf("first = %q", first.String())
	}
	if !strings.Contains(second.String(), "two") {
		t.Errorf("second = %q", second.String())
	}
}

func TestSwappableHandler_DerivedFollowsSwap(t *testing.T) {
	var first, second bytes.Buffer
	h := NewSwappableHandler(slog.NewTextHandler(&first, nil))
	derived := slog.New(h).With("component", "grid").WithGroup("cell")

	derived.Info("before", "index", 1)
	h.Swap(slog.NewTextHandler(&second, nil))
	derived.Info("after", "index", 2)

	if strings.Contains(first.String(), "after") {
		t.Errorf("derived logger kept the old handler: %q", first.String())
	}
	out := second.String()
	if !strings.Contains(out, "component=grid") || !strings.Contains(out, "cell.index=2") {
		t.Errorf("second = %q", out)
	}
}

func TestSwappableHandler_Enabled(t *testing.T) {
	h := NewSwappableHandler(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn}))
	ctx := context.Background()

	if h.Enabled(ctx, slog.LevelInfo) {
		t.Error("info enabled at warn level")
	}
	h.Swap(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug}))
	if !h.Enabled(ctx, slog.LevelDebug) {
		t.Error("debug disabled after swap")
	}
}
