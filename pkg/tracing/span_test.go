package tracing

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChildSpansShareTraceID(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "reload", "")
	require.Len(t, root.TraceID, 32)

	_, fetch := StartChildSpan(ctx, "fetch")
	_, build := StartChildSpan(ctx, "build")
	fetch.End(nil)
	build.End(errors.New("boom"))
	root.End(nil)

	assert.Equal(t, root.TraceID, fetch.TraceID)
	assert.Len(t, root.Children, 2)
	assert.Same(t, root, SpanFromContext(ctx))
}

func TestChildSpanWithoutParentIsNoop(t *testing.T) {
	ctx, span := StartChildSpan(context.Background(), "orphan")
	assert.Nil(t, span)
	assert.Nil(t, SpanFromContext(ctx))
	span.SetAttr("k", "v")
	span.End(nil)
	span.Log(nil)
}

func TestLogWritesEveryLevelOfTheTree(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, root := StartSpan(context.Background(), "reload", "abc")
	root.SetAttr("trigger", "manual")
	_, child := StartChildSpan(ctx, "fetch")
	child.End(errors.New("source unavailable"))
	root.End(nil)
	root.Log(logger)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "span=reload")
	assert.Contains(t, lines[0], "trigger=manual")
	assert.Contains(t, lines[1], "level=WARN")
	assert.Contains(t, lines[1], `error="source unavailable"`)
	assert.Contains(t, lines[1], "trace_id=abc")
}
