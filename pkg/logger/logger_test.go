package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestWithContext_InjectsIDs(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(NewWithWriter(Config{Level: "info", Format: "json"}, &buf))
	t.Cleanup(func() { SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil))) })

	ctx := WithTraceID(WithRunID(context.Background(), "run-1"), "trace-9")
	Info(ctx, "option priced", "model", "BlackScholes")
	Debug(ctx, "hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "option priced", entry["msg"])
	assert.Equal(t, "run-1", entry["run_id"])
	assert.Equal(t, "trace-9", entry["trace_id"])
	assert.Equal(t, "BlackScholes", entry["model"])
}

func TestLogDuration(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(NewWithWriter(Config{Level: "info", Format: "text"}, &buf))
	t.Cleanup(func() { SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil))) })

	done := LogDuration(context.Background(), "pricing run")
	done()
	assert.Contains(t, buf.String(), "pricing run")
	assert.Contains(t, buf.String(), "duration=")
}

func TestNew_FileOutputRotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pricing.log")
	l, err := New(Config{Level: "info", Format: "json", Output: "file", FilePath: path, MaxSize: 1, Service: "pricing"})
	require.NoError(t, err)

	l.Warn("scheme fallback", "scheme", "kamrad-ritchken")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "kamrad-ritchken")
	assert.Contains(t, string(data), `"service":"pricing"`)
}

func TestNewWithWriter_ServiceAndSpan(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(Config{Level: "info", Format: "json", Service: "pricing", Module: "cli"}, &buf)

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))
	l.InfoContext(ctx, "greeks calculated")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "pricing", entry["service"])
	assert.Equal(t, "cli", entry["module"])
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", entry["span_id"])

	// 追加 run_id 后仍注入 span
	buf.Reset()
	SetDefault(l)
	t.Cleanup(func() { SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil))) })
	Info(WithRunID(ctx, "run-2"), "option priced")

	entry = map[string]any{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "run-2", entry["run_id"])
	assert.Equal(t, "pricing", entry["service"])
	assert.Equal(t, "00f067aa0ba902b7", entry["span_id"])
}

func TestNew_BothWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.log")
	l, err := New(Config{Level: "warn", Format: "json", Output: "both", FilePath: path, Service: "pricing"})
	require.NoError(t, err)

	l.Info("hidden")
	l.Warn("convergence warning", "steps", 3200)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), `"service":"pricing"`)
}
