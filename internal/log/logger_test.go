package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func testLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{
		Level:     slog.LevelDebug,
		Component: component,
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func TestLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := testLogger(&buf, ComponentWorker)

	logger.Info("computing", FieldYear, 2024)

	out := buf.String()
	if !strings.Contains(out, "component=worker") {
		t.Errorf("output missing component tag: %s", out)
	}
	if !strings.Contains(out, "fiscal_year=2024") {
		t.Errorf("output missing year field: %s", out)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := testLogger(&buf, ComponentApp).WithComponent(ComponentSheets)

	if logger.Component() != ComponentSheets {
		t.Errorf("Component() = %q, want %q", logger.Component(), ComponentSheets)
	}
}

func TestFromContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := testLogger(&buf, ComponentHTTP)

	ctx := WithContext(context.Background(), logger)
	if got := FromContext(ctx); got != logger {
		t.Error("FromContext() did not return the stored logger")
	}

	if got := FromContext(context.Background()); got == nil {
		t.Error("FromContext() without stored logger must fall back, not return nil")
	}
}

func TestLogFieldsToSlice(t *testing.T) {
	fields := NewFields().
		WithClientIP("10.0.0.1").
		WithHTTPRequest("GET", "/api/v1/years", "", "curl").
		WithHTTPResponse(200, 12, true)

	slice := fields.ToSlice()
	if len(slice) != len(fields)*2 {
		t.Errorf("ToSlice() length = %d, want %d", len(slice), len(fields)*2)
	}
	if fields[FieldStatusCode] != 200 || fields[FieldSuccess] != true {
		t.Errorf("fields = %v", fields)
	}
}
