package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/shaiso/dfsbridge/internal/domain"
)

// --- Logging Tests ---

func TestLogLevel(t *testing.T) {
	tests := []struct {
		env  string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Setenv("LOG_LEVEL", tt.env)
		if got := LogLevel(); got != tt.want {
			t.Errorf("LOG_LEVEL=%q: expected %v, got %v", tt.env, tt.want, got)
		}
	}
}

func TestDataAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	data := domain.NewData("t1", "a1", "14360570", domain.ItemKindAwards, "doc-1", "")
	logger.Info("processing", append(DataAttrs(data), MessageID(MsgTenderProcess))...)

	out := buf.String()
	for _, want := range []string{"tender_id=t1", "item_id=a1", "document_id=doc-1", "message_id=tender_process"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %q", want, out)
		}
	}

	if DataAttrs(nil) != nil {
		t.Error("expected nil attrs for nil data")
	}
}

func TestFromContext(t *testing.T) {
	logger := WithTenderID(slog.Default(), "t1")
	ctx := WithLogger(context.Background(), logger)

	if FromContext(ctx) != logger {
		t.Error("expected logger from context")
	}
	if FromContext(context.Background()) != slog.Default() {
		t.Error("expected default logger")
	}
}

// --- Metrics Tests ---

func TestNewMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ItemsSkipped.WithLabelValues(SkipInvalidCode).Inc()
	m.ItemsSkipped.WithLabelValues(SkipInvalidCode).Inc()
	m.GovernorDelay.Set(2)

	if got := testutil.ToFloat64(m.ItemsSkipped.WithLabelValues(SkipInvalidCode)); got != 2 {
		t.Errorf("expected 2 skipped, got %v", got)
	}
	if got := testutil.ToFloat64(m.GovernorDelay); got != 2 {
		t.Errorf("expected delay 2, got %v", got)
	}

	// Повторная регистрация в другом реестре не паникует.
	NewMetrics(nil)
}
