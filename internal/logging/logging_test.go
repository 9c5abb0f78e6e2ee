package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestComponentAddsAttribute(t *testing.T) {
	var buf bytes.Buffer
	InitWithHandler(slog.NewTextHandler(&buf, nil))

	Component("ingest").Info("done", "records", 3)

	out := buf.String()
	if !strings.Contains(out, "component=ingest") {
		t.Errorf("missing component attribute: %s", out)
	}
	if !strings.Contains(out, "records=3") {
		t.Errorf("missing records attribute: %s", out)
	}
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	InitWithHandler(slog.NewJSONHandler(&buf, nil))

	ctx := ContextWithInput(context.Background(), "sqf-2012.csv")
	ctx = ContextWithCommand(ctx, "rates")
	WithContext(ctx).Warn("row skipped")

	out := buf.String()
	if !strings.Contains(out, `"input":"sqf-2012.csv"`) {
		t.Errorf("missing input: %s", out)
	}
	if !strings.Contains(out, `"command":"rates"`) {
		t.Errorf("missing command: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
