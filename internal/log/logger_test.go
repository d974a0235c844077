package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLoggerAddsComponentOnce(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Output: &buf}).WithComponent(ComponentNewBill)

	l.Info("upload done", FieldBillID, "1234")

	out := buf.String()
	if strings.Count(out, "component=") != 1 || !strings.Contains(out, "component=newbill") {
		t.Fatalf("unexpected output: %s", out)
	}
	if !strings.Contains(out, "bill_id=1234") {
		t.Fatalf("missing field: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		" error ": slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestComponentMiddlewareStoresLogger(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Output: &buf})

	var got *Logger
	h := ComponentMiddleware(ComponentBills)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(httptest.NewRecorder(), req.WithContext(NewContext(req.Context(), base)))

	if got == nil || got.Component() != ComponentBills {
		t.Fatalf("unexpected logger: %+v", got)
	}
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatal("missing logger should fall back to default")
	}
}

func TestStructuredLogError(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Output: &buf}))

	sl.LogError(context.Background(), "update failed", errors.New("Erreur 500"), ComponentNewBill, OpUpdate, nil)

	out := buf.String()
	for _, want := range []string{"component=newbill", "operation=update", `error="Erreur 500"`} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
}
