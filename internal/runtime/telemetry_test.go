package runtime

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/scribelabs/scribe-core/internal/config"
)

func TestSetupTelemetryWithoutCollector(t *testing.T) {
	cfg := config.Default()
	cfg.Telemetry.OTLPEndpoint = ""
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	shutdown, handler, err := setupTelemetry(cfg, "test", logger)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if shutdown == nil {
		t.Fatal("expected shutdown function")
	}
	if handler == nil {
		t.Fatal("expected metrics scrape handler")
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("expected 200 from scrape handler, got %d", rec.Code)
	}

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
