package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/dokzlo13/dashd/internal/config"
	"github.com/dokzlo13/dashd/internal/ledger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	selfTest := false
	cfg.Board.Channels = 3
	cfg.Board.FrameRate = 1000
	cfg.Board.FadeDuration = config.Duration(10 * time.Millisecond)
	cfg.Board.SelfTest = &selfTest
	cfg.Sensor.Driver = "static"
	cfg.Sensor.Value = 1023
	cfg.Database.Path = filepath.Join(t.TempDir(), "dashd.sqlite")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	return cfg
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAppCommandFlow(t *testing.T) {
	cfg := testConfig(t)
	application, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := application.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer application.Stop()

	services := application.Services()
	ctx := context.Background()

	accepted, err := services.Board.Loop.Submit(ctx, "2=4")
	if err != nil || !accepted {
		t.Fatalf("Submit() = %v, %v; want true, nil", accepted, err)
	}

	waitFor(t, "status 004", func() bool {
		status, ok := services.Status.Latest()
		return ok && status == "004"
	})

	waitFor(t, "ledger entry", func() bool {
		entries, err := services.Ledger.GetByType(ledger.EventStatusPublished, 1)
		return err == nil && len(entries) == 1 && entries[0].Payload["status"] == "004"
	})
}

func TestAppControlCommandIsRecorded(t *testing.T) {
	cfg := testConfig(t)
	application, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := application.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer application.Stop()

	services := application.Services()
	h := services.Control.server.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/control", http.NoBody))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty command status code = %d, want 422", rec.Code)
	}

	waitFor(t, "rejected command in ledger", func() bool {
		entries, err := services.Ledger.GetByType(ledger.EventCommandRejected, 1)
		return err == nil && len(entries) == 1 && entries[0].Source == "http"
	})
}

func TestHealthReady(t *testing.T) {
	cfg := testConfig(t)
	application, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	h := application.Services().Health.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/health status code = %d, want 200", rec.Code)
	}

	if err := application.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/ready status code = %d, want 200", rec.Code)
	}

	application.Stop()

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/ready after stop status code = %d, want 503", rec.Code)
	}
}

func TestNewRejectsBadPalette(t *testing.T) {
	cfg := testConfig(t)
	cfg.Palette = map[string]string{"2": "not-a-color"}

	if _, err := New(cfg); err == nil {
		t.Fatal("New() with bad palette succeeded")
	}
}
