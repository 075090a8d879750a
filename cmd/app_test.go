package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/viper"

	"latke.GO/config"
	"latke.GO/servlet"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		AppName:         "latke-test",
		Mode:            config.ModeTest,
		Locale:          "en-US",
		ScanPath:        "latke.GO/cmd",
		WebRoot:         t.TempDir(),
		ShutdownTimeout: time.Second,
		DB:              config.DBConfig{Driver: config.DriverNone},
		Session:         config.SessionConfig{TTL: time.Minute, Cookie: "SID", Sweep: "@every 1m"},
	}
}

func TestNewApplication_StartStop(t *testing.T) {
	app, err := newApplication(testConfig(t), nil)
	if err != nil {
		t.Fatalf("newApplication: %v", err)
	}
	if err := app.server.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := app.listener.State(); got != servlet.Running {
		t.Fatalf("State = %v, want %v", got, servlet.Running)
	}
	if got := app.listener.RuntimeContext().Locale.String(); got != "en-US" {
		t.Errorf("locale = %q, want en-US", got)
	}
	if !app.jobs.Running() {
		t.Error("job service not running")
	}
	if err := app.server.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if app.jobs.Running() {
		t.Error("job service still running after shutdown")
	}
}

func TestNewApplication_BadLocale(t *testing.T) {
	cfg := testConfig(t)
	cfg.Locale = "not a locale!"
	if _, err := newApplication(cfg, nil); err == nil {
		t.Error("newApplication accepted a bad locale")
	}
}

func TestNewApplication_DefaultConfigStarts(t *testing.T) {
	cfg, err := config.LoadFrom(viper.New(), "")
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	app, err := newApplication(cfg, nil)
	if err != nil {
		t.Fatalf("newApplication: %v", err)
	}
	if err := app.server.Start(context.Background()); err != nil {
		t.Fatalf("Start with default config: %v", err)
	}
	defer app.server.Shutdown(context.Background())
	if got := app.listener.State(); got != servlet.Running {
		t.Errorf("State = %v, want %v", got, servlet.Running)
	}
	if app.listener.WebRoot() == "" {
		t.Error("WebRoot empty with default config")
	}
}
