package environment

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/redis/go-redis/v9"
	"golang.org/x/text/language"

	"latke.GO/config"
)

func testConfig(t *testing.T, driver string) *config.Config {
	cfg := &config.Config{
		Mode:     config.ModeTest,
		ScanPath: "latke.GO/custom",
		DB:       config.DBConfig{Driver: driver, GormLog: "off"},
	}
	if driver == config.DriverSQLite {
		cfg.DB.DSN = filepath.Join(t.TempDir(), "env.db")
	}
	return cfg
}

func TestEnv_InitWithoutBackend(t *testing.T) {
	e := New(testConfig(t, config.DriverNone), nil)
	if err := e.InitRuntimeEnv(context.Background()); err != nil {
		t.Fatalf("InitRuntimeEnv: %v", err)
	}
	if e.RunsWithRelationalBackend() {
		t.Error("RunsWithRelationalBackend = true, want false")
	}
	if e.DB() != nil {
		t.Error("DB opened without a relational driver")
	}
	if err := e.InitRuntimeEnv(context.Background()); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("second InitRuntimeEnv = %v, want ErrAlreadyInitialized", err)
	}
}

func TestEnv_InitSQLite(t *testing.T) {
	e := New(testConfig(t, config.DriverSQLite), nil)
	if err := e.InitRuntimeEnv(context.Background()); err != nil {
		t.Fatalf("InitRuntimeEnv: %v", err)
	}
	if !e.RunsWithRelationalBackend() || e.DB() == nil {
		t.Fatal("sqlite backend not opened")
	}
	if err := e.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	sqlDB, _ := e.DB().DB()
	if err := sqlDB.Ping(); err == nil {
		t.Error("database still reachable after Shutdown")
	}
	if err := e.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown: %v", err)
	}
}

func TestEnv_InitMisconfigured(t *testing.T) {
	cfg := testConfig(t, config.DriverNone)
	cfg.ScanPath = ""
	err := New(cfg, nil).InitRuntimeEnv(context.Background())
	var ce ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want ConfigError", err)
	}
}

func TestEnv_FailedInitReleasesRedis(t *testing.T) {
	cfg := testConfig(t, config.DriverNone)
	cfg.ScanPath = ""
	cfg.Redis.Addr = "127.0.0.1:1" // never dialed
	e := New(cfg, nil)
	rdb := e.Redis()
	if rdb == nil {
		t.Fatal("redis client not built")
	}

	if err := e.InitRuntimeEnv(context.Background()); err == nil {
		t.Fatal("InitRuntimeEnv succeeded with an empty scan path")
	}
	if err := rdb.Ping(context.Background()).Err(); !errors.Is(err, redis.ErrClosed) {
		t.Errorf("Ping after failed init = %v, want redis.ErrClosed", err)
	}
	if e.Redis() != nil {
		t.Error("Redis still returns the closed client")
	}
	if err := e.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown after failed init: %v", err)
	}
}

func TestEnv_Locale(t *testing.T) {
	e := New(testConfig(t, config.DriverNone), nil)
	e.SetLocale(language.SimplifiedChinese)
	if e.Locale() != language.SimplifiedChinese {
		t.Errorf("Locale = %v, want zh-Hans", e.Locale())
	}
}
