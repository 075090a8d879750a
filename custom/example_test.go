package custom

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"

	"latke.GO/cmd"
	"latke.GO/config"
	"latke.GO/core/environment"
	"latke.GO/cron"
	"latke.GO/ioc"
	"latke.GO/model/repository"
	"latke.GO/servlet"
)

func newTestEcho(t *testing.T, driver string) *echo.Echo {
	t.Helper()
	cfg := &config.Config{
		Mode:     config.ModeTest,
		ScanPath: "latke.GO/custom",
		DB:       config.DBConfig{Driver: driver, GormLog: "off"},
	}
	if driver == config.DriverSQLite {
		cfg.DB.DSN = filepath.Join(t.TempDir(), "custom.db")
	}
	env := environment.New(cfg, nil)
	if err := env.InitRuntimeEnv(context.Background()); err != nil {
		t.Fatalf("InitRuntimeEnv: %v", err)
	}
	t.Cleanup(func() { _ = env.Shutdown(context.Background()) })
	guard := repository.NewGuard(env)

	descs, err := ioc.NewDiscoverer(nil).Discover(cfg.ScanPath)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	c := ioc.NewContainer(
		ioc.WithSettings(map[string]map[string]interface{}{"greeting": {"prefix": "Hi"}}),
		ioc.WithInstance(cmd.BeanRuntimeEnv, env),
		ioc.WithInstance(cmd.BeanDataHandles, guard),
	)
	if err := c.StartApplication(context.Background(), descs); err != nil {
		t.Fatalf("StartApplication: %v", err)
	}
	table, err := servlet.Processors{}.BuildProcessorMethods(c.BeanManager().Beans(ioc.RequestProcessor))
	if err != nil {
		t.Fatalf("BuildProcessorMethods: %v", err)
	}

	e := echo.New()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := repository.WithRequestScope(c.Request().Context())
			c.SetRequest(c.Request().WithContext(ctx))
			defer guard.Dispose(ctx)
			return next(c)
		}
	})
	table.Apply(e)
	return e
}

func TestHello(t *testing.T) {
	e := newTestEcho(t, config.DriverNone)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/hello/latke", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["message"] != "Hi, latke!" {
		t.Errorf("message = %q, want %q", body["message"], "Hi, latke!")
	}
}

func TestVisits(t *testing.T) {
	e := newTestEcho(t, config.DriverSQLite)
	var visits float64
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/visits?path=/docs", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("POST /visits = %d: %s", rec.Code, rec.Body.String())
		}
		var body map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		visits = body["visits"].(float64)
	}
	if visits != 2 {
		t.Errorf("visits = %v, want 2", visits)
	}
}

func TestVisits_NoBackend(t *testing.T) {
	e := newTestEcho(t, config.DriverNone)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/visits", nil))
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", rec.Code)
	}
}

func TestRegistrations(t *testing.T) {
	var found bool
	for _, j := range cron.Jobs() {
		if j.Name == "custom:ping" {
			found = true
			if err := j.Run(context.Background()); err != nil {
				t.Errorf("custom:ping: %v", err)
			}
		}
	}
	if !found {
		t.Error("custom:ping not registered")
	}
}
