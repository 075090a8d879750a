package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"latke.GO/config"
)

func newEcho(c config.AuthConfig) *echo.Echo {
	e := echo.New()
	g := e.Group("")
	if m := Middleware(c); m != nil {
		g.Use(m)
	}
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	g.GET("/private", ok)
	g.GET("/public/info", ok)
	return e
}

func TestMiddleware_Disabled(t *testing.T) {
	if m := Middleware(config.AuthConfig{Type: config.AuthNone}); m != nil {
		t.Error("Middleware(none) != nil")
	}
}

func TestMiddleware_Basic(t *testing.T) {
	e := newEcho(config.AuthConfig{Type: config.AuthBasic, User: "admin", Pass: "secret", Skip: "/public/*"})

	tests := []struct {
		name       string
		path       string
		user, pass string
		want       int
	}{
		{"no credentials", "/private", "", "", http.StatusUnauthorized},
		{"wrong password", "/private", "admin", "nope", http.StatusUnauthorized},
		{"valid", "/private", "admin", "secret", http.StatusOK},
		{"skipped path", "/public/info", "", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.user != "" {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestMiddleware_Key(t *testing.T) {
	e := newEcho(config.AuthConfig{Type: config.AuthKey, Key: "k3y"})

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer k3y")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("valid key status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer wrong")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong key status = %d, want 401", rec.Code)
	}
}
