// Package auth guards application routes with basic or key auth.
package auth

import (
	"crypto/subtle"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"latke.GO/config"
)

// Middleware returns the auth middleware for c.Type, or nil when auth is
// disabled.
func Middleware(c config.AuthConfig) echo.MiddlewareFunc {
	skipper := buildSkipper(c.SkipPaths())
	switch c.Type {
	case config.AuthKey:
		return keyAuth(c.Key, skipper)
	case config.AuthBasic:
		return basicAuth(c.User, c.Pass, skipper)
	default:
		return nil
	}
}

func buildSkipper(skipPaths []string) middleware.Skipper {
	return func(c echo.Context) bool {
		path := c.Path()
		for _, skip := range skipPaths {
			if path == skip || (strings.HasSuffix(skip, "*") && strings.HasPrefix(path, strings.TrimSuffix(skip, "*"))) {
				return true
			}
		}
		return false
	}
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func basicAuth(user, pass string, skipper middleware.Skipper) echo.MiddlewareFunc {
	return middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
		Validator: func(username, password string, c echo.Context) (bool, error) {
			ok := equal(username, user) && equal(password, pass)
			if ok {
				c.Set("auth_type", config.AuthBasic)
			}
			return ok, nil
		},
		Skipper: skipper,
	})
}

func keyAuth(apiKey string, skipper middleware.Skipper) echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		Validator: func(key string, c echo.Context) (bool, error) {
			ok := equal(key, apiKey)
			if ok {
				c.Set("auth_type", config.AuthKey)
			}
			return ok, nil
		},
		Skipper: skipper,
	})
}
