// Package middleware holds echo middleware specific to the addon server.
package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// SecurityHeaders sets response hardening headers. Responses under any of
// noStorePrefixes are marked uncacheable.
func SecurityHeaders(noStorePrefixes ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")

			path := c.Request().URL.Path
			for _, prefix := range noStorePrefixes {
				if strings.HasPrefix(path, prefix) {
					h.Set("Cache-Control", "no-store")
					break
				}
			}
			return next(c)
		}
	}
}
