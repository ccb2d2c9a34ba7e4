// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"codeberg.org/ipo-allotment/server/internal/appcontext"
	"github.com/labstack/echo/v4"
)

// customContext wraps the Echo context with our custom Context.
func customContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&appcontext.Context{Context: c})
		}
	}
}

// contextFrom returns c as *appcontext.Context, wrapping it if needed.
func contextFrom(c echo.Context) *appcontext.Context {
	if cc, ok := c.(*appcontext.Context); ok {
		return cc
	}
	return &appcontext.Context{Context: c}
}
