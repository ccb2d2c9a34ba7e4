// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package appcontext provides the custom Echo context and context keys.
package appcontext

import (
	"context"

	"codeberg.org/ipo-allotment/server/internal/models"
	"github.com/labstack/echo/v4"
)

// User is the context key for the authenticated user.
type User struct{}

// Context is a custom Echo context carrying the authenticated user.
type Context struct {
	echo.Context
	User *models.User // nil if not authenticated
}

// GetUser returns the authenticated user, or nil if not authenticated.
func (c *Context) GetUser() *models.User {
	return c.User
}

// IsAuthenticated returns true if the user is authenticated.
func (c *Context) IsAuthenticated() bool {
	return c.User != nil
}

// UserFrom returns the authenticated user of an Echo context, or nil.
func UserFrom(c echo.Context) *models.User {
	if cc, ok := c.(*Context); ok {
		return cc.User
	}
	return UserFromContext(c.Request().Context())
}

// WithUser stores user in ctx.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, User{}, user)
}

// UserFromContext returns the user stored by WithUser, or nil.
func UserFromContext(ctx context.Context) *models.User {
	if user, ok := ctx.Value(User{}).(*models.User); ok {
		return user
	}
	return nil
}
