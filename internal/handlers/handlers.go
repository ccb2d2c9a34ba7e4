// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers contains the HTTP handlers of the JSON API.
package handlers

import (
	"net/http"
	"time"

	"codeberg.org/ipo-allotment/server/internal/appcontext"
	"codeberg.org/ipo-allotment/server/internal/apperr"
	"codeberg.org/ipo-allotment/server/internal/models"
	"codeberg.org/ipo-allotment/server/internal/services/allotment"
	"github.com/labstack/echo/v4"
)

// Handlers contains the health and allotment API handlers.
type Handlers struct {
	mgr *allotment.Manager
	now func() time.Time
}

// New creates a new Handlers instance.
func New(mgr *allotment.Manager) *Handlers {
	return &Handlers{mgr: mgr, now: time.Now}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

// successResponse is the acknowledgement body of mutations without a payload.
type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// currentUser returns the authenticated user set by the auth middleware.
func currentUser(c echo.Context) (*models.User, error) {
	user := appcontext.UserFrom(c)
	if user == nil {
		return nil, apperr.New(apperr.ErrUnauthorized, "Authentication required")
	}
	return user, nil
}
