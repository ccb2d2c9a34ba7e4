// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"codeberg.org/ipo-allotment/server/internal/apperr"
	"github.com/labstack/echo/v4"
)

// MsgInternal is the message of every unexpected failure.
const MsgInternal = "Internal server error"

// errorResponse is the body of every failed request.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Created *int   `json:"created,omitempty"`
}

// partialError reports a bulk operation that failed after committing some
// rows.
type partialError struct {
	err     error
	created int
}

func (e *partialError) Error() string { return e.err.Error() }

func (e *partialError) Unwrap() error { return e.err }

// kinds maps error kinds to HTTP status codes.
var kinds = []struct {
	kind   error
	status int
}{
	{apperr.ErrUnauthorized, http.StatusUnauthorized},
	{apperr.ErrValidation, http.StatusBadRequest},
	{apperr.ErrConflict, http.StatusConflict},
	{apperr.ErrNotFound, http.StatusNotFound},
	{apperr.ErrInvalidCode, http.StatusBadRequest},
	{apperr.ErrEmailDelivery, http.StatusBadGateway},
	{apperr.ErrReferentialConflict, http.StatusConflict},
}

// StatusFor returns the HTTP status and caller-facing message for err.
func StatusFor(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		switch m := he.Message.(type) {
		case nil:
		case string:
			if m != "" {
				msg = m
			}
		default:
			msg = fmt.Sprint(m)
		}
		return he.Code, msg
	}

	for _, k := range kinds {
		if errors.Is(err, k.kind) {
			return k.status, apperr.Message(err, k.kind.Error())
		}
	}
	return http.StatusInternalServerError, MsgInternal
}

// ErrorHandler renders errors returned by handlers and middleware as JSON.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, msg := StatusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"status", status,
			"error", err,
		)
	}
	if status == http.StatusUnauthorized {
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		body := errorResponse{Success: false, Error: msg}
		var pe *partialError
		if errors.As(err, &pe) {
			body.Created = &pe.created
		}
		err = c.JSON(status, body)
	}
	if err != nil {
		slog.Error("error_response_failed", "error", err)
	}
}
