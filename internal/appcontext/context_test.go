// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package appcontext_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"codeberg.org/ipo-allotment/server/internal/appcontext"
	"codeberg.org/ipo-allotment/server/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestContext_GetUser(t *testing.T) {
	user := &models.User{ID: 123, Username: "testuser"}
	ctx := &appcontext.Context{User: user}

	result := ctx.GetUser()

	assert.Equal(t, user, result)
	assert.Equal(t, int64(123), result.ID)
}

func TestContext_GetUser_Nil(t *testing.T) {
	ctx := &appcontext.Context{User: nil}

	assert.Nil(t, ctx.GetUser())
}

func TestContext_IsAuthenticated(t *testing.T) {
	assert.True(t, (&appcontext.Context{User: &models.User{ID: 1}}).IsAuthenticated())
	assert.False(t, (&appcontext.Context{}).IsAuthenticated())
}

func TestWithUser(t *testing.T) {
	user := &models.User{ID: 7, Username: "alice"}

	ctx := appcontext.WithUser(context.Background(), user)

	assert.Equal(t, user, appcontext.UserFromContext(ctx))
	assert.Nil(t, appcontext.UserFromContext(context.Background()))
}

func TestUserFrom(t *testing.T) {
	e := echo.New()
	user := &models.User{ID: 7, Username: "alice"}

	t.Run("custom context", func(t *testing.T) {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		assert.Equal(t, user, appcontext.UserFrom(&appcontext.Context{Context: c, User: user}))
	})

	t.Run("request context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(appcontext.WithUser(req.Context(), user))
		c := e.NewContext(req, httptest.NewRecorder())
		assert.Equal(t, user, appcontext.UserFrom(c))
	})

	t.Run("anonymous", func(t *testing.T) {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		assert.Nil(t, appcontext.UserFrom(c))
	})
}
