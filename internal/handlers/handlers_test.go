// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"codeberg.org/ipo-allotment/server/internal/appcontext"
	"codeberg.org/ipo-allotment/server/internal/handlers"
	"codeberg.org/ipo-allotment/server/internal/models"
	"codeberg.org/ipo-allotment/server/internal/repository"
	"codeberg.org/ipo-allotment/server/internal/services/allotment"
	"codeberg.org/ipo-allotment/server/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// call runs handler as user and renders a returned error like the server
// does.
func call(t *testing.T, handler echo.HandlerFunc, user *models.User, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.Validator = handlers.NewValidator()

	c, rec := testutil.NewEchoContext(e, method, target, strings.NewReader(body))
	var ctx echo.Context = c
	if user != nil {
		ctx = &appcontext.Context{Context: c, User: user}
	}
	if err := handler(ctx); err != nil {
		handlers.ErrorHandler(err, c)
	}
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type apiFixture struct {
	repo *repository.Repository
	user *models.User
	h    *handlers.Handlers
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	return &apiFixture{
		repo: repo,
		user: testutil.NewTestUser(t, repo, "alice"),
		h:    handlers.New(allotment.NewManager(repo)),
	}
}

func TestNew(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	h := handlers.New(allotment.NewManager(repo))

	assert.NotNil(t, h)
}

func TestHealth(t *testing.T) {
	h := handlers.New(nil)

	rec := call(t, h.Health, nil, http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[map[string]string](t, rec)
	assert.Equal(t, "healthy", out["status"])
	_, err := time.Parse(time.RFC3339, out["timestamp"])
	assert.NoError(t, err)
}
