// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"codeberg.org/ipo-allotment/server/internal/database"
	"codeberg.org/ipo-allotment/server/internal/models"
	"codeberg.org/ipo-allotment/server/internal/repository"
	"codeberg.org/ipo-allotment/server/internal/services/password"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
)

// TestPassword is the plaintext password of users created by NewTestUser.
const TestPassword = "correct-horse-battery"

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// NewTestUser creates a verified test user whose password is TestPassword.
func NewTestUser(t *testing.T, repo *repository.Repository, username string) *models.User {
	t.Helper()
	hash, err := password.Hash(TestPassword, password.MinCost)
	require.NoError(t, err)

	email := username + "@example.com"
	user := &models.User{
		Username:     username,
		Email:        &email,
		PasswordHash: hash,
		Verified:     true,
	}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	return user
}

// NewTestApplicant creates an applicant owned by owner.
func NewTestApplicant(t *testing.T, repo *repository.Repository, owner int64, id, name string) *models.Applicant {
	t.Helper()
	a := &models.Applicant{
		ID:        id,
		Name:      name,
		CreatedBy: owner,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.CreateApplicant(context.Background(), a))
	return a
}

// NewTestIpo creates an IPO.
func NewTestIpo(t *testing.T, repo *repository.Repository, name string, amount float64) *models.Ipo {
	t.Helper()
	ipo := &models.Ipo{Name: name, Amount: amount, CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.CreateIpo(context.Background(), ipo))
	return ipo
}

// FailApplicationInsert makes every insert of an application for
// applicantID abort with a storage error. SQLite only.
func FailApplicationInsert(t *testing.T, repo *repository.Repository, applicantID string) {
	t.Helper()
	_, err := repo.DB().Exec(fmt.Sprintf(`CREATE TRIGGER fail_application_insert
		BEFORE INSERT ON ipo_applications
		WHEN NEW.applicant_id = '%s'
		BEGIN
			SELECT RAISE(ABORT, 'application insert blocked');
		END`, applicantID))
	require.NoError(t, err)
}

// Mail is a message captured by Mailer.
type Mail struct {
	To      string
	Subject string
	Body    string
}

// Mailer records sent messages instead of delivering them. Set Err to make
// every Send fail.
type Mailer struct {
	mu   sync.Mutex
	Sent []Mail
	Err  error
}

// Send records the message or returns m.Err.
func (m *Mailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, Mail{To: to, Subject: subject, Body: body})
	return nil
}

// Last returns the most recently sent message.
func (m *Mailer) Last(t *testing.T) Mail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.Sent, "no mail sent")
	return m.Sent[len(m.Sent)-1]
}

// Count returns the number of recorded messages.
func (m *Mailer) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}
