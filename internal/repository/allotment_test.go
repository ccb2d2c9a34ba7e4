// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/ipo-allotment/server/internal/models"
	"codeberg.org/ipo-allotment/server/internal/repository"
	"codeberg.org/ipo-allotment/server/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApplication(t *testing.T, repo *repository.Repository, owner int64, id, ipoName, applicantID string, at time.Time) *models.Application {
	t.Helper()
	app := &models.Application{
		ID:              id,
		IpoName:         ipoName,
		ApplicantID:     applicantID,
		AllotmentStatus: models.StatusPending,
		CreatedBy:       owner,
		CreatedAt:       at,
	}
	require.NoError(t, repo.CreateApplication(context.Background(), app))
	return app
}

func TestApplicants(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	alice := testutil.NewTestUser(t, repo, "alice")
	bob := testutil.NewTestUser(t, repo, "bob")
	testutil.NewTestApplicant(t, repo, alice.ID, "user-2", "Zara")
	testutil.NewTestApplicant(t, repo, alice.ID, "user-1", "Arun")
	testutil.NewTestApplicant(t, repo, bob.ID, "user-3", "Bina")

	list, err := repo.ListApplicants(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Arun", list[0].Name)
	assert.Equal(t, "Zara", list[1].Name)

	_, err = repo.GetApplicant(ctx, bob.ID, "user-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	a, err := repo.GetApplicant(ctx, alice.ID, "user-1")
	require.NoError(t, err)
	a.Phone = "12345"
	a.PAN = "ABCDE1234F"
	require.NoError(t, repo.UpdateApplicantContact(ctx, a))

	a, err = repo.GetApplicant(ctx, alice.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "12345", a.Phone)
	assert.Equal(t, "ABCDE1234F", a.PAN)

	assert.ErrorIs(t, repo.DeleteApplicant(ctx, bob.ID, "user-1"), repository.ErrNotFound)
	require.NoError(t, repo.DeleteApplicant(ctx, alice.ID, "user-1"))
	assert.ErrorIs(t, repo.DeleteApplicant(ctx, alice.ID, "user-1"), repository.ErrNotFound)
}

func TestCreateApplicant_DuplicateID(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	owner := testutil.NewTestUser(t, repo, "alice")
	testutil.NewTestApplicant(t, repo, owner.ID, "user-1", "Arun")

	err := repo.CreateApplicant(context.Background(), &models.Applicant{ID: "user-1", Name: "Other", CreatedBy: owner.ID})

	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestIpos(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	testutil.NewTestIpo(t, repo, "ZETA", 10)
	testutil.NewTestIpo(t, repo, "ALPHA", 20.5)

	err := repo.CreateIpo(ctx, &models.Ipo{Name: "ALPHA", Amount: 1})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	ipo, err := repo.GetIpo(ctx, "ALPHA")
	require.NoError(t, err)
	assert.InDelta(t, 20.5, ipo.Amount, 0)

	ipos, err := repo.ListIpos(ctx)
	require.NoError(t, err)
	require.Len(t, ipos, 2)
	assert.Equal(t, "ALPHA", ipos[0].Name)
	assert.Equal(t, "ZETA", ipos[1].Name)
}

func TestApplications(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	owner := testutil.NewTestUser(t, repo, "alice")
	other := testutil.NewTestUser(t, repo, "bob")
	testutil.NewTestApplicant(t, repo, owner.ID, "user-1", "Ravi")
	testutil.NewTestApplicant(t, repo, owner.ID, "user-2", "Meena")
	testutil.NewTestIpo(t, repo, "ACME", 15000)
	now := time.Now().UTC()

	newApplication(t, repo, owner.ID, "app-1", "ACME", "user-1", now.Add(-time.Minute))
	newApplication(t, repo, owner.ID, "app-2", "ACME", "user-2", now)

	dup := &models.Application{ID: "app-3", IpoName: "ACME", ApplicantID: "user-1", AllotmentStatus: models.StatusPending, CreatedBy: owner.ID, CreatedAt: now}
	assert.ErrorIs(t, repo.CreateApplication(ctx, dup), repository.ErrDuplicate)

	exists, err := repo.ApplicationExists(ctx, "ACME", "user-1")
	require.NoError(t, err)
	assert.True(t, exists)

	count, err := repo.CountApplicationsForApplicant(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	ids, err := repo.ListApplicantIDsForIpo(ctx, owner.ID, "ACME")
	require.NoError(t, err)
	assert.Equal(t, []string{"user-1", "user-2"}, ids)

	ids, err = repo.ListApplicantIDsForIpo(ctx, other.ID, "ACME")
	require.NoError(t, err)
	assert.Empty(t, ids)

	views, err := repo.ListApplicationViews(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "app-2", views[0].ID)
	assert.Equal(t, "Meena", views[0].ApplicantName)
	assert.InDelta(t, 15000, views[0].IpoAmount, 0)

	views, err = repo.ListApplicationViews(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestUpdateAndDeleteApplication(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	owner := testutil.NewTestUser(t, repo, "alice")
	other := testutil.NewTestUser(t, repo, "bob")
	testutil.NewTestApplicant(t, repo, owner.ID, "user-1", "Ravi")
	testutil.NewTestIpo(t, repo, "ACME", 100)
	newApplication(t, repo, owner.ID, "app-1", "ACME", "user-1", time.Now().UTC())

	_, err := repo.GetApplication(ctx, other.ID, "app-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	app, err := repo.GetApplication(ctx, owner.ID, "app-1")
	require.NoError(t, err)
	app.MoneySent = true
	app.AllotmentStatus = models.StatusAllotted
	require.NoError(t, repo.UpdateApplicationStatus(ctx, app))

	view, err := repo.GetApplicationView(ctx, owner.ID, "app-1")
	require.NoError(t, err)
	assert.True(t, view.MoneySent)
	assert.Equal(t, models.StatusAllotted, view.AllotmentStatus)

	app.ID = "app-404"
	assert.ErrorIs(t, repo.UpdateApplicationStatus(ctx, app), repository.ErrNotFound)

	assert.ErrorIs(t, repo.DeleteApplication(ctx, other.ID, "app-1"), repository.ErrNotFound)
	require.NoError(t, repo.DeleteApplication(ctx, owner.ID, "app-1"))
	_, err = repo.GetApplicationView(ctx, owner.ID, "app-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestApplicationView_MissingJoinTargets(t *testing.T) {
	db, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	owner := testutil.NewTestUser(t, repo, "alice")
	testutil.NewTestApplicant(t, repo, owner.ID, "user-1", "Ravi")
	testutil.NewTestIpo(t, repo, "ACME", 100)
	newApplication(t, repo, owner.ID, "app-1", "ACME", "user-1", time.Now().UTC())

	// Legacy rows may point at records that no longer exist.
	_, err := db.Exec(`DELETE FROM applicants`)
	require.NoError(t, err)
	_, err = db.Exec(`DELETE FROM ipo_names`)
	require.NoError(t, err)

	view, err := repo.GetApplicationView(ctx, owner.ID, "app-1")
	require.NoError(t, err)
	assert.Equal(t, "Unknown", view.ApplicantName)
	assert.Empty(t, view.ApplicantPAN)
	assert.Empty(t, view.ApplicantPhone)
	assert.Zero(t, view.IpoAmount)
}
