// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package allotment manages applicants, IPOs and the applications linking
// them. Applicants and applications belong to the user that created them;
// IPOs are shared.
package allotment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"codeberg.org/ipo-allotment/server/internal/apperr"
	"codeberg.org/ipo-allotment/server/internal/models"
	"codeberg.org/ipo-allotment/server/internal/repository"
	"github.com/google/uuid"
)

// Manager implements the application lifecycle.
type Manager struct {
	repo *repository.Repository
	now  func() time.Time
}

// NewManager returns a Manager backed by repo.
func NewManager(repo *repository.Repository) *Manager {
	return &Manager{repo: repo, now: time.Now}
}

// SetClock replaces the time source used for timestamps and ids.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// ApplicantInput holds the fields of a new applicant.
type ApplicantInput struct {
	Name  string
	Phone string
	PAN   string
}

// ApplicantUpdate holds the mutable applicant fields. Nil fields keep their
// current value.
type ApplicantUpdate struct {
	Phone *string
	PAN   *string
}

// StatusUpdate holds the mutable application fields. Nil fields keep their
// current value.
type StatusUpdate struct {
	MoneySent       *bool
	MoneyReceived   *bool
	AllotmentStatus *models.AllotmentStatus
}

// AddApplicant creates an applicant owned by owner.
func (m *Manager) AddApplicant(ctx context.Context, owner int64, in ApplicantInput) (*models.Applicant, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.New(apperr.ErrValidation, "Name is required")
	}

	now := m.now().UTC()
	a := &models.Applicant{
		ID:        newID("user", now),
		Name:      name,
		Phone:     models.NormalizePhone(in.Phone),
		PAN:       models.NormalizePAN(in.PAN),
		CreatedBy: owner,
		CreatedAt: now,
	}
	if err := m.repo.CreateApplicant(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create applicant: %w", err)
	}
	return a, nil
}

// UpdateApplicant changes the phone and PAN of an applicant.
func (m *Manager) UpdateApplicant(ctx context.Context, owner int64, id string, upd ApplicantUpdate) (*models.Applicant, error) {
	var a *models.Applicant
	err := m.repo.InTx(ctx, func(tx *repository.Repository) error {
		var err error
		a, err = tx.GetApplicant(ctx, owner, id)
		if err != nil {
			return err
		}

		if upd.Phone != nil {
			a.Phone = models.NormalizePhone(*upd.Phone)
		}
		if upd.PAN != nil {
			a.PAN = models.NormalizePAN(*upd.PAN)
		}
		return tx.UpdateApplicantContact(ctx, a)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.ErrNotFound, "User not found")
		}
		return nil, fmt.Errorf("failed to update applicant: %w", err)
	}
	return a, nil
}

// DeleteApplicant removes an applicant that no application references.
func (m *Manager) DeleteApplicant(ctx context.Context, owner int64, id string) error {
	err := m.repo.InTx(ctx, func(tx *repository.Repository) error {
		if _, err := tx.GetApplicant(ctx, owner, id); err != nil {
			return err
		}

		refs, err := tx.CountApplicationsForApplicant(ctx, id)
		if err != nil {
			return err
		}
		if refs > 0 {
			return apperr.New(apperr.ErrReferentialConflict, "Cannot delete user with existing applications")
		}

		return tx.DeleteApplicant(ctx, owner, id)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperr.New(apperr.ErrNotFound, "User not found")
	case errors.Is(err, apperr.ErrReferentialConflict):
		return err
	default:
		return fmt.Errorf("failed to delete applicant: %w", err)
	}
}

// AddIpo creates an IPO. Negative or non-finite amounts are stored as zero.
func (m *Manager) AddIpo(ctx context.Context, name string, amount float64) (*models.Ipo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.ErrValidation, "IPO name is required")
	}
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}

	ipo := &models.Ipo{Name: name, Amount: amount, CreatedAt: m.now().UTC()}
	if err := m.repo.CreateIpo(ctx, ipo); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.New(apperr.ErrConflict, "IPO name already exists")
		}
		return nil, fmt.Errorf("failed to create IPO: %w", err)
	}
	return ipo, nil
}

// BulkEnroll applies every listed applicant to the IPO and returns how many
// applications were created. Unknown applicants and existing applications
// are skipped. Every created row commits on its own; on a storage error the
// rows created so far stay and the count is returned with the error.
func (m *Manager) BulkEnroll(ctx context.Context, owner int64, ipoName string, applicantIDs []string) (int, error) {
	ipoName = strings.TrimSpace(ipoName)
	if ipoName == "" {
		return 0, apperr.New(apperr.ErrValidation, "IPO name is required")
	}
	if len(applicantIDs) == 0 {
		return 0, apperr.New(apperr.ErrValidation, "At least one user is required")
	}

	if _, err := m.repo.GetIpo(ctx, ipoName); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, apperr.New(apperr.ErrNotFound, fmt.Sprintf("IPO '%s' does not exist", ipoName))
		}
		return 0, fmt.Errorf("failed to get IPO: %w", err)
	}

	created := 0
	seen := make(map[string]bool, len(applicantIDs))
	ids := make(map[string]bool, len(applicantIDs))

	for _, applicantID := range applicantIDs {
		if seen[applicantID] {
			continue
		}
		seen[applicantID] = true

		ok, err := m.enroll(ctx, owner, ipoName, applicantID, ids)
		if err != nil {
			slog.Error("bulk_enroll", "ipo", ipoName, "created", created, "error", err)
			return created, fmt.Errorf("failed to enroll applicant: %w", err)
		}
		if ok {
			created++
		}
	}

	slog.Info("bulk_enroll", "ipo", ipoName, "requested", len(applicantIDs), "created", created)
	return created, nil
}

// enroll creates one application unless it must be skipped. ids collects the
// application ids generated during the current call.
func (m *Manager) enroll(ctx context.Context, owner int64, ipoName, applicantID string, ids map[string]bool) (bool, error) {
	if _, err := m.repo.GetApplicant(ctx, owner, applicantID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	exists, err := m.repo.ApplicationExists(ctx, ipoName, applicantID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	now := m.now().UTC()
	id := newID("app", now)
	for ids[id] {
		id = newID("app", now)
	}
	ids[id] = true

	app := &models.Application{
		ID:              id,
		IpoName:         ipoName,
		ApplicantID:     applicantID,
		AllotmentStatus: models.StatusPending,
		CreatedBy:       owner,
		CreatedAt:       now,
	}
	if err := m.repo.CreateApplication(ctx, app); err != nil {
		// Lost a race against a concurrent enrollment of the same pair.
		if errors.Is(err, repository.ErrDuplicate) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// UpdateApplicationStatus merges upd into the application and stores it. A
// resulting status of Not Allotted always clears MoneyReceived.
func (m *Manager) UpdateApplicationStatus(ctx context.Context, owner int64, id string, upd StatusUpdate) (*models.ApplicationView, error) {
	if upd.AllotmentStatus != nil && !upd.AllotmentStatus.Valid() {
		return nil, apperr.New(apperr.ErrValidation, fmt.Sprintf("Invalid allotment status '%s'", *upd.AllotmentStatus))
	}

	var view *models.ApplicationView
	err := m.repo.InTx(ctx, func(tx *repository.Repository) error {
		app, err := tx.GetApplication(ctx, owner, id)
		if err != nil {
			return err
		}

		if upd.MoneySent != nil {
			app.MoneySent = *upd.MoneySent
		}
		if upd.MoneyReceived != nil {
			app.MoneyReceived = *upd.MoneyReceived
		}
		if upd.AllotmentStatus != nil {
			app.AllotmentStatus = *upd.AllotmentStatus
		}
		app.Normalize()

		if err := tx.UpdateApplicationStatus(ctx, app); err != nil {
			return err
		}

		view, err = tx.GetApplicationView(ctx, owner, id)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.ErrNotFound, "Application not found")
		}
		return nil, fmt.Errorf("failed to update application: %w", err)
	}
	return view, nil
}

// DeleteApplication removes an application.
func (m *Manager) DeleteApplication(ctx context.Context, owner int64, id string) error {
	if err := m.repo.DeleteApplication(ctx, owner, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.New(apperr.ErrNotFound, "Application not found")
		}
		return fmt.Errorf("failed to delete application: %w", err)
	}
	return nil
}

// ListApplications returns the owner's applications newest first.
func (m *Manager) ListApplications(ctx context.Context, owner int64) ([]models.ApplicationView, error) {
	views, err := m.repo.ListApplicationViews(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return views, nil
}

// ListIpos returns every IPO by name.
func (m *Manager) ListIpos(ctx context.Context) ([]models.Ipo, error) {
	ipos, err := m.repo.ListIpos(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list IPOs: %w", err)
	}
	return ipos, nil
}

// ListApplicants returns the owner's applicants by name.
func (m *Manager) ListApplicants(ctx context.Context, owner int64) ([]models.Applicant, error) {
	applicants, err := m.repo.ListApplicants(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list applicants: %w", err)
	}
	return applicants, nil
}

// ListApplicantsForIpo returns the ids of the owner's applicants already
// enrolled in the IPO.
func (m *Manager) ListApplicantsForIpo(ctx context.Context, owner int64, ipoName string) ([]string, error) {
	if strings.TrimSpace(ipoName) == "" {
		return nil, apperr.New(apperr.ErrValidation, "ipoName is required")
	}
	ids, err := m.repo.ListApplicantIDsForIpo(ctx, owner, ipoName)
	if err != nil {
		return nil, fmt.Errorf("failed to list applied users: %w", err)
	}
	return ids, nil
}

// newID returns "<prefix>-<unix millis>-<8 random hex digits>".
func newID(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%d-%s", prefix, now.UnixMilli(), uuid.NewString()[:8])
}
