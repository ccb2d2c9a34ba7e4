// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"codeberg.org/ipo-allotment/server/internal/models"
)

const applicationColumns = `id, ipo_name, applicant_id, money_sent, money_received, allotment_status, created_by, created_at`

// applicationViewQuery joins applications with their applicant and IPO.
// Missing join targets yield "Unknown", empty strings and zero.
const applicationViewQuery = `
SELECT app.id, app.ipo_name, app.applicant_id,
       COALESCE(a.name, 'Unknown') AS applicant_name,
       COALESCE(a.pan, '')         AS applicant_pan,
       COALESCE(a.phone, '')       AS applicant_phone,
       COALESCE(i.amount, 0)       AS ipo_amount,
       app.money_sent, app.money_received, app.allotment_status, app.created_at
FROM ipo_applications app
LEFT JOIN applicants a ON a.id = app.applicant_id
LEFT JOIN ipo_names i ON i.name = app.ipo_name
WHERE app.created_by = ?`

// CreateApplication inserts a new application. Returns ErrDuplicate if the
// applicant already applied to the IPO.
func (r *Repository) CreateApplication(ctx context.Context, app *models.Application) error {
	_, err := r.exec(ctx,
		`INSERT INTO ipo_applications (`+applicationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		app.ID, app.IpoName, app.ApplicantID, app.MoneySent, app.MoneyReceived,
		app.AllotmentStatus, app.CreatedBy, app.CreatedAt)
	return err
}

// GetApplication retrieves an application owned by owner.
func (r *Repository) GetApplication(ctx context.Context, owner int64, id string) (*models.Application, error) {
	var app models.Application
	err := r.get(ctx, &app,
		`SELECT `+applicationColumns+` FROM ipo_applications WHERE id = ? AND created_by = ?`, id, owner)
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// ApplicationExists reports whether the applicant already applied to the IPO.
func (r *Repository) ApplicationExists(ctx context.Context, ipoName, applicantID string) (bool, error) {
	var exists bool
	err := r.get(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM ipo_applications WHERE ipo_name = ? AND applicant_id = ?)`,
		ipoName, applicantID)
	return exists, err
}

// CountApplicationsForApplicant returns how many applications reference the applicant.
func (r *Repository) CountApplicationsForApplicant(ctx context.Context, applicantID string) (int64, error) {
	var count int64
	err := r.get(ctx, &count, `SELECT COUNT(*) FROM ipo_applications WHERE applicant_id = ?`, applicantID)
	return count, err
}

// UpdateApplicationStatus stores the money flags and allotment status.
func (r *Repository) UpdateApplicationStatus(ctx context.Context, app *models.Application) error {
	n, err := r.exec(ctx,
		`UPDATE ipo_applications SET money_sent = ?, money_received = ?, allotment_status = ?
		 WHERE id = ? AND created_by = ?`,
		app.MoneySent, app.MoneyReceived, app.AllotmentStatus, app.ID, app.CreatedBy)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteApplication removes an application owned by owner.
func (r *Repository) DeleteApplication(ctx context.Context, owner int64, id string) error {
	n, err := r.exec(ctx, `DELETE FROM ipo_applications WHERE id = ? AND created_by = ?`, id, owner)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListApplicationViews returns the owner's applications, newest first.
func (r *Repository) ListApplicationViews(ctx context.Context, owner int64) ([]models.ApplicationView, error) {
	views := []models.ApplicationView{}
	err := r.selectAll(ctx, &views, applicationViewQuery+` ORDER BY app.created_at DESC, app.id DESC`, owner)
	if err != nil {
		return nil, err
	}
	return views, nil
}

// GetApplicationView returns a single joined application.
func (r *Repository) GetApplicationView(ctx context.Context, owner int64, id string) (*models.ApplicationView, error) {
	var view models.ApplicationView
	if err := r.get(ctx, &view, applicationViewQuery+` AND app.id = ?`, owner, id); err != nil {
		return nil, err
	}
	return &view, nil
}

// ListApplicantIDsForIpo returns the ids of the owner's applicants that
// already applied to the IPO.
func (r *Repository) ListApplicantIDsForIpo(ctx context.Context, owner int64, ipoName string) ([]string, error) {
	ids := []string{}
	err := r.selectAll(ctx, &ids,
		`SELECT applicant_id FROM ipo_applications WHERE created_by = ? AND ipo_name = ? ORDER BY created_at, id`,
		owner, ipoName)
	if err != nil {
		return nil, err
	}
	return ids, nil
}
