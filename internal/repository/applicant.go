// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"codeberg.org/ipo-allotment/server/internal/models"
)

const applicantColumns = `id, name, phone, pan, created_by, created_at`

// CreateApplicant inserts a new applicant.
func (r *Repository) CreateApplicant(ctx context.Context, a *models.Applicant) error {
	_, err := r.exec(ctx,
		`INSERT INTO applicants (id, name, phone, pan, created_by, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Phone, a.PAN, a.CreatedBy, a.CreatedAt)
	return err
}

// GetApplicant retrieves an applicant owned by owner.
func (r *Repository) GetApplicant(ctx context.Context, owner int64, id string) (*models.Applicant, error) {
	var a models.Applicant
	err := r.get(ctx, &a, `SELECT `+applicantColumns+` FROM applicants WHERE id = ? AND created_by = ?`, id, owner)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateApplicantContact stores the phone and PAN of an applicant.
func (r *Repository) UpdateApplicantContact(ctx context.Context, a *models.Applicant) error {
	n, err := r.exec(ctx,
		`UPDATE applicants SET phone = ?, pan = ? WHERE id = ? AND created_by = ?`,
		a.Phone, a.PAN, a.ID, a.CreatedBy)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteApplicant removes an applicant owned by owner.
func (r *Repository) DeleteApplicant(ctx context.Context, owner int64, id string) error {
	n, err := r.exec(ctx, `DELETE FROM applicants WHERE id = ? AND created_by = ?`, id, owner)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListApplicants returns the owner's applicants ordered by name.
func (r *Repository) ListApplicants(ctx context.Context, owner int64) ([]models.Applicant, error) {
	applicants := []models.Applicant{}
	err := r.selectAll(ctx, &applicants,
		`SELECT `+applicantColumns+` FROM applicants WHERE created_by = ? ORDER BY name, id`, owner)
	if err != nil {
		return nil, err
	}
	return applicants, nil
}
