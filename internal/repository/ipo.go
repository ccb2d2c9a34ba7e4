// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"codeberg.org/ipo-allotment/server/internal/models"
)

// CreateIpo inserts a new IPO. Returns ErrDuplicate if the name is taken.
func (r *Repository) CreateIpo(ctx context.Context, ipo *models.Ipo) error {
	_, err := r.exec(ctx,
		`INSERT INTO ipo_names (name, amount, created_at) VALUES (?, ?, ?)`,
		ipo.Name, ipo.Amount, ipo.CreatedAt)
	return err
}

// GetIpo retrieves an IPO by its exact name.
func (r *Repository) GetIpo(ctx context.Context, name string) (*models.Ipo, error) {
	var ipo models.Ipo
	if err := r.get(ctx, &ipo, `SELECT name, amount, created_at FROM ipo_names WHERE name = ?`, name); err != nil {
		return nil, err
	}
	return &ipo, nil
}

// ListIpos returns all IPOs ordered by name.
func (r *Repository) ListIpos(ctx context.Context) ([]models.Ipo, error) {
	ipos := []models.Ipo{}
	if err := r.selectAll(ctx, &ipos, `SELECT name, amount, created_at FROM ipo_names ORDER BY name`); err != nil {
		return nil, err
	}
	return ipos, nil
}
