// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"strings"
	"time"
)

// Applicant is a person on whose behalf IPO applications are filed.
type Applicant struct { //nolint:govet // fieldalignment: readability over optimization
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Phone     string    `db:"phone" json:"phone"`
	PAN       string    `db:"pan" json:"pan"`
	CreatedBy int64     `db:"created_by" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NormalizePhone trims surrounding whitespace.
func NormalizePhone(phone string) string {
	return strings.TrimSpace(phone)
}

// NormalizePAN trims surrounding whitespace and upper-cases the PAN.
func NormalizePAN(pan string) string {
	return strings.ToUpper(strings.TrimSpace(pan))
}
