// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// Ipo is an IPO that applicants can be enrolled in. Name is the natural key.
type Ipo struct {
	CreatedAt time.Time `db:"created_at" json:"-"`
	Name      string    `db:"name" json:"name"`
	Amount    float64   `db:"amount" json:"amount"`
}
