// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// AllotmentStatus is the outcome of an IPO application.
type AllotmentStatus string

const (
	StatusPending     AllotmentStatus = "Pending"
	StatusAllotted    AllotmentStatus = "Allotted"
	StatusNotAllotted AllotmentStatus = "Not Allotted"
)

// Valid reports whether s is one of the known statuses.
func (s AllotmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAllotted, StatusNotAllotted:
		return true
	}
	return false
}

// Application links an applicant to an IPO. (IpoName, ApplicantID) is unique.
type Application struct { //nolint:govet // fieldalignment: readability over optimization
	ID              string          `db:"id"`
	IpoName         string          `db:"ipo_name"`
	ApplicantID     string          `db:"applicant_id"`
	MoneySent       bool            `db:"money_sent"`
	MoneyReceived   bool            `db:"money_received"`
	AllotmentStatus AllotmentStatus `db:"allotment_status"`
	CreatedBy       int64           `db:"created_by"`
	CreatedAt       time.Time       `db:"created_at"`
}

// Normalize enforces the cross-field rules of an application. It must run
// after all requested field changes have been merged.
func (a *Application) Normalize() {
	if a.AllotmentStatus == StatusNotAllotted {
		a.MoneyReceived = false
	}
}

// ApplicationView is an application joined with its applicant and IPO.
type ApplicationView struct { //nolint:govet // fieldalignment: readability over optimization
	ID              string          `db:"id" json:"id"`
	IpoName         string          `db:"ipo_name" json:"ipoName"`
	ApplicantID     string          `db:"applicant_id" json:"userId"`
	ApplicantName   string          `db:"applicant_name" json:"userName"`
	ApplicantPAN    string          `db:"applicant_pan" json:"userPan"`
	ApplicantPhone  string          `db:"applicant_phone" json:"userPhone"`
	IpoAmount       float64         `db:"ipo_amount" json:"ipoAmount"`
	MoneySent       bool            `db:"money_sent" json:"moneySent"`
	MoneyReceived   bool            `db:"money_received" json:"moneyReceived"`
	AllotmentStatus AllotmentStatus `db:"allotment_status" json:"allotmentStatus"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
}
