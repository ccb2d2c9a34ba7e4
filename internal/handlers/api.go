// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"codeberg.org/ipo-allotment/server/internal/apperr"
	"codeberg.org/ipo-allotment/server/internal/models"
	"codeberg.org/ipo-allotment/server/internal/services/allotment"
	"github.com/labstack/echo/v4"
)

// MsgInvalidAction is returned for unknown API actions.
const MsgInvalidAction = "Invalid action"

// Amount is an IPO amount given either as a JSON number or a numeric
// string. Empty strings and null are zero.
type Amount float64

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*a = Amount(f)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return apperr.New(apperr.ErrValidation, "Invalid amount")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*a = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return apperr.New(apperr.ErrValidation, "Invalid amount")
	}
	*a = Amount(f)
	return nil
}

// APIRequest is the body of POST /api. Data is decoded per action.
type APIRequest struct {
	Action  string          `json:"action"`
	ID      string          `json:"id"`
	IpoName string          `json:"ipoName"`
	Amount  json.RawMessage `json:"amount"`
	UserIDs []string        `json:"userIds"`
	Data    json.RawMessage `json:"data"`
}

// ApplicantData is the data of addUser and updateUser.
type ApplicantData struct {
	Name  string  `json:"name"`
	Phone *string `json:"phone"`
	PAN   *string `json:"pan"`
}

// RowData is the data of updateRow.
type RowData struct {
	MoneySent       *bool                   `json:"moneySent"`
	MoneyReceived   *bool                   `json:"moneyReceived"`
	AllotmentStatus *models.AllotmentStatus `json:"allotmentStatus"`
}

// BulkResponse is returned by addBulkApplications.
type BulkResponse struct {
	Success bool `json:"success"`
	Created int  `json:"created"`
}

// APIGet dispatches GET /api by the action query parameter.
func (h *Handlers) APIGet(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	switch c.QueryParam("action") {
	case "list":
		views, err := h.mgr.ListApplications(ctx, user.ID)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, views)
	case "listIpos":
		ipos, err := h.mgr.ListIpos(ctx)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, ipos)
	case "listUsers":
		applicants, err := h.mgr.ListApplicants(ctx, user.ID)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, applicants)
	case "getAppliedUsers":
		ids, err := h.mgr.ListApplicantsForIpo(ctx, user.ID, c.QueryParam("ipoName"))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, ids)
	}
	return apperr.New(apperr.ErrValidation, MsgInvalidAction)
}

// APIPost dispatches POST /api by the action field of the body.
func (h *Handlers) APIPost(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req APIRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.ErrValidation, "Invalid request body")
	}
	ctx := c.Request().Context()

	switch req.Action {
	case "addUser":
		var data ApplicantData
		if err := decodeData(req.Data, &data); err != nil {
			return err
		}
		applicant, err := h.mgr.AddApplicant(ctx, user.ID, allotment.ApplicantInput{
			Name:  data.Name,
			Phone: deref(data.Phone),
			PAN:   deref(data.PAN),
		})
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, applicant)

	case "updateUser":
		var data ApplicantData
		if err := decodeData(req.Data, &data); err != nil {
			return err
		}
		applicant, err := h.mgr.UpdateApplicant(ctx, user.ID, req.ID, allotment.ApplicantUpdate{
			Phone: data.Phone,
			PAN:   data.PAN,
		})
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, applicant)

	case "deleteUser":
		if err := h.mgr.DeleteApplicant(ctx, user.ID, req.ID); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, successResponse{Success: true})

	case "addIpo":
		var amount Amount
		if len(req.Amount) > 0 {
			if err := amount.UnmarshalJSON(req.Amount); err != nil {
				return err
			}
		}
		ipo, err := h.mgr.AddIpo(ctx, req.IpoName, float64(amount))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, ipo)

	case "addBulkApplications":
		created, err := h.mgr.BulkEnroll(ctx, user.ID, req.IpoName, req.UserIDs)
		if err != nil {
			if created > 0 {
				return &partialError{err: err, created: created}
			}
			return err
		}
		return c.JSON(http.StatusOK, BulkResponse{Success: true, Created: created})

	case "updateRow":
		var data RowData
		if err := decodeData(req.Data, &data); err != nil {
			return err
		}
		view, err := h.mgr.UpdateApplicationStatus(ctx, user.ID, req.ID, allotment.StatusUpdate{
			MoneySent:       data.MoneySent,
			MoneyReceived:   data.MoneyReceived,
			AllotmentStatus: data.AllotmentStatus,
		})
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, view)

	case "deleteRow":
		if err := h.mgr.DeleteApplication(ctx, user.ID, req.ID); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, successResponse{Success: true})
	}
	return apperr.New(apperr.ErrValidation, MsgInvalidAction)
}

// decodeData decodes the data field of an action. A missing field decodes
// as an empty object.
func decodeData(raw json.RawMessage, dest any) error {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return apperr.New(apperr.ErrValidation, "Invalid data")
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
