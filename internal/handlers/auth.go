// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"codeberg.org/ipo-allotment/server/internal/apperr"
	"codeberg.org/ipo-allotment/server/internal/services/account"
	"codeberg.org/ipo-allotment/server/internal/services/session"
	"github.com/labstack/echo/v4"
)

// Acknowledgement messages of the account endpoints.
const (
	MsgCodeSent          = "OTP sent to your email"
	MsgRecoveryRequested = "If the email exists, an OTP has been sent"
	MsgRegistered        = "Registration successful! You can now login."
	MsgPasswordSent      = "New password has been sent to your email"
)

// AuthHandlers contains handlers for authentication and account workflows.
type AuthHandlers struct {
	sessions *session.Authenticator
	accounts *account.Service
}

// NewAuth creates a new AuthHandlers instance.
func NewAuth(sessions *session.Authenticator, accounts *account.Service) *AuthHandlers {
	return &AuthHandlers{sessions: sessions, accounts: accounts}
}

// LoginRequest is the request body for logging in.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	Success  bool   `json:"success"`
	Token    string `json:"token"`
	Username string `json:"username"`
}

// SendOTPRequest is the request body for starting registration.
type SendOTPRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
}

// VerifyOTPRequest is the request body for completing registration.
type VerifyOTPRequest struct {
	Email    string `json:"email" validate:"required,email"`
	OTP      string `json:"otp" validate:"required"`
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required"`
}

// ForgotPasswordRequest is the request body for starting recovery.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest is the request body for completing recovery.
type ResetPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required"`
}

// bind decodes and validates the request body into req.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return apperr.New(apperr.ErrValidation, "Invalid request body")
	}
	return c.Validate(req)
}

// Login exchanges credentials for a bearer token.
func (h *AuthHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, token, err := h.sessions.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, LoginResponse{
		Success:  true,
		Token:    token,
		Username: user.Username,
	})
}

// Logout invalidates the caller's token.
func (h *AuthHandlers) Logout(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.sessions.Logout(c.Request().Context(), user); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

// Verify reports the user behind the caller's token.
func (h *AuthHandlers) Verify(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":  true,
		"username": user.Username,
	})
}

// RegisterSendOTP mails a registration code.
func (h *AuthHandlers) RegisterSendOTP(c echo.Context) error {
	var req SendOTPRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.accounts.RequestRegistrationCode(c.Request().Context(), req.Username, req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, successResponse{Success: true, Message: MsgCodeSent})
}

// RegisterVerifyOTP completes registration with a mailed code.
func (h *AuthHandlers) RegisterVerifyOTP(c echo.Context) error {
	var req VerifyOTPRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if _, err := h.accounts.CompleteRegistration(c.Request().Context(), req.Email, req.OTP, req.Username, req.Password); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, successResponse{Success: true, Message: MsgRegistered})
}

// ForgotSendOTP mails a recovery code. The response is the same whether or
// not the address belongs to an account.
func (h *AuthHandlers) ForgotSendOTP(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.accounts.RequestRecoveryCode(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, successResponse{Success: true, Message: MsgRecoveryRequested})
}

// ForgotVerifyOTP rotates the password and mails the temporary one.
func (h *AuthHandlers) ForgotVerifyOTP(c echo.Context) error {
	var req ResetPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.accounts.CompleteRecovery(c.Request().Context(), req.Email, req.OTP); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, successResponse{Success: true, Message: MsgPasswordSent})
}
