package handler

import (
	"net/http"

	"accounts/api/middleware"
	"accounts/internal/dto"
	"accounts/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type AuthHandler struct {
	Service *service.AuthService
	Logger  logrus.FieldLogger
}

func NewAuthHandler(svc *service.AuthService, logger logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{Service: svc, Logger: logger}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req dto.RegisterRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if _, err := h.Service.Register(c.Request().Context(), req); err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return writeMessage(c, http.StatusCreated, "User created")
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req dto.LoginRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	result, err := h.Service.Login(c.Request().Context(), req)
	if err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, dto.LoginResponse{Token: result.Token, ExpiresIn: result.ExpiresIn})
}

func (h *AuthHandler) PasswordForgot(c echo.Context) error {
	var req dto.PasswordForgotRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.Service.RequestPasswordReset(c.Request().Context(), req); err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return writeMessage(c, http.StatusAccepted, "If the address is registered, a reset link has been sent")
}

func (h *AuthHandler) PasswordReset(c echo.Context) error {
	var req dto.PasswordResetRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.Service.ResetPassword(c.Request().Context(), req); err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return writeMessage(c, http.StatusOK, "Password reset")
}

func (h *AuthHandler) PasswordChange(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	var req dto.PasswordChangeRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.Service.ChangePassword(c.Request().Context(), userID, req); err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return writeMessage(c, http.StatusOK, "Password changed")
}

func (h *AuthHandler) SetupMFA(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	setup, err := h.Service.SetupMFA(c.Request().Context(), userID)
	if err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, dto.MFASetupResponse{
		Secret:       setup.Secret,
		OTPAuthURL:   setup.OTPAuthURL,
		RecoveryKeys: setup.RecoveryKeys,
	})
}

func (h *AuthHandler) EnableMFA(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	var req dto.MFACodeRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.Service.EnableMFA(c.Request().Context(), userID, req); err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return writeMessage(c, http.StatusOK, "MFA enabled")
}

func (h *AuthHandler) DisableMFA(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	var req dto.MFADisableRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.Service.DisableMFA(c.Request().Context(), userID, req); err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return writeMessage(c, http.StatusOK, "MFA disabled")
}

func (h *AuthHandler) RegenerateRecoveryKeys(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	keys, err := h.Service.RegenerateRecoveryKeys(c.Request().Context(), userID)
	if err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, dto.RecoveryKeysResponse{RecoveryKeys: keys})
}
