package handler

import (
	"net/http"

	"accounts/api/middleware"
	"accounts/internal/dto"
	"accounts/internal/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type ProfileHandler struct {
	Service *service.ProfileService
	Logger  logrus.FieldLogger
}

func NewProfileHandler(svc *service.ProfileService, logger logrus.FieldLogger) *ProfileHandler {
	return &ProfileHandler{Service: svc, Logger: logger}
}

func (h *ProfileHandler) Me(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	user, err := h.Service.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, dto.ProfileResponseFromEntity(user))
}

func (h *ProfileHandler) UpdateMe(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	var req dto.UpdateProfileRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	user, err := h.Service.UpdateProfile(c.Request().Context(), userID, req)
	if err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, dto.UpdateProfileResponse{
		Message: "Profile updated",
		User:    dto.ProfileResponseFromEntity(user),
	})
}

func (h *ProfileHandler) DeleteMe(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	if err := h.Service.DeleteAccount(c.Request().Context(), userID); err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return writeMessage(c, http.StatusOK, "Account deleted")
}

func (h *ProfileHandler) GetByID(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusNotFound, errInvalidUserID)
	}
	user, err := h.Service.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, dto.PublicProfileResponseFromEntity(user))
}
