package handler

import (
	"net/http"
	"strconv"

	"accounts/internal/dto"
	"accounts/internal/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type AdminHandler struct {
	Auth   *service.AuthService
	Roles  *service.RoleGraph
	Logger logrus.FieldLogger
}

func NewAdminHandler(auth *service.AuthService, roles *service.RoleGraph, logger logrus.FieldLogger) *AdminHandler {
	return &AdminHandler{Auth: auth, Roles: roles, Logger: logger}
}

func (h *AdminHandler) ListRoles(c echo.Context) error {
	roles, err := h.Roles.ListRoles(c.Request().Context())
	if err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, dto.RoleResponsesFromEntities(roles))
}

func (h *AdminHandler) UnlockUser(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusNotFound, errInvalidUserID)
	}
	if err := h.Auth.UnlockAccount(c.Request().Context(), userID); err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return writeMessage(c, http.StatusOK, "Account unlocked")
}

func (h *AdminHandler) SecurityLog(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusNotFound, errInvalidUserID)
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	events, err := h.Auth.SecurityEvents(c.Request().Context(), userID, limit)
	if err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, dto.SecurityEventResponsesFromEntities(events))
}
