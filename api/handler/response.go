package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"accounts/internal/dto"
	"accounts/internal/service"
	"accounts/internal/validation"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

var (
	errInvalidBody   = errors.New("invalid request body")
	errUnauthorized  = errors.New("unauthorized")
	errInvalidUserID = errors.New("user not found")
)

func decodeJSON(c echo.Context, target any) error {
	decoder := json.NewDecoder(c.Request().Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return errInvalidBody
	}
	return nil
}

func writeError(c echo.Context, status int, err error) error {
	return c.JSON(status, dto.ErrorResponse{Message: err.Error()})
}

func writeMessage(c echo.Context, status int, message string) error {
	return c.JSON(status, dto.MessageResponse{Message: message})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Anything unclassified is logged and answered with a generic message.
func writeServiceError(c echo.Context, logger logrus.FieldLogger, err error) error {
	var fieldErrors *validation.Error
	if errors.As(err, &fieldErrors) {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Message: fieldErrors.Error(),
			Fields:  fieldErrors.Fields,
		})
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrDuplicateUser):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrAccessDenied),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrInvalidMFACode):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrAccountLocked):
		status = http.StatusLocked
	case errors.Is(err, service.ErrMFARequired):
		status = http.StatusPreconditionRequired
	case errors.Is(err, service.ErrMFANotConfigured):
		status = http.StatusFailedDependency
	}

	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"method": c.Request().Method,
				"path":   c.Path(),
			}).Error("request failed")
		}
		return writeError(c, status, service.ErrInternal)
	}
	return writeError(c, status, err)
}
