package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/anonto42/socialfeed/backend/internal/models"
	"github.com/anonto42/socialfeed/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

func apiError(status int, code, message string) *echo.HTTPError {
	return echo.NewHTTPError(status, models.APIError{Code: code, Message: message})
}

func badRequest(message string) *echo.HTTPError {
	return apiError(http.StatusBadRequest, models.CodeValidationFailed, message)
}

func invalidID(message string) *echo.HTTPError {
	return apiError(http.StatusBadRequest, models.CodeInvalidID, message)
}

func notFound(message string) *echo.HTTPError {
	return apiError(http.StatusNotFound, models.CodeNotFound, message)
}

func forbidden(message string) *echo.HTTPError {
	return apiError(http.StatusForbidden, models.CodeForbidden, message)
}

func conflict(message string) *echo.HTTPError {
	return apiError(http.StatusConflict, models.CodeConflict, message)
}

func unauthorized(message string) *echo.HTTPError {
	return apiError(http.StatusUnauthorized, models.CodeUnauthorized, message)
}

// internalError keeps the cause for the request log; clients only see the code.
func internalError(err error) *echo.HTTPError {
	return apiError(http.StatusInternalServerError, models.CodeInternal, "Internal server error").SetInternal(err)
}

// lookupError maps a repository lookup failure onto a response. what names the
// missing entity, e.g. "Post".
func lookupError(err error, what string) *echo.HTTPError {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return notFound(what + " not found")
	case errors.Is(err, repositories.ErrInvalidID):
		return invalidID("Invalid " + what + " ID")
	}
	return internalError(err)
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return badRequest("Invalid request payload")
	}
	return c.Validate(req)
}

func parseUintParam(c echo.Context, name, what string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, invalidID("Invalid " + what + " ID")
	}
	return uint(id), nil
}

// pagination reads page/limit query params, clamping limit to [1, maxLimit].
func pagination(c echo.Context, defaultLimit, maxLimit int) (page, limit int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxLimit {
		limit = defaultLimit
	}
	return page, limit
}

// ErrorHandler renders every error as an APIError body.
func ErrorHandler(log *logrus.Entry) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		body := models.APIError{Code: models.CodeInternal, Message: "Internal server error"}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			switch m := he.Message.(type) {
			case models.APIError:
				body = m
			case string:
				body = models.APIError{Code: codeForStatus(status), Message: m}
			default:
				body = models.APIError{Code: codeForStatus(status), Message: http.StatusText(status)}
			}
			if he.Internal != nil {
				err = he.Internal
			}
		}

		if status >= http.StatusInternalServerError {
			log.WithError(err).WithFields(logrus.Fields{
				"method": c.Request().Method,
				"uri":    c.Request().RequestURI,
			}).Error("request failed")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.WithError(err).Error("failed to write error response")
		}
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return models.CodeValidationFailed
	case http.StatusUnauthorized:
		return models.CodeUnauthorized
	case http.StatusForbidden:
		return models.CodeForbidden
	case http.StatusNotFound:
		return models.CodeNotFound
	case http.StatusMethodNotAllowed:
		return models.CodeNotFound
	case http.StatusConflict:
		return models.CodeConflict
	case http.StatusTooManyRequests:
		return models.CodeRateLimited
	case http.StatusServiceUnavailable:
		return models.CodeUnavailable
	}
	return models.CodeInternal
}
