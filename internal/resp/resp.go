// Package resp renders the JSON envelope shared by every endpoint:
// {"success": true, "data": ...} or {"success": false, "error": {...}}.
package resp

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sudo-init-do/taskmarket/internal/apperr"
)

// Envelope is the response body
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a failure; Details is only set outside production
type ErrorBody struct {
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"statusCode"`
	Fields     map[string]string `json:"fields,omitempty"`
	Details    string            `json:"details,omitempty"`
}

// OK writes a 200 success envelope
func OK(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes a 201 success envelope
func Created(c echo.Context, data any) error {
	return c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

func errorBody(err error, production bool) *ErrorBody {
	// echo's own errors: 404 routes, 405, bind failures, rate limiting
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok && m != "" {
			msg = m
		}
		return &ErrorBody{Message: msg, Code: httpCode(he.Code), StatusCode: he.Code}
	}

	ae := apperr.As(err)
	body := &ErrorBody{
		Message:    ae.Message,
		Code:       string(ae.Kind),
		StatusCode: ae.Kind.Status(),
		Fields:     ae.Fields,
	}
	if ae.Kind == apperr.KindInternal {
		body.Message = "internal server error"
		if !production {
			body.Details = err.Error()
		}
	}
	return body
}

func httpCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return string(apperr.KindNotFound)
	case http.StatusUnauthorized:
		return string(apperr.KindUnauthorized)
	case http.StatusForbidden:
		return string(apperr.KindForbidden)
	case http.StatusBadRequest, http.StatusUnsupportedMediaType:
		return string(apperr.KindValidation)
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	}
	if status >= 500 {
		return string(apperr.KindInternal)
	}
	return "HTTP_ERROR"
}

// ErrorHandler returns an echo.HTTPErrorHandler that renders the failure
// envelope and logs unexpected failures with request context.
func ErrorHandler(production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		body := errorBody(err, production)
		if body.StatusCode >= http.StatusInternalServerError {
			uid, _ := c.Get("user_id").(string)
			zap.L().Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.String("uri", c.Request().RequestURI),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
				zap.String("user_id", uid),
				zap.Error(err),
			)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(body.StatusCode)
		} else {
			werr = c.JSON(body.StatusCode, Envelope{Success: false, Error: body})
		}
		if werr != nil {
			zap.L().Warn("failed to write error response", zap.Error(werr))
		}
	}
}
