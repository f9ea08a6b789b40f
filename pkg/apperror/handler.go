package apperror

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// echoCodes names the statuses echo itself produces (routing, body limits,
// middleware) so they render with the same codes as application errors.
var echoCodes = map[int]string{
	http.StatusBadRequest:            "bad_request",
	http.StatusUnauthorized:          "unauthorized",
	http.StatusForbidden:             "forbidden",
	http.StatusNotFound:              "not_found",
	http.StatusMethodNotAllowed:      "method_not_allowed",
	http.StatusNotAcceptable:         "not_acceptable",
	http.StatusConflict:              "conflict",
	http.StatusPreconditionFailed:    "precondition_failed",
	http.StatusRequestEntityTooLarge: "payload_too_large",
	http.StatusUnsupportedMediaType:  "unsupported_media_type",
}

// HTTPErrorHandler returns an Echo error handler that renders errors as
// {"error": {"code", "message", "details"}}. 304 responses and HEAD requests
// get the status alone.
func HTTPErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := ToHTTPError(err)
		var appErr *Error
		var he *echo.HTTPError
		if !errors.As(err, &appErr) && errors.As(err, &he) {
			code, body = fromEcho(he)
		}

		if code >= http.StatusInternalServerError {
			req := c.Request()
			log.Error("request error",
				slog.Int("status", code),
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.String("error", err.Error()),
			)
		}

		if code == http.StatusNotModified || c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func fromEcho(he *echo.HTTPError) (int, map[string]any) {
	errObj := map[string]any{
		"code":    "internal_error",
		"message": http.StatusText(he.Code),
	}
	if code, ok := echoCodes[he.Code]; ok {
		errObj["code"] = code
	}
	switch msg := he.Message.(type) {
	case string:
		errObj["message"] = msg
	case map[string]any:
		if inner, ok := msg["error"].(map[string]any); ok {
			for k, v := range inner {
				errObj[k] = v
			}
		}
	}
	return he.Code, map[string]any{"error": errObj}
}
