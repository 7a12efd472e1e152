package errors

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var httpErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_errors_total",
		Help: "Total HTTP error responses by status code",
	},
	[]string{"status"},
)

type errorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}

// HTTPErrorHandler converts application errors into JSON responses. Internal
// and external errors are logged with their cause; the client only ever sees
// the public message.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	resp := errorResponse{Error: "internal server error"}

	if appErr, ok := As(err); ok {
		status = appErr.HTTPStatus()
		resp = errorResponse{Error: appErr.Message, Type: string(appErr.Type)}

		if appErr.Type == TypeInternal || appErr.Type == TypeExternal {
			slog.ErrorContext(c.Request().Context(), "request failed",
				"type", appErr.Type,
				"error", appErr.Error(),
				"path", c.Path(),
			)
		}
	} else if echoErr, ok := err.(*echo.HTTPError); ok {
		status = echoErr.Code
		if msg, ok := echoErr.Message.(string); ok {
			resp = errorResponse{Error: msg}
		} else {
			resp = errorResponse{Error: http.StatusText(status)}
		}
	} else {
		slog.ErrorContext(c.Request().Context(), "unhandled error",
			"error", err.Error(),
			"path", c.Path(),
		)
	}

	httpErrorsTotal.WithLabelValues(strconv.Itoa(status)).Inc()

	if writeErr := c.JSON(status, resp); writeErr != nil {
		slog.Error("failed to write error response", "error", writeErr)
	}
}
