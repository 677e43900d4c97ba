package web

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/nickyhof/easyext/core"
	"github.com/nickyhof/easyext/ctxlog"
	"github.com/nickyhof/easyext/ext"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, ext.ErrMalformedNodeID):
		return http.StatusBadRequest
	case errors.Is(err, ext.ErrUnknownNodeType), errors.Is(err, core.ErrRecordNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// handleError replaces whatever the handler buffered with the error
// payload.
func (m *Mux) handleError(c *fiber.Ctx, err error) error {
	status := statusFor(err)

	logger := ctxlog.FromContext(c.UserContext())
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request rejected", "status", status, "error", err)
	}

	c.Response().ResetBody()
	return c.Status(status).JSON(ErrorResponse{Success: false, Error: err.Error()})
}
