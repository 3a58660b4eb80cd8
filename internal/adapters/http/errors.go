package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/mapview/internal/core/domain"
	"github.com/samirrijal/mapview/internal/core/usecases"
)

// APIError is a structured error response.
type APIError struct {
	Status    int                 `json:"status"`
	Code      string              `json:"code"`    // Error code: bad_request, not_found, conflict, bad_gateway, etc.
	Message   string              `json:"message"` // Human-readable message
	Fields    []domain.FieldError `json:"fields,omitempty"`
	RequestID string              `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errValidation returns a 400 error listing the invalid fields.
func errValidation(c *fiber.Ctx, verr *domain.ValidationError) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(400).JSON(APIError{
		Status:    400,
		Code:      "bad_request",
		Message:   verr.Error(),
		Fields:    verr.Fields,
		RequestID: reqID,
	})
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errConflict returns a 409 error.
func errConflict(c *fiber.Ctx, msg string) error {
	return newError(c, 409, "conflict", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errBadGateway returns a 502 error.
func errBadGateway(c *fiber.Ctx, msg string) error {
	return newError(c, 502, "bad_gateway", msg)
}

// errUnavailable returns a 503 error.
func errUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, 503, "unavailable", msg)
}

// writeError maps a domain error to its HTTP response.
func writeError(c *fiber.Ctx, err error) error {
	var verr *domain.ValidationError
	var reqErr *domain.RequestError

	switch {
	case errors.As(err, &verr):
		return errValidation(c, verr)
	case errors.Is(err, domain.ErrNoConnection):
		return errConflict(c, err.Error())
	case errors.Is(err, domain.ErrUnknownPanel):
		return errNotFound(c, err.Error())
	case errors.As(err, &reqErr):
		return errBadGateway(c, reqErr.Error())
	case errors.Is(err, domain.ErrUnreachable):
		return errBadGateway(c, err.Error())
	case errors.Is(err, usecases.ErrNoProber):
		return errUnavailable(c, err.Error())
	default:
		return errInternal(c, err.Error())
	}
}
