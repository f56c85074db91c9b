package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"menudocs/internal/http/middleware"
	"menudocs/internal/logger"
	"menudocs/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_ID", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// internalError logs err with request context and answers with a generic 500.
func internalError(c *fiber.Ctx, log *slog.Logger, event string, err error) error {
	log.ErrorContext(c.UserContext(), event,
		slog.String("method", c.Method()),
		slog.String("path", c.Path()),
		logger.Err(err),
	)
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// serviceError translates LibraryService errors into responses.
func serviceError(c *fiber.Ctx, log *slog.Logger, event string, err error) error {
	switch {
	case errors.Is(err, service.ErrMissingFields):
		return writeError(c, fiber.StatusBadRequest, "MISSING_FIELDS", service.ErrMissingFields.Error())
	case errors.Is(err, service.ErrFileRequired):
		return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", service.ErrFileRequired.Error())
	case errors.Is(err, service.ErrUnsupportedMediaType):
		return writeError(c, fiber.StatusBadRequest, "UNSUPPORTED_MEDIA_TYPE", service.ErrUnsupportedMediaType.Error())
	case errors.Is(err, service.ErrInvalidFileType):
		// the wrapped message names the rejected value
		return writeError(c, fiber.StatusBadRequest, "INVALID_FILE_TYPE", err.Error()+"; expected Document or Folder")
	case errors.Is(err, service.ErrInvalidID):
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "resource not found")
	default:
		return internalError(c, log, event, err)
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error
// responses. It is the backstop for anything a handler returns instead of
// writing, including panics converted by the recover middleware.
func ErrorHandler(log *slog.Logger) fiber.ErrorHandler {
	if log == nil {
		log = logger.Nop()
	}
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
		default:
			return internalError(c, log, "unhandled_error", err)
		}
	}
}
