package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/docrender/internal/document/domain"
	"github.com/smallbiznis/docrender/internal/media"
	"github.com/smallbiznis/docrender/internal/ratelimit"
	"github.com/smallbiznis/docrender/internal/source"
	"github.com/smallbiznis/docrender/pkg/db"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict           = errors.New("conflict")
	ErrRenderInProgress   = errors.New("render_in_progress")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var docErr *domain.Error
	if errors.As(err, &docErr) && domain.IsPrecondition(err) {
		return http.StatusBadRequest, errorPayload{
			Type:    docErr.Code,
			Message: docErr.Message,
		}
	}

	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: "invalid request",
		}
	case errors.Is(err, media.ErrFileExists):
		return http.StatusConflict, errorPayload{
			Type:    "file_exists",
			Message: "document file already exists",
		}
	case errors.Is(err, ErrRenderInProgress):
		return http.StatusConflict, errorPayload{
			Type:    "render_in_progress",
			Message: "document is already being generated for this order",
		}
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ratelimit.ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many render requests",
		}
	case errors.Is(err, db.ErrDisabled),
		errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	case docErr != nil && docErr.Code == domain.CodeLogoUnavailable:
		return http.StatusBadGateway, errorPayload{
			Type:    docErr.Code,
			Message: docErr.Message,
		}
	case docErr != nil:
		return http.StatusInternalServerError, errorPayload{
			Type:    docErr.Code,
			Message: docErr.Message,
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, source.ErrOrderNotFound),
		errors.Is(err, source.ErrClientNotFound),
		errors.Is(err, source.ErrCompanyProfileNotFound),
		errors.Is(err, media.ErrNotFound),
		errors.Is(err, media.ErrInvalidPath):
		return true
	default:
		return false
	}
}

// classifyErrorForLog returns the response type and the engine error code
// for request logs.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := domain.Code(err)
	if code == "" {
		code = payload.Type
	}
	return payload.Type, code
}
