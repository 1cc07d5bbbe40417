package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/nconklindev/yearview/internal/export"
	"github.com/nconklindev/yearview/internal/ingest"
	"github.com/nconklindev/yearview/internal/selection"
)

// APIError is the JSON body of every failed request.
type APIError struct {
	StatusCode int    `json:"status_code"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	e.RequestID = GetReqID(r.Context())
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError describes one rejected request field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func newAPIError(status int, code, message string) *APIError {
	return &APIError{StatusCode: status, ErrorCode: code, Message: message}
}

// toAPIError maps domain errors to HTTP responses.
func toAPIError(err error) *APIError {
	var (
		apiErr      *APIError
		verrs       validator.ValidationErrors
		unavailable *selection.UnavailableYearsError
		unknown     *selection.UnknownTableError
		maxBytes    *http.MaxBytesError
	)
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &verrs):
		details := make([]ValidationError, len(verrs))
		for i, fe := range verrs {
			details[i] = ValidationError{
				Field:   fe.Namespace(),
				Message: fmt.Sprintf("failed %q check", fe.Tag()),
			}
		}
		e := newAPIError(http.StatusBadRequest, "VALIDATION_FAILED", "request validation failed")
		e.Details = details
		return e
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return newAPIError(http.StatusGatewayTimeout, "TIMEOUT", "request took too long to process")
	case errors.Is(err, ingest.ErrFileTooLarge), errors.As(err, &maxBytes):
		return newAPIError(http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", err.Error())
	case errors.Is(err, ingest.ErrUnsupportedFormat), errors.Is(err, export.ErrUnsupportedFormat):
		return newAPIError(http.StatusUnsupportedMediaType, "UNSUPPORTED_FORMAT", err.Error())
	case errors.Is(err, ingest.ErrEmptyWorkbook), errors.Is(err, export.ErrNoData):
		return newAPIError(http.StatusUnprocessableEntity, "NO_DATA", err.Error())
	case errors.As(err, &unavailable):
		e := newAPIError(http.StatusUnprocessableEntity, "YEARS_UNAVAILABLE", err.Error())
		e.Details = map[string]any{"years": unavailable.Years}
		return e
	case errors.As(err, &unknown):
		return newAPIError(http.StatusNotFound, "TABLE_NOT_FOUND", err.Error())
	case errors.Is(err, selection.ErrNoTables), errors.Is(err, selection.ErrNoYears), errors.Is(err, selection.ErrTooManyTables):
		return newAPIError(http.StatusBadRequest, "INVALID_SELECTION", err.Error())
	default:
		return newAPIError(http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
