// Package response writes the JSON envelopes shared by every API handler.
package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/newthinker/sextant/internal/core"
)

// Meta contains response metadata.
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
	Total     *int      `json:"total,omitempty"`
	Limit     int       `json:"limit,omitempty"`
	Offset    int       `json:"offset,omitempty"`
}

// SuccessResponse is the standard success response format.
type SuccessResponse struct {
	Data any  `json:"data"`
	Meta Meta `json:"meta"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   string `json:"cause,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// JSON writes a success response with data.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, SuccessResponse{
		Data: data,
		Meta: Meta{Timestamp: time.Now().UTC()},
	})
}

// Page writes a success response for one page of a listing.
func Page(w http.ResponseWriter, data any, total, limit, offset int) {
	write(w, http.StatusOK, SuccessResponse{
		Data: data,
		Meta: Meta{
			Timestamp: time.Now().UTC(),
			Total:     &total,
			Limit:     limit,
			Offset:    offset,
		},
	})
}

// Error writes an error response.
func Error(w http.ResponseWriter, status int, err error) {
	write(w, status, ErrorResponse{Error: Detail(err)})
}

// Fail writes an error response with the status mapped from its code.
func Fail(w http.ResponseWriter, err error) {
	Error(w, Status(err), err)
}

// Detail converts err into its wire form. Errors without a code are
// reported as internal without leaking their text.
func Detail(err error) ErrorDetail {
	detail := ErrorDetail{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
	}

	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		detail.Code = coreErr.Code
		detail.Message = coreErr.Message
		if coreErr.Cause != nil {
			detail.Cause = coreErr.Cause.Error()
		}
	}
	return detail
}

// Status maps an error code to an HTTP status.
func Status(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidParams),
		errors.Is(err, core.ErrInsufficientData),
		errors.Is(err, core.ErrDataQuality),
		errors.Is(err, core.ErrNoData),
		errors.Is(err, core.ErrCompareInput),
		errors.Is(err, core.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrRunNotFound),
		errors.Is(err, core.ErrJobNotFound),
		errors.Is(err, core.ErrProviderNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrJobLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, core.ErrCollectorFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
