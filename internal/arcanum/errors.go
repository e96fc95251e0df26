// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package arcanum

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// GatewayErrorCode is the closed set of error codes that can appear in type
// GatewayError.
type GatewayErrorCode string

// Possible values for GatewayErrorCode.
const (
	ErrValidation      GatewayErrorCode = "VALIDATION_FAILED"
	ErrUnauthenticated GatewayErrorCode = "UNAUTHENTICATED"
	ErrForbidden       GatewayErrorCode = "FORBIDDEN"
	ErrNotFound        GatewayErrorCode = "NOT_FOUND"
	ErrRateLimited     GatewayErrorCode = "RATE_LIMITED"
	ErrUnavailable     GatewayErrorCode = "UNAVAILABLE"
)

// With is a convenience function for constructing type GatewayError.
func (c GatewayErrorCode) With(msg string, args ...any) *GatewayError {
	var err error
	if msg != "" {
		if len(args) > 0 {
			err = fmt.Errorf(msg, args...)
		} else {
			err = errors.New(msg)
		}
	}
	return &GatewayError{Code: c, Inner: err}
}

// WithViolations constructs a GatewayError carrying the full list of violated
// validation rules. It is only useful on ErrValidation.
func (c GatewayErrorCode) WithViolations(violations []string) *GatewayError {
	return &GatewayError{Code: c, Violations: violations}
}

var apiErrorMessages = map[GatewayErrorCode]string{
	ErrValidation:      "request payload failed validation",
	ErrUnauthenticated: "authentication required",
	ErrForbidden:       "access to the requested resource is denied",
	ErrNotFound:        "referenced secret does not exist",
	ErrRateLimited:     "request rate limit exceeded",
	ErrUnavailable:     "a backend service is unavailable",
}

var apiErrorStatusCodes = map[GatewayErrorCode]int{
	ErrValidation:      http.StatusUnprocessableEntity,
	ErrUnauthenticated: http.StatusUnauthorized,
	ErrForbidden:       http.StatusForbidden,
	ErrNotFound:        http.StatusNotFound,
	ErrRateLimited:     http.StatusTooManyRequests,
	ErrUnavailable:     http.StatusServiceUnavailable,
}

// GatewayError is the error type for all failures produced by the
// authorization pipeline. It maps 1:1 onto the HTTP error responses rendered
// by the API.
type GatewayError struct {
	Code GatewayErrorCode
	// Inner is optional and adds detail beyond the generic message for Code.
	Inner error
	// Violations lists every violated validation rule. Only filled for
	// ErrValidation, and then always completely (not just the first finding).
	Violations []string
}

// Error implements the builtin/error interface.
func (e *GatewayError) Error() string {
	text := apiErrorMessages[e.Code]
	if e.Inner != nil {
		text += ": " + e.Inner.Error()
	}
	for _, v := range e.Violations {
		text += "\n" + v
	}
	return text
}

// Status returns the HTTP status code for this error.
func (e *GatewayError) Status() int {
	return apiErrorStatusCodes[e.Code]
}

// MarshalJSON implements the json.Marshaler interface.
func (e *GatewayError) MarshalJSON() ([]byte, error) {
	data := struct {
		Code       string   `json:"code"`
		Message    string   `json:"message"`
		Detail     *string  `json:"detail,omitempty"`
		Violations []string `json:"violations,omitempty"`
	}{
		Code:       string(e.Code),
		Message:    apiErrorMessages[e.Code],
		Violations: e.Violations,
	}
	if e.Inner != nil {
		detail := e.Inner.Error()
		data.Detail = &detail
	}
	return json.Marshal(data)
}

// WriteAsJSONTo reports this error in the format used by the Arcanum API.
func (e *GatewayError) WriteAsJSONTo(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status())
	buf, _ := json.Marshal(struct {
		Error *GatewayError `json:"error"`
	}{e})
	w.Write(append(buf, '\n'))
}

// AsGatewayError casts an error into a GatewayError. Errors coming out of
// external collaborators (DB down, Redis down, etc.) have no taxonomy code of
// their own and map to ErrUnavailable; the pipeline never retries them.
func AsGatewayError(err error) *GatewayError {
	if err == nil {
		return nil
	}
	var gerr *GatewayError
	if errors.As(err, &gerr) {
		return gerr
	}
	return ErrUnavailable.With("%s", err.Error())
}
