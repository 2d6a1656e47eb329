package server

import (
	"encoding/json"
	"net/http"

	"admissions-wizard/internal/common/errors"
)

type errorBody struct {
	Code      errors.ErrorCode  `json:"code"`
	Scope     errors.Scope      `json:"scope,omitempty"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	Retryable bool              `json:"retryable"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps error codes to HTTP statuses.
func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeValidationFailed, errors.ErrCodeSchemaViolation:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeInvalidTransition, errors.ErrCodePaymentLocked, errors.ErrCodeSubmissionInFlight:
		return http.StatusConflict
	case errors.ErrCodeSessionNotFound, errors.ErrCodeDocumentNotFound:
		return http.StatusNotFound
	case errors.ErrCodeWizardClosed:
		return http.StatusGone
	case errors.ErrCodeInvalidDocument, errCodeBadRequest:
		return http.StatusBadRequest
	case errCodeTooLarge:
		return http.StatusRequestEntityTooLarge
	case errors.ErrCodeUploadFailed,
		errors.ErrCodePaymentInitFailed,
		errors.ErrCodePaymentVerifyFail,
		errors.ErrCodeSubmissionFailed,
		errors.ErrCodeUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

const (
	errCodeBadRequest errors.ErrorCode = "BAD_REQUEST"
	errCodeTooLarge   errors.ErrorCode = "REQUEST_TOO_LARGE"
)

func badRequest(message string) *errors.StandardError {
	return &errors.StandardError{Code: errCodeBadRequest, Message: message}
}

func writeError(w http.ResponseWriter, err error) {
	stdErr := errors.Normalize(err)
	body := errorBody{
		Code:      stdErr.Code,
		Scope:     stdErr.Scope,
		Message:   stdErr.Message,
		Fields:    stdErr.Fields,
		Retryable: stdErr.Retryable,
	}
	writeJSON(w, statusFor(stdErr.Code), map[string]interface{}{"error": body})
}
