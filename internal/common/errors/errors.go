// Package errors provides the error taxonomy shared by the wizard session
// service and the admissions workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Scope says which part of the wizard an error belongs to. The UI renders
// each scope in a different place.
type Scope string

const (
	ScopeField        Scope = "field"
	ScopeUpload       Scope = "upload"
	ScopePayment      Scope = "payment"
	ScopeSubmission   Scope = "submission"
	ScopeSession      Scope = "session"
	ScopeInfra        Scope = "infrastructure"
	ScopeNotification Scope = "notification"
)

const (
	ErrCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodeWizardClosed      ErrorCode = "WIZARD_CLOSED"

	ErrCodeUploadFailed      ErrorCode = "UPLOAD_FAILED"
	ErrCodeInvalidDocument   ErrorCode = "INVALID_DOCUMENT_FIELD"
	ErrCodeDocumentNotFound  ErrorCode = "DOCUMENT_NOT_FOUND"
	ErrCodePaymentInitFailed ErrorCode = "PAYMENT_INITIATE_FAILED"
	ErrCodePaymentVerifyFail ErrorCode = "PAYMENT_VERIFY_FAILED"
	ErrCodePaymentLocked     ErrorCode = "PAYMENT_LOCKED"

	ErrCodeSubmissionFailed   ErrorCode = "SUBMISSION_FAILED"
	ErrCodeSubmissionInFlight ErrorCode = "SUBMISSION_IN_FLIGHT"
	ErrCodeSchemaViolation    ErrorCode = "SCHEMA_VIOLATION"

	ErrCodeSessionNotFound     ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	ErrCodeDraftStoreFailed    ErrorCode = "DRAFT_STORE_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeWorkflowStartFailed    ErrorCode = "WORKFLOW_START_FAILED"
	ErrCodeRecordFailed           ErrorCode = "APPLICATION_RECORD_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Scope     Scope                  `json:"scope"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Fields    map[string]string      `json:"fields,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches on code so callers can compare against the sentinel values below.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func newError(code ErrorCode, scope Scope, message string, retryable bool, cause error) *StandardError {
	e := &StandardError{
		Code:      code,
		Scope:     scope,
		Message:   message,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// Sentinels for errors.Is checks.
var (
	ErrValidation         = &StandardError{Code: ErrCodeValidationFailed}
	ErrInvalidTransition  = &StandardError{Code: ErrCodeInvalidTransition}
	ErrWizardClosed       = &StandardError{Code: ErrCodeWizardClosed}
	ErrUpload             = &StandardError{Code: ErrCodeUploadFailed}
	ErrPaymentLocked      = &StandardError{Code: ErrCodePaymentLocked}
	ErrSubmission         = &StandardError{Code: ErrCodeSubmissionFailed}
	ErrSubmissionInFlight = &StandardError{Code: ErrCodeSubmissionInFlight}
	ErrSessionNotFound    = &StandardError{Code: ErrCodeSessionNotFound}
	ErrDocumentNotFound   = &StandardError{Code: ErrCodeDocumentNotFound}
)

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationError carries the field to message map produced by a step validator.
func NewValidationError(step string, fields map[string]string) *StandardError {
	e := newError(ErrCodeValidationFailed, ScopeField, "Step validation failed", false, nil)
	e.Details = fmt.Sprintf("step: %s, fields: %d", step, len(fields))
	e.Fields = fields
	return e
}

func NewInvalidTransitionError(details string) *StandardError {
	e := newError(ErrCodeInvalidTransition, ScopeSession, "Transition not allowed", false, nil)
	e.Details = details
	return e
}

func NewWizardClosedError() *StandardError {
	return newError(ErrCodeWizardClosed, ScopeSession, "Wizard has been closed", false, nil)
}

// NewUploadFailedError creates a retryable upload error scoped to one document field.
func NewUploadFailedError(field string, err error) *StandardError {
	e := newError(ErrCodeUploadFailed, ScopeUpload, "Document upload failed", true, err)
	e.Metadata = map[string]interface{}{"field": field}
	return e
}

func NewInvalidDocumentFieldError(field string) *StandardError {
	e := newError(ErrCodeInvalidDocument, ScopeUpload, "Unknown document field", false, nil)
	e.Details = fmt.Sprintf("field: %s", field)
	return e
}

func NewDocumentNotFoundError(field string, index int) *StandardError {
	e := newError(ErrCodeDocumentNotFound, ScopeUpload, "Document not found", false, nil)
	e.Details = fmt.Sprintf("field: %s, index: %d", field, index)
	return e
}

func NewPaymentInitiateFailedError(err error) *StandardError {
	return newError(ErrCodePaymentInitFailed, ScopePayment, "Payment request could not be started", true, err)
}

func NewPaymentVerifyFailedError(err error) *StandardError {
	return newError(ErrCodePaymentVerifyFail, ScopePayment, "Payment could not be verified", true, err)
}

func NewPaymentLockedError() *StandardError {
	return newError(ErrCodePaymentLocked, ScopePayment, "Payment already verified", false, nil)
}

// NewSubmissionFailedError is attached to the Review step; the draft is kept.
func NewSubmissionFailedError(err error) *StandardError {
	return newError(ErrCodeSubmissionFailed, ScopeSubmission, "Application could not be submitted", true, err)
}

func NewSubmissionInFlightError() *StandardError {
	return newError(ErrCodeSubmissionInFlight, ScopeSubmission, "Submission already in progress", false, nil)
}

func NewSchemaViolationError(details string) *StandardError {
	e := newError(ErrCodeSchemaViolation, ScopeSubmission, "Application payload failed schema validation", false, nil)
	e.Details = details
	return e
}

func NewSessionNotFoundError(sessionID string) *StandardError {
	e := newError(ErrCodeSessionNotFound, ScopeSession, "Wizard session not found", false, nil)
	e.Details = fmt.Sprintf("sessionId: %s", sessionID)
	return e
}

func NewUpstreamUnavailableError(service string, err error) *StandardError {
	return newError(ErrCodeUpstreamUnavailable, ScopeInfra, fmt.Sprintf("Upstream service '%s' unavailable", service), true, err)
}

func NewDraftStoreFailedError(op string, err error) *StandardError {
	e := newError(ErrCodeDraftStoreFailed, ScopeInfra, "Draft store operation failed", true, err)
	e.Metadata = map[string]interface{}{"operation": op}
	return e
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	e := newError(ErrCodeNotificationSendFailed, ScopeNotification, "Notification delivery failed", true, err)
	e.Details = fmt.Sprintf("channel: %s, error: %v", channel, err)
	return e
}

func NewWorkflowStartFailedError(processID string, err error) *StandardError {
	e := newError(ErrCodeWorkflowStartFailed, ScopeInfra, "Admissions workflow could not be started", true, err)
	e.Metadata = map[string]interface{}{"processId": processID}
	return e
}

func NewRecordFailedError(applicationID string, err error) *StandardError {
	e := newError(ErrCodeRecordFailed, ScopeInfra, "Application record could not be written", true, err)
	e.Metadata = map[string]interface{}{"applicationId": applicationID}
	return e
}

// ==========================
// 3. BPMN Error Integration
// ==========================

// BPMNError represents an error thrown back to the Zeebe engine by a worker.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// GetRetryCount returns how many times a worker job should be retried.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeNotificationSendFailed,
		ErrCodeUpstreamUnavailable,
		ErrCodeDraftStoreFailed,
		ErrCodeWorkflowStartFailed,
		ErrCodeRecordFailed:
		return 3
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 4. Utility Functions
// ==========================

// AsStandard unwraps err into a *StandardError when one is in the chain.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// Normalize always returns a StandardError, wrapping foreign errors as internal.
func Normalize(err error) *StandardError {
	if stdErr, ok := AsStandard(err); ok {
		return stdErr
	}
	return newError("INTERNAL_ERROR", ScopeInfra, "Unexpected error", false, err)
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory groups codes for metrics labels.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "SCHEMA"):
		return "VALIDATION"
	case strings.Contains(codeStr, "UPLOAD") || strings.Contains(codeStr, "DOCUMENT"):
		return "UPLOAD"
	case strings.Contains(codeStr, "PAYMENT"):
		return "PAYMENT"
	case strings.Contains(codeStr, "SUBMISSION"):
		return "SUBMISSION"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "UPSTREAM") || strings.Contains(codeStr, "DRAFT_STORE") || strings.Contains(codeStr, "WORKFLOW") ||
		strings.Contains(codeStr, "RECORD"):
		return "INFRASTRUCTURE"
	default:
		return "OTHER"
	}
}
