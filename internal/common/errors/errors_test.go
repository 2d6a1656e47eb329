package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	cause := stderrors.New("connection reset")

	tests := []struct {
		name      string
		err       *StandardError
		code      ErrorCode
		scope     Scope
		retryable bool
	}{
		{"validation", NewValidationError("profile", map[string]string{"email": "required"}), ErrCodeValidationFailed, ScopeField, false},
		{"invalid transition", NewInvalidTransitionError("review only"), ErrCodeInvalidTransition, ScopeSession, false},
		{"wizard closed", NewWizardClosedError(), ErrCodeWizardClosed, ScopeSession, false},
		{"upload", NewUploadFailedError("passportPhoto", cause), ErrCodeUploadFailed, ScopeUpload, true},
		{"invalid document", NewInvalidDocumentFieldError("resume"), ErrCodeInvalidDocument, ScopeUpload, false},
		{"document not found", NewDocumentNotFoundError("academicCerts", 3), ErrCodeDocumentNotFound, ScopeUpload, false},
		{"payment initiate", NewPaymentInitiateFailedError(cause), ErrCodePaymentInitFailed, ScopePayment, true},
		{"payment verify", NewPaymentVerifyFailedError(cause), ErrCodePaymentVerifyFail, ScopePayment, true},
		{"payment locked", NewPaymentLockedError(), ErrCodePaymentLocked, ScopePayment, false},
		{"submission", NewSubmissionFailedError(cause), ErrCodeSubmissionFailed, ScopeSubmission, true},
		{"in flight", NewSubmissionInFlightError(), ErrCodeSubmissionInFlight, ScopeSubmission, false},
		{"schema", NewSchemaViolationError("/email: invalid"), ErrCodeSchemaViolation, ScopeSubmission, false},
		{"session", NewSessionNotFoundError("abc"), ErrCodeSessionNotFound, ScopeSession, false},
		{"upstream", NewUpstreamUnavailableError("admissions-api", cause), ErrCodeUpstreamUnavailable, ScopeInfra, true},
		{"draft store", NewDraftStoreFailedError("save", cause), ErrCodeDraftStoreFailed, ScopeInfra, true},
		{"notification", NewNotificationSendFailedError("email", cause), ErrCodeNotificationSendFailed, ScopeNotification, true},
		{"workflow", NewWorkflowStartFailedError("admission-review", cause), ErrCodeWorkflowStartFailed, ScopeInfra, true},
		{"record", NewRecordFailedError("ADM-1", cause), ErrCodeRecordFailed, ScopeInfra, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.scope, tt.err.Scope)
			assert.Equal(t, tt.retryable, tt.err.Retryable)
			assert.NotEmpty(t, tt.err.Message)
			assert.False(t, tt.err.Timestamp.IsZero())
			assert.Contains(t, tt.err.Error(), string(tt.code))
		})
	}
}

func TestValidationErrorCarriesFields(t *testing.T) {
	err := NewValidationError("profile", map[string]string{"email": "enter a valid email address", "phone": "this field is required"})
	assert.Equal(t, "step: profile, fields: 2", err.Details)
	assert.Equal(t, "enter a valid email address", err.Fields["email"])
}

func TestIsAndUnwrap(t *testing.T) {
	cause := stderrors.New("timeout")
	err := fmt.Errorf("submit: %w", NewSubmissionFailedError(cause))

	assert.True(t, stderrors.Is(err, ErrSubmission))
	assert.False(t, stderrors.Is(err, ErrUpload))
	assert.True(t, stderrors.Is(err, cause))

	stdErr, ok := AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, "timeout", stdErr.Details)

	_, ok = AsStandard(cause)
	assert.False(t, ok)
}

func TestNormalize(t *testing.T) {
	locked := NewPaymentLockedError()
	assert.Same(t, locked, Normalize(fmt.Errorf("wrapped: %w", locked)))

	foreign := Normalize(stderrors.New("boom"))
	assert.Equal(t, ErrorCode("INTERNAL_ERROR"), foreign.Code)
	assert.Equal(t, "boom", foreign.Details)
	assert.False(t, foreign.Retryable)
}

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name        string
		err         *StandardError
		wantRetries int
	}{
		{"retryable notification", NewNotificationSendFailedError("sms", stderrors.New("throttled")), 3},
		{"retryable workflow", NewWorkflowStartFailedError("admission-review", stderrors.New("unavailable")), 3},
		{"schema is terminal", NewSchemaViolationError("bad"), 0},
		{"retryable code but flag off", &StandardError{Code: ErrCodeUpstreamUnavailable, Message: "down"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, string(tt.err.Code), bpmn.Code)
			assert.Equal(t, tt.wantRetries, bpmn.Retries)

			vars := bpmn.ToErrorVariables()
			assert.Equal(t, string(tt.err.Code), vars["errorCode"])
			assert.Equal(t, string(tt.err.Code), vars["originalErrorCode"])
			assert.Contains(t, vars, "timestamp")
		})
	}
}

func TestGetErrorCategory(t *testing.T) {
	tests := map[ErrorCode]string{
		ErrCodeValidationFailed:       "VALIDATION",
		ErrCodeSchemaViolation:        "VALIDATION",
		ErrCodeUploadFailed:           "UPLOAD",
		ErrCodeDocumentNotFound:       "UPLOAD",
		ErrCodePaymentLocked:          "PAYMENT",
		ErrCodeSubmissionInFlight:     "SUBMISSION",
		ErrCodeNotificationSendFailed: "NOTIFICATION",
		ErrCodeDraftStoreFailed:       "INFRASTRUCTURE",
		ErrCodeWorkflowStartFailed:    "INFRASTRUCTURE",
		ErrCodeRecordFailed:           "INFRASTRUCTURE",
		ErrCodeWizardClosed:           "OTHER",
	}
	for code, want := range tests {
		assert.Equal(t, want, GetErrorCategory(code), code)
	}
	assert.True(t, IsRetryableErrorCode(ErrCodeUpstreamUnavailable))
	assert.False(t, IsRetryableErrorCode(ErrCodeValidationFailed))
}
