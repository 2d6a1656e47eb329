// internal/workers/admissions/record-application/models.go
package recordapplication

import "time"

type Input struct {
	ApplicationID   string    `json:"applicationId"`
	ApplicationRef  string    `json:"applicationRef"`
	Institution     string    `json:"institution"`
	FirstName       string    `json:"firstName"`
	LastName        string    `json:"lastName"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone,omitempty"`
	ProgramID       *int64    `json:"programId,omitempty"`
	Intake          string    `json:"intake"`
	ApplicationType string    `json:"applicationType"`
	PaymentMethod   string    `json:"paymentMethod,omitempty"`
	PaymentRef      string    `json:"paymentReference,omitempty"`
	SubmittedAt     time.Time `json:"submittedAt"`
}

type Output struct {
	ApplicationID string `json:"applicationId"`
	RecordStatus  string `json:"recordStatus"` // "recorded", "duplicate"
	RecordedAt    string `json:"recordedAt"`   // ISO 8601
}

const (
	StatusRecorded  = "recorded"
	StatusDuplicate = "duplicate"

	// StatusPendingReview is the review state every new record starts in.
	StatusPendingReview = "pending_review"
)
