// internal/workers/admissions/send-confirmation/models.go
package sendconfirmation

type Input struct {
	ApplicationID  string `json:"applicationId"`
	ApplicationRef string `json:"applicationRef"`
	Institution    string `json:"institution"`
	FirstName      string `json:"firstName"`
	Email          string `json:"email"`
	Phone          string `json:"phone,omitempty"`
}

type Output struct {
	NotificationID     string `json:"notificationId"`
	ConfirmationStatus string `json:"confirmationStatus"` // "sent", "partial", "disabled"
	EmailStatus        string `json:"emailStatus"`
	SMSStatus          string `json:"smsStatus"`
	SentAt             string `json:"sentAt"` // ISO 8601
}

const (
	StatusSent     = "sent"
	StatusPartial  = "partial"
	StatusDisabled = "disabled"
)
