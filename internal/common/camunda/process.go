package camunda

import (
	"context"
	"time"

	"admissions-wizard/internal/common/logger"
	"admissions-wizard/internal/models"
)

const DefaultProcessID = "admission-review"

// InstanceCreator starts process instances. *Client satisfies it.
type InstanceCreator interface {
	CreateInstance(ctx context.Context, processID string, variables interface{}) (int64, error)
}

// ProcessVariables seed the admissions review process.
type ProcessVariables struct {
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

func NewProcessVariables(s models.SubmittedApplication) ProcessVariables {
	d := s.Draft
	return ProcessVariables{
		ApplicationID:   s.ApplicationID,
		ApplicationRef:  d.ApplicationRef,
		Institution:     string(d.Institution),
		FirstName:       d.FirstName,
		LastName:        d.LastName,
		Email:           d.Email,
		Phone:           d.FullPhone(),
		ProgramID:       d.ProgramID,
		Intake:          string(d.Intake),
		ApplicationType: string(d.ApplicationType),
		PaymentMethod:   string(d.PaymentMethod),
		PaymentRef:      d.PaymentReference,
		SubmittedAt:     s.SubmittedAt,
	}
}

// ProcessStarter starts the review process for every submitted application.
type ProcessStarter struct {
	creator   InstanceCreator
	processID string
	logger    logger.Logger
}

func NewProcessStarter(creator InstanceCreator, processID string, log logger.Logger) *ProcessStarter {
	if processID == "" {
		processID = DefaultProcessID
	}
	return &ProcessStarter{
		creator:   creator,
		processID: processID,
		logger:    log.WithFields(map[string]interface{}{"processId": processID}),
	}
}

func (p *ProcessStarter) ApplicationSubmitted(ctx context.Context, submitted models.SubmittedApplication) error {
	key, err := p.creator.CreateInstance(ctx, p.processID, NewProcessVariables(submitted))
	if err != nil {
		p.logger.Error("Admissions process start failed", map[string]interface{}{
			"applicationId": submitted.ApplicationID,
			"error":         err,
		})
		return err
	}
	p.logger.Info("Admissions process started", map[string]interface{}{
		"applicationId":      submitted.ApplicationID,
		"applicationRef":     submitted.Draft.ApplicationRef,
		"processInstanceKey": key,
	})
	return nil
}
