package wizard

import (
	"context"

	"admissions-wizard/internal/models"
)

// DraftRepository is the persistent slot holding one in-progress draft.
//
// Load returns nil with no error when nothing usable is stored: an empty
// slot, unparsable data, or a draft that belongs to another institution.
type DraftRepository interface {
	Load(ctx context.Context, institution models.Institution) (*models.ApplicationDraft, error)
	Save(ctx context.Context, draft *models.ApplicationDraft) error
	Clear(ctx context.Context) error
}

// DocumentUploader stores files and returns the stored paths keyed by form
// field name.
type DocumentUploader interface {
	Upload(ctx context.Context, files []models.UploadFile) (map[string][]string, error)
}

// PaymentGateway starts and verifies mobile-money push payments.
type PaymentGateway interface {
	InitiatePush(ctx context.Context, req models.PushPaymentRequest) (*models.PushPaymentResult, error)
	VerifyReceipt(ctx context.Context, req models.VerifyPaymentRequest) error
}

// ApplicationSubmitter hands the finished draft to the admissions backend.
type ApplicationSubmitter interface {
	Submit(ctx context.Context, draft *models.ApplicationDraft) (*models.Submission, error)
}

// PayloadValidator checks the outgoing submission payload.
type PayloadValidator interface {
	ValidateApplication(draft *models.ApplicationDraft) error
}

// SubmissionListener is told about every accepted application. Listener
// errors are logged and never undo the submission.
type SubmissionListener interface {
	ApplicationSubmitted(ctx context.Context, submitted models.SubmittedApplication) error
}
