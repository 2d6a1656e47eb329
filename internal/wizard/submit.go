package wizard

import (
	"context"
	"fmt"
	"time"

	"admissions-wizard/internal/common/errors"
	"admissions-wizard/internal/common/metrics"
	"admissions-wizard/internal/models"
)

// listenerTimeout bounds submission listeners, which run on a context
// detached from the caller.
const listenerTimeout = 30 * time.Second

// Submit sends the draft from the Review step. Every step is validated again
// first since JumpBack edits can break an earlier step. On success the wizard
// moves to Confirmation, the stored draft is cleared and listeners are told.
// On failure the wizard stays on Review and keeps the draft.
//
// A wizard closed while the submission is in flight still clears the stored
// draft when the application was accepted, so a remount does not offer it
// again, but nothing else changes and WIZARD_CLOSED is returned.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return errors.NewWizardClosedError()
	case c.submitting:
		c.mu.Unlock()
		return errors.NewSubmissionInFlightError()
	case c.step != StepReview:
		c.mu.Unlock()
		return errors.NewInvalidTransitionError(fmt.Sprintf("cannot submit from %s", c.step))
	}

	fieldErrs := c.deps.Validator.ValidateAll(StepReview, c.draft)
	if len(fieldErrs) > 0 {
		for name, msg := range fieldErrs {
			c.errors[name] = msg
		}
		metrics.WizardValidationFailures.WithLabelValues(StepReview.String()).Inc()
		c.mu.Unlock()
		return errors.NewValidationError(StepReview.String(), fieldErrs)
	}

	draft := c.draft.Clone()
	c.submitting = true
	c.submissionError = ""
	c.mu.Unlock()

	submission, err := c.send(ctx, draft)

	c.mu.Lock()
	c.submitting = false
	if c.closed {
		if err == nil {
			c.clearDraftLocked(ctx)
			c.log.Info("Application submitted after wizard closed", map[string]interface{}{
				"applicationRef": draft.ApplicationRef,
				"applicationId":  submission.ApplicationID,
			})
		}
		c.mu.Unlock()
		return errors.NewWizardClosedError()
	}
	if err != nil {
		stdErr := errors.Normalize(err)
		if stdErr.Code != errors.ErrCodeSchemaViolation {
			stdErr = errors.NewSubmissionFailedError(err)
		}
		c.submissionError = "your application could not be submitted, please try again"
		metrics.WizardSubmissions.WithLabelValues("failed").Inc()
		c.log.Error("Application submission failed", map[string]interface{}{
			"applicationRef": draft.ApplicationRef,
			"error":          err,
		})
		c.mu.Unlock()
		return stdErr
	}

	from := c.step
	c.step = StepConfirmation
	c.applicationID = submission.ApplicationID
	c.application = submission.Application
	c.clearDraftLocked(ctx)
	metrics.WizardSubmissions.WithLabelValues("success").Inc()
	c.log.Info("Application submitted", map[string]interface{}{
		"applicationRef": draft.ApplicationRef,
		"applicationId":  submission.ApplicationID,
	})

	submitted := models.SubmittedApplication{
		ApplicationID: submission.ApplicationID,
		Record:        submission.Application,
		Draft:         *draft,
		SubmittedAt:   time.Now().UTC(),
	}
	listeners := c.deps.Listeners
	c.mu.Unlock()

	c.stepChanged("submit", from, StepConfirmation)

	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), listenerTimeout)
	defer cancel()
	for _, l := range listeners {
		if err := l.ApplicationSubmitted(lctx, submitted); err != nil {
			c.log.Warn("Submission listener failed", map[string]interface{}{
				"applicationId": submitted.ApplicationID,
				"error":         err,
			})
		}
	}
	return nil
}

// clearDraftLocked drops the stored draft once the application is accepted,
// ignoring cancellation of ctx.
func (c *Controller) clearDraftLocked(ctx context.Context) {
	if err := c.deps.Drafts.Clear(context.WithoutCancel(ctx)); err != nil {
		metrics.WizardDraftWrites.WithLabelValues(c.opts.DraftBackend, "clear", "failed").Inc()
		c.log.Warn("Failed to clear stored draft", map[string]interface{}{"error": err})
		return
	}
	metrics.WizardDraftWrites.WithLabelValues(c.opts.DraftBackend, "clear", "success").Inc()
}

func (c *Controller) send(ctx context.Context, draft *models.ApplicationDraft) (*models.Submission, error) {
	if c.deps.PayloadValidator != nil {
		if err := c.deps.PayloadValidator.ValidateApplication(draft); err != nil {
			return nil, err
		}
	}
	submission, err := c.deps.Submitter.Submit(ctx, draft)
	if err != nil {
		return nil, err
	}
	if submission == nil || submission.ApplicationID == "" {
		return nil, fmt.Errorf("submission response carried no application id")
	}
	return submission, nil
}
