// Package wizard implements the application wizard: a seven step state
// machine that owns one application draft, validates each step before moving
// forward, persists the draft after every change and drives the upload,
// payment and submission sub-flows.
package wizard

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"

	"admissions-wizard/internal/common/errors"
	"admissions-wizard/internal/common/logger"
	"admissions-wizard/internal/common/metrics"
	"admissions-wizard/internal/models"

	"github.com/google/uuid"
)

// Dependencies are the collaborators a wizard talks to.
type Dependencies struct {
	Drafts    DraftRepository
	Uploader  DocumentUploader
	Payments  PaymentGateway
	Submitter ApplicationSubmitter

	// Optional.
	Validator        *StepValidator
	PayloadValidator PayloadValidator
	Listeners        []SubmissionListener
	Logger           logger.Logger
}

// Options configure a single wizard instance.
type Options struct {
	Institution models.Institution
	// Applicant pre-fills the identity fields of a fresh draft.
	Applicant      *models.ApplicantProfile
	ApplicationFee int
	// PreviewURLPrefix is joined with the preview id to form Preview.URL.
	PreviewURLPrefix string
	// DraftBackend labels draft store metrics.
	DraftBackend string
	// OnStepChange runs after every step change, outside the wizard lock.
	OnStepChange func(from, to Step)
}

// Preview is the local record of an uploaded file. It never leaves the
// session.
type Preview struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url,omitempty"`
	MIMEType string `json:"mimeType,omitempty"`
	Size     int    `json:"size"`
}

// PaymentState is the push-payment progress shown on the Payment step.
type PaymentState struct {
	CheckoutRequestID string   `json:"checkoutRequestId,omitempty"`
	Instructions      []string `json:"instructions,omitempty"`
	Verified          bool     `json:"verified"`
	Error             string   `json:"error,omitempty"`
}

// Snapshot is a point-in-time copy of the wizard state.
type Snapshot struct {
	Step            Step                               `json:"step"`
	StepName        string                             `json:"stepName"`
	Draft           *models.ApplicationDraft           `json:"draft"`
	Errors          map[string]string                  `json:"errors"`
	UploadErrors    map[models.DocumentField]string    `json:"uploadErrors"`
	Previews        map[models.DocumentField][]Preview `json:"previews"`
	Payment         PaymentState                       `json:"payment"`
	Submitting      bool                               `json:"submitting"`
	SubmissionError string                             `json:"submissionError,omitempty"`
	ApplicationID   string                             `json:"applicationId,omitempty"`
	Application     json.RawMessage                    `json:"application,omitempty"`
	Closed          bool                               `json:"closed"`
}

// Controller is the single owner of a draft. All methods are safe for
// concurrent use; network calls run without the lock held and their results
// are dropped once the wizard is closed.
type Controller struct {
	mu   sync.Mutex
	deps Dependencies
	opts Options
	log  logger.Logger

	step  Step
	draft *models.ApplicationDraft

	errors       map[string]string
	uploadErrors map[models.DocumentField]string
	previews     map[models.DocumentField][]Preview
	previewData  map[string][]byte

	payment PaymentState

	submitting      bool
	submissionError string
	applicationID   string
	application     json.RawMessage

	closed bool
}

// Mount builds the starting draft and restores a stored one when it belongs
// to the same institution.
func Mount(ctx context.Context, deps Dependencies, opts Options) (*Controller, error) {
	if opts.Institution == "" {
		return nil, fmt.Errorf("institution is required")
	}
	if deps.Drafts == nil || deps.Uploader == nil || deps.Payments == nil || deps.Submitter == nil {
		return nil, fmt.Errorf("draft repository, uploader, payment gateway and submitter are required")
	}
	if deps.Validator == nil {
		deps.Validator = NewStepValidator()
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	if opts.DraftBackend == "" {
		opts.DraftBackend = "custom"
	}

	c := &Controller{
		deps:         deps,
		opts:         opts,
		log:          deps.Logger.WithFields(map[string]interface{}{"institution": string(opts.Institution)}),
		step:         StepProfile,
		errors:       map[string]string{},
		uploadErrors: map[models.DocumentField]string{},
		previews:     map[models.DocumentField][]Preview{},
		previewData:  map[string][]byte{},
	}

	draft := models.NewDraft(opts.Institution)
	if opts.Applicant != nil {
		draft.Prefill(*opts.Applicant)
	}

	stored, err := deps.Drafts.Load(ctx, opts.Institution)
	switch {
	case err != nil:
		c.log.Warn("Failed to load stored draft, starting fresh", map[string]interface{}{"error": err})
	case stored != nil && stored.Institution == opts.Institution:
		draft = normalizeRestored(stored)
		c.log.Info("Restored stored draft", map[string]interface{}{"applicationRef": draft.ApplicationRef})
	}

	if draft.ApplicationRef == "" {
		draft.ApplicationRef = NewApplicationRef()
	}
	c.draft = draft

	for _, field := range models.DocumentFields() {
		for _, p := range draft.DocumentPaths(field) {
			c.previews[field] = append(c.previews[field], Preview{ID: uuid.NewString(), Name: path.Base(p)})
		}
	}

	metrics.WizardSessionsActive.Inc()
	return c, nil
}

// NewApplicationRef returns a fresh client-side application reference.
func NewApplicationRef() string {
	return "APP-" + strings.ToUpper(uuid.NewString()[:8])
}

func normalizeRestored(d *models.ApplicationDraft) *models.ApplicationDraft {
	out := d.Clone()
	if len(out.EducationHistory) == 0 {
		out.EducationHistory = []models.EducationEntry{{}}
	}
	if out.AcademicCerts == nil {
		out.AcademicCerts = []string{}
	}
	if out.SupportingDocs == nil {
		out.SupportingDocs = []string{}
	}
	return out
}

// Dispatch applies action to the draft, clears the errors of the touched
// fields and persists the result.
func (c *Controller) Dispatch(ctx context.Context, action Action) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkMutableLocked(); err != nil {
		return err
	}

	next := c.draft.Clone()
	if err := action.apply(next); err != nil {
		return err
	}
	c.draft = next
	for _, name := range action.Fields() {
		delete(c.errors, name)
	}
	c.persistLocked(ctx, "dispatch")
	return nil
}

// Advance validates the current step and moves forward when it passes. On
// failure the field errors are recorded and returned as a validation error.
// The Review step only moves forward through Submit.
func (c *Controller) Advance(ctx context.Context) error {
	c.mu.Lock()
	from := c.step
	err := c.advanceLocked()
	to := c.step
	c.mu.Unlock()

	if err != nil {
		return err
	}
	c.stepChanged("forward", from, to)
	return nil
}

func (c *Controller) advanceLocked() error {
	if c.closed {
		return errors.NewWizardClosedError()
	}
	if c.step.Terminal() {
		return errors.NewInvalidTransitionError("application already submitted")
	}
	if c.step == StepReview {
		return errors.NewInvalidTransitionError("submit the application to leave the review step")
	}

	fieldErrs := c.deps.Validator.Validate(c.step, c.draft)
	if len(fieldErrs) > 0 {
		for name, msg := range fieldErrs {
			c.errors[name] = msg
		}
		metrics.WizardValidationFailures.WithLabelValues(c.step.String()).Inc()
		return errors.NewValidationError(c.step.String(), fieldErrs)
	}

	c.step++
	return nil
}

// Retreat moves one step back without validating the step being left. On the
// first step it stays put and still reports the move to the step hook.
func (c *Controller) Retreat(ctx context.Context) error {
	c.mu.Lock()
	from := c.step
	var err error
	switch {
	case c.closed:
		err = errors.NewWizardClosedError()
	case c.step.Terminal():
		err = errors.NewInvalidTransitionError("application already submitted")
	case c.submitting:
		err = errors.NewSubmissionInFlightError()
	case c.step > FirstStep:
		c.step--
	}
	to := c.step
	c.mu.Unlock()

	if err != nil {
		return err
	}
	c.stepChanged("back", from, to)
	return nil
}

// JumpBack moves from the Review step to an earlier step.
func (c *Controller) JumpBack(ctx context.Context, target Step) error {
	c.mu.Lock()
	from := c.step
	var err error
	switch {
	case c.closed:
		err = errors.NewWizardClosedError()
	case c.submitting:
		err = errors.NewSubmissionInFlightError()
	case c.step != StepReview:
		err = errors.NewInvalidTransitionError("jumping back is only possible from the review step")
	case target < FirstStep || target >= c.step:
		err = errors.NewInvalidTransitionError(fmt.Sprintf("cannot jump from %s to step %d", c.step, int(target)))
	default:
		c.step = target
	}
	c.mu.Unlock()

	if err != nil {
		return err
	}
	c.stepChanged("jump", from, target)
	return nil
}

// Close unmounts the wizard. Results of calls still in flight are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.previewData = map[string][]byte{}
	metrics.WizardSessionsActive.Dec()
}

// Step returns the current step.
func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// Snapshot copies the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Step:            c.step,
		StepName:        c.step.String(),
		Draft:           c.draft.Clone(),
		Errors:          make(map[string]string, len(c.errors)),
		UploadErrors:    make(map[models.DocumentField]string, len(c.uploadErrors)),
		Previews:        make(map[models.DocumentField][]Preview, len(c.previews)),
		Payment:         c.payment,
		Submitting:      c.submitting,
		SubmissionError: c.submissionError,
		ApplicationID:   c.applicationID,
		Closed:          c.closed,
	}
	for k, v := range c.errors {
		s.Errors[k] = v
	}
	for k, v := range c.uploadErrors {
		s.UploadErrors[k] = v
	}
	for k, v := range c.previews {
		s.Previews[k] = append([]Preview{}, v...)
	}
	s.Payment.Instructions = append([]string(nil), c.payment.Instructions...)
	if c.application != nil {
		s.Application = append(json.RawMessage{}, c.application...)
	}
	return s
}

// PreviewContent returns the locally kept bytes of an uploaded file.
func (c *Controller) PreviewContent(id string) (Preview, []byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.previewData[id]
	if !ok {
		return Preview{}, nil, false
	}
	for _, list := range c.previews {
		for _, p := range list {
			if p.ID == id {
				return p, data, true
			}
		}
	}
	return Preview{}, nil, false
}

func (c *Controller) checkMutableLocked() error {
	if c.closed {
		return errors.NewWizardClosedError()
	}
	if c.step.Terminal() {
		return errors.NewInvalidTransitionError("application already submitted")
	}
	if c.submitting {
		return errors.NewSubmissionInFlightError()
	}
	return nil
}

// persistLocked writes the draft while the wizard is not on the terminal
// step. Store failures are logged and never surface to the caller.
func (c *Controller) persistLocked(ctx context.Context, operation string) {
	if c.step.Terminal() {
		return
	}
	status := "success"
	if err := c.deps.Drafts.Save(ctx, c.draft.Clone()); err != nil {
		status = "failed"
		c.log.Warn("Failed to persist draft", map[string]interface{}{
			"operation": operation,
			"error":     err,
		})
	}
	metrics.WizardDraftWrites.WithLabelValues(c.opts.DraftBackend, "save", status).Inc()
}

func (c *Controller) stepChanged(direction string, from, to Step) {
	metrics.WizardStepTransitions.WithLabelValues(direction, from.String(), to.String()).Inc()
	c.log.Debug("Step changed", map[string]interface{}{
		"from": from.String(),
		"to":   to.String(),
	})
	if c.opts.OnStepChange != nil {
		c.opts.OnStepChange(from, to)
	}
}
