// internal/workers/admissions/send-confirmation/handler.go
package sendconfirmation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"admissions-wizard/internal/common/errors"
	"admissions-wizard/internal/common/logger"
	"admissions-wizard/internal/common/metrics"
	"admissions-wizard/internal/common/validation"
	"admissions-wizard/internal/notify"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "send-application-confirmation"
)

// Sender delivers the confirmation. *notify.Confirmation satisfies it.
type Sender interface {
	Send(ctx context.Context, msg notify.Message) (*notify.Result, error)
}

// JobRecorder is the otel side of job accounting.
type JobRecorder interface {
	RecordJobProcessed(ctx context.Context, taskType, status string)
	RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string)
}

type Handler struct {
	config     *Config
	sender     Sender
	schema     *validation.Schema
	errHandler *errors.JobErrorHandler
	recorder   JobRecorder
	logger     logger.Logger
}

func NewHandler(config *Config, sender Sender, recorder JobRecorder, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		sender:     sender,
		schema:     validation.ConfirmationInputSchema(),
		errHandler: errors.NewJobErrorHandler(log),
		recorder:   recorder,
		logger:     log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job.Variables)
	if err == nil {
		var output *Output
		output, err = h.execute(ctx, input)
		if err == nil {
			err = h.completeJob(ctx, client, job, output)
		}
	}

	status := "completed"
	if err != nil {
		status = "failed"
		stdErr := errors.Normalize(err)
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
		h.errHandler.HandleJobError(ctx, client, job, stdErr)
	} else {
		metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	}

	elapsed := time.Since(start)
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(elapsed.Seconds())
	if h.recorder != nil {
		h.recorder.RecordJobProcessed(ctx, TaskType, status)
		h.recorder.RecordJobDuration(ctx, TaskType, elapsed, status)
	}
}

// parseInput checks the job variables against the confirmation schema
// before decoding them.
func (h *Handler) parseInput(variables string) (*Input, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(variables), &raw); err != nil {
		return nil, errors.NewSchemaViolationError(fmt.Sprintf("parse input: %v", err))
	}

	result := h.schema.Validate(raw)
	if !result.Valid {
		stdErr := errors.NewSchemaViolationError(result.Summary())
		stdErr.Fields = make(map[string]string, len(result.Errors))
		for _, e := range result.Errors {
			stdErr.Fields[e.Field] = e.Message
		}
		return nil, stdErr
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, errors.NewSchemaViolationError(fmt.Sprintf("decode input: %v", err))
	}
	return &input, nil
}

// execute sends the confirmation. The job only fails when no channel got
// through; a partial delivery completes so the applicant is not messaged
// twice on retry.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	result, err := h.sender.Send(ctx, notify.Message{
		ApplicationID:  input.ApplicationID,
		ApplicationRef: input.ApplicationRef,
		Institution:    input.Institution,
		FirstName:      input.FirstName,
		Email:          input.Email,
		Phone:          input.Phone,
	})
	if result == nil {
		result = &notify.Result{Email: notify.StatusFailed, SMS: notify.StatusFailed}
	}

	output := &Output{
		NotificationID: uuid.New().String(),
		EmailStatus:    result.Email,
		SMSStatus:      result.SMS,
		SentAt:         time.Now().UTC().Format(time.RFC3339),
	}

	switch {
	case err != nil && !result.Delivered():
		return nil, err
	case err != nil:
		output.ConfirmationStatus = StatusPartial
		h.logger.Warn("confirmation partially delivered", map[string]interface{}{
			"applicationId": input.ApplicationID,
			"emailStatus":   result.Email,
			"smsStatus":     result.SMS,
			"error":         err,
		})
	case result.Delivered():
		output.ConfirmationStatus = StatusSent
	default:
		output.ConfirmationStatus = StatusDisabled
	}

	h.logger.Info("confirmation processed", map[string]interface{}{
		"applicationId": input.ApplicationID,
		"status":        output.ConfirmationStatus,
	})
	return output, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		return fmt.Errorf("create complete job command: %w", err)
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err,
		})
	}
	return nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
