// internal/workers/admissions/record-application/handler.go
package recordapplication

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"admissions-wizard/internal/common/errors"
	"admissions-wizard/internal/common/logger"
	"admissions-wizard/internal/common/metrics"
	"admissions-wizard/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "record-admission-application"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS admission_applications (
	application_id    TEXT PRIMARY KEY,
	application_ref   TEXT NOT NULL,
	institution       TEXT NOT NULL,
	first_name        TEXT NOT NULL,
	last_name         TEXT NOT NULL,
	email             TEXT NOT NULL,
	phone             TEXT,
	program_id        BIGINT,
	intake            TEXT NOT NULL,
	application_type  TEXT NOT NULL,
	payment_method    TEXT,
	payment_reference TEXT,
	status            TEXT NOT NULL,
	submitted_at      TIMESTAMPTZ NOT NULL,
	recorded_at       TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS admission_audit_log (
	id            BIGSERIAL PRIMARY KEY,
	event_type    TEXT NOT NULL,
	resource_type TEXT NOT NULL,
	resource_id   TEXT NOT NULL,
	details       JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);`

// JobRecorder is the otel side of job accounting.
type JobRecorder interface {
	RecordJobProcessed(ctx context.Context, taskType, status string)
	RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string)
}

type Handler struct {
	config     *Config
	db         *sql.DB
	schema     *validation.Schema
	errHandler *errors.JobErrorHandler
	recorder   JobRecorder
	logger     logger.Logger
}

func NewHandler(config *Config, db *sql.DB, recorder JobRecorder, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		db:         db,
		schema:     validation.RecordInputSchema(),
		errHandler: errors.NewJobErrorHandler(log),
		recorder:   recorder,
		logger:     log,
	}
}

// EnsureTables creates the record and audit tables when missing.
func EnsureTables(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("create admission tables: %w", err)
	}
	return nil
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

// execute writes the application once. A redelivered job finds the row
// already present and completes as a duplicate.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	recordedAt := time.Now().UTC()

	var programID sql.NullInt64
	if input.ProgramID != nil {
		programID = sql.NullInt64{Int64: *input.ProgramID, Valid: true}
	}

	res, err := h.db.ExecContext(ctx, `
		INSERT INTO admission_applications (
			application_id, application_ref, institution, first_name, last_name,
			email, phone, program_id, intake, application_type,
			payment_method, payment_reference, status, submitted_at, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (application_id) DO NOTHING`,
		input.ApplicationID,
		input.ApplicationRef,
		input.Institution,
		input.FirstName,
		input.LastName,
		input.Email,
		input.Phone,
		programID,
		input.Intake,
		input.ApplicationType,
		input.PaymentMethod,
		input.PaymentRef,
		StatusPendingReview,
		input.SubmittedAt,
		recordedAt,
	)
	if err != nil {
		return nil, errors.NewRecordFailedError(input.ApplicationID, err)
	}

	output := &Output{
		ApplicationID: input.ApplicationID,
		RecordStatus:  StatusRecorded,
		RecordedAt:    recordedAt.Format(time.RFC3339),
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, errors.NewRecordFailedError(input.ApplicationID, err)
	}
	if affected == 0 {
		output.RecordStatus = StatusDuplicate
		h.logger.Info("application already recorded", map[string]interface{}{
			"applicationId": input.ApplicationID,
		})
		return output, nil
	}

	h.audit(ctx, input, recordedAt)

	h.logger.Info("application recorded", map[string]interface{}{
		"applicationId":  input.ApplicationID,
		"applicationRef": input.ApplicationRef,
		"institution":    input.Institution,
	})
	return output, nil
}

// audit is best effort; a failed insert is logged and the job still completes.
func (h *Handler) audit(ctx context.Context, input *Input, at time.Time) {
	details, err := json.Marshal(map[string]interface{}{
		"applicationRef": input.ApplicationRef,
		"institution":    input.Institution,
		"intake":         input.Intake,
		"paymentMethod":  input.PaymentMethod,
	})
	if err != nil {
		details = []byte("{}")
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO admission_audit_log (event_type, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		"application_recorded",
		"admission_application",
		input.ApplicationID,
		details,
		at,
	)
	if err != nil {
		h.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":         err,
			"applicationId": input.ApplicationID,
		})
	}
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
