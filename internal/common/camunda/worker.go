// internal/common/camunda/worker.go
package camunda

import (
	"time"

	"admissions-wizard/internal/common/config"
	"admissions-wizard/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobHandler completes or fails the job itself.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// StartWorker opens a job worker for taskType. It returns nil when the
// worker is disabled in config.
func StartWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler JobHandler, log logger.Logger) worker.JobWorker {
	fields := map[string]interface{}{"taskType": taskType}
	if !wcfg.Enabled {
		log.Info("worker disabled", fields)
		return nil
	}

	maxJobs := wcfg.MaxJobsActive
	if maxJobs <= 0 {
		maxJobs = 32
	}
	timeout := time.Duration(wcfg.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(handler.Handle).
		MaxJobsActive(maxJobs).
		Timeout(timeout).
		Open()

	fields["maxJobsActive"] = maxJobs
	fields["timeout_ms"] = timeout.Milliseconds()
	log.Info("worker started", fields)
	return jobWorker
}
