/**
 * Job payloads shared by both queue backends
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/adverant/nexus/electoralroll-worker/internal/errors"
	"github.com/adverant/nexus/electoralroll-worker/internal/logging"
	"github.com/adverant/nexus/electoralroll-worker/internal/processor"
)

// Task types for the asynq backend
const (
	TaskCover  = "roll:cover"
	TaskTables = "roll:tables"
)

// DefaultProcessingTimeout applies when no timeout is configured
const DefaultProcessingTimeout = 300000 * time.Millisecond

// JobPayload is the queued description of one roll job
type JobPayload struct {
	JobID     string `json:"jobId"`
	Kind      string `json:"kind"`
	FilePath  string `json:"filePath"`
	FileName  string `json:"fileName,omitempty"`
	AC        int    `json:"ac,omitempty"`
	FirstPage int    `json:"firstPage,omitempty"`
	LastPage  int    `json:"lastPage,omitempty"`
}

// Validate checks the fields every job needs. A missing JobID is filled in.
func (p *JobPayload) Validate() error {
	if p.FilePath == "" {
		return fmt.Errorf("filePath is required")
	}
	if p.Kind != processor.KindCover && p.Kind != processor.KindTables {
		return fmt.Errorf("unknown job kind %q", p.Kind)
	}
	if p.JobID == "" {
		p.JobID = uuid.NewString()
	}
	return nil
}

// Request converts the payload into a processor request
func (p *JobPayload) Request() *processor.ProcessRequest {
	return &processor.ProcessRequest{
		JobID:     p.JobID,
		Kind:      p.Kind,
		FilePath:  p.FilePath,
		FileName:  p.FileName,
		AC:        p.AC,
		FirstPage: p.FirstPage,
		LastPage:  p.LastPage,
	}
}

// TaskType is the asynq task type for the payload kind
func (p *JobPayload) TaskType() string {
	if p.Kind == processor.KindTables {
		return TaskTables
	}
	return TaskCover
}

func decodePayload(data []byte) (*JobPayload, error) {
	var p JobPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job data: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func timeoutOrDefault(ms int64) time.Duration {
	if ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return DefaultProcessingTimeout
}

// runJob processes one job under the configured timeout and records the
// terminal status. It returns the processor error, converted to a timeout
// error when the deadline was hit.
func runJob(ctx context.Context, proc processor.RollProcessorInterface, job *JobPayload, timeout time.Duration, log *logging.Logger) (*processor.ProcessResult, error) {
	startTime := time.Now()
	log.Info(fmt.Sprintf("[Job %s] Processing timeout set to: %v", job.JobID, timeout))

	processCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := proc.ProcessJob(processCtx, job.Request())
	duration := time.Since(startTime)

	if err != nil {
		if processCtx.Err() == context.DeadlineExceeded {
			log.Error(fmt.Sprintf("[Job %s] Processing timed out after %v", job.JobID, duration), "timeout", timeout)
			err = errors.NewProcessingTimeoutError(job.JobID, timeout, err)
		} else {
			log.Error(fmt.Sprintf("[Job %s] Processing failed after %v", job.JobID, duration), "error", err)
		}

		md := map[string]interface{}{
			"kind":           job.Kind,
			"error":          err.Error(),
			"processingTime": duration.Milliseconds(),
		}
		if code, ok := errors.CodeOf(err); ok {
			md["errorCode"] = string(code)
		}
		if updateErr := proc.UpdateJobStatus(ctx, job.JobID, "failed", 100, md); updateErr != nil {
			log.Warn(fmt.Sprintf("[Job %s] Failed to update status to failed", job.JobID), "error", updateErr)
		}
		return nil, err
	}

	md := result.Metadata()
	md["kind"] = job.Kind
	if err := proc.UpdateJobStatus(ctx, job.JobID, "completed", 100, md); err != nil {
		log.Warn(fmt.Sprintf("[Job %s] Failed to update status to completed", job.JobID), "error", err)
	}

	log.Info(fmt.Sprintf("[Job %s] Processing completed in %v", job.JobID, duration),
		"pagesFailed", len(result.Failures))
	return result, nil
}
