package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// DefaultMaxRetry is how often a failed task is retried
const DefaultMaxRetry = 3

// Enqueuer submits roll jobs to the asynq queue
type Enqueuer struct {
	client    *asynq.Client
	queueName string
	maxRetry  int
}

// NewEnqueuer creates an enqueuer for queueName
func NewEnqueuer(redisURL, queueName string) (*Enqueuer, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if queueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}
	redisOpt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return &Enqueuer{
		client:    asynq.NewClient(redisOpt),
		queueName: queueName,
		maxRetry:  DefaultMaxRetry,
	}, nil
}

// NewTask builds the asynq task for a job. The payload is validated first.
func NewTask(job *JobPayload) (*asynq.Task, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}
	return asynq.NewTask(job.TaskType(), data), nil
}

// Enqueue submits one job. The job ID doubles as the task ID, so a job is
// never queued twice.
func (e *Enqueuer) Enqueue(ctx context.Context, job *JobPayload) (*asynq.TaskInfo, error) {
	task, err := NewTask(job)
	if err != nil {
		return nil, err
	}
	info, err := e.client.EnqueueContext(ctx, task,
		asynq.Queue(e.queueName),
		asynq.MaxRetry(e.maxRetry),
		asynq.TaskID(job.JobID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue job %s: %w", job.JobID, err)
	}
	return info, nil
}

// Close closes the client
func (e *Enqueuer) Close() error {
	return e.client.Close()
}
