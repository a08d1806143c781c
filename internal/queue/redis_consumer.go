/**
 * Direct Redis Queue Consumer for the electoral roll worker
 *
 * Plain LIST protocol: job IDs are pushed to <queue>, job bodies live in the
 * <queue>:data hash, and status is tracked in sets with events published on
 * <queue>:events.
 */

package queue

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/redis/go-redis/v9"

	"github.com/adverant/nexus/electoralroll-worker/internal/errors"
	"github.com/adverant/nexus/electoralroll-worker/internal/logging"
	"github.com/adverant/nexus/electoralroll-worker/internal/processor"
)

var errNoJobs = stderrors.New("no jobs available")

// RedisJobData represents a job from the Redis queue
type RedisJobData struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Payload    JobPayload `json:"payload"`
	CreatedAt  time.Time  `json:"createdAt"`
	Attempts   int        `json:"attempts"`
	MaxRetries int        `json:"maxRetries"`
}

// retryable reports whether the job should go back on the queue after err.
func (j *RedisJobData) retryable(err error) bool {
	return !errors.IsStructural(err) && j.Attempts < j.MaxRetries
}

// queueKeys names the Redis keys derived from the queue name
type queueKeys struct {
	list, data, processing, completed, failed, results, errors, events string
}

func keysFor(queue string) queueKeys {
	return queueKeys{
		list:       queue,
		data:       queue + ":data",
		processing: queue + ":processing",
		completed:  queue + ":completed",
		failed:     queue + ":failed",
		results:    queue + ":results",
		errors:     queue + ":errors",
		events:     queue + ":events",
	}
}

// RedisConsumer handles job consumption from Redis queue
type RedisConsumer struct {
	client    *redis.Client
	processor processor.RollProcessorInterface
	config    *RedisConsumerConfig
	keys      queueKeys
	logger    *logging.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// RedisConsumerConfig holds consumer configuration
type RedisConsumerConfig struct {
	RedisURL          string
	QueueName         string
	Concurrency       int
	Processor         processor.RollProcessorInterface
	ProcessingTimeout int64 // milliseconds
	Logger            *logging.Logger
}

// NewRedisConsumer creates a new Redis-based queue consumer
func NewRedisConsumer(cfg *RedisConsumerConfig) (*RedisConsumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if cfg.QueueName == "" {
		cfg.QueueName = "electoralroll:jobs"
	}
	if cfg.Processor == nil {
		return nil, fmt.Errorf("Processor is required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewLogger("[RedisConsumer]")
	}

	err = retry.Do(
		func() error { return client.Ping(context.Background()).Err() },
		retry.Attempts(5),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("Redis not reachable, retrying", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	consumerCtx, cancel := context.WithCancel(context.Background())

	return &RedisConsumer{
		client:    client,
		processor: cfg.Processor,
		config:    cfg,
		keys:      keysFor(cfg.QueueName),
		logger:    logger,
		ctx:       consumerCtx,
		cancel:    cancel,
	}, nil
}

// Start begins processing jobs from the queue
func (c *RedisConsumer) Start() error {
	c.logger.Info("Starting Redis queue consumer", "concurrency", c.config.Concurrency, "queue", c.config.QueueName)
	for i := 0; i < c.config.Concurrency; i++ {
		c.wg.Add(1)
		go c.worker(i)
	}
	return nil
}

// Stop gracefully stops the consumer. In-flight jobs finish first.
func (c *RedisConsumer) Stop() error {
	c.logger.Info("Stopping queue consumer...")
	c.cancel()
	c.wg.Wait()
	return c.client.Close()
}

func (c *RedisConsumer) worker(id int) {
	defer c.wg.Done()
	c.logger.Debug("Worker started", "worker", id)

	for {
		select {
		case <-c.ctx.Done():
			c.logger.Debug("Worker stopping", "worker", id)
			return
		default:
			if err := c.processNextJob(); err != nil {
				if !stderrors.Is(err, errNoJobs) && c.ctx.Err() == nil {
					c.logger.Warn("Worker error", "worker", id, "error", err)
					time.Sleep(1 * time.Second)
				}
			}
		}
	}
}

// processNextJob fetches and processes the next job from the queue
func (c *RedisConsumer) processNextJob() error {
	result, err := c.client.BRPop(c.ctx, 5*time.Second, c.keys.list).Result()
	if err != nil {
		if err == redis.Nil {
			return errNoJobs
		}
		return fmt.Errorf("failed to fetch job: %w", err)
	}
	if len(result) < 2 {
		return fmt.Errorf("invalid job result")
	}

	id := result[1]
	raw, err := c.client.HGet(c.ctx, c.keys.data, id).Result()
	if err != nil {
		return fmt.Errorf("failed to get job data: %w", err)
	}

	var job RedisJobData
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return fmt.Errorf("failed to unmarshal job: %w", err)
	}
	if err := job.Payload.Validate(); err != nil {
		c.markFailed(job.Payload.JobID, map[string]interface{}{"error": err.Error()})
		return fmt.Errorf("invalid job %s: %w", id, err)
	}

	c.markProcessing(job.Payload.JobID)

	// Jobs run to completion even while Stop waits; only BRPop observes c.ctx.
	processResult, err := runJob(context.Background(), c.processor, &job.Payload, timeoutOrDefault(c.config.ProcessingTimeout), c.logger)
	if err != nil {
		job.Attempts++
		if job.retryable(err) {
			updated, _ := json.Marshal(job)
			c.client.HSet(c.ctx, c.keys.data, job.ID, updated)
			c.client.LPush(c.ctx, c.keys.list, job.ID)
			c.logger.Info(fmt.Sprintf("[Job %s] Re-queued for retry", job.Payload.JobID),
				"attempt", job.Attempts, "maxRetries", job.MaxRetries)
			return nil
		}
		c.markFailed(job.Payload.JobID, map[string]interface{}{
			"error":    err.Error(),
			"attempts": job.Attempts,
		})
		return nil
	}

	c.markCompleted(job.Payload.JobID, processResult.Metadata())
	return nil
}

func (c *RedisConsumer) markProcessing(jobID string) {
	c.client.SAdd(c.ctx, c.keys.processing, jobID)
	c.publish("processing", jobID)
}

func (c *RedisConsumer) markCompleted(jobID string, result map[string]interface{}) {
	c.client.SRem(c.ctx, c.keys.processing, jobID)
	c.client.SAdd(c.ctx, c.keys.completed, jobID)
	if data, err := json.Marshal(result); err == nil {
		c.client.HSet(c.ctx, c.keys.results, jobID, data)
	}
	c.publish("completed", jobID)
}

func (c *RedisConsumer) markFailed(jobID string, detail map[string]interface{}) {
	c.client.SRem(c.ctx, c.keys.processing, jobID)
	c.client.SAdd(c.ctx, c.keys.failed, jobID)
	if data, err := json.Marshal(detail); err == nil {
		c.client.HSet(c.ctx, c.keys.errors, jobID, data)
	}
	c.publish("failed", jobID)
}

// publish emits a job event for listeners on <queue>:events
func (c *RedisConsumer) publish(status, jobID string) {
	c.client.Publish(c.ctx, c.keys.events, jobEvent(status, jobID, time.Now()))
}

func jobEvent(status, jobID string, at time.Time) []byte {
	data, _ := json.Marshal(map[string]interface{}{
		"event":     "job:" + status,
		"jobId":     jobID,
		"timestamp": at.Format(time.RFC3339),
	})
	return data
}

// GetStats returns queue statistics
func (c *RedisConsumer) GetStats(ctx context.Context) (map[string]int64, error) {
	pipe := c.client.Pipeline()
	waiting := pipe.LLen(ctx, c.keys.list)
	processing := pipe.SCard(ctx, c.keys.processing)
	completed := pipe.SCard(ctx, c.keys.completed)
	failed := pipe.SCard(ctx, c.keys.failed)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to read queue stats: %w", err)
	}

	return map[string]int64{
		"waiting":    waiting.Val(),
		"processing": processing.Val(),
		"completed":  completed.Val(),
		"failed":     failed.Val(),
	}, nil
}
