/**
 * Queue Consumer for the electoral roll worker
 *
 * Consumes roll:cover and roll:tables tasks through asynq.
 */

package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/adverant/nexus/electoralroll-worker/internal/errors"
	"github.com/adverant/nexus/electoralroll-worker/internal/logging"
	"github.com/adverant/nexus/electoralroll-worker/internal/processor"
)

// Consumer handles task consumption from the asynq queue
type Consumer struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor processor.RollProcessorInterface
	config    *ConsumerConfig
	logger    *logging.Logger
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	RedisURL          string
	QueueName         string
	Concurrency       int
	Processor         processor.RollProcessorInterface
	ProcessingTimeout int64 // milliseconds
	Logger            *logging.Logger
}

// NewConsumer creates a new queue consumer
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}
	if cfg.Processor == nil {
		return nil, fmt.Errorf("Processor is required")
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewLogger("[Consumer]")
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				cfg.QueueName: 10,
				"default":     1,
			},
			// 5s, 10s, 20s ... capped at a minute
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				delay := time.Duration(5*(1<<uint(n))) * time.Second
				if delay > 60*time.Second {
					delay = 60 * time.Second
				}
				return delay
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task processing error", "type", task.Type(), "payload", string(task.Payload()), "error", err)
			}),
		},
	)

	consumer := newConsumer(cfg, logger)
	consumer.server = server
	return consumer, nil
}

func newConsumer(cfg *ConsumerConfig, logger *logging.Logger) *Consumer {
	c := &Consumer{
		mux:       asynq.NewServeMux(),
		processor: cfg.Processor,
		config:    cfg,
		logger:    logger,
	}
	c.mux.HandleFunc(TaskCover, c.handleRollTask)
	c.mux.HandleFunc(TaskTables, c.handleRollTask)
	return c
}

// Start starts the queue consumer
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("Starting queue consumer", "concurrency", c.config.Concurrency, "queue", c.config.QueueName)
	if err := c.server.Start(c.mux); err != nil {
		return fmt.Errorf("failed to start queue consumer: %w", err)
	}
	return nil
}

// Stop stops the queue consumer gracefully
func (c *Consumer) Stop(ctx context.Context) error {
	c.logger.Info("Stopping queue consumer...")
	c.server.Shutdown()
	c.logger.Info("Queue consumer stopped")
	return nil
}

// handleRollTask processes one cover or tables task. Structural failures
// skip retry; nothing about the input changes between attempts.
func (c *Consumer) handleRollTask(ctx context.Context, task *asynq.Task) error {
	job, err := decodePayload(task.Payload())
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if job.TaskType() != task.Type() {
		return fmt.Errorf("task type %s does not match kind %q: %w", task.Type(), job.Kind, asynq.SkipRetry)
	}

	c.logger.Info(fmt.Sprintf("[Job %s] Processing %s task", job.JobID, job.Kind), "file", job.FilePath)

	if _, err := runJob(ctx, c.processor, job, timeoutOrDefault(c.config.ProcessingTimeout), c.logger); err != nil {
		if errors.IsStructural(err) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("roll processing failed: %w", err)
	}
	return nil
}

// GetStatistics returns consumer statistics
func (c *Consumer) GetStatistics() map[string]interface{} {
	return map[string]interface{}{
		"concurrency": c.config.Concurrency,
		"queue":       c.config.QueueName,
	}
}
