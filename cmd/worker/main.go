/**
 * Electoral Roll Worker - Main Entry Point
 *
 * Consumes cover and table jobs from Redis, runs the OCR passes and the
 * extraction engine, and persists records to PostgreSQL.
 *
 * Architecture:
 * - asynq or plain Redis LIST consumer, selected by QUEUE_BACKEND
 * - pdftoppm rendering + Tesseract (hin/eng) OCR
 * - Pattern extraction, crop reconciliation and table reconstruction
 * - PostgreSQL persistence (job status, page records, voter entries)
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adverant/nexus/electoralroll-worker/internal/config"
	"github.com/adverant/nexus/electoralroll-worker/internal/logging"
	"github.com/adverant/nexus/electoralroll-worker/internal/processor"
	"github.com/adverant/nexus/electoralroll-worker/internal/queue"
	"github.com/adverant/nexus/electoralroll-worker/internal/storage"
)

// consumer is the part of both queue backends main needs
type consumer interface {
	start() error
	stop() error
}

type asynqConsumer struct{ c *queue.Consumer }

func (a asynqConsumer) start() error { return a.c.Start(context.Background()) }
func (a asynqConsumer) stop() error  { return a.c.Stop(context.Background()) }

type redisConsumer struct{ c *queue.RedisConsumer }

func (r redisConsumer) start() error { return r.c.Start() }
func (r redisConsumer) stop() error  { return r.c.Stop() }

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.NewLogger("worker").Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Configure(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log := logging.NewLogger("worker")

	if err := cfg.ValidateWorker(); err != nil {
		log.Error("Invalid worker configuration", "error", err)
		os.Exit(1)
	}

	log.Info("Electoral roll worker starting...",
		"backend", cfg.QueueBackend,
		"queue", cfg.QueueName,
		"workers", cfg.WorkerConcurrency,
	)

	// Storage
	log.Info("Connecting to PostgreSQL...")
	storageManager, err := storage.NewStorageManager(cfg.DatabaseURL)
	if err != nil {
		log.Error("Failed to initialize storage manager", "error", err)
		os.Exit(1)
	}

	schemaCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = storageManager.EnsureSchema(schemaCtx)
	cancel()
	if err != nil {
		log.Error("Failed to apply schema", "error", err)
		os.Exit(1)
	}

	// Processor
	ocr, err := processor.NewTesseractOCR(&processor.TesseractConfig{
		HindiLang:   cfg.HindiLang,
		EnglishLang: cfg.EnglishLang,
		Logger:      logging.NewLogger("ocr"),
	})
	if err != nil {
		log.Error("Failed to initialize OCR", "error", err)
		os.Exit(1)
	}

	proc, err := processor.NewRollProcessor(&processor.ProcessorConfig{
		OCR:                ocr,
		Renderer:           processor.NewPDFRenderer(cfg.PDFToPPMPath, cfg.RenderDPI, cfg.TempDir),
		Store:              storageManager,
		Logger:             logging.NewLogger("processor"),
		RenderDPI:          cfg.RenderDPI,
		ContrastBoost:      cfg.ContrastBoost,
		TableFirstPage:     cfg.TableFirstPage,
		TableTrailingPages: cfg.TableTrailingPages,
		Concurrency:        cfg.WorkerConcurrency,
	})
	if err != nil {
		log.Error("Failed to initialize roll processor", "error", err)
		os.Exit(1)
	}

	// Queue
	qc, err := newConsumer(cfg, proc)
	if err != nil {
		log.Error("Failed to initialize queue consumer", "error", err)
		os.Exit(1)
	}
	if err := qc.start(); err != nil {
		log.Error("Failed to start queue consumer", "error", err)
		os.Exit(1)
	}
	log.Info("Electoral roll worker is ready, waiting for jobs...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal, initiating graceful shutdown...", "signal", sig.String())

	if err := qc.stop(); err != nil {
		log.Error("Error stopping queue consumer", "error", err)
	}
	if err := storageManager.Close(); err != nil {
		log.Error("Error closing storage manager", "error", err)
	}
	log.Info("Shutdown complete")
}

func newConsumer(cfg *config.Config, proc processor.RollProcessorInterface) (consumer, error) {
	if cfg.QueueBackend == config.BackendRedis {
		c, err := queue.NewRedisConsumer(&queue.RedisConsumerConfig{
			RedisURL:          cfg.RedisURL,
			QueueName:         cfg.QueueName,
			Concurrency:       cfg.WorkerConcurrency,
			Processor:         proc,
			ProcessingTimeout: int64(cfg.ProcessingTimeout),
			Logger:            logging.NewLogger("queue"),
		})
		if err != nil {
			return nil, err
		}
		return redisConsumer{c}, nil
	}

	c, err := queue.NewConsumer(&queue.ConsumerConfig{
		RedisURL:          cfg.RedisURL,
		QueueName:         cfg.QueueName,
		Concurrency:       cfg.WorkerConcurrency,
		Processor:         proc,
		ProcessingTimeout: int64(cfg.ProcessingTimeout),
		Logger:            logging.NewLogger("queue"),
	})
	if err != nil {
		return nil, err
	}
	return asynqConsumer{c}, nil
}
