package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/findet/internal/config"
	"github.com/OFFIS-RIT/findet/internal/pipeline"
	"github.com/OFFIS-RIT/findet/internal/queue"
	"github.com/OFFIS-RIT/findet/internal/storage"
	"github.com/OFFIS-RIT/findet/pkg/leaselock"
	"github.com/OFFIS-RIT/findet/pkg/logger"
	"github.com/OFFIS-RIT/findet/pkg/logger/console"
	pgstore "github.com/OFFIS-RIT/findet/pkg/store/pgx"

	s3loader "github.com/OFFIS-RIT/findet/pkg/loader/s3"
	s3store "github.com/OFFIS-RIT/findet/pkg/store/s3"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{Prefix: "worker"}))

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", "err", err)
	}
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  cfg.Debug,
		JSON:   !cfg.Debug,
		Prefix: "worker",
	}))

	p, err := pipeline.New(ctx, cfg)
	if err != nil {
		logger.Fatal("Could not create extraction pipeline", "err", err)
	}
	defer p.Close()

	// Init s3 client
	s3Client, err := storage.NewS3Client(ctx, cfg.S3)
	if err != nil {
		logger.Fatal("Could not create S3 client", "err", err)
	}

	handler := &queue.ExtractHandler{
		Pipeline: p,
		Texts:    s3loader.NewS3GraphFileLoaderWithClient(cfg.S3.Bucket, s3Client),
		Graphs:   s3store.NewGraphS3Storage(cfg.S3.Bucket, s3Client),
	}

	// Optional relational copy of every finished graph
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Unable to connect to database", "err", err)
		}
		defer pool.Close()

		db := pgstore.NewGraphDBStorageWithConnection(pool)
		if err := db.EnsureSchema(ctx); err != nil {
			logger.Fatal("Unable to create graph tables", "err", err)
		}
		handler.Archive = db

		host, _ := os.Hostname()
		locks := leaselock.New(pool, leaselock.Options{TTL: 2 * time.Minute, Owner: host + ":"})
		if err := locks.EnsureSchema(ctx); err != nil {
			logger.Fatal("Unable to create lease table", "err", err)
		}
		handler.Locks = locks
	}

	// Init rabbitmq
	conn, err := queue.Init(ctx, cfg.RabbitMQ.URL(), 10)
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, []string{queue.ExtractQueue}); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}
	handler.Publisher = ch

	// One message at a time; a job already runs its chunks in parallel.
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	if err := consumerCh.Qos(1, 0, false); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := consumerCh.Consume(
		queue.ExtractQueue,
		"extract_queue_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queue.ExtractQueue, "err", err)
	}

	logger.Info("Listening for messages", "queue", queue.ExtractQueue)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received, exiting...")
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("Message channel closed", "queue", queue.ExtractQueue)
				return
			}

			startTime := time.Now()
			logger.Info("Received message", "queue", queue.ExtractQueue)

			if err := handler.Handle(ctx, msg.Body); err != nil {
				logger.Error("Error processing message", "queue", queue.ExtractQueue, "err", err)
				queue.HandleProcessingError(ctx, ch, msg, queue.ExtractQueue)
			} else {
				if err := msg.Ack(false); err != nil {
					logger.Error("Failed to ack message", "err", err)
				}
				logger.Info("Message processed successfully", "queue", queue.ExtractQueue)
			}

			pipeline.LogMetrics(p.AI)
			logger.Info("Processing time", "duration", pipeline.FormatDuration(time.Since(startTime)))
			logger.Info("Waiting for next message")
		}
	}
}
