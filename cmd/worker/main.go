package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wsmontes/linkchart/internal/queue"
	"github.com/wsmontes/linkchart/internal/storage"
	"github.com/wsmontes/linkchart/internal/util"
	"github.com/wsmontes/linkchart/pkg/logger"
	"github.com/wsmontes/linkchart/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	// Init s3 client
	settings := storage.SettingsFromEnv()
	client, err := storage.NewS3Client(ctx, settings)
	if err != nil {
		logger.Fatal("Failed to create S3 client", "err", err)
	}

	// Init graph store
	db, err := storage.OpenDatabase(ctx, util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer db.Close()

	// Init rabbitmq
	conn, err := queue.Dial(ctx, queue.URLFromEnv())
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, []string{queue.ImportQueue}); err != nil {
		logger.Fatal("Failed to declare queues", "err", err)
	}

	// prefetch=1: one import at a time per worker
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	if err := consumerCh.Qos(1, 0, false); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	processor := queue.NewProcessor(queue.NewProcessorParams{
		Objects:   client,
		Bucket:    settings.Bucket,
		Store:     db.Store,
		Locks:     db.Locker(),
		Publisher: ch,
		LeaseTTL:  util.GetEnvDuration("LEASE_TTL", queue.DefaultLeaseTTL),
	})

	msgs, err := consumerCh.Consume(
		queue.ImportQueue,
		queue.ImportQueue+"_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queue.ImportQueue, "err", err)
	}

	logger.Info("Listening for messages", "queue", queue.ImportQueue)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received, exiting...")
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("Message channel closed", "queue", queue.ImportQueue)
				return
			}
			startTime := time.Now()
			logger.Info("Received message", "queue", queue.ImportQueue)

			if err := processor.ProcessImportMessage(ctx, msg.Body); err != nil {
				logger.Error("Error processing message", "queue", queue.ImportQueue, "err", err)
				queue.HandleProcessingError(ctx, ch, msg, queue.ImportQueue, err)
			} else {
				if err := msg.Ack(false); err != nil {
					logger.Error("Failed to ack message", "err", err)
				}
				logger.Info("Message processed successfully", "queue", queue.ImportQueue)
			}

			processingDuration := time.Since(startTime)
			hours := int(processingDuration.Hours())
			minutes := int(processingDuration.Minutes()) % 60
			seconds := int(processingDuration.Seconds()) % 60
			logger.Info(
				"Processing time",
				"duration", fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds),
			)
			logger.Info("Waiting for next message")
		}
	}
}
