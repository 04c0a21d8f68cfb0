package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oceanobs/sst-server/internal/database"
	"github.com/oceanobs/sst-server/internal/ingest"
	"github.com/oceanobs/sst-server/internal/observability"
	"github.com/oceanobs/sst-server/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting SST observation ingester...")
	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	if err := db.RunMigrations("migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	if err := ingest.CreateTopic(
		cfg.Kafka.Brokers,
		cfg.Kafka.TopicObservations,
		cfg.Kafka.NumPartitions,
		1, // replication factor
	); err != nil {
		fmt.Printf("Note: Topic creation failed (may already exist): %v\n", err)
	}

	consumer := ingest.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicObservations, cfg.Kafka.GroupID)
	defer consumer.Close()
	fmt.Println("Kafka consumer created (registering with broker...)")

	metrics := observability.NewMetrics()

	writer := ingest.NewObservationWriter(consumer, db, metrics, cfg.Ingest.BatchSize, cfg.Ingest.FlushInterval)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	writer.Start(ctx)
	fmt.Println("Observation writer started")

	// Print consumer stats periodically
	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			stats := consumer.Stats()
			fmt.Printf("Consumer stats: Messages=%d, Bytes=%d, Errors=%d\n",
				stats.Messages, stats.Bytes, stats.Errors)
		}
	}()

	fmt.Println("\n✓ SST observation ingester is running")
	fmt.Println("✓ Consuming from Kafka and writing to PostgreSQL")
	fmt.Printf("✓ Batch size: %d messages | Flush interval: %s\n", cfg.Ingest.BatchSize, cfg.Ingest.FlushInterval)
	fmt.Println("✓ Press Ctrl+C to stop")
	fmt.Println("\nWaiting for observations...")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
	writer.Stop()
	cancel()
	fmt.Println("SST observation ingester stopped")
}
