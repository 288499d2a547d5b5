package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/anujpatel512/bias-lens/api"
	"github.com/anujpatel512/bias-lens/config"
	"github.com/anujpatel512/bias-lens/kafka"
	"github.com/anujpatel512/bias-lens/pipeline"
)

func main() {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := config.FromEnv()
	if cfg.OpenAIAPIKey == "" {
		log.Fatal("OPENAI_API_KEY is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, cleanup, err := pipeline.Build(ctx, cfg, false)
	if err != nil {
		log.Fatalf("Failed to wire pipeline: %v", err)
	}
	defer cleanup()

	if len(cfg.KafkaBrokers) > 0 {
		consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			GroupID: cfg.KafkaGroupID,
			Handler: pipeline.NewIngestedHandler(p),
		})
		if err != nil {
			log.Fatalf("Failed to create Kafka consumer: %v", err)
		}
		if err := consumer.Start(ctx); err != nil {
			log.Fatalf("Failed to start Kafka consumer: %v", err)
		}
		defer consumer.Close()
	} else {
		log.Println("KAFKA_BROKERS not set; event-driven scoring disabled")
	}

	addr := ":" + cfg.Port
	r := api.NewRouter(p, p.Articles)
	log.Printf("Starting API server on %s", addr)
	log.Println("API endpoints available:")
	log.Println("  GET  /api/health")
	log.Println("  POST /api/ingest/run")
	log.Println("  POST /api/scoring/run")
	log.Println("  POST /api/clustering/run")
	log.Println("  GET  /api/clusters")
	log.Println("  GET  /api/articles")
	log.Println("  GET  /api/articles/:id/assessment")

	server := &http.Server{Addr: addr, Handler: r}
	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		_ = server.Shutdown(context.Background())
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
