package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"swelter/internal/api"
	"swelter/internal/backends"
	"swelter/internal/config"
	"swelter/internal/cycle"
	"swelter/internal/pub"
	"swelter/internal/scheduler"
	"swelter/internal/secret"
	"swelter/internal/slack"
	"swelter/internal/store"
	"swelter/internal/weather"
)

func main() {
	// Load environment variables
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Info("The .env file not found.")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// The cipher and the weather key are fail-fast: without them no store or
	// fetch operation may be served.
	cipher, err := secret.FromEnv()
	if err != nil {
		log.Fatalf("Failed to load master key: %v", err)
	}

	httpClient := &http.Client{Timeout: cfg.CallTimeout}

	provider, err := weather.FromEnv(httpClient)
	if err != nil {
		log.Fatalf("Failed to configure weather provider: %v", err)
	}

	kv, err := backends.KVFromEnv()
	if err != nil {
		log.Fatalf("Failed to initialize key-value backend: %v", err)
	}

	configStore := store.New(kv, cipher)
	statusClient := slack.NewClient(httpClient)
	orch := cycle.NewOrchestrator(configStore, provider, statusClient, cfg)

	sched := scheduler.New(orch, cfg.FetchInterval)
	if cfg.SummaryTopicARN != "" {
		snsClient, err := pub.ClientFromEnv(context.Background())
		if err != nil {
			log.Fatalf("Failed to initialize SNS client: %v", err)
		}
		sched.WithSummaryPublisher(pub.NewSNS(snsClient), cfg.SummaryTopicARN)
	}
	if err := sched.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	handler := api.NewHandler(configStore, orch, cfg)
	stop, done := api.RunServerInterruptible(cfg.Addr(), handler)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sig:
		log.Info("Shutting down")
		close(stop)
		if err := <-done; err != nil {
			log.WithError(err).Error("server exited with error")
		}
	case err := <-done:
		if err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}
}
