package main

import (
	"context"
	"log"

	"traffic-safety-chatbot/internal/config"
	"traffic-safety-chatbot/internal/queue"
	"traffic-safety-chatbot/services"

	"github.com/hibiken/asynq"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// The worker reads conversation logs from the shared Redis store
	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	store := services.NewRedisConversationStore(rdb, cfg.HistoryCap, cfg.SessionTTL)
	exporter := services.NewExportService(store, cfg.ExportDir)

	// Redis options for Asynq
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	// Create Asynq server
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 3,
				"low":     1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("Task failed: %s, error: %v", task.Type(), err)
			}),
		},
	)

	// Create task processor
	processor := queue.NewTaskProcessor(exporter)

	// Create mux and register handlers
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskExportHistory, processor.HandleExportHistory)

	log.Println("Starting Asynq worker...")
	log.Printf("   Redis: %s", redisOpt.Addr)

	// Start the server
	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
