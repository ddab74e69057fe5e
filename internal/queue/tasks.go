package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"traffic-safety-chatbot/services"
)

const (
	TaskExportHistory = "history:export"
)

type ExportHistoryPayload struct {
	Identity string `json:"identity"`
	Format   string `json:"format"` // "json" or "excel"
}

// NewExportHistoryTask enqueueable task rendering one identity's stored
// conversation history to a file. The Redis conversation store is shared
// state, so a worker process sees the same logs as the daemon.
func NewExportHistoryTask(identity, format string) (*asynq.Task, error) {
	payload, err := json.Marshal(ExportHistoryPayload{
		Identity: identity,
		Format:   format,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskExportHistory,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
		asynq.Queue("default"),
	), nil
}

// TaskProcessor handles background tasks against the shared stores.
type TaskProcessor struct {
	exporter *services.ExportService
}

func NewTaskProcessor(exporter *services.ExportService) *TaskProcessor {
	return &TaskProcessor{exporter: exporter}
}

func (p *TaskProcessor) HandleExportHistory(ctx context.Context, t *asynq.Task) error {
	var payload ExportHistoryPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	format := services.ExportFormat(payload.Format)
	if format != services.ExportJSON && format != services.ExportExcel {
		log.Printf("Rejecting export task with unknown format %q", payload.Format)
		return asynq.SkipRetry
	}

	path, err := p.exporter.Export(ctx, payload.Identity, format)
	if err != nil {
		return err // Will retry
	}

	log.Printf("Exported history for %s to %s", payload.Identity, path)
	return nil
}
