package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"traffic-safety-chatbot/internal/telemetry"

	"github.com/avast/retry-go/v4"
)

// EmbeddingClient is the external embedding service boundary. A transient
// failure (network, rate limit) must be reported as *TransientError so the
// retry policy can distinguish it from permanent errors.
type EmbeddingClient interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingService converts texts into vectors, retrying each transient
// failure up to a fixed budget with a fixed inter-attempt delay. The
// policy trades latency for simplicity: a flaky service degrades
// throughput but never yields an incomplete or misaligned vector set.
type EmbeddingService struct {
	client   EmbeddingClient
	attempts uint
	delay    time.Duration
	metrics  *telemetry.Metrics
}

// NewEmbeddingService creates an embedding service with the given retry
// budget. metrics may be nil.
func NewEmbeddingService(client EmbeddingClient, attempts uint, delay time.Duration, metrics *telemetry.Metrics) *EmbeddingService {
	if attempts == 0 {
		attempts = 5
	}
	return &EmbeddingService{
		client:   client,
		attempts: attempts,
		delay:    delay,
		metrics:  metrics,
	}
}

// EmbedTexts returns exactly one vector per input text, in input order.
// If any text cannot be embedded within the retry budget the whole batch
// fails with an *EmbeddingError; partial results are never returned.
func (es *EmbeddingService) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))

	for i, text := range texts {
		vec, err := es.embedOne(ctx, text)
		if err != nil {
			return nil, &EmbeddingError{Index: i, Err: err}
		}
		vectors = append(vectors, vec)
	}

	return vectors, nil
}

// EmbedQuery embeds a single query string with the same retry semantics.
func (es *EmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vec, err := es.embedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalUnavailable, err)
	}
	return vec, nil
}

func (es *EmbeddingService) embedOne(ctx context.Context, text string) ([]float32, error) {
	return retry.DoWithData(
		func() ([]float32, error) {
			return es.client.EmbedText(ctx, text)
		},
		retry.Context(ctx),
		retry.Attempts(es.attempts),
		retry.Delay(es.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsTransient),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("Warning: embedding attempt %d/%d failed: %v", n+1, es.attempts, err)
			if es.metrics != nil {
				es.metrics.RecordEmbeddingRetry()
			}
		}),
	)
}
