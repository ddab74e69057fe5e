package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	IndexRebuilds       metric.Int64Counter
	RebuildDuration     metric.Float64Histogram
	EmbeddingRetries    metric.Int64Counter
	RetrievalRequests   metric.Int64Counter
	RetrievalDuration   metric.Float64Histogram
	TurnsRecorded       metric.Int64Counter
	CircuitBreakerState metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("traffic-safety-chatbot")

	indexRebuilds, err := meter.Int64Counter(
		"index.rebuilds.total",
		metric.WithDescription("Total index rebuild attempts"),
	)
	if err != nil {
		return nil, err
	}

	rebuildDuration, err := meter.Float64Histogram(
		"index.rebuild.duration",
		metric.WithDescription("Index rebuild duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	embeddingRetries, err := meter.Int64Counter(
		"embedding.retries.total",
		metric.WithDescription("Total embedding call retries"),
	)
	if err != nil {
		return nil, err
	}

	retrievalRequests, err := meter.Int64Counter(
		"retrieval.requests.total",
		metric.WithDescription("Total retrieval requests"),
	)
	if err != nil {
		return nil, err
	}

	retrievalDuration, err := meter.Float64Histogram(
		"retrieval.duration",
		metric.WithDescription("Retrieval duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	turnsRecorded, err := meter.Int64Counter(
		"conversation.turns.recorded",
		metric.WithDescription("Total conversation turns recorded"),
	)
	if err != nil {
		return nil, err
	}

	circuitBreakerState, err := meter.Int64Counter(
		"circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		IndexRebuilds:       indexRebuilds,
		RebuildDuration:     rebuildDuration,
		EmbeddingRetries:    embeddingRetries,
		RetrievalRequests:   retrievalRequests,
		RetrievalDuration:   retrievalDuration,
		TurnsRecorded:       turnsRecorded,
		CircuitBreakerState: circuitBreakerState,
	}, nil
}

// RecordRebuild records one index rebuild attempt and its duration
func (m *Metrics) RecordRebuild(duration float64, status string) {
	attrs := []attribute.KeyValue{
		attribute.String("index.status", status),
	}

	m.IndexRebuilds.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RebuildDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordEmbeddingRetry records one retried embedding attempt
func (m *Metrics) RecordEmbeddingRetry() {
	m.EmbeddingRetries.Add(context.Background(), 1)
}

// RecordRetrieval records retrieval request metrics
func (m *Metrics) RecordRetrieval(duration float64, status string) {
	attrs := []attribute.KeyValue{
		attribute.String("retrieval.status", status),
	}

	m.RetrievalRequests.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RetrievalDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordTurn records one conversation turn appended to a log
func (m *Metrics) RecordTurn(role string) {
	attrs := []attribute.KeyValue{
		attribute.String("turn.role", role),
	}

	m.TurnsRecorded.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordCircuitBreakerState records circuit breaker state changes
func (m *Metrics) RecordCircuitBreakerState(service, state string) {
	attrs := []attribute.KeyValue{
		attribute.String("service", service),
		attribute.String("state", state),
	}

	m.CircuitBreakerState.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}
