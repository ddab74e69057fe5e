package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"traffic-safety-chatbot/internal/telemetry"
	"traffic-safety-chatbot/services"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"
)

// GeminiClient wraps the Google Generative AI SDK with a circuit breaker
// and a client-side rate limiter. It serves both collaborator boundaries
// of the core: text embedding and answer generation.
type GeminiClient struct {
	client          *genai.Client
	breaker         *gobreaker.CircuitBreaker
	rateLimiter     *rate.Limiter
	generationModel string
	embeddingModel  string
	metrics         *telemetry.Metrics
}

type RateLimits struct {
	RPM int // Requests per minute
	TPM int // Tokens per minute
	RPD int // Requests per day
}

// NewGeminiClient creates a Gemini client for the given API tier.
// metrics may be nil.
func NewGeminiClient(ctx context.Context, apiKey, generationModel, embeddingModel, tier string, metrics *telemetry.Metrics) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	limits := getRateLimits(tier)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s: %s -> %s", name, from, to)
			if metrics != nil {
				metrics.RecordCircuitBreakerState(name, to.String())
			}
			if to == gobreaker.StateOpen {
				log.Printf("ALERT: Gemini API circuit breaker opened - service degraded")
			}
		},
	})

	// RPM limit with some buffer
	rateLimiter := rate.NewLimiter(rate.Limit(float64(limits.RPM)*0.9/60.0), limits.RPM/10)

	return &GeminiClient{
		client:          client,
		breaker:         breaker,
		rateLimiter:     rateLimiter,
		generationModel: generationModel,
		embeddingModel:  embeddingModel,
		metrics:         metrics,
	}, nil
}

func getRateLimits(tier string) RateLimits {
	switch tier {
	case "free":
		return RateLimits{RPM: 10, TPM: 250000, RPD: 250}
	case "tier1":
		return RateLimits{RPM: 1000, TPM: 1000000, RPD: 10000}
	case "tier2":
		return RateLimits{RPM: 2000, TPM: 4000000, RPD: 50000}
	default:
		return RateLimits{RPM: 10, TPM: 250000, RPD: 250}
	}
}

// EmbedText returns the embedding vector for one text. Rate-limit and
// availability failures come back as *services.TransientError so the
// embedding retry policy can act on them.
func (gc *GeminiClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.embed_content")
	defer span.End()

	span.SetAttributes(
		attribute.String("gemini.model", gc.embeddingModel),
		attribute.Int("gemini.text_length", len(text)),
	)

	if err := gc.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := gc.breaker.Execute(func() (interface{}, error) {
		model := gc.client.EmbeddingModel(gc.embeddingModel)
		resp, err := model.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return nil, err
		}
		if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
			return nil, fmt.Errorf("no embedding returned")
		}
		return resp.Embedding.Values, nil
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("gemini.error", true))
		return nil, classifyError(err)
	}

	span.SetAttributes(attribute.Bool("gemini.success", true))
	return result.([]float32), nil
}

// GenerateAnswer produces a text completion for the assembled prompt.
func (gc *GeminiClient) GenerateAnswer(ctx context.Context, prompt string) (string, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.generate_content")
	defer span.End()

	span.SetAttributes(
		attribute.String("gemini.model", gc.generationModel),
		attribute.Int("gemini.prompt_length", len(prompt)),
	)

	if err := gc.rateLimiter.Wait(ctx); err != nil {
		return "", err
	}

	result, err := gc.breaker.Execute(func() (interface{}, error) {
		model := gc.client.GenerativeModel(gc.generationModel)
		model.SetTemperature(0.7)
		model.SetTopP(0.5)
		model.SetTopK(10)
		model.SetMaxOutputTokens(1800)

		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return nil, err
		}
		return extractResponseText(resp)
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("gemini.error", true))
		return "", classifyError(err)
	}

	span.SetAttributes(attribute.Bool("gemini.success", true))
	return result.(string), nil
}

// extractResponseText pulls the text parts out of a generation response.
func extractResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no candidates in response")
	}

	text := ""
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text += string(t)
		}
	}

	if text == "" {
		return "", fmt.Errorf("empty response text")
	}

	return text, nil
}

// classifyError wraps retryable failures in *services.TransientError.
// Everything else propagates unchanged.
func classifyError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &services.TransientError{Err: err}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429, 500, 502, 503, 504:
			return &services.TransientError{Err: err}
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &services.TransientError{Err: err}
	}

	return err
}

// Close the client
func (gc *GeminiClient) Close() error {
	if gc.client != nil {
		return gc.client.Close()
	}
	return nil
}
