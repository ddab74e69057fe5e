package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"traffic-safety-chatbot/models"
	"traffic-safety-chatbot/utils"

	"github.com/redis/go-redis/v9"
)

// brotliPrefix marks a compressed turn payload in Redis.
const brotliPrefix = "br:"

// RedisConversationStore keeps each identity's log in a Redis list, so
// per-session memory survives process restarts and is visible to worker
// processes. Capacity is enforced with LTRIM on every append; large turn
// payloads are brotli-compressed before storage.
type RedisConversationStore struct {
	client *redis.Client
	cap    int
	ttl    time.Duration
}

// NewRedisConversationStore creates a Redis-backed store. cap bounds each
// identity's list; ttl is refreshed on every append.
func NewRedisConversationStore(client *redis.Client, cap int, ttl time.Duration) *RedisConversationStore {
	if cap <= 0 {
		cap = 20
	}
	return &RedisConversationStore{client: client, cap: cap, ttl: ttl}
}

func (s *RedisConversationStore) Append(ctx context.Context, identity string, turn models.ConversationTurn) error {
	payload, err := encodeTurn(turn)
	if err != nil {
		return err
	}

	key := redisHistoryKey(identity)

	// RPUSH + LTRIM in one pipeline keeps the list at the cap without a
	// read-modify-write cycle.
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.LTrim(ctx, key, int64(-s.cap), -1)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append conversation turn: %w", err)
	}
	return nil
}

func (s *RedisConversationStore) Recent(ctx context.Context, identity string, n int) ([]models.ConversationTurn, error) {
	if n <= 0 {
		return s.History(ctx, identity)
	}
	return s.rangeTurns(ctx, identity, int64(-n), -1)
}

func (s *RedisConversationStore) History(ctx context.Context, identity string) ([]models.ConversationTurn, error) {
	return s.rangeTurns(ctx, identity, 0, -1)
}

func (s *RedisConversationStore) Clear(ctx context.Context, identity string) error {
	// DEL on a missing key is a no-op, which keeps Clear idempotent.
	if err := s.client.Del(ctx, redisHistoryKey(identity)).Err(); err != nil {
		return fmt.Errorf("failed to clear conversation history: %w", err)
	}
	return nil
}

func (s *RedisConversationStore) rangeTurns(ctx context.Context, identity string, start, stop int64) ([]models.ConversationTurn, error) {
	payloads, err := s.client.LRange(ctx, redisHistoryKey(identity), start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation history: %w", err)
	}

	turns := make([]models.ConversationTurn, 0, len(payloads))
	for _, payload := range payloads {
		turn, err := decodeTurn(payload)
		if err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func redisHistoryKey(identity string) string {
	return "history:" + identity
}

// encodeTurn serializes a turn to JSON, brotli-compressing payloads large
// enough to be worth it.
func encodeTurn(turn models.ConversationTurn) (string, error) {
	raw, err := json.Marshal(turn)
	if err != nil {
		return "", fmt.Errorf("failed to marshal conversation turn: %w", err)
	}

	compressed, algorithm, err := utils.CompressText(string(raw))
	if err != nil {
		return "", err
	}
	if algorithm == utils.CompressionNone {
		return string(raw), nil
	}

	return brotliPrefix + base64.StdEncoding.EncodeToString(compressed), nil
}

func decodeTurn(payload string) (models.ConversationTurn, error) {
	var turn models.ConversationTurn

	raw := payload
	if strings.HasPrefix(payload, brotliPrefix) {
		compressed, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(payload, brotliPrefix))
		if err != nil {
			return turn, fmt.Errorf("failed to decode conversation turn: %w", err)
		}
		raw, err = utils.DecompressText(compressed, utils.CompressionBrotli)
		if err != nil {
			return turn, err
		}
	}

	if err := json.Unmarshal([]byte(raw), &turn); err != nil {
		return turn, fmt.Errorf("failed to unmarshal conversation turn: %w", err)
	}
	return turn, nil
}
