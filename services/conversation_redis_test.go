package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"traffic-safety-chatbot/models"

	"github.com/redis/go-redis/v9"
)

func newTestRedisStore(t *testing.T, cap int) *RedisConversationStore {
	t.Helper()

	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return NewRedisConversationStore(client, cap, time.Minute)
}

func TestRedisStoreFIFOEviction(t *testing.T) {
	store := newTestRedisStore(t, 20)
	ctx := context.Background()
	identity := fmt.Sprintf("test-%d", time.Now().UnixNano())
	defer store.Clear(ctx, identity)

	for i := 1; i <= 25; i++ {
		if err := store.Append(ctx, identity, turn(models.RoleUser, fmt.Sprintf("turn-%d", i))); err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
	}

	history, err := store.History(ctx, identity)
	if err != nil {
		t.Fatalf("history error: %v", err)
	}
	if len(history) != 20 {
		t.Fatalf("expected cap of 20 turns, got %d", len(history))
	}
	if history[0].Content != "turn-6" || history[19].Content != "turn-25" {
		t.Fatalf("wrong retained range: %q .. %q", history[0].Content, history[19].Content)
	}
}

func TestRedisStoreCompressedRoundTrip(t *testing.T) {
	store := newTestRedisStore(t, 20)
	ctx := context.Background()
	identity := fmt.Sprintf("test-%d", time.Now().UnixNano())
	defer store.Clear(ctx, identity)

	// Above the compression threshold, so the payload goes through brotli.
	long := strings.Repeat("an toàn giao thông ", 100)
	if err := store.Append(ctx, identity, turn(models.RoleAssistant, long)); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	history, err := store.History(ctx, identity)
	if err != nil {
		t.Fatalf("history error: %v", err)
	}
	if len(history) != 1 || history[0].Content != long {
		t.Fatal("compressed turn did not round-trip")
	}
}

func TestRedisStoreClearIdempotent(t *testing.T) {
	store := newTestRedisStore(t, 20)
	ctx := context.Background()
	identity := fmt.Sprintf("test-%d", time.Now().UnixNano())

	store.Append(ctx, identity, turn(models.RoleUser, "hello"))

	if err := store.Clear(ctx, identity); err != nil {
		t.Fatalf("clear error: %v", err)
	}
	if err := store.Clear(ctx, identity); err != nil {
		t.Fatalf("second clear must be a no-op, got: %v", err)
	}

	history, err := store.History(ctx, identity)
	if err != nil {
		t.Fatalf("history error: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history after clear, got %d turns", len(history))
	}
}

func TestEncodeTurnRoundTripWithoutRedis(t *testing.T) {
	// The codec itself needs no server.
	cases := []models.ConversationTurn{
		turn(models.RoleUser, "ngắn"),
		turn(models.RoleAssistant, strings.Repeat("biển báo cấm ", 200)),
	}

	for _, in := range cases {
		payload, err := encodeTurn(in)
		if err != nil {
			t.Fatalf("encode error: %v", err)
		}
		out, err := decodeTurn(payload)
		if err != nil {
			t.Fatalf("decode error: %v", err)
		}
		if out.Role != in.Role || out.Content != in.Content {
			t.Fatalf("round-trip mismatch: got %+v", out)
		}
	}
}
