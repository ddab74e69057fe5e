package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"traffic-safety-chatbot/models"
)

func turn(role, content string) models.ConversationTurn {
	return models.ConversationTurn{Role: role, Content: content, Timestamp: time.Now()}
}

func TestMemoryStoreFIFOEviction(t *testing.T) {
	store := NewMemoryConversationStore(20, time.Minute)
	ctx := context.Background()

	// Append 25 numbered turns; the log must retain exactly turns 6..25.
	for i := 1; i <= 25; i++ {
		if err := store.Append(ctx, "client-1", turn(models.RoleUser, fmt.Sprintf("turn-%d", i))); err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
	}

	history, err := store.History(ctx, "client-1")
	if err != nil {
		t.Fatalf("history error: %v", err)
	}
	if len(history) != 20 {
		t.Fatalf("expected cap of 20 turns, got %d", len(history))
	}
	for i, tr := range history {
		want := fmt.Sprintf("turn-%d", i+6)
		if tr.Content != want {
			t.Fatalf("position %d: got %q, want %q", i, tr.Content, want)
		}
	}
}

func TestMemoryStoreRecentWindow(t *testing.T) {
	store := NewMemoryConversationStore(20, time.Minute)
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		store.Append(ctx, "client-1", turn(models.RoleUser, fmt.Sprintf("turn-%d", i)))
	}

	recent, err := store.Recent(ctx, "client-1", 5)
	if err != nil {
		t.Fatalf("recent error: %v", err)
	}
	if len(recent) != 5 {
		t.Fatalf("expected window of 5 turns, got %d", len(recent))
	}
	if recent[0].Content != "turn-6" || recent[4].Content != "turn-10" {
		t.Fatalf("window has wrong turns: %q .. %q", recent[0].Content, recent[4].Content)
	}
}

func TestMemoryStoreClearIdempotent(t *testing.T) {
	store := NewMemoryConversationStore(20, time.Minute)
	ctx := context.Background()

	store.Append(ctx, "client-1", turn(models.RoleUser, "hello"))

	if err := store.Clear(ctx, "client-1"); err != nil {
		t.Fatalf("clear error: %v", err)
	}
	if err := store.Clear(ctx, "client-1"); err != nil {
		t.Fatalf("second clear must be a no-op, got: %v", err)
	}

	history, err := store.History(ctx, "client-1")
	if err != nil {
		t.Fatalf("history error: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history after clear, got %d turns", len(history))
	}
}

func TestMemoryStoreIdentityIsolation(t *testing.T) {
	store := NewMemoryConversationStore(20, time.Minute)
	ctx := context.Background()

	store.Append(ctx, "client-1", turn(models.RoleUser, "one"))
	store.Append(ctx, "client-2", turn(models.RoleUser, "two"))
	store.Clear(ctx, "client-2")

	history, _ := store.History(ctx, "client-1")
	if len(history) != 1 || history[0].Content != "one" {
		t.Fatalf("clearing one identity affected another: %+v", history)
	}
}

func TestMemoryStoreConcurrentAppends(t *testing.T) {
	store := NewMemoryConversationStore(200, time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				store.Append(ctx, "client-1", turn(models.RoleUser, fmt.Sprintf("g%d-%d", g, i)))
			}
		}(g)
	}
	wg.Wait()

	history, err := store.History(ctx, "client-1")
	if err != nil {
		t.Fatalf("history error: %v", err)
	}
	if len(history) != 100 {
		t.Fatalf("lost appends under concurrency: got %d of 100", len(history))
	}
}

func TestMemoryStoreReadsDoNotAliasLog(t *testing.T) {
	store := NewMemoryConversationStore(20, time.Minute)
	ctx := context.Background()

	store.Append(ctx, "client-1", turn(models.RoleUser, "original"))

	history, _ := store.History(ctx, "client-1")
	history[0].Content = "mutated"

	again, _ := store.History(ctx, "client-1")
	if again[0].Content != "original" {
		t.Fatal("caller mutation leaked into the stored log")
	}
}
