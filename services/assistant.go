package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"traffic-safety-chatbot/internal/telemetry"
	"traffic-safety-chatbot/models"
)

// Generator is the opaque text-completion collaborator. The assistant only
// supplies the assembled prompt; rendering and display are not its concern.
type Generator interface {
	GenerateAnswer(ctx context.Context, prompt string) (string, error)
}

// Assistant is the caller-facing surface of the core: index builds,
// retrieval, conversation memory and the full answer round-trip.
type Assistant struct {
	index         *IndexManager
	retrieval     *RetrievalService
	store         ConversationStore
	generator     Generator
	contextWindow int
	locks         *keyedMutex
	metrics       *telemetry.Metrics
}

// NewAssistant wires the core together. contextWindow bounds how many
// recent turns feed the prompt (default 5); metrics may be nil.
func NewAssistant(index *IndexManager, retrieval *RetrievalService, store ConversationStore, generator Generator, contextWindow int, metrics *telemetry.Metrics) *Assistant {
	if contextWindow <= 0 {
		contextWindow = 5
	}
	return &Assistant{
		index:         index,
		retrieval:     retrieval,
		store:         store,
		generator:     generator,
		contextWindow: contextWindow,
		locks:         newKeyedMutex(),
		metrics:       metrics,
	}
}

// BuildIndex rebuilds the search index from the document store.
func (a *Assistant) BuildIndex(ctx context.Context) (models.BuildIndexResult, error) {
	return a.index.Rebuild(ctx)
}

// Retrieve returns the assembled grounding context for a query, or the
// no-documents sentinel when no index is ready.
func (a *Assistant) Retrieve(ctx context.Context, query string, k int) (string, error) {
	return a.retrieval.Retrieve(ctx, query, k)
}

// RecordTurn appends one turn to an identity's conversation log.
func (a *Assistant) RecordTurn(ctx context.Context, identity, role, text string) error {
	turn := models.ConversationTurn{
		Role:      role,
		Content:   text,
		Timestamp: time.Now(),
	}
	if err := a.store.Append(ctx, identity, turn); err != nil {
		return err
	}
	if a.metrics != nil {
		a.metrics.RecordTurn(role)
	}
	return nil
}

// ContextWindow returns the most recent n turns for an identity. n <= 0
// uses the configured window.
func (a *Assistant) ContextWindow(ctx context.Context, identity string, n int) ([]models.ConversationTurn, error) {
	if n <= 0 {
		n = a.contextWindow
	}
	return a.store.Recent(ctx, identity, n)
}

// ClearHistory removes an identity's conversation log. Idempotent.
func (a *Assistant) ClearHistory(ctx context.Context, identity string) error {
	return a.store.Clear(ctx, identity)
}

// Answer runs the full round-trip for one user message: read the history
// window, retrieve grounding context, generate, then record both turns.
// Requests for the same identity are serialized; different identities
// proceed in parallel. A retrieval failure degrades to answering without
// grounding; a generation failure returns the error and records nothing.
func (a *Assistant) Answer(ctx context.Context, identity, message string) (string, error) {
	unlock := a.locks.Lock(identity)
	defer unlock()

	history, err := a.store.Recent(ctx, identity, a.contextWindow)
	if err != nil {
		return "", fmt.Errorf("failed to read conversation history: %w", err)
	}

	contextBlock, err := a.retrieval.Retrieve(ctx, message, 0)
	if err != nil {
		// Degrade to an ungrounded answer; the cause is for operators.
		log.Printf("Warning: retrieval failed for identity %s: %v", identity, err)
		contextBlock = NoDocumentsMessage
	}

	prompt := BuildPrompt(contextBlock, history, message)

	reply, err := a.generator.GenerateAnswer(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}

	// Both turns are recorded only after a successful round-trip, so a
	// cancelled or failed request leaves no partial history.
	if err := a.RecordTurn(ctx, identity, models.RoleUser, message); err != nil {
		return "", err
	}
	if err := a.RecordTurn(ctx, identity, models.RoleAssistant, reply); err != nil {
		return "", err
	}

	return reply, nil
}

// BuildPrompt assembles the generation prompt: system instructions, the
// retrieved context segment, the trimmed history segment and the current
// question.
func BuildPrompt(contextBlock string, history []models.ConversationTurn, message string) string {
	var b strings.Builder

	b.WriteString("Bạn là Trợ Lý AI chuyên về An Toàn Giao Thông tại Trường THCS Long Phước, Đồng Nai.\n\n")
	b.WriteString("MỤC TIÊU: Giáo dục và nâng cao nhận thức về an toàn giao thông cho học sinh.\n\n")

	b.WriteString("TÀI LIỆU THAM KHẢO:\n")
	b.WriteString(contextBlock)
	b.WriteString("\n\n")

	b.WriteString("LỊCH SỬ CHAT GẦN ĐÂY:\n")
	b.WriteString(FormatHistory(history))
	b.WriteString("\n\n")

	b.WriteString("CÂU HỎI HIỆN TẠI: ")
	b.WriteString(message)
	b.WriteString("\n\n")

	b.WriteString("HƯỚNG DẪN TRẢ LỜI:\n")
	b.WriteString("1. Trả lời trực tiếp và đầy đủ câu hỏi của học sinh trước\n")
	b.WriteString("2. Sử dụng ngôn ngữ tiếng Việt đơn giản, dễ hiểu, thân thiện với học sinh\n")
	b.WriteString("3. Dựa vào tài liệu tham khảo khi có, nhưng không trả lời luật pháp chi tiết\n")
	b.WriteString("4. Luôn khuyến khích tìm hiểu thêm\n\n")

	b.WriteString("TRẢ LỜI:")

	return b.String()
}

// FormatHistory renders the history segment of the prompt, one labeled
// line per turn.
func FormatHistory(history []models.ConversationTurn) string {
	if len(history) == 0 {
		return "Chưa có lịch sử chat."
	}

	lines := make([]string, 0, len(history))
	for _, turn := range history {
		label := "Học sinh"
		if turn.Role == models.RoleAssistant {
			label = "Trợ lý ATGT"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", label, turn.Content))
	}
	return strings.Join(lines, "\n")
}
