// models/chat.go
package models

import "time"

// Speaker roles for conversation turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is one labeled line of a client's conversation log,
// ordered by arrival. Turns are never mutated after insertion.
type ConversationTurn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationExport is the structured form used when a client's stored
// history is exported for audit.
type ConversationExport struct {
	Identity   string             `json:"identity"`
	ExportDate time.Time          `json:"export_date"`
	TurnCount  int                `json:"turn_count"`
	Turns      []ConversationTurn `json:"turns"`
}
