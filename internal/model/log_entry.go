package model

import "time"

type LogRole string

const (
	LogRoleUser      LogRole = "user"
	LogRoleAssistant LogRole = "assistant"
)

// LogEntry is one message in the conversation audit trail.
type LogEntry struct {
	ID        int64     `json:"id"`
	Identity  string    `json:"identity"`
	Role      LogRole   `json:"role"`
	Content   string    `json:"content"`
	Step      string    `json:"step"`
	TicketID  *int64    `json:"ticket_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
