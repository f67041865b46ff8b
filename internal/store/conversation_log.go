package store

import (
	"context"

	"fieldops.app/incidentbot/core/db"
	"fieldops.app/incidentbot/internal/model"
)

type conversationLogStore struct {
	db *db.DB
}

func newConversationLogStore(database *db.DB) ConversationLogStore {
	return &conversationLogStore{db: database}
}

func (s *conversationLogStore) Append(ctx context.Context, entry *model.LogEntry) error {
	return s.db.Pool().QueryRow(ctx, `
		INSERT INTO conversation_log (identity, role, content, step, ticket_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		entry.Identity, entry.Role, entry.Content, entry.Step, entry.TicketID,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (s *conversationLogStore) DeleteByIdentity(ctx context.Context, identity string) error {
	_, err := s.db.Pool().Exec(ctx, `DELETE FROM conversation_log WHERE identity = $1`, identity)
	return err
}
