package store

import (
	"context"
	"errors"

	"fieldops.app/incidentbot/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ProfileStore defines the contract for operator profile data access.
// Get returns (nil, nil) when no profile exists for the identity, which
// is a normal condition (unregistered operator), not an error.
type ProfileStore interface {
	Get(ctx context.Context, identity string) (*model.Profile, error)
	Upsert(ctx context.Context, profile *model.Profile) error
	Delete(ctx context.Context, identity string) error
}

// TicketStore defines the contract for incident ticket data access.
// Save writes the ticket, its attachments, and any learned profile update
// in one transaction, assigning the ticket ID at commit time.
type TicketStore interface {
	Save(ctx context.Context, ticket *model.Ticket, attachments []model.Attachment, learned *model.Profile) error
	GetByID(ctx context.Context, id int64) (*model.Ticket, error)
	ListRecent(ctx context.Context, identity string, limit int) ([]model.TicketSummary, error)
}

// ConversationLogStore defines the contract for the message audit trail.
type ConversationLogStore interface {
	Append(ctx context.Context, entry *model.LogEntry) error
	DeleteByIdentity(ctx context.Context, identity string) error
}
