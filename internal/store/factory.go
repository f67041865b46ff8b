package store

import (
	"fieldops.app/incidentbot/core/db"
)

type Stores struct {
	db *db.DB
}

func NewStores(database *db.DB) *Stores {
	return &Stores{db: database}
}

func (s *Stores) Profiles() ProfileStore {
	return newProfileStore(s.db)
}

func (s *Stores) Tickets() TicketStore {
	return newTicketStore(s.db)
}

func (s *Stores) ConversationLogs() ConversationLogStore {
	return newConversationLogStore(s.db)
}
