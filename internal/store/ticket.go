package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"fieldops.app/incidentbot/common/id"
	"fieldops.app/incidentbot/core/db"
	"fieldops.app/incidentbot/internal/model"
)

type ticketStore struct {
	db *db.DB
}

func newTicketStore(database *db.DB) TicketStore {
	return &ticketStore{db: database}
}

// Save commits the ticket, its attachments, and any learned profile update
// in one transaction. The ticket ID (folio) is assigned here, at commit
// time, so an abandoned draft never burns a folio.
func (s *ticketStore) Save(ctx context.Context, ticket *model.Ticket, attachments []model.Attachment, learned *model.Profile) error {
	ticket.ID = id.New()

	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO tickets (
				id, code, name, category, subcategory, severity,
				reported_by, reported_at, plant, line, work_cell, shift,
				machine, production_order, lot_number,
				description, immediate_action, status
			) VALUES (
				$1, $2, $3, $4, $5, $6,
				$7, $8, $9, $10, $11, $12,
				$13, $14, $15,
				$16, $17, $18
			)
			RETURNING created_at`,
			ticket.ID, ticket.Code, ticket.Name, ticket.Category, ticket.Subcategory, ticket.Severity,
			ticket.ReportedBy, ticket.ReportedAt, ticket.Plant, ticket.Line, ticket.WorkCell, ticket.Shift,
			ticket.Machine, ticket.ProductionOrder, ticket.LotNumber,
			ticket.Description, ticket.ImmediateAction, ticket.Status)
		if err := row.Scan(&ticket.CreatedAt); err != nil {
			return fmt.Errorf("inserting ticket: %w", err)
		}

		for i := range attachments {
			a := &attachments[i]
			a.TicketID = ticket.ID
			if a.StorageKey == "" {
				a.StorageKey = uuid.NewString()
			}
			if err := tx.QueryRow(ctx, `
				INSERT INTO ticket_attachments (ticket_id, kind, filename, description, storage_key, content)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id, created_at`,
				a.TicketID, a.Kind, a.Filename, a.Description, a.StorageKey, a.Content,
			).Scan(&a.ID, &a.CreatedAt); err != nil {
				return fmt.Errorf("inserting attachment %s: %w", a.Filename, err)
			}
		}

		if learned != nil {
			if _, err := tx.Exec(ctx, `
				UPDATE profiles
				SET line = $2, shift = $3, updated_at = now()
				WHERE identity = $1`,
				learned.Identity, learned.Line, learned.Shift); err != nil {
				return fmt.Errorf("updating learned profile: %w", err)
			}
		}

		return nil
	})
}

func (s *ticketStore) GetByID(ctx context.Context, ticketID int64) (*model.Ticket, error) {
	row := s.db.Pool().QueryRow(ctx, `
		SELECT id, code, name, category, subcategory, severity,
			reported_by, reported_at, plant, line, work_cell, shift,
			machine, production_order, lot_number,
			description, immediate_action, status, created_at
		FROM tickets
		WHERE id = $1`, ticketID)

	var t model.Ticket
	err := row.Scan(
		&t.ID, &t.Code, &t.Name, &t.Category, &t.Subcategory, &t.Severity,
		&t.ReportedBy, &t.ReportedAt, &t.Plant, &t.Line, &t.WorkCell, &t.Shift,
		&t.Machine, &t.ProductionOrder, &t.LotNumber,
		&t.Description, &t.ImmediateAction, &t.Status, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *ticketStore) ListRecent(ctx context.Context, identity string, limit int) ([]model.TicketSummary, error) {
	if limit <= 0 {
		limit = 3
	}

	rows, err := s.db.Pool().Query(ctx, `
		SELECT id, code, name, severity, reported_at
		FROM tickets
		WHERE reported_by = $1
		ORDER BY reported_at DESC
		LIMIT $2`, identity, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []model.TicketSummary
	for rows.Next() {
		var ts model.TicketSummary
		if err := rows.Scan(&ts.ID, &ts.Code, &ts.Name, &ts.Severity, &ts.ReportedAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, ts)
	}
	return summaries, rows.Err()
}
