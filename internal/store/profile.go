package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"fieldops.app/incidentbot/core/db"
	"fieldops.app/incidentbot/internal/model"
)

type profileStore struct {
	db *db.DB
}

func newProfileStore(database *db.DB) ProfileStore {
	return &profileStore{db: database}
}

func (s *profileStore) Get(ctx context.Context, identity string) (*model.Profile, error) {
	row := s.db.Pool().QueryRow(ctx, `
		SELECT identity, name, area, shift, line, role, created_at, updated_at
		FROM profiles
		WHERE identity = $1`, identity)

	var p model.Profile
	err := row.Scan(&p.Identity, &p.Name, &p.Area, &p.Shift, &p.Line, &p.Role, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *profileStore) Upsert(ctx context.Context, profile *model.Profile) error {
	row := s.db.Pool().QueryRow(ctx, `
		INSERT INTO profiles (identity, name, area, shift, line, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (identity) DO UPDATE SET
			name = EXCLUDED.name,
			area = EXCLUDED.area,
			shift = EXCLUDED.shift,
			line = EXCLUDED.line,
			role = EXCLUDED.role,
			updated_at = now()
		RETURNING created_at, updated_at`,
		profile.Identity, profile.Name, profile.Area, profile.Shift, profile.Line, profile.Role)

	return row.Scan(&profile.CreatedAt, &profile.UpdatedAt)
}

func (s *profileStore) Delete(ctx context.Context, identity string) error {
	tag, err := s.db.Pool().Exec(ctx, `DELETE FROM profiles WHERE identity = $1`, identity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
