package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"interviewcast/internal/persona"
)

var _ persona.Store = (*Store)(nil)

const personaColumns = `id, name, type, specialty, voice_id, language, traits, description, is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPersona(row rowScanner) (*persona.Persona, error) {
	var p persona.Persona
	var specialty sql.NullString
	var traits string
	err := row.Scan(&p.ID, &p.Name, &p.Type, &specialty, &p.VoiceID, &p.Language,
		&traits, &p.Description, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Specialty = specialty.String
	if err := json.Unmarshal([]byte(traits), &p.Traits); err != nil {
		return nil, fmt.Errorf("failed to decode traits for persona %s: %w", p.ID, err)
	}
	return &p, nil
}

func (s *Store) List(ctx context.Context, filter persona.Filter) ([]persona.Persona, error) {
	query := `SELECT ` + personaColumns + ` FROM personas`
	var conds []string
	var args []any
	if filter.ActiveOnly {
		conds = append(conds, "is_active = 1")
	}
	if filter.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, filter.Type)
	}
	if filter.Language != "" {
		conds = append(conds, "language = ?")
		args = append(args, filter.Language)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at ASC, rowid ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list personas: %w", err)
	}
	defer rows.Close()

	var out []persona.Persona
	for rows.Next() {
		p, err := scanPersona(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, id string) (*persona.Persona, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+personaColumns+` FROM personas WHERE id = ?`, id)
	p, err := scanPersona(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persona.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get persona: %w", err)
	}
	return p, nil
}

func (s *Store) Create(ctx context.Context, in persona.Input) (*persona.Persona, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := &persona.Persona{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Type:        in.Type,
		Specialty:   in.Specialty,
		VoiceID:     in.VoiceID,
		Language:    in.Language,
		Traits:      in.Traits,
		Description: in.Description,
		Active:      !in.Inactive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.writePersona(ctx, p, true); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) Update(ctx context.Context, id string, u persona.Update) (*persona.Persona, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Empty() {
		return p, nil
	}
	u.Apply(p)
	p.UpdatedAt = s.now().UTC()
	if err := s.writePersona(ctx, p, false); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) SoftDelete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE personas SET is_active = 0, updated_at = ? WHERE id = ? AND is_active = 1`,
		s.now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("failed to deactivate persona: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) writePersona(ctx context.Context, p *persona.Persona, insert bool) error {
	traits := p.Traits
	if traits == nil {
		traits = []string{}
	}
	encoded, err := json.Marshal(traits)
	if err != nil {
		return err
	}
	var specialty sql.NullString
	if p.Specialty != "" {
		specialty = sql.NullString{String: p.Specialty, Valid: true}
	}

	if insert {
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO personas (`+personaColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Name, p.Type, specialty, p.VoiceID, p.Language, string(encoded),
			p.Description, p.Active, p.CreatedAt, p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert persona: %w", err)
		}
		return nil
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE personas SET name = ?, specialty = ?, voice_id = ?, language = ?, traits = ?,
			description = ?, is_active = ?, updated_at = ? WHERE id = ?`,
		p.Name, specialty, p.VoiceID, p.Language, string(encoded),
		p.Description, p.Active, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update persona: %w", err)
	}
	return nil
}
