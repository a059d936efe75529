package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"interviewcast/internal/persona"
	"interviewcast/internal/transcript"
)

var _ transcript.Repository = (*Store)(nil)

// SaveTranscript writes the video row and all its dialogues in one transaction.
func (s *Store) SaveTranscript(ctx context.Context, video transcript.Video, dialogues []transcript.Dialogue) error {
	interviewer, err := json.Marshal(video.Interviewer)
	if err != nil {
		return err
	}
	candidate, err := json.Marshal(video.Candidate)
	if err != nil {
		return err
	}
	metadata, err := json.Marshal(video.Metadata)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO videos (id, title, topic, description, language, introduction, conclusion,
			interviewer, candidate, metadata, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		video.ID, video.Title, video.Topic, video.Description, video.Language, video.Introduction,
		video.Conclusion, string(interviewer), string(candidate), string(metadata), video.Status, video.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert video: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO dialogues (id, video_id, seq, question_number, role, text) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare dialogue insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range dialogues {
		if _, err := stmt.ExecContext(ctx, d.ID, video.ID, d.Seq, d.QuestionNumber, d.Role, d.Text); err != nil {
			return fmt.Errorf("failed to insert dialogue %d: %w", d.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transcript: %w", err)
	}
	return nil
}

const videoColumns = `id, title, topic, description, language, introduction, conclusion, interviewer, candidate, metadata, status, created_at`

func scanVideo(row rowScanner) (*transcript.Video, error) {
	var v transcript.Video
	var interviewer, candidate string
	var metadata sql.NullString
	err := row.Scan(&v.ID, &v.Title, &v.Topic, &v.Description, &v.Language, &v.Introduction,
		&v.Conclusion, &interviewer, &candidate, &metadata, &v.Status, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := decodePersona(interviewer, &v.Interviewer); err != nil {
		return nil, err
	}
	if err := decodePersona(candidate, &v.Candidate); err != nil {
		return nil, err
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &v.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode video metadata: %w", err)
		}
	}
	return &v, nil
}

func decodePersona(raw string, p *persona.Persona) error {
	if err := json.Unmarshal([]byte(raw), p); err != nil {
		return fmt.Errorf("failed to decode persona snapshot: %w", err)
	}
	return nil
}

func (s *Store) GetVideo(ctx context.Context, id string) (*transcript.Video, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = ?`, id)
	v, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, transcript.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	return v, nil
}

func (s *Store) ListDialogues(ctx context.Context, videoID string) ([]transcript.Dialogue, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, video_id, seq, question_number, role, text FROM dialogues WHERE video_id = ? ORDER BY seq ASC`,
		videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dialogues: %w", err)
	}
	defer rows.Close()

	var out []transcript.Dialogue
	for rows.Next() {
		var d transcript.Dialogue
		if err := rows.Scan(&d.ID, &d.VideoID, &d.Seq, &d.QuestionNumber, &d.Role, &d.Text); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) ListVideos(ctx context.Context, limit int) ([]transcript.Video, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+videoColumns+` FROM videos ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	var out []transcript.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func (s *Store) UpdateVideo(ctx context.Context, id string, status transcript.VideoStatus, meta transcript.Metadata) error {
	metadata, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE videos SET status = ?, metadata = ? WHERE id = ?`,
		status, string(metadata), id)
	if err != nil {
		return fmt.Errorf("failed to update video: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return transcript.ErrNotFound
	}
	return nil
}

func (s *Store) SaveRequest(ctx context.Context, req transcript.GenerationRequest) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generation_requests (id, topic, questions, language, model, provider, status, video_id, error, phase, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.Topic, req.Questions, req.Language, req.Model, req.Provider, req.Status,
		req.VideoID, req.Error, req.Phase, req.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert generation request: %w", err)
	}
	return nil
}

func (s *Store) ListRequests(ctx context.Context, limit int) ([]transcript.GenerationRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, topic, questions, language, model, provider, status, video_id, error, phase, created_at
		FROM generation_requests ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list generation requests: %w", err)
	}
	defer rows.Close()

	var out []transcript.GenerationRequest
	for rows.Next() {
		var r transcript.GenerationRequest
		var model, provider, videoID, errText, phase sql.NullString
		if err := rows.Scan(&r.ID, &r.Topic, &r.Questions, &r.Language, &model, &provider,
			&r.Status, &videoID, &errText, &phase, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Model, r.Provider, r.VideoID, r.Error, r.Phase = model.String, provider.String, videoID.String, errText.String, phase.String
		out = append(out, r)
	}
	return out, rows.Err()
}
