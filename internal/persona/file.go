package persona

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileStore keeps the catalog in a JSON file. An empty path keeps it in memory.
type FileStore struct {
	mu       sync.RWMutex
	personas []Persona
	path     string
	now      func() time.Time
}

func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, now: time.Now}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) List(ctx context.Context, filter Filter) ([]Persona, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Persona
	for _, p := range s.personas {
		if filter.Match(p) {
			out = append(out, clonePersona(p))
		}
	}
	return out, nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*Persona, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.personas {
		if p.ID == id {
			c := clonePersona(p)
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (s *FileStore) Create(ctx context.Context, in Input) (*Persona, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := Persona{
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

	s.mu.Lock()
	defer s.mu.Unlock()

	s.personas = append(s.personas, p)
	if err := s.save(); err != nil {
		s.personas = s.personas[:len(s.personas)-1]
		return nil, err
	}
	c := clonePersona(p)
	return &c, nil
}

func (s *FileStore) Update(ctx context.Context, id string, u Update) (*Persona, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.personas {
		if s.personas[i].ID != id {
			continue
		}
		if u.Empty() {
			c := clonePersona(s.personas[i])
			return &c, nil
		}
		prev := s.personas[i]
		u.Apply(&s.personas[i])
		s.personas[i].UpdatedAt = s.now().UTC()
		if err := s.save(); err != nil {
			s.personas[i] = prev
			return nil, err
		}
		c := clonePersona(s.personas[i])
		return &c, nil
	}
	return nil, ErrNotFound
}

// SoftDelete marks the persona inactive. It reports false when no active
// persona had that id.
func (s *FileStore) SoftDelete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.personas {
		if s.personas[i].ID != id || !s.personas[i].Active {
			continue
		}
		s.personas[i].Active = false
		s.personas[i].UpdatedAt = s.now().UTC()
		if err := s.save(); err != nil {
			s.personas[i].Active = true
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func (s *FileStore) load() error {
	if s.path == "" {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read persona catalog: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, &s.personas); err != nil {
		return fmt.Errorf("parse persona catalog: %w", err)
	}
	return nil
}

func (s *FileStore) save() error {
	if s.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(s.personas, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal persona catalog: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write persona catalog: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func clonePersona(p Persona) Persona {
	p.Traits = append([]string(nil), p.Traits...)
	return p
}
