package transcript

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository keeps transcripts in process memory.
type MemoryRepository struct {
	mu        sync.RWMutex
	videos    map[string]Video
	dialogues map[string][]Dialogue
	requests  []GenerationRequest
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		videos:    make(map[string]Video),
		dialogues: make(map[string][]Dialogue),
	}
}

func (m *MemoryRepository) SaveTranscript(_ context.Context, video Video, dialogues []Dialogue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.videos[video.ID] = video
	m.dialogues[video.ID] = append([]Dialogue(nil), dialogues...)
	return nil
}

func (m *MemoryRepository) GetVideo(_ context.Context, id string) (*Video, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.videos[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (m *MemoryRepository) ListDialogues(_ context.Context, videoID string) ([]Dialogue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Dialogue(nil), m.dialogues[videoID]...), nil
}

func (m *MemoryRepository) ListVideos(_ context.Context, limit int) ([]Video, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Video, 0, len(m.videos))
	for _, v := range m.videos {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepository) UpdateVideo(_ context.Context, id string, status VideoStatus, meta Metadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[id]
	if !ok {
		return ErrNotFound
	}
	v.Status = status
	v.Metadata = meta
	m.videos[id] = v
	return nil
}

func (m *MemoryRepository) SaveRequest(_ context.Context, req GenerationRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	return nil
}

func (m *MemoryRepository) ListRequests(_ context.Context, limit int) ([]GenerationRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]GenerationRequest, len(m.requests))
	for i := range m.requests {
		out[i] = m.requests[len(m.requests)-1-i]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
