package client

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EntryState distinguishes locally fabricated batches from server-confirmed
// ones.
type EntryState string

const (
	// StateOptimistic marks a batch fabricated locally before the server
	// has responded.
	StateOptimistic EntryState = "optimistic"

	// StateConfirmed marks a batch received from the server.
	StateConfirmed EntryState = "confirmed"
)

// BatchEntry is one batch in the local store, tagged with its provenance.
type BatchEntry struct {
	State EntryState
	Batch *Batch
}

// BatchStore holds the client's view of its batches, keyed by a temporary
// client-side id that stays stable across the optimistic-to-confirmed swap.
type BatchStore struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]BatchEntry
}

// NewBatchStore creates an empty batch store.
func NewBatchStore() *BatchStore {
	return &BatchStore{entries: make(map[uuid.UUID]BatchEntry)}
}

// PutOptimistic fabricates a pending batch from the request and stores it
// under a fresh temporary id, which it returns. The fabricated batch gets
// one pending generation per requested image so consumers can render
// placeholders immediately.
func (s *BatchStore) PutOptimistic(req CreateImageRequest) uuid.UUID {
	id := uuid.New()
	now := time.Now().UTC()

	imageNum := req.ImageNum
	if imageNum < 1 {
		imageNum = 1
	}

	prompt, _ := req.Params["prompt"].(string)
	generations := make([]Generation, imageNum)
	for i := range generations {
		generations[i] = Generation{
			ID:        uuid.New().String(),
			Task:      Task{ID: uuid.New().String(), Status: TaskStatusPending},
			CreatedAt: now,
		}
	}

	batch := &Batch{
		ID:          id.String(),
		TopicID:     req.TopicID,
		Provider:    req.Provider,
		Model:       req.Model,
		Prompt:      prompt,
		Config:      req.Params,
		Generations: generations,
		CreatedAt:   now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = BatchEntry{State: StateOptimistic, Batch: batch}
	return id
}

// Confirm replaces the entry under id wholesale with the server's batch.
// No field merging: the confirmed batch is the entire new value.
func (s *BatchStore) Confirm(id uuid.UUID, batch *Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = BatchEntry{State: StateConfirmed, Batch: batch}
}

// Remove drops the entry under id, if present.
func (s *BatchStore) Remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// Get returns the entry under id.
func (s *BatchStore) Get(id uuid.UUID) (BatchEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	return entry, ok
}

// Len returns the number of stored batches.
func (s *BatchStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
