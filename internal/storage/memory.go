package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"sailbench/internal/model"
)

// MemoryStore keeps encoded payloads so callers never share maps or slices
// with stored records.
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	evaluations map[string]storedEvaluation
	seq         int
}

type storedEvaluation struct {
	createdAt string
	seq       int
	payload   []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.evaluations = make(map[string]storedEvaluation)
	s.seq = 0
	return nil
}

func (s *MemoryStore) SaveEvaluation(_ context.Context, record model.EvaluationRecord) error {
	if record.RunID == "" {
		return errors.New("run id is required")
	}
	payload, err := EncodeEvaluation(record)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errors.New("store is not initialized")
	}
	s.seq++
	s.evaluations[record.RunID] = storedEvaluation{createdAt: record.CreatedAtUTC, seq: s.seq, payload: payload}
	return nil
}

func (s *MemoryStore) GetEvaluation(_ context.Context, runID string) (model.EvaluationRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return model.EvaluationRecord{}, false, errors.New("store is not initialized")
	}

	stored, ok := s.evaluations[runID]
	if !ok {
		return model.EvaluationRecord{}, false, nil
	}
	record, err := DecodeEvaluation(stored.payload)
	if err != nil {
		return model.EvaluationRecord{}, false, fmt.Errorf("decode evaluation %s: %w", runID, err)
	}
	return record, true, nil
}

func (s *MemoryStore) ListEvaluations(_ context.Context, limit int) ([]model.EvaluationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, errors.New("store is not initialized")
	}

	stored := make([]storedEvaluation, 0, len(s.evaluations))
	for _, item := range s.evaluations {
		stored = append(stored, item)
	}
	sort.Slice(stored, func(i, j int) bool {
		if stored[i].createdAt == stored[j].createdAt {
			return stored[i].seq > stored[j].seq
		}
		return stored[i].createdAt > stored[j].createdAt
	})
	if limit > 0 && len(stored) > limit {
		stored = stored[:limit]
	}

	records := make([]model.EvaluationRecord, 0, len(stored))
	for _, item := range stored {
		record, err := DecodeEvaluation(item.payload)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}
