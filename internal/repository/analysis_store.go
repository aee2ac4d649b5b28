package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"scentpanel/internal/domain"
	"scentpanel/internal/store"

	"go.uber.org/zap"
)

const analysisKeyPrefix = "analysis:"

// AnalysisStore owns the Analysis aggregates, keyed by analysis ID.
type AnalysisStore interface {
	Create(ctx context.Context, a *domain.Analysis) error
	Get(ctx context.Context, id string) (*domain.Analysis, error)
	Update(ctx context.Context, a *domain.Analysis) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*domain.Analysis, error)
	ListByProject(ctx context.Context, projectCode string) ([]*domain.Analysis, error)
	ListByPanelist(ctx context.Context, panelistID string) ([]*domain.Analysis, error)
	Activate(ctx context.Context, id string, now time.Time) (*domain.Analysis, error)

	// Mutate runs fn over the current record and writes the result back,
	// serialized per analysis ID. All read-modify-write cycles (progress,
	// activation) go through here so concurrent panelists on the same
	// analysis cannot lose each other's updates.
	Mutate(ctx context.Context, id string, fn func(*domain.Analysis) error) (*domain.Analysis, error)
}

// KVAnalysisStore stores each analysis as one JSON document in the KV,
// with an in-process mutex per analysis ID as the serialization point.
type KVAnalysisStore struct {
	kv     store.KV
	logger *zap.Logger

	locks sync.Map // analysis ID -> *sync.Mutex
}

func NewKVAnalysisStore(kv store.KV, logger *zap.Logger) *KVAnalysisStore {
	return &KVAnalysisStore{kv: kv, logger: logger}
}

func (s *KVAnalysisStore) lock(id string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func analysisKey(id string) string { return analysisKeyPrefix + id }

func (s *KVAnalysisStore) load(ctx context.Context, id string) (*domain.Analysis, error) {
	raw, err := s.kv.Get(ctx, analysisKey(id))
	if err != nil {
		if err == store.ErrMiss {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load analysis %s: %w", id, err)
	}
	var a domain.Analysis
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		// Corrupted documents are treated as absent rather than wedging
		// the coordinator's session.
		s.logger.Warn("Discarding corrupted analysis document",
			zap.String("analysis_id", id),
			zap.Error(err),
		)
		return nil, ErrNotFound
	}
	if a.TesterProgress == nil {
		a.TesterProgress = map[string]*domain.Progress{}
	}
	return &a, nil
}

func (s *KVAnalysisStore) save(ctx context.Context, a *domain.Analysis) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis %s: %w", a.AnalysisID, err)
	}
	if err := s.kv.Set(ctx, analysisKey(a.AnalysisID), string(raw), 0); err != nil {
		return fmt.Errorf("failed to store analysis %s: %w", a.AnalysisID, err)
	}
	return nil
}

func (s *KVAnalysisStore) Create(ctx context.Context, a *domain.Analysis) error {
	if err := a.Validate(); err != nil {
		return err
	}

	mu := s.lock(a.AnalysisID)
	mu.Lock()
	defer mu.Unlock()

	if _, err := s.load(ctx, a.AnalysisID); err == nil {
		return fmt.Errorf("analysis %s: %w", a.AnalysisID, ErrConflict)
	} else if err != ErrNotFound {
		return err
	}
	if a.TesterProgress == nil {
		a.TesterProgress = map[string]*domain.Progress{}
	}
	return s.save(ctx, a)
}

func (s *KVAnalysisStore) Get(ctx context.Context, id string) (*domain.Analysis, error) {
	return s.load(ctx, id)
}

func (s *KVAnalysisStore) Update(ctx context.Context, a *domain.Analysis) error {
	if err := a.Validate(); err != nil {
		return err
	}

	mu := s.lock(a.AnalysisID)
	mu.Lock()
	defer mu.Unlock()

	if _, err := s.load(ctx, a.AnalysisID); err != nil {
		return err
	}
	return s.save(ctx, a)
}

func (s *KVAnalysisStore) Delete(ctx context.Context, id string) error {
	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.kv.Del(ctx, analysisKey(id)); err != nil {
		return fmt.Errorf("failed to delete analysis %s: %w", id, err)
	}
	return nil
}

func (s *KVAnalysisStore) List(ctx context.Context) ([]*domain.Analysis, error) {
	keys, err := s.kv.ScanKeys(ctx, analysisKeyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to scan analyses: %w", err)
	}
	sort.Strings(keys)

	out := make([]*domain.Analysis, 0, len(keys))
	for _, key := range keys {
		a, err := s.load(ctx, key[len(analysisKeyPrefix):])
		if err != nil {
			if err == ErrNotFound {
				continue
			}
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *KVAnalysisStore) ListByProject(ctx context.Context, projectCode string) ([]*domain.Analysis, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Analysis, 0, len(all))
	for _, a := range all {
		if a.ProjectCode == projectCode {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *KVAnalysisStore) ListByPanelist(ctx context.Context, panelistID string) ([]*domain.Analysis, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Analysis, 0, len(all))
	for _, a := range all {
		if a.HasPanelist(panelistID) {
			out = append(out, a)
		}
	}
	return out, nil
}

// Activate marks the analysis active. Idempotent: a repeated call does
// not reset activated_at, so it cannot silently extend the testing window.
func (s *KVAnalysisStore) Activate(ctx context.Context, id string, now time.Time) (*domain.Analysis, error) {
	return s.Mutate(ctx, id, func(a *domain.Analysis) error {
		if a.IsActive {
			return nil
		}
		a.IsActive = true
		t := now
		a.ActivatedAt = &t
		return nil
	})
}

func (s *KVAnalysisStore) Mutate(ctx context.Context, id string, fn func(*domain.Analysis) error) (*domain.Analysis, error) {
	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(a); err != nil {
		return nil, err
	}
	if err := s.save(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
