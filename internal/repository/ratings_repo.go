package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"scentpanel/internal/domain"
	"scentpanel/internal/store"

	"go.uber.org/zap"
)

const ratingsKeyPrefix = "ratings:"

// RatingsRepo append-only store of submitted ratings, one document per
// analysis.
type RatingsRepo interface {
	Append(ctx context.Context, r *domain.Rating) error
	ListByAnalysis(ctx context.Context, analysisID string) ([]domain.Rating, error)
	DeleteByAnalysis(ctx context.Context, analysisID string) error
}

type KVRatingsRepo struct {
	kv     store.KV
	logger *zap.Logger

	locks sync.Map // analysis ID -> *sync.Mutex
}

func NewKVRatingsRepo(kv store.KV, logger *zap.Logger) *KVRatingsRepo {
	return &KVRatingsRepo{kv: kv, logger: logger}
}

func (r *KVRatingsRepo) lock(analysisID string) *sync.Mutex {
	mu, _ := r.locks.LoadOrStore(analysisID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func ratingsKey(analysisID string) string { return ratingsKeyPrefix + analysisID }

func (r *KVRatingsRepo) load(ctx context.Context, analysisID string) ([]domain.Rating, error) {
	raw, err := r.kv.Get(ctx, ratingsKey(analysisID))
	if err != nil {
		if err == store.ErrMiss {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load ratings for %s: %w", analysisID, err)
	}
	var ratings []domain.Rating
	if err := json.Unmarshal([]byte(raw), &ratings); err != nil {
		r.logger.Warn("Discarding corrupted ratings document",
			zap.String("analysis_id", analysisID),
			zap.Error(err),
		)
		return nil, nil
	}
	return ratings, nil
}

func (r *KVRatingsRepo) Append(ctx context.Context, rating *domain.Rating) error {
	mu := r.lock(rating.AnalysisID)
	mu.Lock()
	defer mu.Unlock()

	ratings, err := r.load(ctx, rating.AnalysisID)
	if err != nil {
		return err
	}
	ratings = append(ratings, *rating)

	raw, err := json.Marshal(ratings)
	if err != nil {
		return fmt.Errorf("failed to marshal ratings for %s: %w", rating.AnalysisID, err)
	}
	if err := r.kv.Set(ctx, ratingsKey(rating.AnalysisID), string(raw), 0); err != nil {
		return fmt.Errorf("failed to store ratings for %s: %w", rating.AnalysisID, err)
	}
	return nil
}

func (r *KVRatingsRepo) ListByAnalysis(ctx context.Context, analysisID string) ([]domain.Rating, error) {
	mu := r.lock(analysisID)
	mu.Lock()
	defer mu.Unlock()
	return r.load(ctx, analysisID)
}

func (r *KVRatingsRepo) DeleteByAnalysis(ctx context.Context, analysisID string) error {
	mu := r.lock(analysisID)
	mu.Lock()
	defer mu.Unlock()
	return r.kv.Del(ctx, ratingsKey(analysisID))
}
