package service

import (
	"context"
	"errors"
	"time"

	"scentpanel/internal/domain"
	"scentpanel/internal/metrics"
	"scentpanel/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateAnalysisInput coordinator's finalized create screen: rooms and
// roster are already chosen when this arrives.
type CreateAnalysisInput struct {
	ProjectCode     string                  `json:"project_code"`
	ProjectRef      string                  `json:"project_ref"`
	RoomAssignments []domain.RoomAssignment `json:"room_assignments"`
	PanelistIDs     []string                `json:"panelist_ids"`
}

// AnalysisService coordinator-facing lifecycle of the Analysis aggregate.
type AnalysisService struct {
	store     repository.AnalysisStore
	ratings   repository.RatingsRepo
	reference repository.ReferenceRepo
	m         *metrics.Metrics
	logger    *zap.Logger

	now func() time.Time
}

func NewAnalysisService(store repository.AnalysisStore, ratings repository.RatingsRepo, reference repository.ReferenceRepo, m *metrics.Metrics, logger *zap.Logger) *AnalysisService {
	return &AnalysisService{
		store:     store,
		ratings:   ratings,
		reference: reference,
		m:         m,
		logger:    logger,
		now:       time.Now,
	}
}

// Create builds and stores the aggregate in one step. The roster is
// checked against the panelist reference data so a typo in an ID cannot
// produce an analysis nobody can start.
func (s *AnalysisService) Create(ctx context.Context, in CreateAnalysisInput) (*domain.Analysis, error) {
	var unknown []string
	for _, id := range in.PanelistIDs {
		if _, err := s.reference.GetPanelist(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				unknown = append(unknown, "panelist_ids: unknown panelist "+id)
				continue
			}
			return nil, err
		}
	}
	if len(unknown) > 0 {
		return nil, &domain.ValidationError{Violations: unknown}
	}

	a := &domain.Analysis{
		AnalysisID:      uuid.NewString(),
		ProjectCode:     in.ProjectCode,
		ProjectRef:      in.ProjectRef,
		RoomAssignments: in.RoomAssignments,
		PanelistIDs:     in.PanelistIDs,
		CreatedAt:       s.now(),
		TesterProgress:  map[string]*domain.Progress{},
	}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, err
	}

	s.m.AnalysesCreated.Inc()
	s.logger.Info("Analysis created",
		zap.String("analysis_id", a.AnalysisID),
		zap.String("project_code", a.ProjectCode),
		zap.Int("rooms", len(a.RoomAssignments)),
		zap.Int("panelists", len(a.PanelistIDs)),
	)
	return a, nil
}

func (s *AnalysisService) Get(ctx context.Context, id string) (*domain.Analysis, error) {
	return s.store.Get(ctx, id)
}

// List applies the optional project/panelist filters.
func (s *AnalysisService) List(ctx context.Context, projectCode, panelistID string) ([]*domain.Analysis, error) {
	switch {
	case projectCode != "":
		return s.store.ListByProject(ctx, projectCode)
	case panelistID != "":
		return s.store.ListByPanelist(ctx, panelistID)
	default:
		return s.store.List(ctx)
	}
}

// Delete removes the aggregate and its collected ratings.
func (s *AnalysisService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.ratings.DeleteByAnalysis(ctx, id); err != nil {
		// The aggregate is gone; orphaned ratings only cost storage.
		s.logger.Warn("Failed to delete ratings for removed analysis",
			zap.String("analysis_id", id),
			zap.Error(err),
		)
	}
	s.logger.Info("Analysis deleted", zap.String("analysis_id", id))
	return nil
}

// Activate opens the 12-hour testing window. Repeated calls are no-ops.
func (s *AnalysisService) Activate(ctx context.Context, id string) (*domain.Analysis, error) {
	a, err := s.store.Activate(ctx, id, s.now())
	if err != nil {
		return nil, err
	}
	s.logger.Info("Analysis activated",
		zap.String("analysis_id", id),
		zap.Timep("activated_at", a.ActivatedAt),
	)
	return a, nil
}
