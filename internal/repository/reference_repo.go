package repository

import (
	"context"

	"scentpanel/internal/domain"
)

// ReferenceRepo read-only lookups into the external project/sample/
// contact data the coordinator picks from. This service never writes it.
type ReferenceRepo interface {
	ListProjects(ctx context.Context) ([]domain.Project, error)
	ListSamples(ctx context.Context, projectCode string) ([]domain.Sample, error)
	ListPanelists(ctx context.Context) ([]domain.Panelist, error)
	GetPanelist(ctx context.Context, panelistID string) (*domain.Panelist, error)
}
