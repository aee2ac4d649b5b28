package repository

import (
	"context"
	"sync"

	"scentpanel/internal/domain"
)

// MemoryReferenceRepo seeded reference data for running without the
// reference DB (local dev, demos). Mirrors the read-only contract.
type MemoryReferenceRepo struct {
	mu        sync.RWMutex
	projects  []domain.Project
	samples   map[string][]domain.Sample // keyed by project code
	panelists []domain.Panelist
}

func NewMemoryReferenceRepo() *MemoryReferenceRepo {
	r := &MemoryReferenceRepo{samples: map[string][]domain.Sample{}}
	r.seed()
	return r
}

func (r *MemoryReferenceRepo) seed() {
	r.projects = []domain.Project{
		{ProjectCode: "PRJ-001", ProjectRef: "ref-prj-001", Name: "Odour baseline study"},
		{ProjectCode: "PRJ-002", ProjectRef: "ref-prj-002", Name: "Compost emission panel"},
	}
	r.samples["PRJ-001"] = []domain.Sample{
		{SampleRef: "S-001", ProjectCode: "PRJ-001", Label: "Monster A"},
		{SampleRef: "S-002", ProjectCode: "PRJ-001", Label: "Monster B"},
		{SampleRef: "S-003", ProjectCode: "PRJ-001", Label: "Monster C"},
	}
	r.samples["PRJ-002"] = []domain.Sample{
		{SampleRef: "S-101", ProjectCode: "PRJ-002", Label: "Monster X"},
		{SampleRef: "S-102", ProjectCode: "PRJ-002", Label: "Monster Y"},
	}
	r.panelists = []domain.Panelist{
		{PanelistID: "p-01", Name: "An Peeters", Email: "an@example.org"},
		{PanelistID: "p-02", Name: "Bram Claes", Email: "bram@example.org"},
		{PanelistID: "p-03", Name: "Chris Maes", Email: "chris@example.org"},
		{PanelistID: "p-04", Name: "Dirk Jans", Email: "dirk@example.org"},
		{PanelistID: "p-05", Name: "Els Wouters", Email: "els@example.org"},
		{PanelistID: "p-06", Name: "Femke Smet", Email: "femke@example.org"},
	}
}

func (r *MemoryReferenceRepo) ListProjects(_ context.Context) ([]domain.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Project, len(r.projects))
	copy(out, r.projects)
	return out, nil
}

func (r *MemoryReferenceRepo) ListSamples(_ context.Context, projectCode string) ([]domain.Sample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src := r.samples[projectCode]
	out := make([]domain.Sample, len(src))
	copy(out, src)
	return out, nil
}

func (r *MemoryReferenceRepo) ListPanelists(_ context.Context) ([]domain.Panelist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Panelist, len(r.panelists))
	copy(out, r.panelists)
	return out, nil
}

func (r *MemoryReferenceRepo) GetPanelist(_ context.Context, panelistID string) (*domain.Panelist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.panelists {
		if p.PanelistID == panelistID {
			cp := p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}
