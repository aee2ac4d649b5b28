package httpapi

import (
	"net/http"

	"scentpanel/internal/domain"
	"scentpanel/internal/repository"

	"go.uber.org/zap"
)

// ReferenceHandler read-only project/sample/panelist lookups backing
// the coordinator's create screen.
type ReferenceHandler struct {
	repo   repository.ReferenceRepo
	logger *zap.Logger
}

func NewReferenceHandler(repo repository.ReferenceRepo, logger *zap.Logger) *ReferenceHandler {
	return &ReferenceHandler{repo: repo, logger: logger}
}

func (h *ReferenceHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.repo.ListProjects(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if projects == nil {
		projects = []domain.Project{}
	}
	writeJSON(w, http.StatusOK, Ok(projects))
}

func (h *ReferenceHandler) ListSamples(w http.ResponseWriter, r *http.Request, projectCode string) {
	samples, err := h.repo.ListSamples(r.Context(), projectCode)
	if err != nil {
		writeError(w, err)
		return
	}
	if samples == nil {
		samples = []domain.Sample{}
	}
	writeJSON(w, http.StatusOK, Ok(samples))
}

func (h *ReferenceHandler) ListPanelists(w http.ResponseWriter, r *http.Request) {
	panelists, err := h.repo.ListPanelists(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if panelists == nil {
		panelists = []domain.Panelist{}
	}
	writeJSON(w, http.StatusOK, Ok(panelists))
}
