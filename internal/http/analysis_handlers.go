package httpapi

import (
	"net/http"

	"scentpanel/internal/domain"
	"scentpanel/internal/service"

	"go.uber.org/zap"
)

// AnalysisHandler coordinator CRUD + activation over analyses.
type AnalysisHandler struct {
	svc    *service.AnalysisService
	logger *zap.Logger
}

func NewAnalysisHandler(svc *service.AnalysisService, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{svc: svc, logger: logger}
}

func (h *AnalysisHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.CreateAnalysisInput
	if err := readBodyJSON(r, 1<<20, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body: "+err.Error()))
		return
	}

	a, err := h.svc.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(a))
}

func (h *AnalysisHandler) List(w http.ResponseWriter, r *http.Request) {
	projectCode := r.URL.Query().Get("project")
	panelistID := r.URL.Query().Get("panelist")

	analyses, err := h.svc.List(r.Context(), projectCode, panelistID)
	if err != nil {
		writeError(w, err)
		return
	}
	if analyses == nil {
		analyses = []*domain.Analysis{}
	}
	writeJSON(w, http.StatusOK, Ok(analyses))
}

func (h *AnalysisHandler) GetByID(w http.ResponseWriter, r *http.Request, id string) {
	a, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(a))
}

func (h *AnalysisHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]string{"deleted": id}))
}

func (h *AnalysisHandler) Activate(w http.ResponseWriter, r *http.Request, id string) {
	a, err := h.svc.Activate(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(a))
}
