package httpapi

import (
	"net/http"

	"scentpanel/internal/domain"
	"scentpanel/internal/service"

	"go.uber.org/zap"
)

// TestingHandler panelist-facing workflow: start, arrive, complete,
// submit rating.
type TestingHandler struct {
	engine       *service.ProgressEngine
	orchestrator *service.WorkflowOrchestrator
	logger       *zap.Logger
}

func NewTestingHandler(engine *service.ProgressEngine, orchestrator *service.WorkflowOrchestrator, logger *zap.Logger) *TestingHandler {
	return &TestingHandler{engine: engine, orchestrator: orchestrator, logger: logger}
}

type startTestingRequest struct {
	AnalysisID string `json:"analysis_id"`
	TesterID   string `json:"tester_id"`
}

type startTestingResponse struct {
	Analysis           *domain.Analysis `json:"analysis"`
	AssignedRoomNumber int              `json:"assigned_room_number"`
}

func (h *TestingHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startTestingRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body: "+err.Error()))
		return
	}

	a, room, err := h.engine.StartTesting(r.Context(), req.AnalysisID, req.TesterID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(startTestingResponse{
		Analysis:           a,
		AssignedRoomNumber: room,
	}))
}

type arriveRequest struct {
	AnalysisID string `json:"analysis_id"`
	TesterID   string `json:"tester_id"`
}

type arriveFailure struct {
	Steps []service.StepLog `json:"steps"`
}

// Arrive drives the rig through pressurize/select/open for the
// panelist's current room. On failure the step log rides along so the
// confirmation screen can show where the sequence stopped.
func (h *TestingHandler) Arrive(w http.ResponseWriter, r *http.Request) {
	var req arriveRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body: "+err.Error()))
		return
	}

	result, steps, err := h.orchestrator.ArriveAtRoom(r.Context(), req.AnalysisID, req.TesterID)
	if err != nil {
		res := Fail(err.Error())
		res.Result = arriveFailure{Steps: steps}
		writeJSON(w, http.StatusConflict, res)
		return
	}
	writeJSON(w, http.StatusOK, Ok(result))
}

type completeRoomRequest struct {
	AnalysisID string `json:"analysis_id"`
	TesterID   string `json:"tester_id"`
	RoomNumber int    `json:"room_number"`
}

// Complete marks a room done without a rating. Normally completion
// happens through rating submission; this endpoint backs the
// coordinator's manual override.
func (h *TestingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req completeRoomRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body: "+err.Error()))
		return
	}

	result, err := h.engine.CompleteRoom(r.Context(), req.AnalysisID, req.TesterID, req.RoomNumber)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(result))
}

func (h *TestingHandler) SubmitRating(w http.ResponseWriter, r *http.Request) {
	var rating domain.Rating
	if err := readBodyJSON(r, 1<<20, &rating); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body: "+err.Error()))
		return
	}

	result, err := h.orchestrator.SubmitRating(r.Context(), &rating)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(result))
}
