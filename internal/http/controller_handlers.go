package httpapi

import (
	"errors"
	"net/http"

	"scentpanel/internal/hardware"

	"go.uber.org/zap"
)

// ControllerHandler ops escape hatch onto the rig: status, last error,
// and a manual standby for recovering from phase "error".
type ControllerHandler struct {
	controller hardware.Controller
	logger     *zap.Logger
}

func NewControllerHandler(controller hardware.Controller, logger *zap.Logger) *ControllerHandler {
	return &ControllerHandler{controller: controller, logger: logger}
}

func (h *ControllerHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.controller.Status(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(status))
}

func (h *ControllerHandler) LastError(w http.ResponseWriter, r *http.Request) {
	msg, err := h.controller.LastError(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]string{"error": msg}))
}

func (h *ControllerHandler) Standby(w http.ResponseWriter, r *http.Request) {
	phase, err := h.controller.Standby(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	h.logger.Info("Rig returned to standby via ops endpoint")
	writeJSON(w, http.StatusOK, Ok(map[string]string{"phase": string(phase)}))
}

// Pressurize, SelectRoom and OpenRoom expose the raw rig sequence for
// bench work outside a panelist workflow. Normal room visits go through
// the testing endpoints instead.
func (h *ControllerHandler) Pressurize(w http.ResponseWriter, r *http.Request) {
	phase, err := h.controller.Pressurize(r.Context())
	if err != nil {
		writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]string{"phase": string(phase)}))
}

func (h *ControllerHandler) SelectRoom(w http.ResponseWriter, r *http.Request, room int) {
	selected, err := h.controller.SelectRoom(r.Context(), room)
	if err != nil {
		writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]int{"selected_room": selected}))
}

func (h *ControllerHandler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.ClearSelection(r.Context()); err != nil {
		writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]int{"selected_room": hardware.NoRoomSelected}))
}

func (h *ControllerHandler) OpenRoom(w http.ResponseWriter, r *http.Request) {
	phase, err := h.controller.OpenRoom(r.Context())
	if err != nil {
		writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]string{"phase": string(phase)}))
}

// writeControllerError keeps the device's precondition semantics on the
// wire: a rejected sequence step is a 409 with the reason verbatim.
func writeControllerError(w http.ResponseWriter, err error) {
	var precondition *hardware.PreconditionError
	if errors.As(err, &precondition) {
		writeJSON(w, http.StatusConflict, Fail(precondition.Reason))
		return
	}
	writeError(w, err)
}
