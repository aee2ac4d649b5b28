package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"scentpanel/internal/domain"
	"scentpanel/internal/repository"
	"scentpanel/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// writeError maps the error taxonomy onto HTTP statuses while keeping
// the reason verbatim in the envelope.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var validation *domain.ValidationError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, repository.ErrConflict):
		status = http.StatusConflict
	case errors.As(err, &validation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNotEnrolled),
		errors.Is(err, service.ErrNotActive),
		errors.Is(err, service.ErrExpired),
		errors.Is(err, service.ErrNoProgress),
		errors.Is(err, service.ErrRoomNotAssigned),
		errors.Is(err, service.ErrAlreadyComplete):
		status = http.StatusConflict
	case errors.Is(err, service.ErrRigBusy):
		status = http.StatusLocked
	}

	writeJSON(w, status, Fail(err.Error()))
}
