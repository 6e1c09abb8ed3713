package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"research-job-service/internal/entity"
	"research-job-service/internal/service"
)

type apiError struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, apiError{Message: msg})
}

// writeServiceErr maps lifecycle errors to status codes. Internal details are logged, not returned.
func writeServiceErr(w http.ResponseWriter, log *zerolog.Logger, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeErr(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, entity.ErrNotFound):
		writeErr(w, http.StatusNotFound, "job not found")
	case errors.Is(err, service.ErrDispatch):
		log.Error().Err(err).Msg("job could not be scheduled")
		writeErr(w, http.StatusInternalServerError, service.ErrDispatch.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeErr(w, http.StatusInternalServerError, "internal error")
	}
}
