package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vertextoedge/mcfetch/internal/domain"
)

type errorResponse struct {
	Error  string   `json:"error"`
	Kind   string   `json:"kind"`
	Causes []string `json:"causes,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps a domain error onto a status code and JSON body
func writeError(w http.ResponseWriter, err error) {
	status, kind := classify(err)
	resp := errorResponse{Error: err.Error(), Kind: kind}

	var nm *domain.NoMirrorsAvailableError
	if errors.As(err, &nm) {
		for _, e := range nm.Errors() {
			resp.Causes = append(resp.Causes, e.Error())
		}
	}

	writeJSON(w, status, resp)
}

func classify(err error) (int, string) {
	var nm *domain.NoMirrorsAvailableError
	switch {
	case domain.IsChecksumMismatch(err):
		return http.StatusUnprocessableEntity, "checksum_mismatch"
	case errors.As(err, &nm):
		return http.StatusBadGateway, "no_mirrors_available"
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnknownLoader):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrDestinationLocked):
		return http.StatusConflict, "destination_locked"
	case errors.Is(err, domain.ErrInsufficientSpace):
		return http.StatusInsufficientStorage, "insufficient_space"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "cancelled"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
