package apihttp

import (
	"encoding/json"
	"errors"
	"net/http"

	"seedvault/internal/domain"
	"seedvault/internal/usecase"
)

type errorEnvelope struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeUseCaseError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrInconsistentInput) {
		writeError(w, http.StatusInternalServerError, "inconsistent_input", err.Error())
		return
	}
	if errors.Is(err, domain.ErrMissingThreshold) {
		writeError(w, http.StatusConflict, "policy_incomplete", err.Error())
		return
	}
	if errors.Is(err, usecase.ErrStatusFeed) {
		writeError(w, http.StatusBadGateway, "status_feed_error", err.Error())
		return
	}
	if errors.Is(err, usecase.ErrMetaStore) {
		writeError(w, http.StatusBadGateway, "meta_store_error", err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

func writeFeedError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "torrent not found")
		return
	}
	writeError(w, http.StatusBadGateway, "status_feed_error", err.Error())
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "metadata record not found")
		return
	}
	writeError(w, http.StatusBadGateway, "meta_store_error", err.Error())
}

func writeSelectError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrNoCandidates) {
		writeError(w, http.StatusUnprocessableEntity, "no_candidates", "no candidates to select from")
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorPayload{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
