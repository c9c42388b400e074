// Package handler provides HTTP handlers for the value ledger service.
package handler

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"vledger/pkg/errors"
)

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps domain errors onto HTTP statuses so callers can
// tell a policy violation from a balance problem from an authorization problem.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case stderrors.Is(err, errors.ErrUnauthorized):
		respondError(w, http.StatusForbidden, err.Error())
	case stderrors.Is(err, errors.ErrNonCompliant):
		respondError(w, http.StatusForbidden, err.Error())
	case stderrors.Is(err, errors.ErrSingleLimitExceeded),
		stderrors.Is(err, errors.ErrDailyLimitExceeded):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case stderrors.Is(err, errors.ErrUnsupportedCurrency),
		stderrors.Is(err, errors.ErrInvalidAmount),
		stderrors.Is(err, errors.ErrUnknownTier):
		respondError(w, http.StatusBadRequest, err.Error())
	case stderrors.Is(err, errors.ErrInsufficientBalance):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case stderrors.Is(err, errors.ErrOracleUnavailable),
		stderrors.Is(err, errors.ErrOracleRate):
		respondError(w, http.StatusBadGateway, err.Error())
	case stderrors.Is(err, errors.ErrIdentityNotFound),
		stderrors.Is(err, errors.ErrAccountNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeJSON reads a bounded request body into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
