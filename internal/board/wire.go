package board

import (
	"encoding/json"
	"errors"
	"net/http"

	"stealthnote/internal/domain"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// GroupInfo is the response of the group lookup endpoint.
type GroupInfo struct {
	Group    domain.AnonGroup `json:"group"`
	Provider string           `json:"provider"`
}

var errBadRequest = errors.New("bad request")

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, domain.ErrMessageConstraint):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownProvider),
		errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUntrustedIssuerKey),
		errors.Is(err, domain.ErrExpiredToken),
		errors.Is(err, domain.ErrNonceMismatch),
		errors.Is(err, domain.ErrInvalidOrganization),
		errors.Is(err, domain.ErrInvalidProof),
		errors.Is(err, domain.ErrInvalidSignature),
		errors.Is(err, domain.ErrGroupMismatch),
		errors.Is(err, domain.ErrKeyProofMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrMembersOnly):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrDuplicateMessage):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRejectedByGate):
		return http.StatusTooManyRequests
	case domain.IsTransient(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := domain.Code(err)
	reason := domain.Reason(err)
	if errors.Is(err, errBadRequest) {
		code, reason = "bad_request", err.Error()
	}
	writeJSON(w, statusFor(err), errorBody{Code: code, Error: reason})
}
