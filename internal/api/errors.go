// Package api provides the HTTP surface of the coordinator: partnership,
// contract, notification and audit endpoints plus common error handling.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fedpact/fedpact-go/internal/contracts"
	"github.com/fedpact/fedpact-go/internal/coordinator"
	"github.com/fedpact/fedpact-go/internal/notifications"
	"github.com/fedpact/fedpact-go/internal/organisations"
	"github.com/fedpact/fedpact-go/internal/store"
)

// Deterministic reason codes for stable error classification.
// These codes should remain stable across versions for client compatibility.
const (
	// Request validation
	ReasonBadRequest   = "bad_request"
	ReasonMissingField = "missing_field"
	ReasonInvalidField = "invalid_field"
	ReasonNotFound     = "not_found"
	ReasonConflict     = "conflict"

	// Caller identity
	ReasonUnidentified = "unidentified_caller"

	// Contract preconditions
	ReasonNotMember         = "not_a_member"
	ReasonNotInvited        = "not_invited"
	ReasonContractDeleted   = "contract_deleted"
	ReasonOwnershipMismatch = "ownership_mismatch"

	// Server errors
	ReasonInternalError = "internal_error"
)

// ErrorEnvelope is the standard error response format.
type ErrorEnvelope struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error information.
type ErrorDetail struct {
	Code       string `json:"code"`        // HTTP status text (e.g., "conflict")
	ReasonCode string `json:"reason_code"` // Deterministic reason code
	Message    string `json:"message"`     // Human-readable message
}

// WriteError writes a standardized JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, reasonCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	envelope := ErrorEnvelope{
		Error: ErrorDetail{
			Code:       http.StatusText(statusCode),
			ReasonCode: reasonCode,
			Message:    message,
		},
	}

	json.NewEncoder(w).Encode(envelope)
}

// WriteNotFound writes a 404 Not Found error.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, ReasonNotFound, message)
}

// WriteBadRequest writes a 400 Bad Request error.
func WriteBadRequest(w http.ResponseWriter, reasonCode, message string) {
	WriteError(w, http.StatusBadRequest, reasonCode, message)
}

// WriteConflict writes a 409 Conflict error.
func WriteConflict(w http.ResponseWriter, reasonCode, message string) {
	WriteError(w, http.StatusConflict, reasonCode, message)
}

// WriteInternalError writes a 500 Internal Server Error.
// Be careful not to leak sensitive information in the message.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, ReasonInternalError, message)
}

// writeDomainError maps primary-tier errors of the coordinator and its
// services onto the two-status policy: missing references are 404,
// violated preconditions are 409, malformed pairs are 400. Everything
// else is logged and reported as 500.
func writeDomainError(w http.ResponseWriter, log *slog.Logger, err error, message string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		WriteNotFound(w, message)
	case errors.Is(err, coordinator.ErrConflict):
		WriteConflict(w, ReasonConflict, err.Error())
	case errors.Is(err, contracts.ErrDeleted):
		WriteConflict(w, ReasonContractDeleted, "contract is deleted")
	case errors.Is(err, contracts.ErrNotMember):
		WriteConflict(w, ReasonNotMember, "organisation is not a contract member")
	case errors.Is(err, contracts.ErrNotInvited):
		WriteConflict(w, ReasonNotInvited, "organisation is not invited to the contract")
	case errors.Is(err, contracts.ErrOwnershipMismatch):
		WriteConflict(w, ReasonOwnershipMismatch, "grant owner does not match the item registry")
	case errors.Is(err, notifications.ErrTerminalStatus):
		WriteConflict(w, ReasonConflict, "notification status is terminal")
	case errors.Is(err, organisations.ErrSelfRelation):
		WriteBadRequest(w, ReasonInvalidField, "an organisation cannot partner with itself")
	case errors.Is(err, store.ErrAlreadyExists):
		WriteConflict(w, ReasonConflict, "record already exists")
	default:
		log.Error("request failed", "error", err)
		WriteInternalError(w, message)
	}
}
