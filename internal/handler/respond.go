package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/venus-savings/venus/internal/ctxkeys"
	"github.com/venus-savings/venus/internal/lock"
	"github.com/venus-savings/venus/internal/repository"
	"github.com/venus-savings/venus/internal/rules"
	"github.com/venus-savings/venus/internal/service"
	"github.com/venus-savings/venus/internal/validation"
)

const maxBodySize = 1 << 20 // 1 MB

type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{"message": message})
}

// writeError maps service errors to a status and a client-safe message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.Error

	switch {
	case errors.As(err, &verr):
		writeMessage(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, service.ErrInvalidCredentials):
		writeMessage(w, http.StatusUnauthorized, "email or password is wrong.")
	case errors.Is(err, service.ErrUnauthenticated):
		writeMessage(w, http.StatusUnauthorized, "not authenticated")
	case errors.Is(err, repository.ErrGoalNotFound):
		writeMessage(w, http.StatusNotFound, "goal not found.")
	case errors.Is(err, rules.ErrAlreadyWithdrawn):
		writeMessage(w, http.StatusBadRequest, "this goal has already been withdrawn.")
	case errors.Is(err, rules.ErrEmergencyNotAllowed):
		writeMessage(w, http.StatusForbidden, "this goal does not allow emergency withdrawal before its lock date.")
	case errors.Is(err, rules.ErrWithdrawLimitReached):
		writeMessage(w, http.StatusForbidden, "you have used all of your emergency withdrawals.")
	case errors.Is(err, repository.ErrVersionConflict):
		writeMessage(w, http.StatusConflict, "this goal was changed by another request. please try again.")
	case errors.Is(err, lock.ErrNotAcquired):
		writeMessage(w, http.StatusConflict, "another withdrawal is in progress. please try again.")
	case errors.Is(err, service.ErrEmailAlreadyExists):
		writeMessage(w, http.StatusConflict, "this email already has an account.")
	case errors.Is(err, service.ErrCheckUploadsDisabled):
		writeMessage(w, http.StatusServiceUnavailable, "check uploads are not available.")
	case errors.Is(err, repository.ErrStoreUnavailable):
		slog.Error("store unavailable", "error", err, "path", r.URL.Path, "request_id", ctxkeys.RequestID(r.Context()))
		writeMessage(w, http.StatusServiceUnavailable, "the service is temporarily unavailable.")
	default:
		slog.Error("request failed", "error", err, "path", r.URL.Path, "request_id", ctxkeys.RequestID(r.Context()))
		writeMessage(w, http.StatusInternalServerError, "server error.")
	}
}

// decodeJSON reads a JSON body into dst. A malformed body is reported as a
// validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil {
		return &validation.Error{Message: "request body must be valid JSON."}
	}
	return nil
}
