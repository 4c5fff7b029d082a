// Package handler contains the HTTP handlers of the bond engine API. Callers
// identify themselves with the X-Account header; administrative operations
// are additionally authorized inside the engine.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/curvelabs/bondengine/internal/domain"
)

// accountHeader carries the caller's account identity.
const accountHeader = "X-Account"

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps a domain error to its HTTP status and writes it.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusForError(err), err.Error())
}

// statusForError translates the domain error taxonomy into HTTP statuses.
// Precondition failures that a client can resolve by retrying with fresh
// state map to 409; malformed input maps to 400.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidAddress),
		errors.Is(err, domain.ErrBasisPointsOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrBondAlreadyExists),
		errors.Is(err, domain.ErrPriceMismatch),
		errors.Is(err, domain.ErrSlippageExceeded),
		errors.Is(err, domain.ErrInsufficientSupply),
		errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrNothingToWithdraw),
		errors.Is(err, domain.ErrAlreadyStopped),
		errors.Is(err, domain.ErrExperimentStopped):
		return http.StatusConflict
	case errors.Is(err, domain.ErrArithmeticOverflow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrTransferFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// caller extracts the requesting account from the X-Account header.
func caller(r *http.Request) (domain.Account, bool) {
	v := strings.TrimSpace(r.Header.Get(accountHeader))
	if v == "" {
		return domain.ZeroAccount, false
	}
	return domain.Account(v), true
}

// requireCaller writes a 400 and returns false when no identity header is
// present.
func requireCaller(w http.ResponseWriter, r *http.Request) (domain.Account, bool) {
	acct, ok := caller(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing "+accountHeader+" header")
	}
	return acct, ok
}

// bondIDParam parses the {id} path segment as a bond identifier.
func bondIDParam(w http.ResponseWriter, r *http.Request) (domain.BondID, bool) {
	id, err := domain.ParseBondID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid bond id")
		return domain.BondID{}, false
	}
	return id, true
}

// decodeBody decodes a JSON request body into dst, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// queryUint parses a query parameter as uint64 with a default.
func queryUint(r *http.Request, name string, def uint64) (uint64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.ParseUint(v, 10, 64)
}

// logHandler is a convenience to attach slog fields in handler code.
func logHandler(logger *slog.Logger, handler string) *slog.Logger {
	return logger.With(slog.String("handler", handler))
}
